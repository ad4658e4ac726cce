// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package backoff provides exponential backoff with jitter for retrying operations.
package backoff

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy configures Retry.
type Policy struct {
	// MaxAttempts is the maximum number of calls, including the first.
	MaxAttempts int
	// InitialDelay is the delay after the first failed attempt.
	InitialDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
}

// Retry calls f until it succeeds, fails with an error that isRetryable rejects,
// or policy.MaxAttempts is reached. Between attempts, it waits with exponential
// backoff and jitter.
func Retry(
	ctx context.Context,
	policy Policy,
	isRetryable func(error) bool,
	f func(ctx context.Context) error,
) error {
	maxAttempts := max(policy.MaxAttempts, 1)
	delay := policy.InitialDelay
	var err error
	for attempt := range maxAttempts {
		if err = f(ctx); err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		// Don't wait after the last attempt.
		if attempt == maxAttempts-1 {
			break
		}
		// Wait with jitter: random duration between delay/2 and delay.
		jitteredDelay := delay/2 + time.Duration(rand.Int64N(int64(delay/2+1)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitteredDelay):
		}
		delay = min(delay*2, policy.MaxDelay)
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
}
