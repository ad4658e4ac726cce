// Copyright 2026 Peter Edge
//
// All rights reserved.

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	errRetryable = errors.New("retryable")
	errFatal     = errors.New("fatal")
)

func TestRetry(t *testing.T) {
	t.Parallel()
	policy := Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
	isRetryable := func(err error) bool {
		return errors.Is(err, errRetryable)
	}
	testCases := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectedErr   error
	}{
		{
			name:          "success",
			errs:          []error{nil},
			expectedCalls: 1,
		},
		{
			name:          "success_after_retry",
			errs:          []error{errRetryable, errRetryable, nil},
			expectedCalls: 3,
		},
		{
			name:          "fatal",
			errs:          []error{errRetryable, errFatal},
			expectedCalls: 2,
			expectedErr:   errFatal,
		},
		{
			name:          "exhausted",
			errs:          []error{errRetryable, errRetryable, errRetryable},
			expectedCalls: 3,
			expectedErr:   errRetryable,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			var calls int
			err := Retry(context.Background(), policy, isRetryable, func(context.Context) error {
				err := testCase.errs[calls]
				calls++
				return err
			})
			require.Equal(t, testCase.expectedCalls, calls)
			if testCase.expectedErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, testCase.expectedErr)
		})
	}
}

func TestRetryCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(
		ctx,
		Policy{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour},
		func(error) bool { return true },
		func(context.Context) error { return errRetryable },
	)
	require.ErrorIs(t, err, context.Canceled)
}
