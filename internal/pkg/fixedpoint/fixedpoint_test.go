// Copyright 2026 Peter Edge
//
// All rights reserved.

package fixedpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromFloat(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		value  float64
		factor int
		want   int
	}{
		{0.25, 10000, 2500},
		{1, 10000, 10000},
		{0.3333, 10000, 3333},
		{0.00005, 10000, 1},
		{0.00004, 10000, 0},
		{-0.1, 10000, -1000},
		{1.5, 10000, 15000},
		{0.7, 10000, 7000},
		{math.NaN(), 10000, 0},
		{math.Inf(1), 10000, math.MaxInt},
		{math.Inf(-1), 10000, math.MinInt},
	} {
		require.Equal(t, test.want, FromFloat(test.value, test.factor), "FromFloat(%v, %d)", test.value, test.factor)
	}
}

func TestToFloat(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0.25, ToFloat(2500, 10000))
	require.Equal(t, 0.3333, ToFloat(3333, 10000))
	require.Equal(t, 1.0, ToFloat(10000, 10000))
	require.Equal(t, 0.0, ToFloat(5, 0))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	for value := 0; value <= 10000; value += 7 {
		require.Equal(t, value, FromFloat(ToFloat(value, 10000), 10000))
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0, Clamp(-5, 0, 10000))
	require.Equal(t, 10000, Clamp(15000, 0, 10000))
	require.Equal(t, 2500, Clamp(2500, 0, 10000))
}

func TestToPercentString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "25.00%", ToPercentString(2500, 10000))
	require.Equal(t, "33.33%", ToPercentString(3333, 10000))
	require.Equal(t, "100.00%", ToPercentString(10000, 10000))
	require.Equal(t, "0.00%", ToPercentString(0, 10000))
}
