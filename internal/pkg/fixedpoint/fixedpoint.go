// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package fixedpoint provides helper functions for working with integer fixed-point values,
// where a value v with factor f represents the decimal number v/f.
//
// All conversions go through decimal arithmetic so that values such as 0.3333 with a factor
// of 10000 map to exactly 3333 instead of drifting through binary floating point.
package fixedpoint

import (
	"math"

	"github.com/shopspring/decimal"
)

// FromFloat converts the decimal number value to a fixed-point integer with the given factor,
// rounding half away from zero.
//
// Values outside of the int range saturate to math.MinInt or math.MaxInt.
func FromFloat(value float64, factor int) int {
	if math.IsNaN(value) {
		return 0
	}
	if math.IsInf(value, 1) {
		return math.MaxInt
	}
	if math.IsInf(value, -1) {
		return math.MinInt
	}
	scaled := decimal.NewFromFloat(value).Mul(decimal.NewFromInt(int64(factor))).Round(0)
	// Saturate instead of overflowing.
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt)) {
		return math.MaxInt
	}
	if scaled.LessThan(decimal.NewFromInt(math.MinInt)) {
		return math.MinInt
	}
	return int(scaled.IntPart())
}

// ToFloat converts a fixed-point integer with the given factor to its decimal number.
func ToFloat(value int, factor int) float64 {
	if factor == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(value)).Div(decimal.NewFromInt(int64(factor))).InexactFloat64()
}

// Clamp restricts value to the closed interval [minValue, maxValue].
func Clamp(value int, minValue int, maxValue int) int {
	return max(minValue, min(value, maxValue))
}

// ToPercentString formats a fixed-point value whose factor represents 100% as a percentage
// with two decimal places (e.g., 2500 with factor 10000 is "25.00%").
func ToPercentString(value int, oneHundredPercent int) string {
	if oneHundredPercent == 0 {
		return "0.00%"
	}
	percent := decimal.NewFromInt(int64(value)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(oneHundredPercent)))
	return percent.StringFixed(2) + "%"
}
