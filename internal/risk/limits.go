// Package risk validates and sizes trades against immutable per-cycle
// limits: leverage caps, exposure caps, the minimum order floor and
// confidence thresholds.
package risk

import (
	"fmt"
	"math"
)

// Direction of a position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Valid reports whether the direction is one of the two known values.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Volatility regime used by RiskAdjustedParams.
type Volatility string

const (
	VolNormal Volatility = "normal"
	VolHigh   Volatility = "high"
	VolLow    Volatility = "low"
)

// Limits is read-only risk configuration. It is loaded from config once
// per process and passed by value; nothing in this package mutates it.
type Limits struct {
	MaxLeverage          int
	MaxPositionSizePct   float64 // max single position, % of balance
	MaxTotalExposurePct  float64 // max aggregate exposure, % of equity
	MinConfidence        float64 // [0,1]
	DefaultStopLossPct   float64
	DefaultTakeProfitPct float64
	MinOrderUSD          float64
}

// DefaultLimits matches the shipped configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxLeverage:          10,
		MaxPositionSizePct:   5.0,
		MaxTotalExposurePct:  30.0,
		MinConfidence:        0.6,
		DefaultStopLossPct:   3.0,
		DefaultTakeProfitPct: 5.0,
		MinOrderUSD:          10.0,
	}
}

// InvalidInputError reports an out-of-domain numeric input. Business-rule
// rejections are (bool, reason) values, never errors; this type is reserved
// for inputs that are malformed rather than merely disallowed.
type InvalidInputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func checkFinitePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidInputError{Field: field, Value: v, Reason: "not a finite number"}
	}
	if v <= 0 {
		return &InvalidInputError{Field: field, Value: v, Reason: "must be positive"}
	}
	return nil
}
