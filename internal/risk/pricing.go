package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// Price arithmetic goes through decimal so boundary comparisons
// (current == stop) behave exactly at the configured percentages.

var decOne = decimal.NewFromInt(1)

func decFromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func decToFloat(v decimal.Decimal) float64 {
	f, _ := v.Float64()
	return f
}

// relativePrice computes entry scaled by +/- pct percent. A long stop sits
// below entry and a short stop above; take-profits invert the sign.
func relativePrice(entry, pct float64, below bool) float64 {
	frac := decFromFloat(pct).Div(decimal.NewFromInt(100))
	base := decFromFloat(entry)
	if below {
		return decToFloat(base.Mul(decOne.Sub(frac)))
	}
	return decToFloat(base.Mul(decOne.Add(frac)))
}

func decimalLTE(a, b float64) bool {
	return decFromFloat(a).Cmp(decFromFloat(b)) <= 0
}

func decimalGTE(a, b float64) bool {
	return decFromFloat(a).Cmp(decFromFloat(b)) >= 0
}
