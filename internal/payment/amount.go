package payment

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount (rupees) to minor units (paise),
// rounding half away from zero: round(amount × 100).
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// ValidAmount reports whether amount is finite and strictly positive.
func ValidAmount(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount > 0
}
