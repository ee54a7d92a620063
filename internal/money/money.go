// Package money provides fixed-point decimal helpers shared across the
// ledger, FX, and valuation packages. Floating point is never used for
// monetary or quantity values.
package money

import "github.com/shopspring/decimal"

// QuantityEpsilon is the threshold below which a position or lot quantity
// is treated as zero.
var QuantityEpsilon = decimal.New(1, -7)

// Zero and One are convenience singletons.
var (
	Zero = decimal.Zero
	One  = decimal.New(1, 0)
)

// IsNegligible reports whether d is within QuantityEpsilon of zero.
func IsNegligible(d decimal.Decimal) bool {
	return d.Abs().LessThan(QuantityEpsilon)
}

// RoundDP rounds d to places decimal digits. Rounding is for output only;
// internal arithmetic always carries full precision.
func RoundDP(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}
