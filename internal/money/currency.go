package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnitFactor is the decimal multiplier a minor-unit code represents of
// its major currency (GBp = 0.01 GBP, etc).
var minorUnitFactor = decimal.New(1, -2)

// minorToMajor maps a minor-unit currency code to its major ISO-4217 code.
var minorToMajor = map[string]string{
	"GBp": "GBP",
	"GBX": "GBP",
	"ZAc": "ZAR",
	"ZAC": "ZAR",
	"ILA": "ILS",
	"KWF": "KWD",
}

// NormalizeCurrencyCode resolves a currency code to its major-unit ISO-4217
// form. Minor-unit codes (GBp/GBX, ZAc/ZAC, ILA, KWF) resolve to their major
// equivalent. The comparison against the minor-unit table is case-sensitive
// for the mixed-case codes (GBp, ZAc) since that casing is how these codes
// are distinguished from their all-caps relatives (GBP, ZAR).
func NormalizeCurrencyCode(code string) string {
	if major, ok := minorToMajor[code]; ok {
		return major
	}
	return strings.ToUpper(code)
}

// IsMinorUnit reports whether code is a recognized minor-unit currency code.
func IsMinorUnit(code string) bool {
	_, ok := minorToMajor[code]
	return ok
}

// NormalizeAmount converts an amount expressed in a possibly-minor-unit
// currency into its major-unit equivalent, returning the normalized amount
// and the normalized currency code.
func NormalizeAmount(amount decimal.Decimal, code string) (decimal.Decimal, string) {
	if IsMinorUnit(code) {
		return amount.Mul(minorUnitFactor), NormalizeCurrencyCode(code)
	}
	return amount, NormalizeCurrencyCode(code)
}

// DenormalizationMultiplier returns the multiplier to convert a major-unit
// amount back into the given (possibly minor-unit) currency code.
func DenormalizationMultiplier(code string) decimal.Decimal {
	if IsMinorUnit(code) {
		return decimal.New(1, 2)
	}
	return One
}

// ValidateCurrencyCode rejects anything that isn't a recognized minor-unit
// code or a plain 3-letter code, after normalization.
func ValidateCurrencyCode(code string) error {
	if IsMinorUnit(code) {
		return nil
	}
	upper := strings.ToUpper(code)
	if len(upper) != 3 {
		return fmt.Errorf("invalid currency code %q: want 3 letters", code)
	}
	for _, r := range upper {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("invalid currency code %q: want 3 letters", code)
		}
	}
	return nil
}
