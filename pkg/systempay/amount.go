package systempay

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToMinorUnits converts a decimal amount to the integer representation the
// gateway expects. The amount is first rounded half away from zero to
// exponent digits (10.005 EUR becomes 1001), then scaled and truncated.
func ToMinorUnits(amount decimal.Decimal, exponent int32) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, amount.String())
	}
	if exponent < 0 {
		return 0, fmt.Errorf("%w: negative exponent %d", ErrInvalidAmount, exponent)
	}
	scaled := amount.Round(exponent).Shift(exponent).Truncate(0)
	if !scaled.IsInteger() || scaled.GreaterThan(decimal.NewFromInt(maxMinorUnits)) {
		return 0, fmt.Errorf("%w: amount %s out of range", ErrInvalidAmount, amount.String())
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits for amounts echoed back by
// the gateway.
func FromMinorUnits(minor int64, exponent int32) decimal.Decimal {
	return decimal.New(minor, -exponent)
}

// maxMinorUnits keeps amounts within int64.
const maxMinorUnits = int64(1) << 62
