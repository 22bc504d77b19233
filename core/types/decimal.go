package types

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ErrDivideByZero is the fatal error kind required by spec.md §3: division
// by zero in the monetary/ratio math is never a silent zero.
var ErrDivideByZero = errors.New("creditcore: division by zero")

// DecimalDigits is the fractional precision carried by every ratio/price
// computation in this module, matching spec.md §3's "256-bit-backed
// decimal with 18-digit fractional precision".
const DecimalDigits = 18

func init() {
	decimal.DivisionPrecision = DecimalDigits + 2
}

// One is the decimal constant 1.
func One() decimal.Decimal { return decimal.New(1, 0) }

// DecimalFromUint256 converts an integer amount into a decimal value,
// preserving full precision.
func DecimalFromUint256(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// Uint256FromDecimalFloor converts a non-negative decimal value into a
// uint256 amount, truncating any fractional remainder (floor rounding).
// Negative inputs are fatal since token amounts may never go negative.
func Uint256FromDecimalFloor(v decimal.Decimal) (*uint256.Int, error) {
	if v.IsNegative() {
		return nil, errors.New("creditcore: negative amount")
	}
	big := v.Truncate(0).BigInt()
	out, overflow := uint256.FromBig(big)
	if overflow {
		return nil, errors.New("creditcore: amount overflows 256 bits")
	}
	return out, nil
}

// DivDecimal divides a by b, returning ErrDivideByZero instead of a silent
// zero or panic when b is zero.
func DivDecimal(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivideByZero
	}
	return a.DivRound(b, int32(DecimalDigits)), nil
}

// RoundHalfToEven rounds v to the configured decimal precision using
// banker's rounding, matching spec.md §3's "round half-to-even against
// the caller's interest (prefer smaller payouts)" requirement for Price
// conversions.
func RoundHalfToEven(v decimal.Decimal) decimal.Decimal {
	return v.RoundBank(DecimalDigits)
}
