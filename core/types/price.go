package types

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Price is a quote paired with the decimals exponent of the asset it
// prices, per spec.md §3. ValueOf and AmountOf are exposed as mutual
// inverse operations and both round half-to-even, biasing truncation in
// the caller's favor (smaller payouts) rather than the position holder's.
type Price struct {
	// Quote is the price of one whole unit of the asset, expressed in
	// the credit asset's unit of account.
	Quote decimal.Decimal
	// Decimals is the number of fractional digits the asset's integer
	// amount representation carries (e.g. 6 for a micro-denom).
	Decimals uint32
}

func (p Price) scale() decimal.Decimal {
	return decimal.New(1, int32(p.Decimals))
}

// ValueOf converts an integer token amount into its value in the unit of
// account: value = amount / 10^decimals * quote.
func (p Price) ValueOf(amount *uint256.Int) decimal.Decimal {
	whole, err := DivDecimal(DecimalFromUint256(amount), p.scale())
	if err != nil {
		return decimal.Zero
	}
	return RoundHalfToEven(whole.Mul(p.Quote))
}

// AmountOf converts a value expressed in the unit of account back into an
// integer token amount: amount = value / quote * 10^decimals.
func (p Price) AmountOf(value decimal.Decimal) (*uint256.Int, error) {
	perUnit, err := DivDecimal(value, p.Quote)
	if err != nil {
		return nil, err
	}
	scaled := RoundHalfToEven(perUnit.Mul(p.scale()))
	return Uint256FromDecimalFloor(scaled)
}
