package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAssetInfoEqualityIsStructural(t *testing.T) {
	a := NewNativeAsset("udebit")
	b := NewNativeAsset("udebit")
	require.True(t, a.Equal(b))

	tokA := NewTokenAsset([]byte{1, 2, 3})
	tokB := NewTokenAsset([]byte{1, 2, 3})
	require.True(t, tokA.Equal(tokB))
	require.False(t, a.Equal(tokA))
}

func TestPriceValueAndAmountAreInverse(t *testing.T) {
	price := Price{Quote: decimal.NewFromFloat(1.5), Decimals: 6}
	amount := uint256.NewInt(2_000_000) // 2 whole units
	value := price.ValueOf(amount)
	require.True(t, value.Equal(decimal.NewFromFloat(3.0)))

	roundTrip, err := price.AmountOf(value)
	require.NoError(t, err)
	require.True(t, roundTrip.Eq(amount))
}

func TestLedgerTransferInsufficientBalance(t *testing.T) {
	src := NewAccount()
	dst := NewAccount()
	denom := NewNativeAsset("udebit")
	src.Credit(denom, uint256.NewInt(100))

	err := Transfer(src, dst, denom, uint256.NewInt(150))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.True(t, dst.Balance(denom).IsZero())

	require.NoError(t, Transfer(src, dst, denom, uint256.NewInt(100)))
	require.True(t, src.Balance(denom).IsZero())
	require.True(t, dst.Balance(denom).Eq(uint256.NewInt(100)))
}
