package basket

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/common"
)

func testAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = seed
	}
	addr, err := crypto.NewAddress(crypto.CreditPrefix, raw)
	require.NoError(t, err)
	return addr
}

func TestAddCollateralOwnerGated(t *testing.T) {
	owner := testAddr(t, 1)
	stranger := testAddr(t, 2)
	b := New(types.NewNativeAsset("ucdt"), types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}, owner)

	coll := CollateralAsset{
		Info:     types.NewNativeAsset("uatom"),
		Price:    types.Price{Quote: decimal.NewFromInt(10), Decimals: 6},
		MaxLTV:   6000,
		Decimals: 6,
	}

	require.ErrorIs(t, b.AddCollateral(stranger, coll), common.ErrNotOwner)
	require.NoError(t, b.AddCollateral(owner, coll))
	require.ErrorIs(t, b.AddCollateral(owner, coll), ErrCollateralExists)

	got, err := b.Collateral(coll.Info)
	require.NoError(t, err)
	require.Equal(t, coll.MaxLTV, got.MaxLTV)
}

func TestFreezeBlocksMutation(t *testing.T) {
	owner := testAddr(t, 1)
	b := New(types.NewNativeAsset("ucdt"), types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}, owner)
	require.NoError(t, b.Freeze(owner))

	coll := CollateralAsset{Info: types.NewNativeAsset("uatom"), Decimals: 6}
	require.ErrorIs(t, b.AddCollateral(owner, coll), ErrBasketFrozen)

	require.NoError(t, b.Unfreeze(owner))
	require.NoError(t, b.AddCollateral(owner, coll))
}

func TestAccrueAndClaimRevenue(t *testing.T) {
	owner := testAddr(t, 1)
	stranger := testAddr(t, 2)
	b := New(types.NewNativeAsset("ucdt"), types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}, owner)

	b.AccrueRevenue(uint256.NewInt(100))
	b.AccrueRevenue(uint256.NewInt(50))

	_, err := b.ClaimRevenue(stranger)
	require.Error(t, err)

	claimed, err := b.ClaimRevenue(owner)
	require.NoError(t, err)
	require.True(t, claimed.Eq(uint256.NewInt(150)))
	require.True(t, b.PendingRevenue.IsZero())
}
