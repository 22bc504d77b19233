package stabilitypool

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"creditcore/core/types"
	"creditcore/crypto"
)

func testAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = seed
	}
	a, err := crypto.NewAddress(crypto.CreditPrefix, raw)
	require.NoError(t, err)
	return a
}

func newTestPool(t *testing.T, cdp crypto.Address) *AssetPool {
	t.Helper()
	return NewAssetPool(
		types.NewNativeAsset("ucdt"),
		types.NewNativeAsset("umbrn"),
		decimal.NewFromInt(1),
		100,
		decimal.NewFromFloat(0.0001),
		decimal.Zero,
		cdp,
	)
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	cdp := testAddr(t, 1)
	alice := testAddr(t, 2)
	p := newTestPool(t, cdp)

	require.NoError(t, p.Deposit(alice, decimal.NewFromInt(10), 0))

	out, err := p.Withdraw(alice, decimal.NewFromInt(10), 0)
	require.NoError(t, err)
	require.True(t, out.IsZero()) // still inside unstaking period

	out, err = p.Withdraw(alice, decimal.NewFromInt(10), 100)
	require.NoError(t, err)
	require.True(t, out.Equal(decimal.NewFromInt(10)))
	require.Empty(t, p.Deposits)
}

func TestLiquidateAndDistributeFIFO(t *testing.T) {
	cdp := testAddr(t, 1)
	alice := testAddr(t, 2)
	bob := testAddr(t, 3)
	p := newTestPool(t, cdp)

	require.NoError(t, p.Deposit(alice, decimal.NewFromInt(5), 0))
	require.NoError(t, p.Deposit(bob, decimal.NewFromInt(5), 0))

	burned, leftover, err := p.Liquidate(cdp, decimal.NewFromInt(8), 0)
	require.NoError(t, err)
	require.True(t, burned.Equal(decimal.NewFromInt(8)))
	require.True(t, leftover.IsZero())
	// Alice deposited first: her whole 5-unit deposit is consumed before
	// bob's is touched, leaving only bob's deposit (2 of his original 5).
	require.Len(t, p.Deposits, 1)
	require.True(t, p.Deposits[0].Owner.Equal(bob))
	require.True(t, p.Deposits[0].Amount.Equal(decimal.NewFromInt(2)))

	// debit's 50% ratio covers credit-units [0,4) of the burn line, which
	// falls entirely inside alice's [0,5) segment. 2nddebit's 50% ratio
	// covers [4,8), which splits 1 unit to alice ([4,5)) and 3 units to
	// bob ([5,8)).
	debit := types.NewAsset(types.NewNativeAsset("debit"), 100)
	secondDebit := types.NewAsset(types.NewNativeAsset("2nddebit"), 100)
	ratios := []decimal.Decimal{decimal.NewFromFloat(0.5), decimal.NewFromFloat(0.5)}
	require.NoError(t, p.Distribute(cdp, []types.Asset{debit, secondDebit}, ratios, decimal.NewFromInt(8)))

	aliceClaims := p.UserClaims(alice)
	require.True(t, aliceClaims["native:debit"].Equal(decimal.NewFromInt(100)), aliceClaims["native:debit"].String())
	require.True(t, aliceClaims["native:2nddebit"].Equal(decimal.NewFromInt(25)), aliceClaims["native:2nddebit"].String())

	bobClaims := p.UserClaims(bob)
	_, hasDebit := bobClaims["native:debit"]
	require.False(t, hasDebit)
	require.True(t, bobClaims["native:2nddebit"].Equal(decimal.NewFromInt(75)), bobClaims["native:2nddebit"].String())
}

func TestDistributeRatioLengthMismatch(t *testing.T) {
	cdp := testAddr(t, 1)
	alice := testAddr(t, 2)
	p := newTestPool(t, cdp)
	require.NoError(t, p.Deposit(alice, decimal.NewFromInt(5), 0))
	_, _, err := p.Liquidate(cdp, decimal.NewFromInt(5), 0)
	require.NoError(t, err)

	debit := types.NewAsset(types.NewNativeAsset("debit"), 100)
	err = p.Distribute(cdp, []types.Asset{debit}, nil, decimal.NewFromInt(5))
	require.ErrorIs(t, err, ErrRatioMismatch)
}

func TestUnauthorizedLiquidate(t *testing.T) {
	cdp := testAddr(t, 1)
	stranger := testAddr(t, 9)
	p := newTestPool(t, cdp)
	_, _, err := p.Liquidate(stranger, decimal.NewFromInt(1), 0)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestIncentiveAccrualOnClaim(t *testing.T) {
	cdp := testAddr(t, 1)
	alice := testAddr(t, 2)
	p := newTestPool(t, cdp)
	require.NoError(t, p.Deposit(alice, decimal.NewFromInt(1000), 0))

	result := p.ClaimRewards(alice, 100)
	// rate 0.0001 * amount 1000 * elapsed 100 = 10
	require.True(t, result.Incentive.Equal(decimal.NewFromInt(10)))
}
