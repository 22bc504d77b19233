package vault

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"creditcore/core/types"
)

type fakeCDP struct {
	collateral decimal.Decimal
	debt       decimal.Decimal
	rate       decimal.Decimal
}

func (f *fakeCDP) DepositCollateral(context.Context, uint64, types.AssetInfo, decimal.Decimal) error {
	return nil
}

func (f *fakeCDP) Borrow(_ context.Context, _ uint64, amount decimal.Decimal) error {
	f.debt = f.debt.Add(amount)
	return nil
}

func (f *fakeCDP) Repay(_ context.Context, _ uint64, amount decimal.Decimal) error {
	f.debt = f.debt.Sub(amount)
	if f.debt.Sign() < 0 {
		f.debt = decimal.Zero
	}
	return nil
}

func (f *fakeCDP) WithdrawCollateral(_ context.Context, _ uint64, _ types.AssetInfo, amount decimal.Decimal) error {
	if amount.GreaterThan(f.collateral) {
		return ErrZeroAmount
	}
	f.collateral = f.collateral.Sub(amount)
	return nil
}

func (f *fakeCDP) OutstandingDebt(uint64) decimal.Decimal { return f.debt }

func (f *fakeCDP) BorrowRate(uint64, int64) decimal.Decimal { return f.rate }

// primeAPRHistory seeds underlying's APR tracker with two samples a
// week apart showing growthFactor worth of change, then leaves the vault
// holding growthFactor of liquid underlying against its 1e6 shares so its
// live rate matches the last sample.
func primeAPRHistory(v *SPVault, growthFactor decimal.Decimal) {
	v.TotalShares = decimal.NewFromInt(1_000_000)
	v.TotalUnderlying = decimal.NewFromInt(1)
	v.checkpointRate(0)
	v.TotalUnderlying = growthFactor
	v.checkpointRate(7 * 24 * 3600)
	v.Liquid = growthFactor
}

func newTestLeveragedVault(t *testing.T, cdp *fakeCDP, growthFactor decimal.Decimal) *LeveragedVault {
	t.Helper()
	vaultAddr := testVaultAddr(t, 5)
	pool := &fakePool{}
	underlying := NewSPVault(types.NewNativeAsset("debit"), decimal.Zero, pool, &fakeCompoundRouter{rate: decimal.NewFromInt(1)}, vaultAddr)
	primeAPRHistory(underlying, growthFactor)

	owner := testVaultAddr(t, 6)
	swap := &fakeCompoundRouter{rate: decimal.NewFromInt(1)}
	return NewLeveragedVault(underlying, types.NewNativeAsset("debit"), types.NewNativeAsset("ucdt"), cdp, swap, swap, 1, 2, decimal.NewFromFloat(0.5), decimal.Zero, owner)
}

func TestLoopCDPRejectsWhenUnprofitable(t *testing.T) {
	cdp := &fakeCDP{}
	lv := newTestLeveragedVault(t, cdp, decimal.NewFromFloat(0.5)) // shrinking rate: unprofitable

	depositor := testVaultAddr(t, 7)
	_, err := lv.LoopCDP(context.Background(), depositor, decimal.NewFromInt(100), decimal.Zero, 7*24*3600)
	require.ErrorIs(t, err, ErrUnprofitable)
}

func TestLoopCDPBorrowsAndRedepositsWhileProfitable(t *testing.T) {
	cdp := &fakeCDP{}
	lv := newTestLeveragedVault(t, cdp, decimal.NewFromInt(2)) // doubling rate: profitable

	depositor := testVaultAddr(t, 7)
	minted, err := lv.LoopCDP(context.Background(), depositor, decimal.NewFromInt(100), decimal.Zero, 7*24*3600)
	require.NoError(t, err)
	require.True(t, minted.Sign() > 0)
	require.True(t, cdp.debt.Sign() > 0, cdp.debt.String())
	require.True(t, lv.TotalUnderlying.Sign() > 0)
}

func TestLoopCDPRespectsMaxMintAmount(t *testing.T) {
	cdp := &fakeCDP{}
	lv := newTestLeveragedVault(t, cdp, decimal.NewFromInt(2))

	depositor := testVaultAddr(t, 7)
	_, err := lv.LoopCDP(context.Background(), depositor, decimal.NewFromInt(100), decimal.NewFromInt(10), 7*24*3600)
	require.NoError(t, err)
	require.True(t, cdp.debt.LessThanOrEqual(decimal.NewFromInt(10)), cdp.debt.String())
}

func TestUnloopCDPRejectsWhileProfitable(t *testing.T) {
	cdp := &fakeCDP{}
	lv := newTestLeveragedVault(t, cdp, decimal.NewFromInt(2)) // profitable

	owner := testVaultAddr(t, 6)
	_, err := lv.UnloopCDP(context.Background(), owner, decimal.NewFromInt(10), 7*24*3600)
	require.ErrorIs(t, err, ErrStillProfitable)
}

func TestUnloopCDPRepaysDebtBeforeWithdrawing(t *testing.T) {
	cdp := &fakeCDP{collateral: decimal.NewFromInt(100), debt: decimal.NewFromInt(40)}
	lv := newTestLeveragedVault(t, cdp, decimal.NewFromFloat(0.5)) // unprofitable
	lv.TotalShares = decimal.NewFromInt(100_000_000)
	lv.TotalUnderlying = decimal.NewFromInt(100)

	owner := testVaultAddr(t, 6)
	_, err := lv.UnloopCDP(context.Background(), owner, decimal.NewFromInt(1), 7*24*3600)
	require.NoError(t, err)
	require.True(t, cdp.debt.LessThan(decimal.NewFromInt(40)), cdp.debt.String())
	require.True(t, cdp.collateral.LessThan(decimal.NewFromInt(100)), cdp.collateral.String())
}
