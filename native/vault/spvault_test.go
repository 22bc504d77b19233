package vault

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/stabilitypool"
)

func testVaultAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = seed
	}
	a, err := crypto.NewAddress(crypto.CreditPrefix, raw)
	require.NoError(t, err)
	return a
}

type fakePool struct {
	staked    decimal.Decimal
	withdrawn decimal.Decimal
	claim     stabilitypool.ClaimResult
	claims    map[string]decimal.Decimal
	exploit   decimal.Decimal
}

func (f *fakePool) Deposit(_ crypto.Address, amount decimal.Decimal, _ int64) error {
	f.staked = f.staked.Add(amount)
	return nil
}

func (f *fakePool) Withdraw(_ crypto.Address, amount decimal.Decimal, _ int64) (decimal.Decimal, error) {
	out := amount
	if out.GreaterThan(f.staked) {
		out = f.staked
	}
	f.staked = f.staked.Sub(out)
	return out, nil
}

func (f *fakePool) Total() decimal.Decimal { return f.staked.Sub(f.exploit) }

func (f *fakePool) ClaimRewards(crypto.Address, int64) stabilitypool.ClaimResult {
	return f.claim
}

func (f *fakePool) UserClaims(crypto.Address) map[string]decimal.Decimal {
	return f.claims
}

type fakeCompoundRouter struct {
	rate decimal.Decimal
}

func (f *fakeCompoundRouter) Swap(_ context.Context, _ types.AssetInfo, quantity decimal.Decimal) (decimal.Decimal, error) {
	return quantity.Mul(f.rate), nil
}

func TestSPVaultEnterSplitsLiquidAndStaked(t *testing.T) {
	vaultAddr := testVaultAddr(t, 1)
	pool := &fakePool{}
	v := NewSPVault(types.NewNativeAsset("debit"), decimal.NewFromFloat(0.2), pool, &fakeCompoundRouter{rate: decimal.NewFromInt(1)}, vaultAddr)

	depositor := testVaultAddr(t, 2)
	minted, err := v.Enter(depositor, decimal.NewFromInt(100), 0)
	require.NoError(t, err)
	require.True(t, minted.Equal(decimal.NewFromInt(100_000_000)))
	require.True(t, v.Liquid.Equal(decimal.NewFromInt(20)))
	require.True(t, pool.staked.Equal(decimal.NewFromInt(80)))
}

func TestSPVaultExitDrawsLiquidFirst(t *testing.T) {
	vaultAddr := testVaultAddr(t, 1)
	pool := &fakePool{}
	v := NewSPVault(types.NewNativeAsset("debit"), decimal.NewFromFloat(0.2), pool, &fakeCompoundRouter{rate: decimal.NewFromInt(1)}, vaultAddr)

	depositor := testVaultAddr(t, 2)
	minted, err := v.Enter(depositor, decimal.NewFromInt(100), 0)
	require.NoError(t, err)

	out, err := v.Exit(context.Background(), depositor, minted, 0)
	require.NoError(t, err)
	require.True(t, out.Equal(decimal.NewFromInt(100)))
	require.True(t, v.Liquid.IsZero())
	require.True(t, pool.staked.IsZero())
}

func TestSPVaultCompoundRealizesYield(t *testing.T) {
	vaultAddr := testVaultAddr(t, 1)
	pool := &fakePool{claim: stabilitypool.ClaimResult{
		Assets:    map[string]decimal.Decimal{"native:atom": decimal.NewFromInt(10)},
		Incentive: decimal.NewFromInt(5),
	}}
	v := NewSPVault(types.NewNativeAsset("debit"), decimal.NewFromFloat(0.2), pool, &fakeCompoundRouter{rate: decimal.NewFromInt(2)}, vaultAddr)

	depositor := testVaultAddr(t, 2)
	_, err := v.Enter(depositor, decimal.NewFromInt(100), 0)
	require.NoError(t, err)

	realized, err := v.Compound(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, realized.Equal(decimal.NewFromInt(30))) // (10+5)*2
	require.True(t, v.TotalUnderlying.Equal(decimal.NewFromInt(130)))
}

func TestSPVaultBlocksEnterExitWithPendingClaims(t *testing.T) {
	vaultAddr := testVaultAddr(t, 1)
	pool := &fakePool{claims: map[string]decimal.Decimal{"native:atom": decimal.NewFromInt(1)}}
	v := NewSPVault(types.NewNativeAsset("debit"), decimal.NewFromFloat(0.2), pool, &fakeCompoundRouter{rate: decimal.NewFromInt(1)}, vaultAddr)

	depositor := testVaultAddr(t, 2)
	_, err := v.Enter(depositor, decimal.NewFromInt(100), 0)
	require.ErrorIs(t, err, ErrPendingClaims)

	_, err = v.Exit(context.Background(), depositor, decimal.NewFromInt(1), 0)
	require.ErrorIs(t, err, ErrPendingClaims)
}

func TestSPVaultDiscountsUnderlyingWhenPoolExploited(t *testing.T) {
	vaultAddr := testVaultAddr(t, 1)
	pool := &fakePool{}
	v := NewSPVault(types.NewNativeAsset("debit"), decimal.Zero, pool, &fakeCompoundRouter{rate: decimal.NewFromInt(1)}, vaultAddr)

	depositor := testVaultAddr(t, 2)
	_, err := v.Enter(depositor, decimal.NewFromInt(100), 0)
	require.NoError(t, err)
	require.True(t, v.recordedStake.Equal(decimal.NewFromInt(100)))

	// The pool reports half its recorded stake lost to an exploit: the
	// reported underlying should haircut the staked half by the same
	// fraction it is already short (50% of 50 = 25), not pass the raw
	// half straight through.
	pool.exploit = decimal.NewFromInt(50)
	underlying := v.VaultTokenUnderlying(decimal.NewFromInt(100_000_000))
	require.True(t, underlying.Equal(decimal.NewFromInt(25)), underlying.String())
}
