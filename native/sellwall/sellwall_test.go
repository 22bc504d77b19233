package sellwall

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"creditcore/core/types"
)

type fakeRouter struct {
	rate decimal.Decimal // credit received per unit collateral
}

func (f *fakeRouter) Swap(_ context.Context, _ types.AssetInfo, quantity decimal.Decimal) (decimal.Decimal, error) {
	return quantity.Mul(f.rate), nil
}

type fakeExiter struct {
	constituents []Claim
}

func (f *fakeExiter) ExitPool(_ context.Context, _ types.AssetInfo, _ decimal.Decimal) ([]Claim, error) {
	return f.constituents, nil
}

func TestPlanDeductions(t *testing.T) {
	claims := []CollateralClaim{
		{Asset: types.NewNativeAsset("debit"), Ratio: decimal.NewFromFloat(0.6), Price: types.Price{Quote: decimal.NewFromInt(2), Decimals: 6}},
		{Asset: types.NewNativeAsset("atom"), Ratio: decimal.NewFromFloat(0.4), Price: types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}},
	}
	out := PlanDeductions(claims, decimal.NewFromInt(100))
	require.True(t, out[0].Quantity.Equal(decimal.NewFromInt(30))) // 60/2
	require.True(t, out[1].Quantity.Equal(decimal.NewFromInt(40))) // 40/1
}

func TestDispatchDirectSwap(t *testing.T) {
	var repaid decimal.Decimal
	hook := func(_ context.Context, _ uint64, credit decimal.Decimal) error {
		repaid = credit
		return nil
	}
	d := NewDispatcher(hook)
	asset := types.NewNativeAsset("debit")
	d.RegisterRouter(asset, &fakeRouter{rate: decimal.NewFromInt(2)})

	err := d.Dispatch(context.Background(), 1, Claim{Asset: asset, Quantity: decimal.NewFromInt(10)}, "")
	require.NoError(t, err)
	require.True(t, repaid.Equal(decimal.NewFromInt(20)))
}

func TestDispatchLPExitThenSwap(t *testing.T) {
	var repaid decimal.Decimal
	hook := func(_ context.Context, _ uint64, credit decimal.Decimal) error {
		repaid = credit
		return nil
	}
	d := NewDispatcher(hook)
	lpAsset := types.NewNativeAsset("lp-share")
	constituentA := types.NewNativeAsset("debit")
	constituentB := types.NewNativeAsset("atom")

	d.RegisterPoolExiter(lpAsset, &fakeExiter{constituents: []Claim{
		{Asset: constituentA, Quantity: decimal.NewFromInt(5)},
		{Asset: constituentB, Quantity: decimal.NewFromInt(5)},
	}})
	d.RegisterRouter(constituentA, &fakeRouter{rate: decimal.NewFromInt(2)})
	d.RegisterRouter(constituentB, &fakeRouter{rate: decimal.NewFromInt(1)})

	err := d.Dispatch(context.Background(), 1, Claim{Asset: lpAsset, Quantity: decimal.NewFromInt(1)}, "pool-1")
	require.NoError(t, err)
	require.True(t, repaid.Equal(decimal.NewFromInt(15))) // 5*2 + 5*1
}

func TestDispatchNoRoute(t *testing.T) {
	d := NewDispatcher(func(context.Context, uint64, decimal.Decimal) error { return nil })
	err := d.Dispatch(context.Background(), 1, Claim{Asset: types.NewNativeAsset("unrouted"), Quantity: decimal.NewFromInt(1)}, "")
	require.ErrorIs(t, err, ErrNoRoute)
}
