package auction

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

func testSchedule() DiscountSchedule {
	return DiscountSchedule{
		InitialDiscount:     decimal.NewFromFloat(0.01),
		IncreasePerInterval: decimal.NewFromFloat(0.01),
		IntervalSeconds:     60,
		MaxDiscount:         decimal.NewFromFloat(1),
	}
}

func TestDebtAuctionStartAndTopUp(t *testing.T) {
	cdp := testAddr(t, 1)
	a := NewDebtAuction(testSchedule(), cdp)

	const start = 1571797419
	require.NoError(t, a.StartAuction(cdp, RepaymentPosition{PositionID: 1}, decimal.NewFromInt(100), start))
	require.True(t, a.RemainingRecapitalization.Equal(decimal.NewFromInt(100)))
	require.EqualValues(t, start, a.AuctionStartTime)

	oneYearLater := int64(start) + 365*24*3600
	require.NoError(t, a.StartAuction(cdp, RepaymentPosition{PositionID: 2}, decimal.NewFromInt(100), oneYearLater))
	require.True(t, a.RemainingRecapitalization.Equal(decimal.NewFromInt(200)))
	require.EqualValues(t, start, a.AuctionStartTime)
}

func TestSwapForMBRNPartialFillThenOverpayRefund(t *testing.T) {
	cdp := testAddr(t, 1)
	a := NewDebtAuction(testSchedule(), cdp)
	require.NoError(t, a.StartAuction(cdp, RepaymentPosition{PositionID: 1}, decimal.NewFromInt(100_000), 0))

	minted, refund, err := a.SwapForMBRN(decimal.NewFromInt(99_000), 5*60)
	require.NoError(t, err)
	require.True(t, refund.IsZero())
	require.True(t, minted.Equal(decimal.NewFromInt(104210)))
	require.True(t, a.RemainingRecapitalization.Equal(decimal.NewFromInt(1_000)))

	_, refund2, err := a.SwapForMBRN(decimal.NewFromInt(3_000), 5*60)
	require.NoError(t, err)
	require.True(t, a.RemainingRecapitalization.IsZero())
	require.True(t, refund2.Equal(decimal.NewFromInt(2_000)))
}

func TestDiscountScheduleMonotone(t *testing.T) {
	s := testSchedule()
	prev := decimal.Zero
	for _, elapsed := range []int64{0, 30, 60, 120, 300, 3600} {
		d := s.DiscountAt(elapsed)
		require.True(t, d.GreaterThanOrEqual(prev))
		prev = d
	}
	require.True(t, s.DiscountAt(300).Equal(decimal.NewFromFloat(0.05)))
}

func TestFeeAuctionRoundTrip(t *testing.T) {
	owner := testAddr(t, 1)
	fa := NewFeeAuction(types.NewNativeAsset("fee-asset"), types.NewNativeAsset("udesired"), owner)
	fa.Schedule = testSchedule()
	require.NoError(t, fa.StartAuction(decimal.NewFromInt(1000), nil, 0))

	out, refund, err := fa.SwapForFee(decimal.NewFromInt(100), 0)
	require.NoError(t, err)
	require.True(t, refund.IsZero())
	require.True(t, out.GreaterThan(decimal.Zero))
	require.True(t, fa.Remaining.LessThan(decimal.NewFromInt(1000)))
}
