package lq

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

func newTestQueue(t *testing.T, cdp crypto.Address) *Queue {
	t.Helper()
	premiums := []decimal.Decimal{decimal.Zero, decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.10)}
	return NewQueue(
		types.NewNativeAsset("debit"),
		types.NewNativeAsset("ucdt"),
		premiums,
		decimal.NewFromInt(10),
		decimal.NewFromInt(5),
		100,
		10,
		cdp,
	)
}

func TestWaitingBidAdmission(t *testing.T) {
	cdp := testAddr(t, 1)
	bidder := testAddr(t, 2)
	q := newTestQueue(t, cdp)

	b1, err := q.SubmitBid(bidder, 0, decimal.NewFromInt(8), 1000)
	require.NoError(t, err)
	require.False(t, b1.IsWaiting())
	require.True(t, q.Slots[0].TotalActive.Equal(decimal.NewFromInt(8)))

	active, err := q.SubmitBid(bidder, 0, decimal.NewFromInt(5), 1000)
	require.NoError(t, err)
	require.True(t, active.Amount.Equal(decimal.NewFromInt(2)))
	require.Len(t, q.Slots[0].Waiting, 1)
	require.True(t, q.Slots[0].Waiting[0].Amount.Equal(decimal.NewFromInt(3)))

	// Touch the slot after wait_end: the waiting bid is promoted.
	q.Slots[0].promoteWaiting(1000+100+1, q.BidThreshold, decimal.NewFromInt(q.WaitingPeriod))
	require.Empty(t, q.Slots[0].Waiting)
	require.True(t, q.Slots[0].TotalActive.Equal(decimal.NewFromInt(13)))
}

func TestExecuteLiquidationSingleBidFullFill(t *testing.T) {
	cdp := testAddr(t, 1)
	bidder := testAddr(t, 2)
	q := newTestQueue(t, cdp)
	q.MinimumBid = decimal.NewFromInt(1)

	_, err := q.SubmitBid(bidder, 0, decimal.NewFromInt(1), 0) // zero-premium tier, exact fill

	require.NoError(t, err)

	collateralPrice := types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}
	creditPrice := types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}

	repaid, leftover, err := q.ExecuteLiquidation(cdp, decimal.NewFromInt(1), collateralPrice, creditPrice, 1, bidder, 0)
	require.NoError(t, err)
	require.True(t, repaid.Equal(decimal.NewFromInt(1)))
	require.True(t, leftover.IsZero())
	require.True(t, q.Slots[0].TotalActive.IsZero())
}

func TestExecuteLiquidationUnauthorized(t *testing.T) {
	cdp := testAddr(t, 1)
	stranger := testAddr(t, 3)
	q := newTestQueue(t, cdp)

	_, _, err := q.ExecuteLiquidation(stranger, decimal.NewFromInt(1),
		types.Price{Quote: decimal.NewFromInt(1), Decimals: 6},
		types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}, 1, stranger, 0)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLQProRataAcrossTwoBids(t *testing.T) {
	cdp := testAddr(t, 1)
	alice := testAddr(t, 2)
	bob := testAddr(t, 3)
	q := newTestQueue(t, cdp)
	q.BidThreshold = decimal.NewFromInt(100)

	_, err := q.SubmitBid(alice, 0, decimal.NewFromInt(30), 0)
	require.NoError(t, err)
	_, err = q.SubmitBid(bob, 0, decimal.NewFromInt(70), 0)
	require.NoError(t, err)

	collateralPrice := types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}
	creditPrice := types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}

	repaid, leftover, err := q.ExecuteLiquidation(cdp, decimal.NewFromInt(50), collateralPrice, creditPrice, 1, alice, 0)
	require.NoError(t, err)
	require.True(t, repaid.Equal(decimal.NewFromInt(50)))
	require.True(t, leftover.IsZero())

	claimedAlice := q.ClaimLiquidations(alice, nil, 0)
	claimedBob := q.ClaimLiquidations(bob, nil, 0)
	require.True(t, claimedAlice.Add(claimedBob).Equal(decimal.NewFromInt(50)))
	require.True(t, claimedAlice.Equal(decimal.NewFromInt(15))) // 30% of 50
	require.True(t, claimedBob.Equal(decimal.NewFromInt(35)))  // 70% of 50
}
