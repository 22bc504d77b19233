package auction

import (
	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
)

// FeeAuction sells a single accrued fee asset for a designated desired
// asset at a time-decaying discount. Fee deposits (StartAuction) are
// public; anyone may top up an open FeeAuction's remaining amount.
type FeeAuction struct {
	Schedule DiscountSchedule

	AuctionAsset  types.AssetInfo
	DesiredAsset  types.AssetInfo
	SendTo        *crypto.Address

	AuctionStartTime int64
	Remaining        decimal.Decimal

	owner *crypto.Address
}

// NewFeeAuction constructs an inactive FeeAuction for the given asset
// pair, privileged for RemoveAuction to owner.
func NewFeeAuction(auctionAsset, desiredAsset types.AssetInfo, owner crypto.Address) *FeeAuction {
	return &FeeAuction{AuctionAsset: auctionAsset, DesiredAsset: desiredAsset, owner: &owner}
}

// StartAuction deposits amount of AuctionAsset into the auction. If no
// auction is active, it opens one at now; otherwise it tops up the
// remaining amount without resetting AuctionStartTime. Fee deposits are
// public.
func (a *FeeAuction) StartAuction(amount decimal.Decimal, sendTo *crypto.Address, now int64) error {
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if a.Remaining.Sign() <= 0 {
		a.AuctionStartTime = now
	}
	a.Remaining = a.Remaining.Add(amount)
	if sendTo != nil {
		a.SendTo = sendTo
	}
	return nil
}

// SwapForFee pays `payment` of DesiredAsset into the active auction at
// the current discount and receives AuctionAsset in return. Overpayment
// beyond Remaining is refunded in DesiredAsset.
func (a *FeeAuction) SwapForFee(payment decimal.Decimal, now int64) (assetOut, refund decimal.Decimal, err error) {
	if payment.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, ErrZeroAmount
	}
	if a.Remaining.Sign() <= 0 {
		return decimal.Zero, payment, ErrNoActiveAuction
	}

	discount := a.Schedule.DiscountAt(now - a.AuctionStartTime)
	retained := decimal.New(1, 0).Sub(discount)

	wanted := payment.DivRound(retained, 18)
	consume := wanted
	refund = decimal.Zero
	if consume.GreaterThan(a.Remaining) {
		consume = a.Remaining
		// Payment actually owed for the consumed portion, at the same
		// discount, so overpay is refunded precisely.
		owed := consume.Mul(retained)
		refund = payment.Sub(owed)
		if refund.Sign() < 0 {
			refund = decimal.Zero
		}
	}

	a.Remaining = a.Remaining.Sub(consume)
	return consume, refund, nil
}

// RemoveAuction is the privileged forced-close entry point.
func (a *FeeAuction) RemoveAuction(sender crypto.Address) error {
	if a.owner != nil && !a.owner.Equal(sender) {
		return ErrUnauthorized
	}
	a.Remaining = decimal.Zero
	return nil
}
