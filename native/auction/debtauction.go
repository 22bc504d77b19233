package auction

import (
	"github.com/shopspring/decimal"

	"creditcore/crypto"
)

// RepaymentPosition is a position whose bad debt this DebtAuction was
// opened to recapitalize.
type RepaymentPosition struct {
	PositionID    uint64
	PositionOwner crypto.Address
}

// DebtAuction is the protocol-wide singleton that mints recap tokens in
// exchange for credit to repay bad debt. A second StartAuction call while
// one is already active tops up RemainingRecapitalization without
// resetting AuctionStartTime.
type DebtAuction struct {
	Schedule DiscountSchedule

	AuctionStartTime          int64
	RemainingRecapitalization decimal.Decimal
	RepaymentPositions        []RepaymentPosition

	cdpCaller crypto.Address
}

// NewDebtAuction constructs an inactive DebtAuction (RemainingRecapitalization
// zero) for the given schedule, privileged to cdpCaller.
func NewDebtAuction(schedule DiscountSchedule, cdpCaller crypto.Address) *DebtAuction {
	return &DebtAuction{Schedule: schedule, cdpCaller: cdpCaller}
}

// StartAuction is callable only by the CDP. If no auction is currently
// active, it opens one at now with the given amount; otherwise it tops
// up the existing auction's remaining recapitalization, leaving
// AuctionStartTime untouched.
func (a *DebtAuction) StartAuction(sender crypto.Address, position RepaymentPosition, amount decimal.Decimal, now int64) error {
	if !sender.Equal(a.cdpCaller) {
		return ErrUnauthorized
	}
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if a.RemainingRecapitalization.Sign() <= 0 {
		a.AuctionStartTime = now
	}
	a.RemainingRecapitalization = a.RemainingRecapitalization.Add(amount)
	a.RepaymentPositions = append(a.RepaymentPositions, position)
	return nil
}

// SwapForMBRN pays `payment` credit into the active auction at the
// current time-decayed discount and mints recap tokens in return.
// Overpayment beyond RemainingRecapitalization is refunded in credit.
func (a *DebtAuction) SwapForMBRN(payment decimal.Decimal, now int64) (minted, refund decimal.Decimal, err error) {
	if payment.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, ErrZeroAmount
	}
	if a.RemainingRecapitalization.Sign() <= 0 {
		return decimal.Zero, payment, ErrNoActiveAuction
	}

	discount := a.Schedule.DiscountAt(now - a.AuctionStartTime)

	consume := payment
	if consume.GreaterThan(a.RemainingRecapitalization) {
		consume = a.RemainingRecapitalization
	}
	refund = payment.Sub(consume)

	retained := decimal.New(1, 0).Sub(discount)
	minted = consume.DivRound(retained, 18).Floor()

	a.RemainingRecapitalization = a.RemainingRecapitalization.Sub(consume)
	if a.RemainingRecapitalization.IsZero() {
		a.RepaymentPositions = nil
	}
	return minted, refund, nil
}

// RemoveAuction is the privileged forced-close entry point.
func (a *DebtAuction) RemoveAuction(sender crypto.Address) error {
	if !sender.Equal(a.cdpCaller) {
		return ErrUnauthorized
	}
	a.RemainingRecapitalization = decimal.Zero
	a.RepaymentPositions = nil
	return nil
}
