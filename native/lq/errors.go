// Package lq implements the liquidation queue: a premium-tiered bid book
// that buys collateral at a discount during a position liquidation, using
// the Liquity-style scalable reward distribution algorithm to settle
// pro-rata claims across active bidders without a per-bidder loop.
package lq

import "errors"

var (
	// ErrInvalidPremium is returned when a bid's premium tier exceeds the
	// queue's configured maximum.
	ErrInvalidPremium = errors.New("lq: premium tier out of range")
	// ErrBelowMinimumBid is returned when a submitted bid is below the
	// queue's minimum bid size.
	ErrBelowMinimumBid = errors.New("lq: amount below minimum bid")
	// ErrTooManyWaitingBids is returned when a slot's waiting list is full.
	ErrTooManyWaitingBids = errors.New("lq: maximum waiting bids reached")
	// ErrBidNotFound is returned when a bid id does not exist in the slot
	// it is claimed to belong to.
	ErrBidNotFound = errors.New("lq: bid not found")
	// ErrNotBidOwner is returned when the caller does not own the bid it
	// is retracting or claiming.
	ErrNotBidOwner = errors.New("lq: sender does not own bid")
	// ErrUnauthorized is returned when a privileged entry point is called
	// by a sender other than the configured CDP module address.
	ErrUnauthorized = errors.New("lq: unauthorized caller")
	// ErrZeroAmount is returned when a required positive quantity is zero.
	ErrZeroAmount = errors.New("lq: zero amount")
)
