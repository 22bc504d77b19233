// Package auction implements the two auction flavors that close out bad
// debt and liquidate accrued fee assets: a singleton DebtAuction that
// mints recapitalization tokens against outstanding bad debt, and a
// per-asset FeeAuction that sells collected fees for a desired asset.
// Both apply the same deterministic, monotone, time-decaying discount
// schedule.
package auction

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNoActiveAuction is returned when a swap is attempted against an
// auction with no remaining amount.
var ErrNoActiveAuction = errors.New("auction: no active auction")

// ErrUnauthorized is returned when a privileged entry point is called by
// a sender other than the configured caller.
var ErrUnauthorized = errors.New("auction: unauthorized caller")

// ErrZeroAmount is returned when a required positive quantity is zero.
var ErrZeroAmount = errors.New("auction: zero amount")

// DiscountSchedule is the deterministic, monotone discount curve shared
// by both auction flavors: the discount floor is InitialDiscount, and it
// steps up by IncreasePerInterval every IntervalSeconds elapsed, capped
// at MaxDiscount.
type DiscountSchedule struct {
	InitialDiscount     decimal.Decimal
	IncreasePerInterval decimal.Decimal
	IntervalSeconds     int64
	MaxDiscount         decimal.Decimal
}

// DiscountAt returns the discount fraction applicable after elapsed
// seconds since the auction started. It is non-decreasing in elapsed,
// satisfying the "discount monotone" testable property of spec.md §8.
func (s DiscountSchedule) DiscountAt(elapsed int64) decimal.Decimal {
	if elapsed < 0 {
		elapsed = 0
	}
	max := s.MaxDiscount
	if max.IsZero() {
		max = decimal.New(1, 0)
	}

	stepped := decimal.Zero
	if s.IntervalSeconds > 0 {
		ticks := elapsed / s.IntervalSeconds
		stepped = decimal.NewFromInt(ticks).Mul(s.IncreasePerInterval)
	}

	discount := s.InitialDiscount
	if stepped.GreaterThan(discount) {
		discount = stepped
	}
	if discount.GreaterThan(max) {
		discount = max
	}
	return discount
}
