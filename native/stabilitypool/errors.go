// Package stabilitypool implements the Stability Pool: pooled credit
// depositors who absorb liquidated debt in exchange for a pro-rata share
// of the liquidated collateral, plus a linear incentive emission while
// their deposit is active.
package stabilitypool

import "errors"

var (
	// ErrMinimumDeposit is returned when a deposit is below the pool's
	// configured floor.
	ErrMinimumDeposit = errors.New("stabilitypool: deposit below minimum")
	// ErrInvalidWithdrawal is returned when a withdrawal amount exceeds
	// the caller's available deposits.
	ErrInvalidWithdrawal = errors.New("stabilitypool: invalid withdrawal amount")
	// ErrUnauthorized is returned when a CDP-only entry point is called by
	// another sender.
	ErrUnauthorized = errors.New("stabilitypool: unauthorized caller")
	// ErrZeroAmount is returned when a required positive quantity is zero.
	ErrZeroAmount = errors.New("stabilitypool: zero amount")
	// ErrInsufficientPool is returned when Distribute finds no pending
	// burn batch whose total equals distributeFor.
	ErrInsufficientPool = errors.New("stabilitypool: insufficient pool balance")
	// ErrRatioMismatch is returned when Distribute is called with a
	// different number of distribution_asset_ratios than distribution_assets.
	ErrRatioMismatch = errors.New("stabilitypool: distribution_asset_ratios length mismatch")
)
