// Package cdp implements the Position Liquidator: the component that
// decides a collateralized debt position is insolvent, computes its
// repay amount, allocates caller/protocol fees, and orchestrates the
// liquidation waterfall across the liquidation queue, the stability
// pool, and the sell-wall, per spec.md §4.A.
package cdp

import "errors"

var (
	// ErrUnauthorized is returned when a privileged entry point is called
	// by a sender other than its configured caller.
	ErrUnauthorized = errors.New("cdp: unauthorized caller")
	// ErrPositionNotFound is returned when a referenced position id does
	// not exist for the given owner.
	ErrPositionNotFound = errors.New("cdp: position not found")
	// ErrInvalidAsset is returned when a caller references a collateral
	// asset the basket has not registered.
	ErrInvalidAsset = errors.New("cdp: invalid or unregistered asset")
	// ErrZeroAmount is returned when a required positive quantity is zero.
	ErrZeroAmount = errors.New("cdp: zero amount")
	// ErrPositionSolvent is returned when Liquidate is attempted on a
	// position whose current_LTV does not exceed its avg_max_LTV.
	ErrPositionSolvent = errors.New("cdp: position is solvent")
	// ErrFaultyCalc is returned when the computed repay amount would
	// overshoot the position's outstanding credit.
	ErrFaultyCalc = errors.New("cdp: repay calculation overshoots outstanding debt")
	// ErrInsufficientCollateral is returned when a collateral deduction
	// would remove more collateral than the position holds. Liquidation
	// fee deduction caps at the held amount instead of returning it.
	ErrInsufficientCollateral = errors.New("cdp: insufficient collateral")
	// ErrInsufficientDebt is returned when RepayPosition is called
	// against a position with no outstanding credit.
	ErrInsufficientDebt = errors.New("cdp: insufficient outstanding debt")
	// ErrExceedsMaxLTV is returned when a Borrow or WithdrawCollateral call
	// would push a position's current_LTV above its avg_max_LTV.
	ErrExceedsMaxLTV = errors.New("cdp: operation would exceed max LTV")
)
