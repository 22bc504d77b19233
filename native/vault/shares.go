// Package vault implements the two tokenized-vault flavors (Stability
// Pool vault and Leveraged-Earn vault) that share a common monotone
// conversion-rate surface and rate-assurance invariant check.
package vault

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrRateAssuranceFailed is returned when a mutating operation's
// before/after conversion rates differ, per spec.md §4.E.
var ErrRateAssuranceFailed = errors.New("vault: rate assurance failure")

// ErrZeroAmount is returned when a required positive quantity is zero.
var ErrZeroAmount = errors.New("vault: zero amount")

// ErrUnauthorized is returned when RateAssurance is invoked by anyone
// other than the vault itself.
var ErrUnauthorized = errors.New("vault: unauthorized caller")

// ErrPendingClaims is returned when enter/exit is blocked because
// uncompounded rewards are pending.
var ErrPendingClaims = errors.New("vault: uncompounded claims pending")

// ErrUnprofitable is returned when loop_cdp is called while the basket
// collateral rate does not exceed the per-unit borrow cost after
// slippage, per spec.md §4.E.
var ErrUnprofitable = errors.New("vault: loop is not currently profitable")

// ErrStillProfitable is returned when unloop_cdp is called while the
// position is still profitable, per spec.md §4.E ("only callable when
// unprofitable").
var ErrStillProfitable = errors.New("vault: unloop is only callable once unprofitable")

// bootstrapScale is the 1:1 share multiplier applied to a vault's first
// ever deposit, per spec.md §4.E ("first deposit mints 1:1 scaled by
// 10^6").
var bootstrapScale = decimal.New(1, 6)

// Shares holds the floor-rounded, always-rounds-against-the-depositor
// conversion math common to both vault flavors, plus the bounded APR
// tracker both flavors carry per spec.md §4.E.
type Shares struct {
	TotalShares     decimal.Decimal
	TotalUnderlying decimal.Decimal
	aprTracker      APRTracker
}

// SharesOut converts a deposit into the shares it mints. Deposit and
// withdraw both floor, and both round against the user: on deposit, a
// larger implied price (fewer shares) favors the pool.
func (s *Shares) SharesOut(deposit decimal.Decimal) decimal.Decimal {
	if s.TotalShares.IsZero() || s.TotalUnderlying.IsZero() {
		return deposit.Mul(bootstrapScale).Floor()
	}
	return deposit.Mul(s.TotalShares).Div(s.TotalUnderlying).Floor()
}

// TokensOut converts shares back into underlying tokens, floor-rounded
// against the withdrawing user.
func (s *Shares) TokensOut(shares decimal.Decimal) decimal.Decimal {
	if s.TotalShares.IsZero() {
		return decimal.Zero
	}
	return shares.Mul(s.TotalUnderlying).Div(s.TotalShares).Floor()
}

// RatePair is the pair of conversion rates (tokens-per-share and
// shares-per-token, both for a fixed 1e6-share reference quantity)
// captured before a mutating call for later rate-assurance comparison.
type RatePair struct {
	TokensPerMillionShares decimal.Decimal
	SharesPerMillionTokens decimal.Decimal
}

var millionShares = decimal.New(1, 6)

// CaptureRate snapshots the current conversion rates for 1e6 shares in
// both directions.
func (s *Shares) CaptureRate() RatePair {
	return RatePair{
		TokensPerMillionShares: s.TokensOut(millionShares),
		SharesPerMillionTokens: s.SharesOut(millionShares),
	}
}

// AssureRate compares a pre-mutation RatePair against the vault's
// current rates and fails unless both are unchanged, implementing the
// rate-assurance self-call described in spec.md §4.E and §9. A vault that
// was empty before (the first deposit bootstraps the rate) or holds no
// shares after (a full exit) has no rate to compare and passes.
func (s *Shares) AssureRate(before RatePair) error {
	if before.TokensPerMillionShares.IsZero() || s.TotalShares.IsZero() {
		return nil
	}
	after := s.CaptureRate()
	if !before.TokensPerMillionShares.Equal(after.TokensPerMillionShares) {
		return ErrRateAssuranceFailed
	}
	if !before.SharesPerMillionTokens.Equal(after.SharesPerMillionTokens) {
		return ErrRateAssuranceFailed
	}
	return nil
}

// Deposit mints shares for a deposit of underlying tokens and updates
// the pool totals.
func (s *Shares) Deposit(amount decimal.Decimal) decimal.Decimal {
	minted := s.SharesOut(amount)
	s.TotalShares = s.TotalShares.Add(minted)
	s.TotalUnderlying = s.TotalUnderlying.Add(amount)
	return minted
}

// Withdraw burns shares and returns the underlying tokens released.
func (s *Shares) Withdraw(shares decimal.Decimal) decimal.Decimal {
	tokens := s.TokensOut(shares)
	s.TotalShares = s.TotalShares.Sub(shares)
	s.TotalUnderlying = s.TotalUnderlying.Sub(tokens)
	return tokens
}

// ApplyLoss reduces TotalUnderlying by loss without touching
// TotalShares, realizing a loss across every shareholder pro-rata
// (tokens-per-share falls, which AssureRate tolerates only because the
// loss is applied outside the window of a single rate-assured call).
func (s *Shares) ApplyLoss(loss decimal.Decimal) {
	if loss.Sign() <= 0 {
		return
	}
	if loss.GreaterThan(s.TotalUnderlying) {
		loss = s.TotalUnderlying
	}
	s.TotalUnderlying = s.TotalUnderlying.Sub(loss)
}

// ApplyYield increases TotalUnderlying, raising tokens-per-share for
// every existing shareholder.
func (s *Shares) ApplyYield(yield decimal.Decimal) {
	if yield.Sign() <= 0 {
		return
	}
	s.TotalUnderlying = s.TotalUnderlying.Add(yield)
}

// VaultTokenUnderlying answers the VaultTokenUnderlying query of
// spec.md §6: the amount of underlying a given quantity of vault shares
// is currently redeemable for.
func (s *Shares) VaultTokenUnderlying(vaultTokenAmount decimal.Decimal) decimal.Decimal {
	return s.TokensOut(vaultTokenAmount)
}

// DepositTokenConversion is VaultTokenUnderlying's inverse: the amount
// of vault shares a given quantity of underlying deposit tokens would
// currently mint, letting a caller preview an Enter before calling it.
func (s *Shares) DepositTokenConversion(depositTokenAmount decimal.Decimal) decimal.Decimal {
	return s.SharesOut(depositTokenAmount)
}

// checkpointRate records the vault's current tokens-per-share
// conversion rate in the APR tracker. Callers invoke it after every
// mutation that can move the rate, and from the public CrankAPR entry
// point when nothing else has moved it recently.
func (s *Shares) checkpointRate(now int64) {
	rate := decimal.Zero
	if !s.TotalShares.IsZero() {
		rate = s.TotalUnderlying.Mul(millionShares).Div(s.TotalShares)
	}
	s.aprTracker.Checkpoint(rate, now)
}

// APR answers the APR query of spec.md §6: realized, annualized returns
// over the 7-/30-/90-/365-day windows reconstructed from the tracker.
func (s *Shares) APR(now int64) Report {
	return s.aprTracker.APR(now)
}
