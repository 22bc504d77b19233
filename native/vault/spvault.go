package vault

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/stabilitypool"
)

// ErrExceedsUnstakeable is returned when a withdrawal demands more of the
// underlying than the vault's liquid buffer plus currently-unstakeable
// stability-pool balance can supply.
var ErrExceedsUnstakeable = errors.New("vault: exceeds currently unstakeable balance")

// StabilityPool is the narrow slice of stabilitypool.AssetPool the vault
// drives: deposit/withdraw of the underlying credit asset plus reward
// claiming, reached only through this interface so the vault never
// depends on the concrete pool package.
type StabilityPool interface {
	Deposit(owner crypto.Address, amount decimal.Decimal, now int64) error
	Withdraw(owner crypto.Address, amount decimal.Decimal, now int64) (decimal.Decimal, error)
	Total() decimal.Decimal
	ClaimRewards(owner crypto.Address, now int64) stabilitypool.ClaimResult
	UserClaims(owner crypto.Address) map[string]decimal.Decimal
}

// CompoundRouter swaps claimed stability-pool collateral rewards and
// incentive tokens back into the vault's underlying credit asset, per
// spec.md §4.E's compounding path. A swap that returns less than
// expected is tolerated and realized as a loss rather than an error.
type CompoundRouter interface {
	Swap(ctx context.Context, asset types.AssetInfo, quantity decimal.Decimal) (decimal.Decimal, error)
}

// SPVault is the Stability-Pool-backed tokenized vault: deposits split
// between an always-liquid buffer (percentToKeepLiquid of underlying) and
// the balance staked into the underlying stability pool. Shares track the
// pool's realized (not entered) value, so a loss socialized through the
// stability pool is reflected the next time CaptureRate is read.
type SPVault struct {
	Shares

	CreditAsset           types.AssetInfo
	PercentToKeepLiquid   decimal.Decimal
	Liquid                decimal.Decimal
	pool                  StabilityPool
	router                CompoundRouter
	vaultAddr             crypto.Address

	// recordedStake is the vault's own running ledger of what it has
	// staked into the pool net of withdrawals, independent of what the
	// pool externally reports. It tracks pool.Total() exactly unless the
	// pool has suffered an unsocialized loss (an exploit), in which case
	// the two diverge and refreshUnderlying haircuts the reported
	// balance accordingly.
	recordedStake decimal.Decimal
}

// NewSPVault constructs an empty SPVault fronting pool, keeping
// percentToKeepLiquid of deposits out of the stability pool as a
// fast-exit buffer.
func NewSPVault(creditAsset types.AssetInfo, percentToKeepLiquid decimal.Decimal, pool StabilityPool, router CompoundRouter, vaultAddr crypto.Address) *SPVault {
	return &SPVault{
		CreditAsset:         creditAsset,
		PercentToKeepLiquid: percentToKeepLiquid,
		pool:                pool,
		router:              router,
		vaultAddr:           vaultAddr,
	}
}

// refreshUnderlying sets the vault's view of TotalUnderlying: liquid buffer
// plus whatever the stability pool reports as staked under vaultAddr. If
// the pool's externally queried balance has fallen below recordedStake
// (the pool has been exploited), the staked side is haircut by the same
// fraction it is already short, so the reported underlying surfaces the
// loss instead of masking it behind a stale recordedStake, per
// spec.md §4.E.
func (v *SPVault) refreshUnderlying() {
	staked := v.pool.Total()
	if v.recordedStake.Sign() > 0 && staked.LessThan(v.recordedStake) {
		ratio, err := types.DivDecimal(staked, v.recordedStake)
		if err == nil {
			staked = staked.Mul(ratio)
		}
	}
	v.TotalUnderlying = v.Liquid.Add(staked)
}

// pendingClaims reports whether the vault's stake still has an
// uncompounded claim vector sitting in the pool, per spec.md §7's
// ContractHasClaims error: Enter and Exit must not proceed while a prior
// liquidation's payout to this vault hasn't yet been compounded back
// into TotalUnderlying, since doing so would mint or redeem shares
// against a stale rate.
func (v *SPVault) pendingClaims() bool {
	return len(v.pool.UserClaims(v.vaultAddr)) > 0
}

// VaultTokenUnderlying answers the VaultTokenUnderlying query against
// the pool's current (possibly discounted) staked balance.
func (v *SPVault) VaultTokenUnderlying(vaultTokenAmount decimal.Decimal) decimal.Decimal {
	v.refreshUnderlying()
	return v.Shares.VaultTokenUnderlying(vaultTokenAmount)
}

// CrankAPR is the public crank of spec.md §6: it checkpoints the
// vault's current conversion rate without otherwise mutating state, so
// the APR query stays current even across periods with no deposits or
// withdrawals.
func (v *SPVault) CrankAPR(now int64) {
	v.refreshUnderlying()
	v.checkpointRate(now)
}

// Enter deposits amount of the underlying credit asset, minting shares at
// the pre-deposit rate, then routes (1-percentToKeepLiquid) of it into
// the stability pool.
func (v *SPVault) Enter(depositor crypto.Address, amount decimal.Decimal, now int64) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrZeroAmount
	}
	if v.pendingClaims() {
		return decimal.Zero, ErrPendingClaims
	}
	v.refreshUnderlying()
	before := v.CaptureRate()

	minted := v.Shares.SharesOut(amount)
	v.TotalShares = v.TotalShares.Add(minted)

	toStake := amount.Mul(decimal.New(1, 0).Sub(v.PercentToKeepLiquid)).Floor()
	v.Liquid = v.Liquid.Add(amount.Sub(toStake))
	if toStake.Sign() > 0 {
		if err := v.pool.Deposit(v.vaultAddr, toStake, now); err != nil {
			return decimal.Zero, err
		}
		v.recordedStake = v.recordedStake.Add(toStake)
	}
	v.refreshUnderlying()
	if err := v.AssureRate(before); err != nil {
		return decimal.Zero, err
	}
	v.checkpointRate(now)
	return minted, nil
}

// Exit burns shares for their underlying value, drawing first from the
// liquid buffer and then from whatever portion of the stability pool
// stake is not currently mid-unstake. If the combined liquid-plus-
// unstakeable balance cannot cover the redemption, Exit fails rather than
// force an unstake that would violate the pool's waiting period.
func (v *SPVault) Exit(ctx context.Context, owner crypto.Address, shares decimal.Decimal, now int64) (decimal.Decimal, error) {
	if shares.Sign() <= 0 {
		return decimal.Zero, ErrZeroAmount
	}
	if v.pendingClaims() {
		return decimal.Zero, ErrPendingClaims
	}
	v.refreshUnderlying()
	before := v.CaptureRate()

	owed := v.Shares.TokensOut(shares)
	if owed.Sign() <= 0 {
		return decimal.Zero, nil
	}

	out := decimal.Zero
	if v.Liquid.GreaterThanOrEqual(owed) {
		v.Liquid = v.Liquid.Sub(owed)
		out = owed
	} else {
		out = v.Liquid
		needed := owed.Sub(v.Liquid)
		v.Liquid = decimal.Zero
		drawn, err := v.pool.Withdraw(v.vaultAddr, needed, now)
		if err != nil {
			return decimal.Zero, err
		}
		// drawn may fall short of needed: the shortfall is currently
		// staked and not yet unstakeable, so the redemption is capped
		// at what was actually freed rather than left pending.
		out = out.Add(drawn)
		v.recordedStake = v.recordedStake.Sub(needed)
		if v.recordedStake.Sign() < 0 {
			v.recordedStake = decimal.Zero
		}
	}

	v.TotalShares = v.TotalShares.Sub(shares)
	v.refreshUnderlying()
	if err := v.AssureRate(before); err != nil {
		return decimal.Zero, err
	}
	v.checkpointRate(now)
	return out, nil
}

// Compound claims the vault's accrued stability-pool rewards (collateral
// and incentive tokens), swaps each back into the underlying credit
// asset via router, and folds the proceeds into TotalUnderlying as
// realized yield. A swap returning less than the quoted quantity is not
// an error: the shortfall is simply realized as a smaller yield (or, if
// it exceeds the quantity swapped in, ApplyLoss is invoked instead),
// per spec.md §4.E.
func (v *SPVault) Compound(ctx context.Context, now int64) (decimal.Decimal, error) {
	claim := v.pool.ClaimRewards(v.vaultAddr, now)

	realized := decimal.Zero
	for asset, qty := range claim.Assets {
		if qty.Sign() <= 0 {
			continue
		}
		out, err := v.router.Swap(ctx, types.NewNativeAsset(asset), qty)
		if err != nil {
			continue
		}
		realized = realized.Add(out)
	}
	if claim.Incentive.Sign() > 0 {
		out, err := v.router.Swap(ctx, v.CreditAsset, claim.Incentive)
		if err == nil {
			realized = realized.Add(out)
		}
	}

	if realized.Sign() > 0 {
		v.Liquid = v.Liquid.Add(realized)
		v.ApplyYield(realized)
	}
	v.refreshUnderlying()
	v.checkpointRate(now)
	return realized, nil
}
