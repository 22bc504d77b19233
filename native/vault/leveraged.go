package vault

import (
	"context"

	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
)

// CDPLooper is the narrow collateralized-debt-position surface the
// leveraged vault drives to open and unwind its looped position: deposit
// the vault's own share token as collateral, borrow the underlying
// credit asset against it, and later repay/withdraw to unwind. Reached
// only through this interface so the vault package never imports the
// position-liquidator package directly.
type CDPLooper interface {
	DepositCollateral(ctx context.Context, position uint64, asset types.AssetInfo, amount decimal.Decimal) error
	Borrow(ctx context.Context, position uint64, amount decimal.Decimal) error
	Repay(ctx context.Context, position uint64, amount decimal.Decimal) error
	WithdrawCollateral(ctx context.Context, position uint64, asset types.AssetInfo, amount decimal.Decimal) error
	OutstandingDebt(position uint64) decimal.Decimal
	BorrowRate(position uint64, now int64) decimal.Decimal
}

// LeveragedVault is the Leveraged-Earn vault: it deposits its own
// SPVault-flavor share token as CDP collateral, borrows the underlying
// credit asset against it, swaps the borrowed CDT back into the share
// token, and re-deposits, looping while doing so is profitable, per
// spec.md §4.E's Leveraged-Earn subsection. Shares are minted against the
// total share-token collateral a loop deposits, which is added to
// TotalUnderlying; outstanding CDP debt is not subtracted from it.
type LeveragedVault struct {
	Shares

	UnderlyingVault *SPVault
	ShareAsset      types.AssetInfo
	CreditAsset     types.AssetInfo
	CDP             CDPLooper
	// MintSwap converts freshly borrowed CDT back into ShareAsset so it
	// can be redeposited as more collateral (loop_cdp's swap step).
	MintSwap CompoundRouter
	// RepaySwap converts withdrawn ShareAsset collateral into CDT so it
	// can repay outstanding debt (unloop_cdp's swap-from-collateral
	// step).
	RepaySwap         CompoundRouter
	PositionID        uint64
	LoopCount         uint32
	BorrowFactor      decimal.Decimal
	SlippageTolerance decimal.Decimal
	owner             crypto.Address
}

// NewLeveragedVault constructs a LeveragedVault looping collateral
// through underlying's share token up to loopCount times, borrowing
// borrowFactor of each deposit's collateral value per iteration while
// profitable, and charging slippageTolerance against the basket rate
// when deciding whether looping still pays.
func NewLeveragedVault(underlying *SPVault, shareAsset, creditAsset types.AssetInfo, cdp CDPLooper, mintSwap, repaySwap CompoundRouter, positionID uint64, loopCount uint32, borrowFactor, slippageTolerance decimal.Decimal, owner crypto.Address) *LeveragedVault {
	return &LeveragedVault{
		UnderlyingVault:   underlying,
		ShareAsset:        shareAsset,
		CreditAsset:       creditAsset,
		CDP:               cdp,
		MintSwap:          mintSwap,
		RepaySwap:         repaySwap,
		PositionID:        positionID,
		LoopCount:         loopCount,
		BorrowFactor:      borrowFactor,
		SlippageTolerance: slippageTolerance,
		owner:             owner,
	}
}

// signedRate collapses an APR Period's (rate, negative-flag) pair back
// into a single signed decimal — spec.md §4.E reports negative APRs
// with a sign flag rather than a signed type, but the profitability
// comparison needs ordinary signed arithmetic.
func signedRate(p Period) decimal.Decimal {
	if p.Negative {
		return p.Rate.Neg()
	}
	return p.Rate
}

// profitable reports whether the basket collateral rate — the
// underlying SPVault's most recently realized weekly return — exceeds
// the position's per-unit borrow cost after slippage, per spec.md
// §4.E's loop_cdp/unloop_cdp gate.
func (lv *LeveragedVault) profitable(now int64) bool {
	basketRate := signedRate(lv.UnderlyingVault.APR(now).Week)
	cost := lv.CDP.BorrowRate(lv.PositionID, now).Add(lv.SlippageTolerance)
	return basketRate.GreaterThan(cost)
}

// LoopCDP deposits amount of the underlying credit asset into
// UnderlyingVault, posts the resulting share tokens as CDP collateral,
// then, while profitable and under maxMintAmount (zero or negative
// means uncapped, mirroring the message's optional max_mint_amount),
// repeatedly borrows BorrowFactor of the amount last deposited (amount
// itself, then each swap's proceeds), floored, swaps it
// back to the share token via MintSwap, and redeposits the proceeds as
// more collateral. It returns the total leveraged-vault shares minted.
func (lv *LeveragedVault) LoopCDP(ctx context.Context, depositor crypto.Address, amount, maxMintAmount decimal.Decimal, now int64) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrZeroAmount
	}
	if !lv.profitable(now) {
		return decimal.Zero, ErrUnprofitable
	}

	minted, err := lv.UnderlyingVault.Enter(depositor, amount, now)
	if err != nil {
		return decimal.Zero, err
	}
	if err := lv.CDP.DepositCollateral(ctx, lv.PositionID, lv.ShareAsset, minted); err != nil {
		return decimal.Zero, err
	}
	totalMinted := minted
	current := amount
	borrowed := decimal.Zero

	for i := uint32(0); i < lv.LoopCount && lv.profitable(now); i++ {
		borrow := current.Mul(lv.BorrowFactor).Floor()
		if borrow.Sign() <= 0 {
			break
		}
		if maxMintAmount.Sign() > 0 {
			headroom := maxMintAmount.Sub(borrowed)
			if headroom.Sign() <= 0 {
				break
			}
			if borrow.GreaterThan(headroom) {
				borrow = headroom
			}
		}
		if err := lv.CDP.Borrow(ctx, lv.PositionID, borrow); err != nil {
			return lv.mintShares(totalMinted, now), err
		}
		borrowed = borrowed.Add(borrow)

		swapped, err := lv.MintSwap.Swap(ctx, lv.CreditAsset, borrow)
		if err != nil || swapped.Sign() <= 0 {
			return lv.mintShares(totalMinted, now), err
		}

		reMinted, err := lv.UnderlyingVault.Enter(depositor, swapped, now)
		if err != nil {
			return lv.mintShares(totalMinted, now), err
		}
		if err := lv.CDP.DepositCollateral(ctx, lv.PositionID, lv.ShareAsset, reMinted); err != nil {
			return lv.mintShares(totalMinted, now), err
		}

		totalMinted = totalMinted.Add(reMinted)
		current = swapped
	}

	return lv.mintShares(totalMinted, now), nil
}

// mintShares converts a completed loop's total redeposited underlying
// into leveraged-vault shares for the depositor and updates totals.
func (lv *LeveragedVault) mintShares(totalMinted decimal.Decimal, now int64) decimal.Decimal {
	minted := lv.Shares.SharesOut(totalMinted)
	lv.TotalShares = lv.TotalShares.Add(minted)
	lv.TotalUnderlying = lv.TotalUnderlying.Add(totalMinted)
	lv.checkpointRate(now)
	return minted
}

// UnloopCDP is only callable once the position has crossed into
// unprofitable territory. It repeatedly withdraws BorrowFactor times the
// outstanding debt in ShareAsset collateral, swaps it via RepaySwap
// into CDT, and repays outstanding debt with the proceeds, until either
// the position is flat or LoopCount iterations are spent, then
// withdraws desiredCollateralWithdrawal of freed collateral to owner.
func (lv *LeveragedVault) UnloopCDP(ctx context.Context, owner crypto.Address, desiredCollateralWithdrawal decimal.Decimal, now int64) (decimal.Decimal, error) {
	if desiredCollateralWithdrawal.Sign() <= 0 {
		return decimal.Zero, ErrZeroAmount
	}
	if lv.profitable(now) {
		return decimal.Zero, ErrStillProfitable
	}

	for i := uint32(0); i < lv.LoopCount; i++ {
		debt := lv.CDP.OutstandingDebt(lv.PositionID)
		if debt.Sign() <= 0 {
			break
		}
		pull := debt.Mul(lv.BorrowFactor)
		if pull.Sign() <= 0 {
			pull = debt
		}
		if err := lv.CDP.WithdrawCollateral(ctx, lv.PositionID, lv.ShareAsset, pull); err != nil {
			// the position can't currently free this much collateral:
			// stop unwinding rather than fail the whole call, leaving
			// whatever debt reduction already happened in place.
			break
		}
		repayFunds, err := lv.RepaySwap.Swap(ctx, lv.ShareAsset, pull)
		if err != nil {
			return decimal.Zero, err
		}
		repay := repayFunds
		if repay.GreaterThan(debt) {
			repay = debt
		}
		if repay.Sign() > 0 {
			if err := lv.CDP.Repay(ctx, lv.PositionID, repay); err != nil {
				return decimal.Zero, err
			}
		}
	}

	ownerShares := lv.Shares.SharesOut(desiredCollateralWithdrawal)
	underlyingOut := lv.Shares.TokensOut(ownerShares)
	if underlyingOut.Sign() <= 0 {
		return decimal.Zero, nil
	}

	if err := lv.CDP.WithdrawCollateral(ctx, lv.PositionID, lv.ShareAsset, underlyingOut); err != nil {
		return decimal.Zero, err
	}
	out, err := lv.UnderlyingVault.Exit(ctx, owner, underlyingOut, now)
	if err != nil {
		return decimal.Zero, err
	}

	lv.TotalShares = lv.TotalShares.Sub(ownerShares)
	lv.TotalUnderlying = lv.TotalUnderlying.Sub(underlyingOut)
	lv.checkpointRate(now)
	return out, nil
}
