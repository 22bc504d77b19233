package cdp

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
)

// CollateralClaim is one collateral asset held by a Position, carrying the
// position's claim amount and, for LP shares, the pool identifier the
// sell-wall needs to exit it before a sale (spec.md §3 Position, §4.D).
type CollateralClaim struct {
	Asset    types.Asset
	LPPoolID string
}

// Position is a single borrower's collateral-and-debt record, per
// spec.md §3. RateIndices records the per-collateral-asset accrual index
// observed the last time interest was accrued into CreditAmount, so a
// position holding several collateral types accrues a value-weighted
// blend of each asset's rate curve.
type Position struct {
	ID           uint64
	Owner        crypto.Address
	Collateral   []CollateralClaim
	CreditAmount *uint256.Int
	RateIndices  map[string]decimal.Decimal
	LastAccrued  int64
}

// IsEmpty reports whether the position carries no debt and no collateral,
// the destruction condition in spec.md §3.
func (p *Position) IsEmpty() bool {
	if p.CreditAmount != nil && !p.CreditAmount.IsZero() {
		return false
	}
	for _, c := range p.Collateral {
		if !c.Asset.IsZero() {
			return false
		}
	}
	return true
}

func (p *Position) collateralIndex(key string) int {
	for i, c := range p.Collateral {
		if c.Asset.Info.Key() == key {
			return i
		}
	}
	return -1
}

// claim returns the position's CollateralClaim for asset, or nil if the
// position does not hold it.
func (p *Position) claim(asset types.AssetInfo) *CollateralClaim {
	idx := p.collateralIndex(asset.Key())
	if idx < 0 {
		return nil
	}
	return &p.Collateral[idx]
}

// deductCollateral removes qty of asset from the position's claim,
// returning ErrInsufficientCollateral if the claim does not cover it.
func (p *Position) deductCollateral(asset types.AssetInfo, qty *uint256.Int) error {
	idx := p.collateralIndex(asset.Key())
	if idx < 0 {
		return ErrInsufficientCollateral
	}
	claim := &p.Collateral[idx]
	if claim.Asset.Amount.Cmp(qty) < 0 {
		return ErrInsufficientCollateral
	}
	claim.Asset.Amount = new(uint256.Int).Sub(claim.Asset.Amount, qty)
	return nil
}

// addCollateral credits qty of asset onto the position's claim,
// appending a new CollateralClaim if the position does not already hold
// this asset.
func (p *Position) addCollateral(asset types.AssetInfo, qty *uint256.Int) {
	idx := p.collateralIndex(asset.Key())
	if idx < 0 {
		p.Collateral = append(p.Collateral, CollateralClaim{Asset: types.Asset{Info: asset, Amount: new(uint256.Int).Set(qty)}})
		return
	}
	claim := &p.Collateral[idx]
	claim.Asset.Amount = new(uint256.Int).Add(claim.Asset.Amount, qty)
}

// Solvency is the set of ratios computed from a position's live
// collateral valuations, per spec.md §4.A step 2.
type Solvency struct {
	TotalValue   decimal.Decimal
	LoanValue    decimal.Decimal
	CurrentLTV   decimal.Decimal
	AvgBorrowLTV decimal.Decimal
	AvgMaxLTV    decimal.Decimal
}
