package stabilitypool

import (
	"github.com/shopspring/decimal"

	"creditcore/crypto"
)

// ClaimResult is the transfer vector paid out by ClaimRewards: the
// distribution-asset claims keyed by AssetInfo.Key(), plus the separate
// incentive-asset amount.
type ClaimResult struct {
	Assets    map[string]decimal.Decimal
	Incentive decimal.Decimal
}

// ClaimRewards transfers and clears the caller's accumulated claim
// vector, together with any accrued incentive rewards.
func (p *AssetPool) ClaimRewards(owner crypto.Address, now int64) ClaimResult {
	key := ownerKey(owner)

	for _, d := range p.Deposits {
		if d.Owner.Equal(owner) {
			p.accrueIncentive(d, now)
		}
	}

	result := ClaimResult{Assets: p.claims[key]}
	delete(p.claims, key)
	if result.Assets == nil {
		result.Assets = map[string]decimal.Decimal{}
	}

	result.Incentive = p.incentiveClaims[key]
	delete(p.incentiveClaims, key)

	return result
}

// UserClaims is a read-only view of owner's pending claim vector,
// without clearing it.
func (p *AssetPool) UserClaims(owner crypto.Address) map[string]decimal.Decimal {
	return p.claims[ownerKey(owner)]
}

// UnclaimedIncentives is a read-only view of owner's pending incentive
// accrual, without clearing it or touching LastAccrued.
func (p *AssetPool) UnclaimedIncentives(owner crypto.Address) decimal.Decimal {
	return p.incentiveClaims[ownerKey(owner)]
}
