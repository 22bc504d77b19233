package stabilitypool

import (
	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
)

// Deposit is a single depositor's slice of the pool. Insertion order
// (the index within AssetPool.Deposits) determines liquidation priority:
// the oldest deposit is burned first.
type Deposit struct {
	Owner       crypto.Address
	Amount      decimal.Decimal
	DepositTime int64
	LastAccrued int64
	// UnstakeTime is non-nil while the deposit is unstaking; it resets to
	// nil on Restake.
	UnstakeTime *int64
}

func (d *Deposit) isUnstaking() bool { return d.UnstakeTime != nil }

// burnBatch records which deposits contributed to a single Liquidate
// call so a later Distribute can credit the right depositors, even if
// the contributing deposit has since been fully burned away.
type burnBatch struct {
	Total         decimal.Decimal
	Contributions []contribution
}

type contribution struct {
	Owner  crypto.Address
	Amount decimal.Decimal
}

// AssetPool is the Stability Pool for a single credit asset: an ordered
// list of deposits plus the FIFO queue of pending burn batches awaiting a
// matching Distribute call.
type AssetPool struct {
	CreditAsset types.AssetInfo

	MinimumDeposit  decimal.Decimal
	UnstakingPeriod int64

	IncentiveAsset types.AssetInfo
	IncentiveRate  decimal.Decimal
	MaxIncentives  decimal.Decimal
	incentivesPaid decimal.Decimal

	Deposits []*Deposit

	pendingBurns []burnBatch

	// claims accumulates per-owner, per-asset collateral credited by
	// Distribute, awaiting ClaimRewards.
	claims map[string]map[string]decimal.Decimal
	// incentiveClaims accumulates per-owner accrued incentive rewards.
	incentiveClaims map[string]decimal.Decimal

	cdpCaller crypto.Address
}

// NewAssetPool constructs an empty pool.
func NewAssetPool(creditAsset, incentiveAsset types.AssetInfo, minimumDeposit decimal.Decimal, unstakingPeriod int64, incentiveRate, maxIncentives decimal.Decimal, cdpCaller crypto.Address) *AssetPool {
	return &AssetPool{
		CreditAsset:     creditAsset,
		MinimumDeposit:  minimumDeposit,
		UnstakingPeriod: unstakingPeriod,
		IncentiveAsset:  incentiveAsset,
		IncentiveRate:   incentiveRate,
		MaxIncentives:   maxIncentives,
		claims:          map[string]map[string]decimal.Decimal{},
		incentiveClaims: map[string]decimal.Decimal{},
		cdpCaller:       cdpCaller,
	}
}

func ownerKey(owner crypto.Address) string { return owner.String() }

// accrueIncentive credits d's linear incentive emission up to now, per
// spec.md §4.C: rate × amount × (now − last_accrued), while active
// (never while unstaking), capped by the pool-wide MaxIncentives budget.
func (p *AssetPool) accrueIncentive(d *Deposit, now int64) {
	if d.isUnstaking() || now <= d.LastAccrued {
		d.LastAccrued = now
		return
	}
	elapsed := decimal.NewFromInt(now - d.LastAccrued)
	earned := p.IncentiveRate.Mul(d.Amount).Mul(elapsed)
	d.LastAccrued = now
	if earned.Sign() <= 0 {
		return
	}
	if !p.MaxIncentives.IsZero() {
		headroom := p.MaxIncentives.Sub(p.incentivesPaid)
		if headroom.Sign() <= 0 {
			return
		}
		if earned.GreaterThan(headroom) {
			earned = headroom
		}
	}
	p.incentivesPaid = p.incentivesPaid.Add(earned)
	key := ownerKey(d.Owner)
	p.incentiveClaims[key] = p.incentiveClaims[key].Add(earned)
}

// Deposit appends a new Deposit for owner, per spec.md §4.C.
func (p *AssetPool) Deposit(owner crypto.Address, amount decimal.Decimal, now int64) error {
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if amount.LessThan(p.MinimumDeposit) {
		return ErrMinimumDeposit
	}
	p.Deposits = append(p.Deposits, &Deposit{
		Owner:       owner,
		Amount:      amount,
		DepositTime: now,
		LastAccrued: now,
	})
	return nil
}

// Withdraw iterates owner's deposits oldest-first, per spec.md §4.C: a
// deposit already unstaking for ≥ UnstakingPeriod is paid out and
// deleted; otherwise Withdraw (re)starts its unstaking clock. A
// withdrawal that would leave a deposit below MinimumDeposit instead
// withdraws it wholly.
func (p *AssetPool) Withdraw(owner crypto.Address, amount decimal.Decimal, now int64) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrZeroAmount
	}
	available := decimal.Zero
	for _, d := range p.Deposits {
		if d.Owner.Equal(owner) {
			available = available.Add(d.Amount)
		}
	}
	if amount.GreaterThan(available) {
		return decimal.Zero, ErrInvalidWithdrawal
	}
	remaining := amount
	paidOut := decimal.Zero
	kept := p.Deposits[:0:0]

	for _, d := range p.Deposits {
		if !d.Owner.Equal(owner) || remaining.Sign() <= 0 {
			kept = append(kept, d)
			continue
		}
		p.accrueIncentive(d, now)

		if d.isUnstaking() && now-*d.UnstakeTime >= p.UnstakingPeriod {
			take := d.Amount
			if take.GreaterThan(remaining) {
				take = remaining
			}
			residual := d.Amount.Sub(take)
			if residual.Sign() > 0 && residual.LessThan(p.MinimumDeposit) {
				take = d.Amount
				residual = decimal.Zero
			}
			paidOut = paidOut.Add(take)
			remaining = remaining.Sub(take)
			if residual.Sign() > 0 {
				d.Amount = residual
				kept = append(kept, d)
			}
			continue
		}

		unstakeNow := now
		d.UnstakeTime = &unstakeNow
		kept = append(kept, d)
	}

	p.Deposits = kept
	if paidOut.Sign() == 0 {
		return decimal.Zero, nil
	}
	return paidOut, nil
}

// Restake clears UnstakeTime on up to amount of owner's unstaking
// deposits, oldest-first.
func (p *AssetPool) Restake(owner crypto.Address, amount decimal.Decimal, now int64) error {
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	remaining := amount
	for _, d := range p.Deposits {
		if !d.Owner.Equal(owner) || !d.isUnstaking() || remaining.Sign() <= 0 {
			continue
		}
		p.accrueIncentive(d, now)
		d.UnstakeTime = nil
		if d.Amount.LessThanOrEqual(remaining) {
			remaining = remaining.Sub(d.Amount)
		} else {
			remaining = decimal.Zero
		}
	}
	return nil
}

// Total returns the pool's total deposited credit across every depositor.
func (p *AssetPool) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range p.Deposits {
		total = total.Add(d.Amount)
	}
	return total
}

// CheckLiquidatible reports how much of amount this pool cannot absorb
// (the leftover), without mutating any state.
func (p *AssetPool) CheckLiquidatible(amount decimal.Decimal) decimal.Decimal {
	total := p.Total()
	if amount.LessThanOrEqual(total) {
		return decimal.Zero
	}
	return amount.Sub(total)
}
