package stabilitypool

import (
	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
)

// Liquidate is callable only by the CDP Engine. It burns liqAmount of
// credit from the pool's oldest deposits in order (splitting the last
// one touched if necessary), records a burnBatch describing exactly
// which deposits contributed, and returns the amount actually burned
// plus any shortfall the pool could not cover.
func (p *AssetPool) Liquidate(sender crypto.Address, liqAmount decimal.Decimal, now int64) (burned, leftover decimal.Decimal, err error) {
	if !sender.Equal(p.cdpCaller) {
		return decimal.Zero, decimal.Zero, ErrUnauthorized
	}
	if liqAmount.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, ErrZeroAmount
	}

	remaining := liqAmount
	batch := burnBatch{}
	kept := p.Deposits[:0:0]

	for _, d := range p.Deposits {
		if remaining.Sign() <= 0 {
			kept = append(kept, d)
			continue
		}
		p.accrueIncentive(d, now)

		take := d.Amount
		if take.GreaterThan(remaining) {
			take = remaining
		}
		if take.Sign() <= 0 {
			kept = append(kept, d)
			continue
		}

		batch.Contributions = append(batch.Contributions, contribution{Owner: d.Owner, Amount: take})
		batch.Total = batch.Total.Add(take)
		remaining = remaining.Sub(take)

		d.Amount = d.Amount.Sub(take)
		if d.Amount.Sign() > 0 {
			kept = append(kept, d)
		}
	}

	p.Deposits = kept
	if batch.Total.Sign() > 0 {
		p.pendingBurns = append(p.pendingBurns, batch)
	}
	return batch.Total, remaining, nil
}

// Distribute is callable only by the CDP Engine. It pops the oldest
// pending burn batch whose total equals distributeFor and credits each
// contributing deposit (identified by owner, not by a still-live Deposit
// object) its share of each asset in distributionAssets.
//
// Each distributionAssetRatios[i] names the fraction of distributeFor that
// distributionAssets[i] pays for, not a fraction of the asset amount
// itself: laying the batch's FIFO contributions end to end along a
// [0, distributeFor) line, asset i's own slice of that line is
// [ratios[:i]·distributeFor, ratios[:i+1]·distributeFor), and each
// contribution is credited asset i in proportion to how much of that
// slice its own segment of the line overlaps. A burn that spans two
// depositors therefore attributes an asset whose slice falls entirely
// within the first depositor's segment 100% to that depositor, while an
// asset whose slice straddles the boundary between depositors splits
// accordingly — reproducing the cross-depositor attribution the CDP's
// sell-to-collateral payout relies on.
//
// The CDP always issues Distribute immediately after the Liquidate it
// pairs with, so matching the oldest batch by total amount is sufficient
// to identify the right batch without threading an explicit batch id
// across the call boundary.
func (p *AssetPool) Distribute(sender crypto.Address, distributionAssets []types.Asset, distributionAssetRatios []decimal.Decimal, distributeFor decimal.Decimal) error {
	if !sender.Equal(p.cdpCaller) {
		return ErrUnauthorized
	}
	if len(distributionAssets) != len(distributionAssetRatios) {
		return ErrRatioMismatch
	}
	idx := -1
	for i, b := range p.pendingBurns {
		if b.Total.Equal(distributeFor) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrInsufficientPool
	}

	batch := p.pendingBurns[idx]
	p.pendingBurns = append(p.pendingBurns[:idx:idx], p.pendingBurns[idx+1:]...)

	if p.claims == nil {
		p.claims = map[string]map[string]decimal.Decimal{}
	}

	cursor := decimal.Zero
	for i, asset := range distributionAssets {
		sliceStart := cursor
		sliceLen := distributeFor.Mul(distributionAssetRatios[i])
		sliceEnd := sliceStart.Add(sliceLen)
		cursor = sliceEnd
		if sliceLen.Sign() <= 0 {
			continue
		}

		assetValue := types.DecimalFromUint256(asset.Amount)
		assetKey := asset.Info.Key()
		offset := decimal.Zero
		for _, c := range batch.Contributions {
			cStart := offset
			cEnd := offset.Add(c.Amount)
			offset = cEnd

			overlap := decimalMin(cEnd, sliceEnd).Sub(decimalMax(cStart, sliceStart))
			if overlap.Sign() <= 0 {
				continue
			}
			share, err := types.DivDecimal(overlap, sliceLen)
			if err != nil {
				continue
			}
			amount := assetValue.Mul(share)
			if amount.Sign() <= 0 {
				continue
			}
			key := ownerKey(c.Owner)
			if p.claims[key] == nil {
				p.claims[key] = map[string]decimal.Decimal{}
			}
			p.claims[key][assetKey] = p.claims[key][assetKey].Add(amount)
		}
	}
	return nil
}

func decimalMin(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func decimalMax(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Repay is callable only by the CDP Engine. It deducts repayment from
// the position owner's deposits, oldest-first, and reports the amount
// actually deducted so the caller can forward a matching CDP repay call.
func (p *AssetPool) Repay(sender, positionOwner crypto.Address, repayment decimal.Decimal, now int64) (decimal.Decimal, error) {
	if !sender.Equal(p.cdpCaller) {
		return decimal.Zero, ErrUnauthorized
	}
	remaining := repayment
	kept := p.Deposits[:0:0]
	deducted := decimal.Zero

	for _, d := range p.Deposits {
		if !d.Owner.Equal(positionOwner) || remaining.Sign() <= 0 {
			kept = append(kept, d)
			continue
		}
		p.accrueIncentive(d, now)
		take := d.Amount
		if take.GreaterThan(remaining) {
			take = remaining
		}
		deducted = deducted.Add(take)
		remaining = remaining.Sub(take)
		d.Amount = d.Amount.Sub(take)
		if d.Amount.Sign() > 0 {
			kept = append(kept, d)
		}
	}
	p.Deposits = kept
	return deducted, nil
}
