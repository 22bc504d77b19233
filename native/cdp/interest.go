package cdp

import (
	"github.com/shopspring/decimal"

	"creditcore/core/types"
)

// RateProvider is the named external interest-rate-curve collaborator of
// spec.md §1 ("interest-rate accrual curves ... out of scope, specified
// only by the operations the core invokes on them"). It returns a
// monotone, asset-specific cumulative index analogous to the teacher's
// ray-scaled BorrowIndex in native/lending/engine.go, generalized here to
// one index per collateral asset instead of one per market.
type RateProvider interface {
	RateIndex(asset types.AssetInfo, now int64) decimal.Decimal
}

// accrueInterest implements spec.md §4.A step 1: a pure function over
// elapsed time, credit price, and per-asset rate indices. Each held
// collateral asset contributes its own index growth since the position's
// last touch, value-weighted by that asset's current oracle value, so a
// position split across several collateral classes accrues the blended
// rate its actual composition implies.
func (e *Engine) accrueInterest(pos *Position, now int64) error {
	if pos.RateIndices == nil {
		pos.RateIndices = map[string]decimal.Decimal{}
	}
	if pos.CreditAmount == nil || pos.CreditAmount.IsZero() || len(pos.Collateral) == 0 {
		pos.LastAccrued = now
		return nil
	}

	totalValue := decimal.Zero
	weightedGrowth := decimal.Zero
	for _, c := range pos.Collateral {
		coll, err := e.basket.Collateral(c.Asset.Info)
		if err != nil {
			return ErrInvalidAsset
		}
		value := coll.Price.ValueOf(c.Asset.Amount)
		if value.Sign() <= 0 {
			continue
		}
		idx := e.rates.RateIndex(c.Asset.Info, now)
		if idx.Sign() <= 0 {
			idx = types.One()
		}
		last, ok := pos.RateIndices[c.Asset.Info.Key()]
		if !ok || last.Sign() <= 0 {
			last = types.One()
		}
		growth, err := types.DivDecimal(idx, last)
		if err != nil {
			return err
		}
		totalValue = totalValue.Add(value)
		weightedGrowth = weightedGrowth.Add(growth.Mul(value))
		pos.RateIndices[c.Asset.Info.Key()] = idx
	}

	pos.LastAccrued = now
	if totalValue.Sign() <= 0 {
		return nil
	}
	blended, err := types.DivDecimal(weightedGrowth, totalValue)
	if err != nil {
		return err
	}
	if blended.Sign() <= 0 {
		return nil
	}

	newCredit := types.DecimalFromUint256(pos.CreditAmount).Mul(blended)
	amt, err := types.Uint256FromDecimalFloor(types.RoundHalfToEven(newCredit))
	if err != nil {
		return err
	}
	pos.CreditAmount = amt
	return nil
}

// staticRateProvider returns the constant index 1 for every asset, used
// when no external rate curve is wired (interest never accrues).
type staticRateProvider struct{}

func (staticRateProvider) RateIndex(types.AssetInfo, int64) decimal.Decimal { return types.One() }
