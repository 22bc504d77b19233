package cdp

import (
	"github.com/shopspring/decimal"

	"creditcore/core/types"
)

// computeSolvency implements spec.md §4.A step 2: current_LTV,
// avg_borrow_LTV, avg_max_LTV, and total_value from collateral ratios and
// oracle prices. The two average LTVs are collateral-value-weighted
// across the position's holdings.
func (e *Engine) computeSolvency(pos *Position) (Solvency, error) {
	totalValue := decimal.Zero
	weightedMax := decimal.Zero
	weightedBorrow := decimal.Zero

	for _, c := range pos.Collateral {
		coll, err := e.basket.Collateral(c.Asset.Info)
		if err != nil {
			return Solvency{}, ErrInvalidAsset
		}
		value := coll.Price.ValueOf(c.Asset.Amount)
		if value.Sign() <= 0 {
			continue
		}
		totalValue = totalValue.Add(value)
		weightedMax = weightedMax.Add(value.Mul(bpsToDecimal(coll.MaxLTV)))
		weightedBorrow = weightedBorrow.Add(value.Mul(bpsToDecimal(coll.BorrowLTV)))
	}

	loanValue := e.basket.CreditPrice.ValueOf(pos.CreditAmount)

	sol := Solvency{TotalValue: totalValue, LoanValue: loanValue}
	if totalValue.Sign() <= 0 {
		if loanValue.Sign() > 0 {
			sol.CurrentLTV = decimal.New(1, 0).Mul(decimal.New(1, 2)) // > any LTV, forces insolvency
		}
		return sol, nil
	}

	avgMax, err := types.DivDecimal(weightedMax, totalValue)
	if err != nil {
		return Solvency{}, err
	}
	avgBorrow, err := types.DivDecimal(weightedBorrow, totalValue)
	if err != nil {
		return Solvency{}, err
	}
	currentLTV, err := types.DivDecimal(loanValue, totalValue)
	if err != nil {
		return Solvency{}, err
	}

	sol.AvgMaxLTV = avgMax
	sol.AvgBorrowLTV = avgBorrow
	sol.CurrentLTV = currentLTV
	return sol, nil
}

func bpsToDecimal(bps uint32) decimal.Decimal {
	return decimal.NewFromInt32(int32(bps)).Div(decimal.NewFromInt(10_000))
}

// repayValue implements spec.md §4.A step 4: repay_value =
// ((current_LTV - avg_borrow_LTV) / current_LTV) * loan_value, clamped
// upward to DebtMinimum; if the residual after a minimum-sized repay
// would itself fall below DebtMinimum, the entire loan is liquidated
// instead. Returns ErrFaultyCalc if the computed repay would exceed the
// position's outstanding credit.
func (e *Engine) repayValue(sol Solvency, loanValue decimal.Decimal) (decimal.Decimal, error) {
	if sol.CurrentLTV.Sign() <= 0 {
		return decimal.Zero, ErrFaultyCalc
	}
	ratio, err := types.DivDecimal(sol.CurrentLTV.Sub(sol.AvgBorrowLTV), sol.CurrentLTV)
	if err != nil {
		return decimal.Zero, err
	}
	repay := ratio.Mul(loanValue)

	if repay.LessThan(e.params.DebtMinimum) {
		repay = e.params.DebtMinimum
	}
	residual := loanValue.Sub(repay)
	if residual.Sign() > 0 && residual.LessThan(e.params.DebtMinimum) {
		repay = loanValue
	}
	if repay.GreaterThan(loanValue) {
		return decimal.Zero, ErrFaultyCalc
	}
	return repay, nil
}
