package lq

import (
	"github.com/shopspring/decimal"
)

// scaleFactor and minProduct implement the Liquity-style underflow guard:
// whenever the running product would truncate below 1e-9, it is instead
// scaled up by 1e9 and the scale counter is bumped so historical claims
// spanning the rescale remain computable via the epoch/scale snapshot
// store.
var (
	scaleFactor = decimal.New(1, 9)
	minProduct  = decimal.New(1, -9)
)

// PremiumSlot is one premium tier's active and waiting bids plus its
// product/sum/scale/epoch reward-distribution state; sums records the
// running S value as of the last loss applied at each (epoch, scale) pair.
type PremiumSlot struct {
	Premium decimal.Decimal

	Active  []*Bid
	Waiting []*Bid

	TotalActive decimal.Decimal

	Product decimal.Decimal
	Sum     decimal.Decimal
	Scale   uint64
	Epoch   uint64

	ResidueCollateral decimal.Decimal
	ResidueBid        decimal.Decimal

	LastTotal int64

	sums map[uint64]map[uint64]decimal.Decimal
}

// NewPremiumSlot constructs an empty slot at the given liquidation
// premium (a decimal fraction, e.g. 0.05 for 5%).
func NewPremiumSlot(premium decimal.Decimal) *PremiumSlot {
	s := &PremiumSlot{
		Premium:           premium,
		TotalActive:       decimal.Zero,
		Product:           decimal.New(1, 0),
		Sum:               decimal.Zero,
		ResidueCollateral: decimal.Zero,
		ResidueBid:        decimal.Zero,
		sums:              map[uint64]map[uint64]decimal.Decimal{0: {0: decimal.Zero}},
	}
	return s
}

func (s *PremiumSlot) recordSum() {
	if s.sums == nil {
		s.sums = map[uint64]map[uint64]decimal.Decimal{}
	}
	scales, ok := s.sums[s.Epoch]
	if !ok {
		scales = map[uint64]decimal.Decimal{}
		s.sums[s.Epoch] = scales
	}
	scales[s.Scale] = s.Sum
}

func (s *PremiumSlot) sumAt(epoch, scale uint64) decimal.Decimal {
	scales, ok := s.sums[epoch]
	if !ok {
		return decimal.Zero
	}
	v, ok := scales[scale]
	if !ok {
		return decimal.Zero
	}
	return v
}

// snapshot returns the current reward-distribution coordinates, to be
// stamped onto a bid when it is admitted or re-touched.
func (s *PremiumSlot) snapshot() (product, sum decimal.Decimal, epoch, scale uint64) {
	return s.Product, s.Sum, s.Epoch, s.Scale
}

// applyLoss consumes creditFill credit and collateralFill collateral from
// the slot's active bids pro-rata, per spec.md §4.B's scalable reward
// distribution algorithm. Both amounts must already be capped to
// s.TotalActive by the caller. It returns nothing and does not update
// ResidueCollateral or ResidueBid.
func (s *PremiumSlot) applyLoss(creditFill, collateralFill decimal.Decimal) {
	if s.TotalActive.IsZero() || creditFill.Sign() <= 0 {
		return
	}

	collateralPerUnit := collateralFill.Div(s.TotalActive)
	expensePerUnit := creditFill.Div(s.TotalActive)

	s.Sum = s.Sum.Add(s.Product.Mul(collateralPerUnit))
	s.recordSum()

	if expensePerUnit.GreaterThanOrEqual(decimal.New(1, 0)) {
		// Full depletion: reset product/sum, advance epoch.
		s.TotalActive = decimal.Zero
		s.Active = s.Active[:0]
		s.Product = decimal.New(1, 0)
		s.Sum = decimal.Zero
		s.Scale = 0
		s.Epoch++
		s.recordSum()
		return
	}

	retained := decimal.New(1, 0).Sub(expensePerUnit)
	newProduct := s.Product.Mul(retained)
	if newProduct.LessThan(minProduct) {
		newProduct = newProduct.Mul(scaleFactor)
		s.Scale++
		s.recordSum()
	}
	s.Product = newProduct

	s.TotalActive = s.TotalActive.Sub(creditFill)
}

// reconcile computes a bid's currently remaining amount and earned
// (but unclaimed) collateral against the slot's live coordinates, per
// spec.md §4.B's remaining/earned formulas.
func (s *PremiumSlot) reconcile(b *Bid) (remaining, earned decimal.Decimal) {
	if b.ProductSnap.IsZero() {
		return decimal.Zero, decimal.Zero
	}

	if b.EpochSnap != s.Epoch {
		// The slot emptied entirely since this bid's last touch: nothing
		// remains, but a final collateral tail may still be owed from the
		// epoch in which the bid was wiped out.
		finalSum := s.sumAt(b.EpochSnap, b.ScaleSnap)
		tail := s.sumAt(b.EpochSnap, b.ScaleSnap+1)
		earned = b.Amount.Mul(finalSum.Sub(b.SumSnap).Add(tail)).Div(b.ProductSnap)
		return decimal.Zero, earned
	}

	scaleDiff := s.Scale - b.ScaleSnap
	switch scaleDiff {
	case 0:
		remaining = b.Amount.Mul(s.Product).Div(b.ProductSnap)
		earned = b.Amount.Mul(s.Sum.Sub(b.SumSnap)).Div(b.ProductSnap)
	case 1:
		remaining = b.Amount.Mul(s.Product).Div(b.ProductSnap).Div(scaleFactor)
		atOldScale := s.sumAt(b.EpochSnap, b.ScaleSnap)
		earned = b.Amount.Mul(atOldScale.Sub(b.SumSnap).Add(s.Sum.Sub(atOldScale))).Div(b.ProductSnap)
	default:
		// More than one scale advance: the bid's value has truncated away
		// entirely.
		remaining = decimal.Zero
		earned = b.Amount.Mul(s.Sum.Sub(b.SumSnap)).Div(b.ProductSnap)
	}
	if remaining.Sign() < 0 {
		remaining = decimal.Zero
	}
	if earned.Sign() < 0 {
		earned = decimal.Zero
	}
	return remaining, earned
}

// admit stamps the slot's current snapshot onto b and appends it to the
// active list, increasing TotalActive.
func (s *PremiumSlot) admit(b *Bid) {
	product, sum, epoch, scale := s.snapshot()
	b.ProductSnap, b.SumSnap, b.EpochSnap, b.ScaleSnap = product, sum, epoch, scale
	b.WaitEnd = 0
	s.Active = append(s.Active, b)
	s.TotalActive = s.TotalActive.Add(b.Amount)
}
