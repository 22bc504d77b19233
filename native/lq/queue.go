package lq

import (
	"sort"

	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
)

// Queue is one collateral type's premium-tiered bid book. A protocol
// instantiates one Queue per accepted collateral asset; bids are always
// denominated in BidAsset (the credit asset) and buy CollateralAsset at a
// discount during execute_liquidation.
type Queue struct {
	CollateralAsset types.AssetInfo
	BidAsset        types.AssetInfo

	BidThreshold       decimal.Decimal
	MinimumBid         decimal.Decimal
	MaxPremium         uint32
	WaitingPeriod      int64
	MaximumWaitingBids int

	CurrentBidID uint64

	// Slots is ordered ascending by premium tier; Slots[i].Premium is the
	// tier-i discount.
	Slots []*PremiumSlot

	cdpCaller crypto.Address
}

// NewQueue constructs a queue with one PremiumSlot per tier in premiums
// (index order is the tier order walked by ExecuteLiquidation).
func NewQueue(collateral, bidAsset types.AssetInfo, premiums []decimal.Decimal, bidThreshold, minimumBid decimal.Decimal, waitingPeriod int64, maxWaitingBids int, cdpCaller crypto.Address) *Queue {
	slots := make([]*PremiumSlot, len(premiums))
	for i, p := range premiums {
		slots[i] = NewPremiumSlot(p)
	}
	return &Queue{
		CollateralAsset:    collateral,
		BidAsset:           bidAsset,
		BidThreshold:       bidThreshold,
		MinimumBid:         minimumBid,
		MaxPremium:         uint32(len(premiums) - 1),
		WaitingPeriod:      waitingPeriod,
		MaximumWaitingBids: maxWaitingBids,
		Slots:              slots,
		cdpCaller:          cdpCaller,
	}
}

func (q *Queue) totalActive() decimal.Decimal {
	total := decimal.Zero
	for _, s := range q.Slots {
		total = total.Add(s.TotalActive)
	}
	return total
}

// SubmitBid validates and admits a new bid per spec.md §4.B. When the
// slot's running total plus amount would exceed bid_threshold, the bid is
// split: the portion up to threshold is admitted active, and
// the residual is queued waiting with wait_end = now + waiting_period.
func (q *Queue) SubmitBid(owner crypto.Address, premiumTier uint32, amount decimal.Decimal, now int64) (*Bid, error) {
	if amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if amount.LessThan(q.MinimumBid) {
		return nil, ErrBelowMinimumBid
	}
	if int(premiumTier) >= len(q.Slots) {
		return nil, ErrInvalidPremium
	}
	slot := q.Slots[premiumTier]

	q.CurrentBidID++
	bid := &Bid{ID: q.CurrentBidID, Owner: owner, PremiumTier: premiumTier}

	headroom := q.BidThreshold.Sub(slot.TotalActive)
	if headroom.GreaterThanOrEqual(amount) {
		bid.Amount = amount
		slot.admit(bid)
		return bid, nil
	}

	activePortion := decimal.Zero
	if headroom.Sign() > 0 {
		activePortion = headroom
	}
	waitingPortion := amount.Sub(activePortion)

	if len(slot.Waiting) >= q.MaximumWaitingBids {
		return nil, ErrTooManyWaitingBids
	}

	if activePortion.Sign() > 0 {
		active := &Bid{ID: bid.ID, Owner: owner, Amount: activePortion}
		slot.admit(active)
		bid = active
		// The residual is tracked as a second bid id so the waiting
		// portion can be independently retracted/promoted.
		q.CurrentBidID++
		waiting := &Bid{ID: q.CurrentBidID, Owner: owner, Amount: waitingPortion, WaitEnd: now + q.WaitingPeriod}
		slot.Waiting = append(slot.Waiting, waiting)
		return bid, nil
	}

	bid.Amount = waitingPortion
	bid.WaitEnd = now + q.WaitingPeriod
	slot.Waiting = append(slot.Waiting, bid)
	return bid, nil
}

// RetractBid withdraws amount (or the full bid, if amount is nil) from an
// owned bid. Waiting bids withdraw freely; active bids are first
// reconciled against the slot's live coordinates so the owner never
// retracts reward they have already earned as a different asset.
func (q *Queue) RetractBid(owner crypto.Address, bidID uint64, premiumTier uint32, amount *decimal.Decimal, now int64) (decimal.Decimal, error) {
	if int(premiumTier) >= len(q.Slots) {
		return decimal.Zero, ErrInvalidPremium
	}
	slot := q.Slots[premiumTier]

	for i, b := range slot.Waiting {
		if b.ID == bidID {
			if !b.Owner.Equal(owner) {
				return decimal.Zero, ErrNotBidOwner
			}
			withdraw := b.Amount
			if amount != nil && amount.LessThan(b.Amount) {
				withdraw = *amount
				remainder := b.Amount.Sub(withdraw)
				if remainder.LessThan(q.MinimumBid) {
					withdraw = b.Amount
				} else {
					b.Amount = remainder
					return withdraw, nil
				}
			}
			slot.Waiting = append(slot.Waiting[:i], slot.Waiting[i+1:]...)
			return withdraw, nil
		}
	}

	for i, b := range slot.Active {
		if b.ID == bidID {
			if !b.Owner.Equal(owner) {
				return decimal.Zero, ErrNotBidOwner
			}
			remaining, earned := slot.reconcile(b)
			b.PendingCollateral = b.PendingCollateral.Add(earned)

			withdraw := remaining
			fullWithdraw := true
			if amount != nil && amount.LessThan(remaining) {
				rest := remaining.Sub(*amount)
				if rest.GreaterThanOrEqual(q.MinimumBid) {
					withdraw = *amount
					fullWithdraw = false
				}
			}

			slot.TotalActive = slot.TotalActive.Sub(remaining)
			if fullWithdraw {
				slot.Active = append(slot.Active[:i], slot.Active[i+1:]...)
			} else {
				b.Amount = remaining.Sub(withdraw)
				product, sum, epoch, scale := slot.snapshot()
				b.ProductSnap, b.SumSnap, b.EpochSnap, b.ScaleSnap = product, sum, epoch, scale
				slot.TotalActive = slot.TotalActive.Add(b.Amount)
			}
			return withdraw, nil
		}
	}
	return decimal.Zero, ErrBidNotFound
}

// promoteWaiting runs the waiting-bid promotion pass described in
// spec.md §4.B: touched on every liquidation, it promotes every bid whose
// wait_end has elapsed, and additionally promotes the oldest waiting bid
// (lowest id) regardless of wait_end while the slot remains under
// threshold.
func (s *PremiumSlot) promoteWaiting(now int64, threshold, waitingPeriod decimal.Decimal) {
	if len(s.Waiting) == 0 {
		s.LastTotal = now
		return
	}

	elapsed := decimal.NewFromInt(now - s.LastTotal)
	belowThreshold := s.TotalActive.LessThan(threshold)
	if !belowThreshold && elapsed.LessThan(waitingPeriod) {
		return
	}

	sort.SliceStable(s.Waiting, func(i, j int) bool { return s.Waiting[i].ID < s.Waiting[j].ID })

	remaining := s.Waiting[:0:0]
	for _, b := range s.Waiting {
		if b.WaitEnd <= now {
			s.admit(b)
		} else {
			remaining = append(remaining, b)
		}
	}
	s.Waiting = remaining

	for len(s.Waiting) > 0 && s.TotalActive.LessThanOrEqual(threshold) {
		oldest := s.Waiting[0]
		s.Waiting = s.Waiting[1:]
		s.admit(oldest)
	}

	s.LastTotal = now
}

// applyPremium returns the collateral price discounted by the slot's
// premium: price × (1 − premium).
func applyPremium(price types.Price, premium decimal.Decimal) types.Price {
	return types.Price{Quote: price.Quote.Mul(decimal.New(1, 0).Sub(premium)), Decimals: price.Decimals}
}

// CheckLiquidatible is the read-only query the CDP uses to learn how much
// collateral this queue could absorb (and how much credit it would repay)
// without mutating any state.
func (q *Queue) CheckLiquidatible(collateralAmount decimal.Decimal, collateralPrice, creditPrice types.Price) (leftoverCollateral, totalCreditRepaid decimal.Decimal) {
	remaining := collateralAmount
	repaid := decimal.Zero

	for _, slot := range q.Slots {
		if remaining.Sign() <= 0 || slot.TotalActive.Sign() <= 0 {
			continue
		}
		discounted := applyPremium(collateralPrice, slot.Premium)
		value := discounted.Quote.Mul(remaining)
		requiredCredit := value.Div(creditPrice.Quote)

		fillCredit := requiredCredit
		fillCollateral := remaining
		if fillCredit.GreaterThan(slot.TotalActive) {
			fillCredit = slot.TotalActive
			fillCollateral = fillCredit.Mul(creditPrice.Quote).Div(discounted.Quote)
		}

		repaid = repaid.Add(fillCredit)
		remaining = remaining.Sub(fillCollateral)
	}

	return remaining, repaid
}

// ExecuteLiquidation is the privileged entry point only the CDP's Engine
// may call. It walks premium tiers ascending, consuming each tier's
// active bids pro-rata via the scalable reward distribution algorithm,
// and returns the total credit repaid plus whatever collateral this
// queue could not absorb.
func (q *Queue) ExecuteLiquidation(sender crypto.Address, collateralAmount decimal.Decimal, collateralPrice, creditPrice types.Price, positionID uint64, positionOwner crypto.Address, now int64) (creditRepaid, collateralLeftover decimal.Decimal, err error) {
	if !sender.Equal(q.cdpCaller) {
		return decimal.Zero, decimal.Zero, ErrUnauthorized
	}
	if collateralAmount.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, ErrZeroAmount
	}

	remaining := collateralAmount
	repaid := decimal.Zero

	waitingPeriod := decimal.NewFromInt(q.WaitingPeriod)
	for _, slot := range q.Slots {
		slot.promoteWaiting(now, q.BidThreshold, waitingPeriod)

		if remaining.Sign() <= 0 || slot.TotalActive.Sign() <= 0 {
			continue
		}

		discounted := applyPremium(collateralPrice, slot.Premium)
		value := discounted.Quote.Mul(remaining)
		requiredCredit := value.Div(creditPrice.Quote)

		fillCredit := requiredCredit
		fillCollateral := remaining
		if fillCredit.GreaterThan(slot.TotalActive) {
			fillCredit = slot.TotalActive
			fillCollateral = fillCredit.Mul(creditPrice.Quote).Div(discounted.Quote)
		}

		slot.applyLoss(fillCredit, fillCollateral)

		repaid = repaid.Add(fillCredit)
		remaining = remaining.Sub(fillCollateral)
	}

	return repaid, remaining, nil
}

// ClaimLiquidations sweeps the accumulated-but-unclaimed collateral for
// the caller's bids (or the supplied subset) across every slot, returning
// the total and zeroing each bid's PendingCollateral.
func (q *Queue) ClaimLiquidations(owner crypto.Address, bidIDs []uint64, now int64) decimal.Decimal {
	wanted := map[uint64]bool{}
	for _, id := range bidIDs {
		wanted[id] = true
	}
	filterAll := len(bidIDs) == 0

	claimed := decimal.Zero
	for _, slot := range q.Slots {
		for _, b := range slot.Active {
			if !b.Owner.Equal(owner) {
				continue
			}
			if !filterAll && !wanted[b.ID] {
				continue
			}
			remaining, earned := slot.reconcile(b)
			b.PendingCollateral = b.PendingCollateral.Add(earned)
			claimed = claimed.Add(b.PendingCollateral)
			b.PendingCollateral = decimal.Zero
			// Re-stamp the snapshot so future reconciles start from now.
			b.Amount = remaining
			product, sum, epoch, scale := slot.snapshot()
			b.ProductSnap, b.SumSnap, b.EpochSnap, b.ScaleSnap = product, sum, epoch, scale
		}
	}
	return claimed
}
