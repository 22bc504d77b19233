package lq

import (
	"github.com/shopspring/decimal"

	"creditcore/crypto"
)

// Bid is a single liquidator's standing order to buy collateral at a
// discount within one PremiumSlot. Waiting bids carry a non-nil WaitEnd
// and no snapshot; active bids carry the reward-distribution snapshot
// taken at admission or last touch.
type Bid struct {
	ID          uint64
	Owner       crypto.Address
	Amount      decimal.Decimal
	PremiumTier uint32

	// Snapshot fields, meaningful only while the bid is active.
	ProductSnap decimal.Decimal
	SumSnap     decimal.Decimal
	EpochSnap   uint64
	ScaleSnap   uint64

	// WaitEnd is the unix-seconds timestamp after which a waiting bid is
	// eligible for promotion. Zero means the bid is active, not waiting.
	WaitEnd int64

	// PendingCollateral accumulates collateral reconciled into the bid but
	// not yet claimed.
	PendingCollateral decimal.Decimal
}

// IsWaiting reports whether the bid has not yet been admitted as active.
func (b *Bid) IsWaiting() bool { return b.WaitEnd != 0 }
