// Package basket implements the collateral-basket registry: the credit
// asset's own price, the set of accepted collateral types and their
// per-asset risk parameters, and the protocol revenue counter accrued from
// stability fees and liquidation premiums.
package basket

import (
	"errors"

	"github.com/holiman/uint256"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/common"
)

// ErrUnknownCollateral is returned when a caller references a collateral
// asset that has not been registered via AddCollateral.
var ErrUnknownCollateral = errors.New("basket: unknown collateral asset")

// ErrCollateralExists is returned by AddCollateral when the asset is
// already registered.
var ErrCollateralExists = errors.New("basket: collateral already registered")

// ErrBasketFrozen is returned when a mutating op is attempted while the
// basket is frozen.
var ErrBasketFrozen = errors.New("basket: frozen")

// ModuleName identifies this module to a shared common.PauseView.
const ModuleName = "basket"

// CollateralAsset is one accepted collateral type and its risk parameters.
type CollateralAsset struct {
	Info     types.AssetInfo
	Price    types.Price
	MaxLTV   uint32 // basis points, e.g. 6000 = 60%
	// BorrowLTV is the safe borrowing threshold (basis points) a position
	// is driven back down to by a liquidation's repay_value calculation
	// in spec.md §4.A step 4; always configured below MaxLTV.
	BorrowLTV uint32
	Decimals  uint32
	// LPPoolID is set when this collateral is an LP share routed through
	// native/sellwall on exit rather than sold directly.
	LPPoolID string
}

// Basket is the registry of the credit asset's price and the accepted
// collateral set. It is the single owner- and pause-gated configuration
// surface every other native module reads from.
type Basket struct {
	owner *common.Owner
	pause common.PauseView

	CreditAsset types.AssetInfo
	CreditPrice types.Price

	PendingRevenue *uint256.Int
	Frozen         bool

	collateral []CollateralAsset
	index      map[string]int
}

// New constructs an empty Basket for the given credit asset, controlled by
// initialOwner.
func New(creditAsset types.AssetInfo, initialPrice types.Price, initialOwner crypto.Address) *Basket {
	return &Basket{
		owner:          common.NewOwner(initialOwner),
		CreditAsset:    creditAsset,
		CreditPrice:    initialPrice,
		PendingRevenue: new(uint256.Int),
		index:          make(map[string]int),
	}
}

// SetPauseView attaches the shared pause-state view consulted by every
// mutating entry point.
func (b *Basket) SetPauseView(p common.PauseView) { b.pause = p }

// Owner exposes the two-step ownership guard so callers can Propose/Accept
// transfers.
func (b *Basket) Owner() *common.Owner { return b.owner }

func (b *Basket) guard() error {
	if err := common.Guard(b.pause, ModuleName); err != nil {
		return err
	}
	if b.Frozen {
		return ErrBasketFrozen
	}
	return nil
}

// AddCollateral registers a new collateral asset. Only the owner may call
// this; it fails if the asset is already registered.
func (b *Basket) AddCollateral(sender crypto.Address, asset CollateralAsset) error {
	if err := b.owner.RequireOwner(sender); err != nil {
		return err
	}
	if err := b.guard(); err != nil {
		return err
	}
	key := asset.Info.Key()
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if _, ok := b.index[key]; ok {
		return ErrCollateralExists
	}
	b.index[key] = len(b.collateral)
	b.collateral = append(b.collateral, asset)
	return nil
}

// Collateral returns the registered parameters for asset, or
// ErrUnknownCollateral if it has not been added.
func (b *Basket) Collateral(asset types.AssetInfo) (CollateralAsset, error) {
	idx, ok := b.index[asset.Key()]
	if !ok {
		return CollateralAsset{}, ErrUnknownCollateral
	}
	return b.collateral[idx], nil
}

// Collaterals returns a copy of the full registered collateral set, in
// registration order.
func (b *Basket) Collaterals() []CollateralAsset {
	out := make([]CollateralAsset, len(b.collateral))
	copy(out, b.collateral)
	return out
}

// SetCreditPrice updates the credit asset's quote. Called by the owner
// directly for manual overrides, or by an oraclefeed.PriceStreamer
// subscriber acting on the owner's behalf.
func (b *Basket) SetCreditPrice(sender crypto.Address, price types.Price) error {
	if err := b.owner.RequireOwner(sender); err != nil {
		return err
	}
	if err := b.guard(); err != nil {
		return err
	}
	b.CreditPrice = price
	return nil
}

// SetCollateralPrice updates a registered collateral asset's quote.
func (b *Basket) SetCollateralPrice(sender crypto.Address, asset types.AssetInfo, price types.Price) error {
	if err := b.owner.RequireOwner(sender); err != nil {
		return err
	}
	if err := b.guard(); err != nil {
		return err
	}
	idx, ok := b.index[asset.Key()]
	if !ok {
		return ErrUnknownCollateral
	}
	b.collateral[idx].Price = price
	return nil
}

// Freeze sets Frozen, after which AddCollateral, SetCreditPrice and
// SetCollateralPrice fail with ErrBasketFrozen until Unfreeze.
// AccrueRevenue and ClaimRevenue do not check Frozen.
func (b *Basket) Freeze(sender crypto.Address) error {
	if err := b.owner.RequireOwner(sender); err != nil {
		return err
	}
	b.Frozen = true
	return nil
}

// Unfreeze lifts a prior Freeze.
func (b *Basket) Unfreeze(sender crypto.Address) error {
	if err := b.owner.RequireOwner(sender); err != nil {
		return err
	}
	b.Frozen = false
	return nil
}

// AccrueRevenue adds amount to the pending protocol-revenue counter. Called
// by native/cdp and native/lq when they collect stability fees or
// liquidation premiums earmarked for the protocol.
func (b *Basket) AccrueRevenue(amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	if b.PendingRevenue == nil {
		b.PendingRevenue = new(uint256.Int)
	}
	b.PendingRevenue = new(uint256.Int).Add(b.PendingRevenue, amount)
}

// ClaimRevenue zeroes the pending-revenue counter and returns the amount
// claimed. Only the owner may sweep accrued revenue.
func (b *Basket) ClaimRevenue(sender crypto.Address) (*uint256.Int, error) {
	if err := b.owner.RequireOwner(sender); err != nil {
		return nil, err
	}
	claimed := b.PendingRevenue
	if claimed == nil {
		claimed = new(uint256.Int)
	}
	b.PendingRevenue = new(uint256.Int)
	return claimed, nil
}
