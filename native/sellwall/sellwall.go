// Package sellwall implements the fallback collateral-to-credit swap path
// used when neither the liquidation queue nor the stability pool can
// absorb a position's remaining repay amount.
package sellwall

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"creditcore/core/types"
)

// ErrNoRoute is returned when neither a Router nor a PoolExiter is
// registered for a given collateral asset.
var ErrNoRoute = errors.New("sellwall: no swap route for collateral asset")

// Router is the narrow external-collaborator interface for an on-chain
// DEX: given a collateral asset and quantity, swap it for the credit
// asset and report how much credit was received. Implementations are
// reached only through this interface, never a concrete client type, so
// the sellwall package stays usable against any router that implements it.
type Router interface {
	Swap(ctx context.Context, collateral types.AssetInfo, quantity decimal.Decimal) (creditReceived decimal.Decimal, err error)
}

// PoolExiter handles LP-share collateral, which must be redeemed to its
// constituent assets before it can be sold; LP shares are never routed
// to a Router directly.
type PoolExiter interface {
	ExitPool(ctx context.Context, share types.AssetInfo, quantity decimal.Decimal) (constituents []Claim, err error)
}

// RepayHook is the CDP-side continuation invoked once a swap (or, for LP
// shares, an exit-then-swap sequence) completes.
type RepayHook func(ctx context.Context, positionID uint64, creditRepaid decimal.Decimal) error

// CollateralClaim is one collateral type held by the position being
// liquidated through the sell-wall, plus its target ratio of the total
// repay value.
type CollateralClaim struct {
	Asset    types.AssetInfo
	LPPoolID string
	Ratio    decimal.Decimal
	Price    types.Price
}

// registry holds the per-collateral-asset routes registered by the CDP
// at startup.
type registry struct {
	routers map[string]Router
	exiters map[string]PoolExiter
}

// Dispatcher fans a sell-wall liquidation out across a position's
// collateral claims, per spec.md §4.D.
type Dispatcher struct {
	registry
	hook RepayHook
}

// NewDispatcher constructs a Dispatcher with no routes registered; call
// RegisterRouter/RegisterPoolExiter per collateral asset before use.
func NewDispatcher(hook RepayHook) *Dispatcher {
	return &Dispatcher{
		registry: registry{routers: map[string]Router{}, exiters: map[string]PoolExiter{}},
		hook:     hook,
	}
}

// RegisterRouter wires a swap route for a non-LP collateral asset.
func (d *Dispatcher) RegisterRouter(asset types.AssetInfo, r Router) {
	d.routers[asset.Key()] = r
}

// RegisterPoolExiter wires an LP-share redemption route.
func (d *Dispatcher) RegisterPoolExiter(asset types.AssetInfo, e PoolExiter) {
	d.exiters[asset.Key()] = e
}

// Claim is the outcome of planning one CollateralClaim: the asset and the
// quantity deducted from the position's claims before dispatch (so a
// failed swap never leaves the position double-booked). The credit a
// swap repays is reported through the RepayHook, not stored here.
type Claim struct {
	Asset    types.AssetInfo
	Quantity decimal.Decimal
}

// PlanDeductions computes, for each collateral claim, the sell quantity
// = (ratio × repayValue) / assetPrice, per spec.md §4.D step 2. These
// quantities must be deducted from the position's claims by the caller
// *before* Dispatch is invoked, so a successful swap is a no-op on
// claims and a failed swap leaves the position short but not
// double-booked.
func PlanDeductions(claims []CollateralClaim, repayValue decimal.Decimal) []Claim {
	out := make([]Claim, 0, len(claims))
	for _, c := range claims {
		value := c.Ratio.Mul(repayValue)
		qty := value.Div(c.Price.Quote)
		out = append(out, Claim{Asset: c.Asset, Quantity: qty})
	}
	return out
}

// Dispatch executes the swap (or exit-then-swap) for a single deducted
// claim and invokes the repay hook on success. LP shares are redeemed to
// their constituent assets first; each constituent is then routed
// individually. A failed swap does not re-credit the position's claims —
// by design the caller already made the deduction before Dispatch, matching
// the source's stated rationale that collateral, once committed to the
// sell-wall, is treated as spent regardless of swap outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, positionID uint64, claim Claim, lpPoolID string) error {
	if lpPoolID != "" {
		exiter, ok := d.exiters[claim.Asset.Key()]
		if !ok {
			return ErrNoRoute
		}
		constituents, err := exiter.ExitPool(ctx, claim.Asset, claim.Quantity)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, c := range constituents {
			router, ok := d.routers[c.Asset.Key()]
			if !ok {
				continue
			}
			received, err := router.Swap(ctx, c.Asset, c.Quantity)
			if err != nil {
				continue
			}
			total = total.Add(received)
		}
		return d.hook(ctx, positionID, total)
	}

	router, ok := d.routers[claim.Asset.Key()]
	if !ok {
		return ErrNoRoute
	}
	received, err := router.Swap(ctx, claim.Asset, claim.Quantity)
	if err != nil {
		return err
	}
	return d.hook(ctx, positionID, received)
}
