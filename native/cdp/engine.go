package cdp

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/auction"
	nativecommon "creditcore/native/common"
	"creditcore/native/basket"
	"creditcore/native/lq"
	"creditcore/native/sellwall"
	"creditcore/native/stabilitypool"
	"creditcore/observability/metrics"
)

// ModuleName identifies this module to a shared nativecommon.PauseView,
// matching every other native module's pause-gate wiring.
const ModuleName = "cdp"

// LiquidationResult records the attributes of a completed Liquidate call,
// per spec.md §7 ("every successful call emits named attributes
// documenting method, principal actors, and monetary deltas").
type LiquidationResult struct {
	PositionID          uint64
	CallerFeeValue      decimal.Decimal
	ProtocolFeeValue    decimal.Decimal
	SelfRepaidSP        decimal.Decimal
	CreditRepaidLQ      decimal.Decimal
	CreditRepaidSP      decimal.Decimal
	CreditDispatchedSW  decimal.Decimal
	BadDebtValue        decimal.Decimal
}

// Engine orchestrates the Position Liquidator's state transitions,
// matching native/lending/engine.go's Engine shape: one struct holding
// its persistence seam, pause gate, and collaborator references, with
// every mutating entry point Guard-first.
type Engine struct {
	state  engineState
	pauses nativecommon.PauseView

	// self is the sender identity this engine presents to every
	// privileged collaborator entry point (lq.ExecuteLiquidation,
	// stabilitypool.Liquidate/Distribute/Repay, auction.StartAuction).
	self        crypto.Address
	spAddr      crypto.Address
	stakingAddr crypto.Address

	basket             *basket.Basket
	pool               *stabilitypool.AssetPool
	queues             map[string]*lq.Queue
	sellwallDispatcher *sellwall.Dispatcher
	debtAuction        *auction.DebtAuction

	rates  RateProvider
	params Params
}

// NewEngine constructs an Engine wired to basket b, presenting identity
// self to every privileged collaborator call, paying protocol fees to
// stakingAddr.
func NewEngine(self crypto.Address, b *basket.Basket, stakingAddr crypto.Address, params Params) *Engine {
	params.EnsureDefaults()
	return &Engine{
		self:        self,
		basket:      b,
		stakingAddr: stakingAddr,
		params:      params,
		queues:      map[string]*lq.Queue{},
		rates:       staticRateProvider{},
	}
}

// SetState wires the engine to its persistence layer.
func (e *Engine) SetState(s engineState) { e.state = s }

// SetPauseView attaches the shared pause-state view.
func (e *Engine) SetPauseView(p nativecommon.PauseView) { e.pauses = p }

// SetRates wires the external interest-rate-curve collaborator.
func (e *Engine) SetRates(r RateProvider) {
	if r != nil {
		e.rates = r
	}
}

// SetStabilityPool wires the Stability Pool collaborator and the sender
// identity it expects on its own CDP-privileged entry points.
func (e *Engine) SetStabilityPool(p *stabilitypool.AssetPool, spAddr crypto.Address) {
	e.pool = p
	e.spAddr = spAddr
}

// RegisterQueue wires one collateral asset's liquidation queue.
func (e *Engine) RegisterQueue(asset types.AssetInfo, q *lq.Queue) {
	e.queues[asset.Key()] = q
}

// SetSellWall wires the fallback swap dispatcher.
func (e *Engine) SetSellWall(d *sellwall.Dispatcher) { e.sellwallDispatcher = d }

// SetDebtAuction wires the bad-debt recapitalization auction.
func (e *Engine) SetDebtAuction(a *auction.DebtAuction) { e.debtAuction = a }

func (e *Engine) loadPosition(id uint64, owner crypto.Address) (*Position, error) {
	pos, err := e.state.GetPosition(id)
	if err != nil {
		return nil, err
	}
	if !pos.Owner.Equal(owner) {
		return nil, ErrPositionNotFound
	}
	return pos, nil
}

// reduceDebt subtracts amount (a whole-unit credit-asset figure, the
// convention lq/stabilitypool/sellwall all share, converted to a raw
// amount through the basket's current CreditPrice) from
// pos.CreditAmount, floored at zero rather than going negative.
func (e *Engine) reduceDebt(pos *Position, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return nil
	}
	qty, err := e.basket.CreditPrice.AmountOf(amount)
	if err != nil {
		return err
	}
	if pos.CreditAmount == nil {
		pos.CreditAmount = new(uint256.Int)
	}
	if qty.Cmp(pos.CreditAmount) > 0 {
		qty = pos.CreditAmount
	}
	pos.CreditAmount = new(uint256.Int).Sub(pos.CreditAmount, qty)
	return nil
}

// collateralToWhole converts a raw collateral claim amount into the
// whole-unit decimal quantity lq/sellwall expect.
func (e *Engine) collateralToWhole(asset types.AssetInfo, raw *uint256.Int) (decimal.Decimal, error) {
	coll, err := e.basket.Collateral(asset)
	if err != nil {
		return decimal.Zero, ErrInvalidAsset
	}
	unit := types.Price{Quote: types.One(), Decimals: coll.Decimals}
	return unit.ValueOf(raw), nil
}

// collateralToRaw is collateralToWhole's inverse.
func (e *Engine) collateralToRaw(asset types.AssetInfo, whole decimal.Decimal) (*uint256.Int, error) {
	coll, err := e.basket.Collateral(asset)
	if err != nil {
		return nil, ErrInvalidAsset
	}
	unit := types.Price{Quote: types.One(), Decimals: coll.Decimals}
	return unit.AmountOf(whole)
}

func (e *Engine) remainingCollateralValue(pos *Position) decimal.Decimal {
	total := decimal.Zero
	for _, c := range pos.Collateral {
		coll, err := e.basket.Collateral(c.Asset.Info)
		if err != nil {
			continue
		}
		total = total.Add(coll.Price.ValueOf(c.Asset.Amount))
	}
	return total
}

// collateralShares snapshots each held collateral asset's share of
// totalValue once, before any fee deduction mutates the claims, so two
// sequential deductFee calls (caller fee, then protocol fee) split
// correctly off the position's pre-fee composition rather than drifting
// as each call shrinks the claims it reads from.
func (e *Engine) collateralShares(pos *Position, totalValue decimal.Decimal) map[string]decimal.Decimal {
	shares := make(map[string]decimal.Decimal, len(pos.Collateral))
	if totalValue.Sign() <= 0 {
		return shares
	}
	for _, c := range pos.Collateral {
		coll, err := e.basket.Collateral(c.Asset.Info)
		if err != nil {
			continue
		}
		value := coll.Price.ValueOf(c.Asset.Amount)
		if value.Sign() <= 0 {
			continue
		}
		share, err := types.DivDecimal(value, totalValue)
		if err != nil {
			continue
		}
		shares[c.Asset.Info.Key()] = share
	}
	return shares
}

// deductFee implements spec.md §4.A step 5: feeRate applied against the
// position's total collateral value, taken in kind across every held
// collateral asset per its pre-fee shares, and credited to recipient's
// ledger account, removed from the position's claims before the
// waterfall begins.
func (e *Engine) deductFee(pos *Position, shares map[string]decimal.Decimal, totalValue, feeRate decimal.Decimal, recipient crypto.Address) (decimal.Decimal, error) {
	if feeRate.Sign() <= 0 || totalValue.Sign() <= 0 {
		return decimal.Zero, nil
	}
	feeValue := feeRate.Mul(totalValue)
	recipientAcc, err := e.state.GetAccount(recipient)
	if err != nil {
		return decimal.Zero, err
	}

	paid := decimal.Zero
	for i := range pos.Collateral {
		claim := &pos.Collateral[i]
		share, ok := shares[claim.Asset.Info.Key()]
		if !ok || share.Sign() <= 0 {
			continue
		}
		coll, err := e.basket.Collateral(claim.Asset.Info)
		if err != nil {
			continue
		}
		qty, err := coll.Price.AmountOf(share.Mul(feeValue))
		if err != nil || qty == nil || qty.IsZero() {
			continue
		}
		if qty.Cmp(claim.Asset.Amount) > 0 {
			qty = claim.Asset.Amount
		}
		claim.Asset.Amount = new(uint256.Int).Sub(claim.Asset.Amount, qty)
		recipientAcc.Credit(claim.Asset.Info, qty)
		paid = paid.Add(coll.Price.ValueOf(qty))
	}
	if err := e.state.PutAccount(recipient, recipientAcc); err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}

func (e *Engine) buildSellWallClaims(pos *Position) []sellwall.CollateralClaim {
	remainingValue := e.remainingCollateralValue(pos)
	if remainingValue.Sign() <= 0 {
		return nil
	}
	claims := make([]sellwall.CollateralClaim, 0, len(pos.Collateral))
	for _, c := range pos.Collateral {
		coll, err := e.basket.Collateral(c.Asset.Info)
		if err != nil {
			continue
		}
		value := coll.Price.ValueOf(c.Asset.Amount)
		if value.Sign() <= 0 {
			continue
		}
		ratio, err := types.DivDecimal(value, remainingValue)
		if err != nil {
			continue
		}
		claims = append(claims, sellwall.CollateralClaim{Asset: c.Asset.Info, LPPoolID: c.LPPoolID, Ratio: ratio, Price: coll.Price})
	}
	return claims
}

// SellWallRepayHook exposes sellWallRepayHook as a bound sellwall.RepayHook
// value so the process wiring (cmd/liquidationd) can register it with a
// sellwall.Dispatcher constructed after the Engine itself, without the
// dispatcher package needing to import native/cdp.
func (e *Engine) SellWallRepayHook(ctx context.Context, positionID uint64, creditRepaid decimal.Decimal) error {
	return e.sellWallRepayHook(ctx, positionID, creditRepaid)
}

// sellWallRepayHook is the reply-on-success continuation registered with
// the sell-wall dispatcher at wiring time: it reloads the position (the
// durable collateral deduction already landed before Dispatch was
// called, per spec.md §5's suspension-point discipline) and applies the
// reversible debt reduction only once the swap has actually settled.
func (e *Engine) sellWallRepayHook(ctx context.Context, positionID uint64, creditRepaid decimal.Decimal) error {
	pos, err := e.state.GetPosition(positionID)
	if err != nil {
		return err
	}
	if err := e.reduceDebt(pos, creditRepaid); err != nil {
		return err
	}
	return e.state.PutPosition(pos)
}

// distributeToSP credits the stability pool's depositors their pro-rata
// share of the collateral corresponding to the burned amount, per
// spec.md §4.A step 8 / §4.C Distribute: the collateral-to-credit
// exchange rate is 1:1 at oracle value (the Stability Pool carries no
// discount premium, unlike the Liquidation Queue). Each collateral
// asset's distribution_asset_ratio is its own oracle value as a fraction
// of the total value handed to the pool, so stabilitypool.Distribute can
// attribute the right slice of the FIFO burn line to each asset even
// when the burn spans more than one depositor.
func (e *Engine) distributeToSP(pos *Position, burned, totalValue decimal.Decimal) error {
	if totalValue.Sign() <= 0 || burned.Sign() <= 0 {
		return nil
	}
	share, err := types.DivDecimal(burned, totalValue)
	if err != nil {
		return err
	}
	var assets []types.Asset
	var values []decimal.Decimal
	valueSum := decimal.Zero
	for i := range pos.Collateral {
		claim := &pos.Collateral[i]
		coll, err := e.basket.Collateral(claim.Asset.Info)
		if err != nil {
			continue
		}
		qtyDec := types.DecimalFromUint256(claim.Asset.Amount).Mul(share)
		qty, err := types.Uint256FromDecimalFloor(qtyDec)
		if err != nil || qty == nil || qty.IsZero() {
			continue
		}
		if qty.Cmp(claim.Asset.Amount) > 0 {
			qty = claim.Asset.Amount
		}
		value := coll.Price.ValueOf(qty)
		claim.Asset.Amount = new(uint256.Int).Sub(claim.Asset.Amount, qty)
		assets = append(assets, types.Asset{Info: claim.Asset.Info, Amount: qty})
		values = append(values, value)
		valueSum = valueSum.Add(value)
	}
	if len(assets) == 0 {
		return nil
	}
	ratios := make([]decimal.Decimal, len(assets))
	if valueSum.Sign() > 0 {
		for i, v := range values {
			ratio, err := types.DivDecimal(v, valueSum)
			if err != nil {
				continue
			}
			ratios[i] = ratio
		}
	} else {
		equal := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(assets))))
		for i := range ratios {
			ratios[i] = equal
		}
	}
	return e.pool.Distribute(e.self, assets, ratios, burned)
}

// Liquidate implements spec.md §4.A's ten-step procedure. caller is the
// fee-earning sender; positionOwner scopes the lookup so callers cannot
// reference another owner's position id by accident.
func (e *Engine) Liquidate(caller crypto.Address, positionID uint64, positionOwner crypto.Address, now int64) (*LiquidationResult, error) {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}

	// Step 1: load, accrue, persist before any external collaborator call.
	pos, err := e.loadPosition(positionID, positionOwner)
	if err != nil {
		return nil, err
	}
	if err := e.accrueInterest(pos, now); err != nil {
		return nil, err
	}
	if err := e.state.PutPosition(pos); err != nil {
		return nil, err
	}

	// Step 2-3: solvency.
	sol, err := e.computeSolvency(pos)
	if err != nil {
		return nil, err
	}
	if sol.CurrentLTV.LessThanOrEqual(sol.AvgMaxLTV) {
		return nil, ErrPositionSolvent
	}

	// Step 4: repay value.
	repayVal, err := e.repayValue(sol, sol.LoanValue)
	if err != nil {
		return nil, err
	}

	result := &LiquidationResult{PositionID: positionID}

	// Step 5: fees, in kind, before the waterfall. Shares are snapshotted
	// once against the position's pre-fee composition so the protocol
	// fee splits correctly even after the caller fee has already shrunk
	// the claims.
	shares := e.collateralShares(pos, sol.TotalValue)
	callerFeeRate := sol.CurrentLTV.Sub(sol.AvgMaxLTV)
	callerPaid, err := e.deductFee(pos, shares, sol.TotalValue, callerFeeRate, caller)
	if err != nil {
		return nil, err
	}
	result.CallerFeeValue = callerPaid

	protocolPaid, err := e.deductFee(pos, shares, sol.TotalValue, e.params.ProtocolFeeRate, e.stakingAddr)
	if err != nil {
		return nil, err
	}
	result.ProtocolFeeValue = protocolPaid

	if err := e.state.PutPosition(pos); err != nil {
		return nil, err
	}

	remainingCredit := repayVal

	// Step 6: optional owner SP self-repay.
	if e.pool != nil && remainingCredit.Sign() > 0 {
		deducted, err := e.pool.Repay(e.self, pos.Owner, remainingCredit, now)
		if err == nil && deducted.Sign() > 0 {
			remainingCredit = remainingCredit.Sub(deducted)
			result.SelfRepaidSP = deducted
			if err := e.reduceDebt(pos, deducted); err != nil {
				return nil, err
			}
			if err := e.state.PutPosition(pos); err != nil {
				return nil, err
			}
		}
	}

	// Step 7: per-collateral LQ fulfillment. Reply policy "always": settle
	// whatever filled and move on regardless of per-tier error.
	for i := range pos.Collateral {
		if remainingCredit.Sign() <= 0 {
			break
		}
		claim := &pos.Collateral[i]
		if claim.Asset.IsZero() {
			continue
		}
		queue, ok := e.queues[claim.Asset.Info.Key()]
		if !ok {
			continue
		}
		coll, err := e.basket.Collateral(claim.Asset.Info)
		if err != nil {
			continue
		}

		// lq.Queue works in whole collateral units (it applies
		// coll.Price itself), not raw integer amounts, so convert
		// through a unit price of 1 rather than passing the raw amount.
		unitPrice := types.Price{Quote: types.One(), Decimals: coll.Decimals}
		collateralAmount := unitPrice.ValueOf(claim.Asset.Amount)
		creditRepaid, collateralLeftover, err := queue.ExecuteLiquidation(e.self, collateralAmount, coll.Price, e.basket.CreditPrice, positionID, positionOwner, now)
		if err != nil {
			continue
		}

		consumed := collateralAmount.Sub(collateralLeftover)
		if consumedQty, cerr := unitPrice.AmountOf(consumed); cerr == nil && consumedQty != nil && !consumedQty.IsZero() {
			if consumedQty.Cmp(claim.Asset.Amount) > 0 {
				consumedQty = claim.Asset.Amount
			}
			claim.Asset.Amount = new(uint256.Int).Sub(claim.Asset.Amount, consumedQty)
		}
		if creditRepaid.Sign() > 0 {
			remainingCredit = remainingCredit.Sub(creditRepaid)
			result.CreditRepaidLQ = result.CreditRepaidLQ.Add(creditRepaid)
			if err := e.reduceDebt(pos, creditRepaid); err != nil {
				return nil, err
			}
		}
	}
	if err := e.state.PutPosition(pos); err != nil {
		return nil, err
	}

	// Step 8: Stability Pool fulfillment, skipped in favor of the
	// sell-wall when the position's remaining collateral value can no
	// longer cover what SP would be paid (spec.md §4.D rationale).
	if remainingCredit.Sign() > 0 && e.pool != nil {
		remainingValue := e.remainingCollateralValue(pos)
		if remainingValue.GreaterThanOrEqual(remainingCredit) {
			leftover := e.pool.CheckLiquidatible(remainingCredit)
			capacity := remainingCredit.Sub(leftover)
			if capacity.Sign() > 0 {
				fill := capacity
				if fill.GreaterThan(remainingCredit) {
					fill = remainingCredit
				}
				burned, _, err := e.pool.Liquidate(e.self, fill, now)
				if err == nil && burned.Sign() > 0 {
					remainingCredit = remainingCredit.Sub(burned)
					result.CreditRepaidSP = burned
					if err := e.reduceDebt(pos, burned); err != nil {
						return nil, err
					}
					if err := e.distributeToSP(pos, burned, remainingValue); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	if err := e.state.PutPosition(pos); err != nil {
		return nil, err
	}

	// Step 9: sell-wall fallback for whatever LQ+SP could not absorb.
	// Claims are deducted from the position (and persisted) before each
	// dispatch, per spec.md §4.D point 3 and the suspension-point
	// discipline of §5; the reply-on-success continuation
	// (sellWallRepayHook) commits the debt reduction only once the swap
	// settles.
	if remainingCredit.Sign() > 0 && e.sellwallDispatcher != nil {
		claims := e.buildSellWallClaims(pos)
		deductions := sellwall.PlanDeductions(claims, remainingCredit)
		for i, ded := range deductions {
			if ded.Quantity.Sign() <= 0 {
				continue
			}
			coll, err := e.basket.Collateral(ded.Asset)
			if err != nil {
				continue
			}
			unitPrice := types.Price{Quote: types.One(), Decimals: coll.Decimals}
			qty, err := unitPrice.AmountOf(ded.Quantity)
			if err != nil || qty == nil || qty.IsZero() {
				continue
			}
			if err := pos.deductCollateral(ded.Asset, qty); err != nil {
				continue
			}
			if err := e.state.PutPosition(pos); err != nil {
				return nil, err
			}
			result.CreditDispatchedSW = result.CreditDispatchedSW.Add(ded.Quantity)
			_ = e.sellwallDispatcher.Dispatch(context.Background(), positionID, ded, claims[i].LPPoolID)
		}
	}

	// Step 10: mandatory bad-debt check. Reply policy "on-error only": a
	// failed auction start is not allowed to roll back the liquidation
	// that already committed above.
	creditKey := e.basket.CreditAsset.Key()
	if badDebt, err := e.badDebtCheck(positionID, positionOwner, now); err == nil {
		result.BadDebtValue = badDebt
		if badDebt.Sign() > 0 {
			metrics.Liquidation().ObserveBadDebt(creditKey)
		}
	}
	callerFeeF, _ := result.CallerFeeValue.Float64()
	protocolFeeF, _ := result.ProtocolFeeValue.Float64()
	metrics.Liquidation().ObserveLiquidation(creditKey, callerFeeF, protocolFeeF)

	return result, nil
}

// badDebtCheck implements spec.md §4.A step 10 / the Callback(BadDebtCheck)
// message: if credit remains outstanding after collateral is fully
// consumed, it opens (or tops up) the singleton DebtAuction and zeroes
// the position's credit, since the debt is now recognized as
// protocol-level bad debt rather than a per-position claim.
func (e *Engine) badDebtCheck(positionID uint64, positionOwner crypto.Address, now int64) (decimal.Decimal, error) {
	pos, err := e.state.GetPosition(positionID)
	if err != nil {
		return decimal.Zero, err
	}
	if pos.CreditAmount == nil || pos.CreditAmount.IsZero() {
		return decimal.Zero, nil
	}
	for _, c := range pos.Collateral {
		if !c.Asset.IsZero() {
			return decimal.Zero, nil
		}
	}
	if e.debtAuction == nil {
		return decimal.Zero, nil
	}
	badDebtValue := e.basket.CreditPrice.ValueOf(pos.CreditAmount)
	if err := e.debtAuction.StartAuction(e.self, auction.RepaymentPosition{PositionID: positionID, PositionOwner: positionOwner}, badDebtValue, now); err != nil {
		return decimal.Zero, err
	}
	pos.CreditAmount = new(uint256.Int)
	if err := e.state.PutPosition(pos); err != nil {
		return decimal.Zero, err
	}
	return badDebtValue, nil
}

// LiqRepay is the privileged entry point only the Stability Pool's
// configured caller identity may invoke, per spec.md §6: it applies the
// credit burned by an SP Repay (self-repay or otherwise) directly to the
// position's outstanding debt without routing back through Liquidate.
func (e *Engine) LiqRepay(sender crypto.Address, positionID uint64, amount decimal.Decimal) error {
	if !sender.Equal(e.spAddr) {
		return ErrUnauthorized
	}
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	pos, err := e.state.GetPosition(positionID)
	if err != nil {
		return err
	}
	if err := e.reduceDebt(pos, amount); err != nil {
		return err
	}
	return e.state.PutPosition(pos)
}

// RepayPosition implements the public Repay message of spec.md §6: payer
// pays down positionOwner's outstanding credit by amount, with any
// overpayment forwarded to sendExcessTo (defaulting to payer).
func (e *Engine) RepayPosition(payer crypto.Address, positionID uint64, positionOwner crypto.Address, amount *uint256.Int, sendExcessTo *crypto.Address) error {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	pos, err := e.loadPosition(positionID, positionOwner)
	if err != nil {
		return err
	}
	if pos.CreditAmount == nil || pos.CreditAmount.IsZero() {
		return ErrInsufficientDebt
	}

	payAmt := amount
	if payAmt.Cmp(pos.CreditAmount) > 0 {
		payAmt = pos.CreditAmount
	}
	excess := new(uint256.Int).Sub(amount, payAmt)

	payerAcc, err := e.state.GetAccount(payer)
	if err != nil {
		return err
	}
	if err := payerAcc.Debit(e.basket.CreditAsset, payAmt); err != nil {
		return err
	}
	if !excess.IsZero() && sendExcessTo != nil && !sendExcessTo.Equal(payer) {
		if err := payerAcc.Debit(e.basket.CreditAsset, excess); err != nil {
			return err
		}
		target, err := e.state.GetAccount(*sendExcessTo)
		if err != nil {
			return err
		}
		target.Credit(e.basket.CreditAsset, excess)
		if err := e.state.PutAccount(*sendExcessTo, target); err != nil {
			return err
		}
	}
	if err := e.state.PutAccount(payer, payerAcc); err != nil {
		return err
	}

	pos.CreditAmount = new(uint256.Int).Sub(pos.CreditAmount, payAmt)
	return e.state.PutPosition(pos)
}

// The remaining methods implement vault.CDPLooper so the Leveraged-Earn
// vault (native/vault) can drive a position directly, per spec.md §4.E.

// DepositCollateral credits amount of asset onto position's claims.
func (e *Engine) DepositCollateral(ctx context.Context, position uint64, asset types.AssetInfo, amount decimal.Decimal) error {
	if _, err := e.basket.Collateral(asset); err != nil {
		return ErrInvalidAsset
	}
	pos, err := e.state.GetPosition(position)
	if err != nil {
		return err
	}
	qty, err := e.collateralToRaw(asset, amount)
	if err != nil {
		return err
	}
	pos.addCollateral(asset, qty)
	return e.state.PutPosition(pos)
}

// Borrow increases position's outstanding credit, rejecting any draw
// that would push current_LTV above avg_max_LTV.
func (e *Engine) Borrow(ctx context.Context, position uint64, amount decimal.Decimal) error {
	pos, err := e.state.GetPosition(position)
	if err != nil {
		return err
	}
	qty, err := e.basket.CreditPrice.AmountOf(amount)
	if err != nil {
		return err
	}
	if pos.CreditAmount == nil {
		pos.CreditAmount = new(uint256.Int)
	}
	pos.CreditAmount = new(uint256.Int).Add(pos.CreditAmount, qty)

	sol, err := e.computeSolvency(pos)
	if err != nil {
		return err
	}
	if sol.TotalValue.Sign() > 0 && sol.CurrentLTV.GreaterThan(sol.AvgMaxLTV) {
		return ErrExceedsMaxLTV
	}
	return e.state.PutPosition(pos)
}

// Repay reduces position's outstanding credit by amount.
func (e *Engine) Repay(ctx context.Context, position uint64, amount decimal.Decimal) error {
	pos, err := e.state.GetPosition(position)
	if err != nil {
		return err
	}
	if err := e.reduceDebt(pos, amount); err != nil {
		return err
	}
	return e.state.PutPosition(pos)
}

// WithdrawCollateral removes amount of asset from position's claims,
// rejecting a withdrawal that would push current_LTV above avg_max_LTV.
func (e *Engine) WithdrawCollateral(ctx context.Context, position uint64, asset types.AssetInfo, amount decimal.Decimal) error {
	pos, err := e.state.GetPosition(position)
	if err != nil {
		return err
	}
	qty, err := e.collateralToRaw(asset, amount)
	if err != nil {
		return err
	}
	if err := pos.deductCollateral(asset, qty); err != nil {
		return err
	}
	sol, err := e.computeSolvency(pos)
	if err != nil {
		return err
	}
	if sol.TotalValue.Sign() > 0 && sol.CurrentLTV.GreaterThan(sol.AvgMaxLTV) {
		return ErrExceedsMaxLTV
	}
	return e.state.PutPosition(pos)
}

// OutstandingDebt reports position's current credit amount as a
// whole-unit decimal.
func (e *Engine) OutstandingDebt(position uint64) decimal.Decimal {
	pos, err := e.state.GetPosition(position)
	if err != nil {
		return decimal.Zero
	}
	unit := types.Price{Quote: types.One(), Decimals: e.basket.CreditPrice.Decimals}
	return unit.ValueOf(pos.CreditAmount)
}

// borrowRateWindow is the lookback used to turn the rate curve's
// cumulative index into an annualized borrow rate, mirroring the
// annualization native/vault's APR tracker applies to its own
// conversion-rate samples.
const borrowRateWindow = 24 * 3600

// BorrowRate implements vault.CDPLooper: the value-weighted, annualized
// per-unit borrow cost currently implied by position's collateral
// composition, used by the Leveraged-Earn vault's loop/unloop
// profitability gate per spec.md §4.E.
func (e *Engine) BorrowRate(position uint64, now int64) decimal.Decimal {
	pos, err := e.state.GetPosition(position)
	if err != nil || len(pos.Collateral) == 0 {
		return decimal.Zero
	}

	totalValue := decimal.Zero
	weighted := decimal.Zero
	for _, c := range pos.Collateral {
		coll, err := e.basket.Collateral(c.Asset.Info)
		if err != nil {
			continue
		}
		value := coll.Price.ValueOf(c.Asset.Amount)
		if value.Sign() <= 0 {
			continue
		}
		current := e.rates.RateIndex(c.Asset.Info, now)
		base := e.rates.RateIndex(c.Asset.Info, now-borrowRateWindow)
		if base.Sign() <= 0 {
			continue
		}
		growth, err := types.DivDecimal(current, base)
		if err != nil {
			continue
		}
		annual := growth.Sub(types.One()).Mul(decimal.NewFromInt(365))
		totalValue = totalValue.Add(value)
		weighted = weighted.Add(annual.Mul(value))
	}
	if totalValue.Sign() <= 0 {
		return decimal.Zero
	}
	rate, err := types.DivDecimal(weighted, totalValue)
	if err != nil || rate.Sign() < 0 {
		return decimal.Zero
	}
	return rate
}
