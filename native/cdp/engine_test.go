package cdp

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/basket"
	"creditcore/native/lq"
)

func testAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = seed
	}
	a, err := crypto.NewAddress(crypto.CreditPrefix, raw)
	require.NoError(t, err)
	return a
}

var (
	collateralAsset = types.NewNativeAsset("debit")
	creditAsset     = types.NewNativeAsset("ucdt")
)

// setupEngine builds a basket with one collateral asset (2 decimals, 1:1
// quote, MaxLTV 60%, BorrowLTV 50%) and an Engine wired to it, with no
// stability pool / sell-wall / auction registered. self is the identity
// the engine presents to its collaborators.
func setupEngine(t *testing.T) (*Engine, crypto.Address) {
	t.Helper()
	self := testAddr(t, 0x01)
	owner := testAddr(t, 0x02)

	b := basket.New(creditAsset, types.Price{Quote: decimal.New(1, 0), Decimals: 2}, owner)
	require.NoError(t, b.AddCollateral(owner, basket.CollateralAsset{
		Info:      collateralAsset,
		Price:     types.Price{Quote: decimal.New(1, 0), Decimals: 2},
		MaxLTV:    6000,
		BorrowLTV: 5000,
		Decimals:  2,
	}))

	e := NewEngine(self, b, testAddr(t, 0xFE), Params{
		DebtMinimum:     decimal.NewFromFloat(0.05),
		ProtocolFeeRate: decimal.NewFromFloat(0.02),
	})
	e.SetState(NewMemState())
	return e, self
}

func putPosition(t *testing.T, e *Engine, id uint64, owner crypto.Address, collateralRaw, creditRaw uint64) *Position {
	t.Helper()
	pos := &Position{
		ID:    id,
		Owner: owner,
		Collateral: []CollateralClaim{
			{Asset: types.NewAsset(collateralAsset, collateralRaw)},
		},
		CreditAmount: uint256.NewInt(creditRaw),
	}
	require.NoError(t, e.state.PutPosition(pos))
	return pos
}

func TestLiquidateLQOnlyFill(t *testing.T) {
	e, self := setupEngine(t)
	owner := testAddr(t, 0x02)
	caller := testAddr(t, 0x03)

	// collateral value 1.00 (100 raw units @ 2 decimals), credit value
	// 0.90 (90 raw units), giving current_LTV = 90%.
	pos := putPosition(t, e, 1, owner, 100, 90)

	queue := lq.NewQueue(
		collateralAsset,
		creditAsset,
		[]decimal.Decimal{decimal.Zero, decimal.NewFromFloat(0.05)},
		decimal.NewFromInt(10),
		decimal.NewFromFloat(0.01),
		100,
		10,
		self,
	)
	// Bid into the zero-premium tier so the fill is 1:1 against the
	// collateral offered, keeping the arithmetic exact.
	_, err := queue.SubmitBid(testAddr(t, 0x10), 0, decimal.NewFromFloat(1), 0)
	require.NoError(t, err)
	e.RegisterQueue(collateralAsset, queue)

	result, err := e.Liquidate(caller, pos.ID, owner, 0)
	require.NoError(t, err)

	// caller fee rate = current_LTV(0.90) - avg_max_LTV(0.60) = 0.30,
	// taken against total collateral value 1.00 -> 0.30.
	require.True(t, result.CallerFeeValue.Equal(decimal.NewFromFloat(0.30)), "caller fee: %s", result.CallerFeeValue)
	// protocol fee rate 0.02 against total collateral value 1.00 -> 0.02.
	require.True(t, result.ProtocolFeeValue.Equal(decimal.NewFromFloat(0.02)), "protocol fee: %s", result.ProtocolFeeValue)

	callerAcc, err := e.state.GetAccount(caller)
	require.NoError(t, err)
	require.Equal(t, uint64(30), callerAcc.Balance(collateralAsset).Uint64())

	stakingAcc, err := e.state.GetAccount(testAddr(t, 0xFE))
	require.NoError(t, err)
	require.Equal(t, uint64(2), stakingAcc.Balance(collateralAsset).Uint64())

	// The remaining 0.68 of collateral (1.00 - 0.30 caller fee - 0.02
	// protocol fee) is fully absorbed by the zero-premium LQ bid.
	require.True(t, result.CreditRepaidLQ.Equal(decimal.NewFromFloat(0.68)), "credit repaid by LQ: %s", result.CreditRepaidLQ)

	stored, err := e.state.GetPosition(1)
	require.NoError(t, err)
	require.True(t, stored.Collateral[0].Asset.Amount.IsZero(), "collateral should be fully consumed: %s", stored.Collateral[0].Asset.Amount)
	require.Equal(t, uint64(22), stored.CreditAmount.Uint64())
}

func TestLiquidateSolventPositionRejected(t *testing.T) {
	e, _ := setupEngine(t)
	owner := testAddr(t, 0x02)
	pos := putPosition(t, e, 2, owner, 100, 40)

	_, err := e.Liquidate(testAddr(t, 0x03), pos.ID, owner, 0)
	require.ErrorIs(t, err, ErrPositionSolvent)
}

func TestBorrowRejectsExceedingMaxLTV(t *testing.T) {
	e, _ := setupEngine(t)
	owner := testAddr(t, 0x02)
	putPosition(t, e, 3, owner, 100, 0)

	err := e.Borrow(context.Background(), 3, decimal.NewFromFloat(0.70))
	require.ErrorIs(t, err, ErrExceedsMaxLTV)
}

func TestDepositAndWithdrawCollateral(t *testing.T) {
	e, _ := setupEngine(t)
	owner := testAddr(t, 0x02)
	putPosition(t, e, 4, owner, 100, 0)

	require.NoError(t, e.DepositCollateral(context.Background(), 4, collateralAsset, decimal.NewFromFloat(0.50)))
	stored, err := e.state.GetPosition(4)
	require.NoError(t, err)
	require.Equal(t, uint64(150), stored.Collateral[0].Asset.Amount.Uint64())

	require.NoError(t, e.WithdrawCollateral(context.Background(), 4, collateralAsset, decimal.NewFromFloat(0.20)))
	stored, err = e.state.GetPosition(4)
	require.NoError(t, err)
	require.Equal(t, uint64(130), stored.Collateral[0].Asset.Amount.Uint64())
}

func TestRepayPositionForwardsExcess(t *testing.T) {
	e, _ := setupEngine(t)
	owner := testAddr(t, 0x02)
	payer := testAddr(t, 0x05)
	excessTarget := testAddr(t, 0x06)
	putPosition(t, e, 5, owner, 100, 50)

	payerAcc, err := e.state.GetAccount(payer)
	require.NoError(t, err)
	payerAcc.Credit(creditAsset, uint256.NewInt(80))
	require.NoError(t, e.state.PutAccount(payer, payerAcc))

	amount := uint256.NewInt(80)
	require.NoError(t, e.RepayPosition(payer, 5, owner, amount, &excessTarget))

	stored, err := e.state.GetPosition(5)
	require.NoError(t, err)
	require.True(t, stored.CreditAmount.IsZero())

	excessAcc, err := e.state.GetAccount(excessTarget)
	require.NoError(t, err)
	require.Equal(t, uint64(30), excessAcc.Balance(creditAsset).Uint64())
}
