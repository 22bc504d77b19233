package types

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrInsufficientBalance is returned when a ledger debit would drive a
// balance negative.
var ErrInsufficientBalance = errors.New("creditcore: insufficient balance")

// Account is a generic multi-asset balance sheet keyed by AssetInfo.Key().
// It generalizes the teacher's fixed two-denom (BalanceNHB/BalanceZNHB)
// account into an open collateral registry, since this protocol's basket
// of collateral types is configuration-driven rather than fixed at two.
type Account struct {
	Balances map[string]*uint256.Int
}

// NewAccount constructs an empty balance sheet.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*uint256.Int)}
}

func (a *Account) ensure() {
	if a.Balances == nil {
		a.Balances = make(map[string]*uint256.Int)
	}
}

// Balance returns the current balance of the given asset, zero if unset.
func (a *Account) Balance(info AssetInfo) *uint256.Int {
	a.ensure()
	if bal, ok := a.Balances[info.Key()]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// Credit increases the balance of the given asset by amount.
func (a *Account) Credit(info AssetInfo, amount *uint256.Int) {
	a.ensure()
	if amount == nil || amount.IsZero() {
		return
	}
	key := info.Key()
	current, ok := a.Balances[key]
	if !ok {
		current = new(uint256.Int)
	}
	a.Balances[key] = new(uint256.Int).Add(current, amount)
}

// Debit decreases the balance of the given asset by amount, failing with
// ErrInsufficientBalance rather than wrapping around zero.
func (a *Account) Debit(info AssetInfo, amount *uint256.Int) error {
	a.ensure()
	if amount == nil || amount.IsZero() {
		return nil
	}
	key := info.Key()
	current, ok := a.Balances[key]
	if !ok || current.Lt(amount) {
		return ErrInsufficientBalance
	}
	a.Balances[key] = new(uint256.Int).Sub(current, amount)
	return nil
}

// Transfer moves amount of the given asset from src to dst atomically
// from the caller's perspective (debit is attempted before credit).
func Transfer(src, dst *Account, info AssetInfo, amount *uint256.Int) error {
	if src == nil || dst == nil {
		return errors.New("creditcore: nil account in transfer")
	}
	if err := src.Debit(info, amount); err != nil {
		return err
	}
	dst.Credit(info, amount)
	return nil
}
