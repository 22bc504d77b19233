package kv

import (
	"encoding/binary"
	"fmt"

	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/cdp"
)

func encodeRateIndices(m map[string]decimal.Decimal) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}

func decodeRateIndices(m map[string]string) (map[string]decimal.Decimal, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("kv: decode rate index %q: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

// storedPosition is cdp.Position's on-disk shape: crypto.Address and
// *uint256.Int both carry only unexported fields, so Owner and every
// amount are round-tripped through their string forms instead of letting
// encoding/json walk them directly.
type storedPosition struct {
	ID           uint64
	Owner        string
	Collateral   []storedClaim
	CreditAmount *uintWrap
	RateIndices  map[string]string
	LastAccrued  int64
}

type storedClaim struct {
	Asset    types.AssetInfo
	Amount   *uintWrap
	LPPoolID string
}

func encodeClaims(claims []cdp.CollateralClaim) []storedClaim {
	out := make([]storedClaim, len(claims))
	for i, c := range claims {
		out[i] = storedClaim{Asset: c.Asset.Info, Amount: wrapUint(c.Asset.Amount), LPPoolID: c.LPPoolID}
	}
	return out
}

func decodeClaims(claims []storedClaim) []cdp.CollateralClaim {
	out := make([]cdp.CollateralClaim, len(claims))
	for i, c := range claims {
		out[i] = cdp.CollateralClaim{Asset: types.Asset{Info: c.Asset, Amount: c.Amount.unwrap()}, LPPoolID: c.LPPoolID}
	}
	return out
}

// storedAccount is types.Account's on-disk shape, since its balances are
// keyed *uint256.Int values.
type storedAccount struct {
	Balances map[string]*uintWrap
}

// CDPState implements the cdp.engineState contract (positions + accounts)
// against a durable Store, replacing cdp.MemState for production wiring.
type CDPState struct {
	store *Store
}

// NewCDPState wraps store for use by a native/cdp.Engine.
func NewCDPState(store *Store) *CDPState {
	return &CDPState{store: store}
}

func positionKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func accountKey(addr crypto.Address) []byte {
	return []byte(addr.String())
}

// GetPosition loads and decodes the position stored under id.
func (s *CDPState) GetPosition(id uint64) (*cdp.Position, error) {
	var sp storedPosition
	if err := s.store.get(bucketPositions, positionKey(id), &sp); err != nil {
		if err == ErrNotFound {
			return nil, cdp.ErrPositionNotFound
		}
		return nil, err
	}
	owner, err := crypto.DecodeAddress(sp.Owner)
	if err != nil {
		return nil, fmt.Errorf("kv: decode position %d owner: %w", id, err)
	}
	rateIdx, err := decodeRateIndices(sp.RateIndices)
	if err != nil {
		return nil, err
	}
	return &cdp.Position{
		ID:           sp.ID,
		Owner:        owner,
		Collateral:   decodeClaims(sp.Collateral),
		CreditAmount: sp.CreditAmount.unwrap(),
		RateIndices:  rateIdx,
		LastAccrued:  sp.LastAccrued,
	}, nil
}

// PutPosition persists pos under its ID.
func (s *CDPState) PutPosition(pos *cdp.Position) error {
	sp := storedPosition{
		ID:           pos.ID,
		Owner:        pos.Owner.String(),
		Collateral:   encodeClaims(pos.Collateral),
		CreditAmount: wrapUint(pos.CreditAmount),
		RateIndices:  encodeRateIndices(pos.RateIndices),
		LastAccrued:  pos.LastAccrued,
	}
	return s.store.put(bucketPositions, positionKey(pos.ID), &sp)
}

// GetAccount loads addr's balance sheet, returning a fresh empty one if
// the account has never been persisted, matching cdp.MemState's behavior.
func (s *CDPState) GetAccount(addr crypto.Address) (*types.Account, error) {
	var sa storedAccount
	if err := s.store.get(bucketAccounts, accountKey(addr), &sa); err != nil {
		if err == ErrNotFound {
			return types.NewAccount(), nil
		}
		return nil, err
	}
	acc := types.NewAccount()
	for k, v := range sa.Balances {
		acc.Balances[k] = v.unwrap()
	}
	return acc, nil
}

// PutAccount persists addr's balance sheet.
func (s *CDPState) PutAccount(addr crypto.Address, acc *types.Account) error {
	sa := storedAccount{Balances: make(map[string]*uintWrap, len(acc.Balances))}
	for k, v := range acc.Balances {
		sa.Balances[k] = wrapUint(v)
	}
	return s.store.put(bucketAccounts, accountKey(addr), &sa)
}
