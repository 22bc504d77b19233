package cdp

import (
	"creditcore/core/types"
	"creditcore/crypto"
)

// engineState is the persistence seam the Engine mutates through,
// mirroring native/lending/engine.go's engineState interface: one
// keyed-store method pair per stored record type, so Engine itself never
// assumes a concrete backend.
type engineState interface {
	GetPosition(id uint64) (*Position, error)
	PutPosition(pos *Position) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, acc *types.Account) error
}

// MemState is an in-memory engineState implementation used by tests
// (cmd/liquidationd wires the durable storage/kv CDPState instead),
// mirroring native/lending/engine_liquidation_test.go's mockEngineState
// fake.
type MemState struct {
	positions map[uint64]*Position
	accounts  map[string]*types.Account
}

// NewMemState constructs an empty in-memory state.
func NewMemState() *MemState {
	return &MemState{positions: map[uint64]*Position{}, accounts: map[string]*types.Account{}}
}

func (m *MemState) GetPosition(id uint64) (*Position, error) {
	if pos, ok := m.positions[id]; ok {
		return pos, nil
	}
	return nil, ErrPositionNotFound
}

func (m *MemState) PutPosition(pos *Position) error {
	m.positions[pos.ID] = pos
	return nil
}

func (m *MemState) GetAccount(addr crypto.Address) (*types.Account, error) {
	key := addr.String()
	if acc, ok := m.accounts[key]; ok {
		return acc, nil
	}
	return types.NewAccount(), nil
}

func (m *MemState) PutAccount(addr crypto.Address, acc *types.Account) error {
	m.accounts[addr.String()] = acc
	return nil
}
