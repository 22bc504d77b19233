package common

import (
	"errors"

	"creditcore/crypto"
)

// ErrNotOwner is returned when a privileged call is attempted by an address
// other than the configured owner.
var ErrNotOwner = errors.New("creditcore: sender is not the owner")

// ErrNoPendingOwner is returned when Accept is called without a prior
// Propose.
var ErrNoPendingOwner = errors.New("creditcore: no pending owner proposed")

// Owner implements the two-step ownership transfer described in spec.md §5
// and §9: a privileged setter proposes a new owner, who must then call a
// mutating admin op from their own address to finalize the transfer. This
// prevents a typo'd address from permanently locking the contract.
type Owner struct {
	current crypto.Address
	pending crypto.Address
}

// NewOwner constructs an Owner seeded with the initial controlling address.
func NewOwner(initial crypto.Address) *Owner {
	return &Owner{current: initial}
}

// Current returns the active owner address.
func (o *Owner) Current() crypto.Address {
	if o == nil {
		return crypto.Address{}
	}
	return o.current
}

// RequireOwner fails unless sender is the current owner.
func (o *Owner) RequireOwner(sender crypto.Address) error {
	if o == nil || o.current.IsZero() || sender.IsZero() || !o.current.Equal(sender) {
		return ErrNotOwner
	}
	return nil
}

// Propose records a pending owner change. Only the current owner may
// propose.
func (o *Owner) Propose(sender, newOwner crypto.Address) error {
	if err := o.RequireOwner(sender); err != nil {
		return err
	}
	o.pending = newOwner
	return nil
}

// Accept finalizes a pending ownership transfer; only the proposed address
// may accept it.
func (o *Owner) Accept(sender crypto.Address) error {
	if o == nil || o.pending.IsZero() {
		return ErrNoPendingOwner
	}
	if !o.pending.Equal(sender) {
		return ErrNotOwner
	}
	o.current = o.pending
	o.pending = crypto.Address{}
	return nil
}
