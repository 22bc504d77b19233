package common

import (
	"testing"

	"github.com/stretchr/testify/require"

	"creditcore/crypto"
)

func addr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = seed
	}
	a, err := crypto.NewAddress(crypto.CreditPrefix, raw)
	require.NoError(t, err)
	return a
}

func TestOwnerRequireOwner(t *testing.T) {
	owner := addr(t, 1)
	stranger := addr(t, 2)
	o := NewOwner(owner)

	require.NoError(t, o.RequireOwner(owner))
	require.ErrorIs(t, o.RequireOwner(stranger), ErrNotOwner)
}

func TestOwnerTwoStepTransfer(t *testing.T) {
	owner := addr(t, 1)
	next := addr(t, 2)
	stranger := addr(t, 3)
	o := NewOwner(owner)

	require.ErrorIs(t, o.Propose(stranger, next), ErrNotOwner)
	require.NoError(t, o.Propose(owner, next))

	// Old owner still controls the contract until accepted.
	require.NoError(t, o.RequireOwner(owner))

	require.ErrorIs(t, o.Accept(stranger), ErrNotOwner)
	require.NoError(t, o.Accept(next))

	require.NoError(t, o.RequireOwner(next))
	require.ErrorIs(t, o.RequireOwner(owner), ErrNotOwner)
}

func TestOwnerAcceptWithoutProposalFails(t *testing.T) {
	owner := addr(t, 1)
	next := addr(t, 2)
	o := NewOwner(owner)

	require.ErrorIs(t, o.Accept(next), ErrNoPendingOwner)
}
