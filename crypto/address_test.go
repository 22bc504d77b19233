package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr, err := NewAddress(CreditPrefix, raw)
	require.NoError(t, err)

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.True(t, addr.Equal(decoded))
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	_, err := NewAddress(CreditPrefix, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestGeneratedKeyDerivesStableAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr1 := key.Address()
	addr2 := key.Address()
	require.True(t, addr1.Equal(addr2))
	require.Equal(t, CreditPrefix, addr1.Prefix())
}
