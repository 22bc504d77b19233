package basket

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"creditcore/core/types"
)

func TestOracleStreamerRoutesKnownAssets(t *testing.T) {
	owner := testAddr(t, 1)
	b := New(types.NewNativeAsset("ucdt"), types.Price{Quote: decimal.NewFromInt(1), Decimals: 6}, owner)
	coll := CollateralAsset{Info: types.NewNativeAsset("uatom"), Decimals: 6}
	require.NoError(t, b.AddCollateral(owner, coll))

	streamer := NewOracleStreamer(b)

	require.NoError(t, streamer.OnPrice("native:ucdt", decimal.NewFromFloat(1.01)))
	require.True(t, b.CreditPrice.Quote.Equal(decimal.NewFromFloat(1.01)))

	require.NoError(t, streamer.OnPrice("native:uatom", decimal.NewFromFloat(9.5)))
	got, err := b.Collateral(coll.Info)
	require.NoError(t, err)
	require.True(t, got.Price.Quote.Equal(decimal.NewFromFloat(9.5)))

	require.Error(t, streamer.OnPrice("native:unknown", decimal.NewFromInt(1)))
}
