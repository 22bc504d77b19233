package basket

import (
	"fmt"

	"github.com/shopspring/decimal"

	"creditcore/core/types"
)

// OracleStreamer adapts Basket onto oraclefeed.PriceStreamer, routing
// decoded ticks to SetCreditPrice or SetCollateralPrice by matching the
// tick's asset key against the registered AssetInfo.Key() values. Updates
// are applied on behalf of the basket owner, so the feed process must hold
// (or proxy through) the owner key.
type OracleStreamer struct {
	basket *Basket
}

// NewOracleStreamer builds a streamer that applies ticks to b as the
// basket's current owner, looked up at call time.
func NewOracleStreamer(b *Basket) *OracleStreamer {
	return &OracleStreamer{basket: b}
}

// OnPrice implements oraclefeed.PriceStreamer.
func (s *OracleStreamer) OnPrice(assetKey string, quote decimal.Decimal) error {
	owner := s.basket.owner.Current()

	if assetKey == s.basket.CreditAsset.Key() {
		price := types.Price{Quote: quote, Decimals: s.basket.CreditPrice.Decimals}
		return s.basket.SetCreditPrice(owner, price)
	}

	for _, c := range s.basket.collateral {
		if c.Info.Key() == assetKey {
			price := types.Price{Quote: quote, Decimals: c.Decimals}
			return s.basket.SetCollateralPrice(owner, c.Info, price)
		}
	}
	return fmt.Errorf("basket: oracle tick for unregistered asset %q", assetKey)
}
