// Command liquidationd wires the Position Liquidator, Liquidation Queue,
// Stability Pool, Sell-Wall, and debt-auction engines to a durable
// storage/kv backend and exposes them over the services/liquidation HTTP
// surface, following the teacher's cmd/<service>/main.go convention of a
// flat run() that loads config, builds every collaborator, and blocks on
// ListenAndServe.
package main

import (
	"crypto/sha256"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditcore/config"
	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/auction"
	"creditcore/native/basket"
	nativecommon "creditcore/native/common"
	"creditcore/native/cdp"
	"creditcore/native/lq"
	"creditcore/native/sellwall"
	"creditcore/native/stabilitypool"
	"creditcore/observability/logging"
	"creditcore/services/liquidation/server"
	"creditcore/storage/kv"
)

func main() {
	env := strings.TrimSpace(os.Getenv("LIQUIDATIOND_ENV"))
	logger := logging.Setup("liquidationd", env)

	configPath := strings.TrimSpace(os.Getenv("LIQUIDATIOND_CONFIG"))
	if configPath == "" {
		configPath = "liquidationd.toml"
	}

	if err := run(configPath, logger); err != nil {
		log.Fatalf("liquidationd failed: %v", err)
	}
}

// moduleAddress derives a deterministic module-custody address from a
// fixed label, the same role the teacher's node assigns a well-known
// system address to each native module (staking, fee collector, ...)
// rather than generating one at random on every boot.
func moduleAddress(prefix crypto.AddressPrefix, label string) crypto.Address {
	digest := sha256.Sum256([]byte(label))
	return crypto.MustAddress(prefix, digest[:20])
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.LogFile != "" {
		logger = logging.SetupFile("liquidationd", os.Getenv("LIQUIDATIOND_ENV"), cfg.LogFile, 100, 5, 28)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	store, err := kv.Open(cfg.DataDir+"/liquidationd.db", nil)
	if err != nil {
		return err
	}
	defer store.Close()

	pauses := nativecommon.NewStaticPauseView()

	selfAddr := moduleAddress(crypto.CollateralPrefix, "cdp")
	spAddr := moduleAddress(crypto.CollateralPrefix, "stabilitypool")
	stakingAddr := stakingAddress(cfg.CDP.StakingAddress)

	creditAsset := types.NewNativeAsset(cfg.CreditDenom)
	creditPrice := types.Price{Quote: types.One(), Decimals: 6}
	bkt := basket.New(creditAsset, creditPrice, selfAddr)
	bkt.SetPauseView(pauses)

	pool := stabilitypool.NewAssetPool(
		creditAsset,
		types.NewNativeAsset(cfg.StabilityPool.IncentiveAsset),
		cfg.StabilityPool.MinimumDeposit,
		cfg.StabilityPool.UnstakingPeriod,
		cfg.StabilityPool.IncentiveRate,
		cfg.StabilityPool.MaxIncentives,
		selfAddr,
	)

	engine := cdp.NewEngine(selfAddr, bkt, stakingAddr, cdp.Params{
		DebtMinimum:     cfg.CDP.DebtMinimum,
		ProtocolFeeRate: cfg.CDP.ProtocolFeeRate,
	})
	engine.SetState(kv.NewCDPState(store))
	engine.SetPauseView(pauses)
	engine.SetStabilityPool(pool, spAddr)

	sellwallDispatcher := sellwall.NewDispatcher(engine.SellWallRepayHook)
	engine.SetSellWall(sellwallDispatcher)

	debtAuction := auction.NewDebtAuction(auction.DiscountSchedule{
		InitialDiscount:     cfg.DebtAuction.InitialDiscount,
		IncreasePerInterval: cfg.DebtAuction.IncreasePerInterval,
		IntervalSeconds:     cfg.DebtAuction.IntervalSeconds,
		MaxDiscount:         cfg.DebtAuction.MaxDiscount,
	}, selfAddr)
	engine.SetDebtAuction(debtAuction)

	collateralAssets := make(map[string]types.AssetInfo, len(cfg.Collateral))
	for _, entry := range cfg.Collateral {
		info := types.NewNativeAsset(entry.Denom)
		collateralAssets[entry.Denom] = info
		if err := bkt.AddCollateral(selfAddr, basket.CollateralAsset{
			Info:      info,
			Price:     types.Price{Quote: entry.PriceQuote, Decimals: entry.Decimals},
			MaxLTV:    entry.MaxLTVBps,
			BorrowLTV: entry.BorrowLTVBps,
			Decimals:  entry.Decimals,
			LPPoolID:  entry.LPPoolID,
		}); err != nil {
			return err
		}
		queue := lq.NewQueue(info, creditAsset, entry.Premiums, entry.BidThreshold, entry.MinimumBid, entry.WaitingPeriod, entry.MaxWaitingBids, selfAddr)
		engine.RegisterQueue(info, queue)
	}

	srv := server.New(server.Config{
		Engine:           engine,
		CollateralAssets: collateralAssets,
		Auth:             server.AuthConfig{},
		Now:              func() int64 { return time.Now().Unix() },
		Idempotency:      kv.NewIdempotencyStore(store),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", srv.Handler())

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("liquidationd listening", "addr", cfg.ListenAddress, "collateral_assets", len(cfg.Collateral))
	return httpServer.ListenAndServe()
}

// stakingAddress decodes the configured protocol-fee recipient, falling
// back to a deterministic module address when the operator has not yet
// configured a real staking-contract address.
func stakingAddress(configured string) crypto.Address {
	if trimmed := strings.TrimSpace(configured); trimmed != "" {
		if addr, err := crypto.DecodeAddress(trimmed); err == nil {
			return addr
		}
	}
	return moduleAddress(crypto.CollateralPrefix, "staking")
}
