// Package config loads the TOML configuration for liquidationd: the
// basket/LQ/SP/vault parameter surface plus the process-level settings
// (listen address, data directory, storage path) every native module
// needs at wiring time.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Config mirrors the teacher's top-level node Config shape (ListenAddress,
// RPCAddress, DataDir) extended with the parameter groups this protocol's
// modules need at startup, generalized from native/lending/config.go's
// single-market Config into one section per collaborator module.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	RPCAddress    string `toml:"RPCAddress"`
	DataDir       string `toml:"DataDir"`

	// LogFile, when set, rotates JSON log lines on disk instead of writing
	// to stdout.
	LogFile string `toml:"LogFile"`

	CreditDenom string `toml:"CreditDenom"`

	CDP           CDPConfig           `toml:"cdp"`
	StabilityPool StabilityPoolConfig `toml:"stability_pool"`
	Vault         VaultConfig         `toml:"vault"`
	DebtAuction   AuctionConfig       `toml:"debt_auction"`
	Collateral    []CollateralEntry   `toml:"collateral"`
}

// CDPConfig captures native/cdp.Params plus the protocol fee recipient.
type CDPConfig struct {
	DebtMinimum     decimal.Decimal `toml:"DebtMinimum"`
	ProtocolFeeRate decimal.Decimal `toml:"ProtocolFeeRate"`
	StakingAddress  string          `toml:"StakingAddress"`
}

// CollateralEntry captures one accepted collateral asset's basket risk
// parameters plus its dedicated native/lq.Queue construction parameters,
// keyed by denom. Generalizes native/lending/config.go's single-market
// Config into one entry per basket collateral asset, since spec.md §3's
// Basket carries an open-ended collateral registry rather than a fixed
// market pair.
type CollateralEntry struct {
	Denom     string          `toml:"Denom"`
	PriceQuote decimal.Decimal `toml:"PriceQuote"`
	Decimals  uint32          `toml:"Decimals"`
	MaxLTVBps uint32          `toml:"MaxLTVBps"`
	BorrowLTVBps uint32       `toml:"BorrowLTVBps"`
	LPPoolID  string          `toml:"LPPoolID"`

	Premiums       []decimal.Decimal `toml:"Premiums"`
	BidThreshold   decimal.Decimal   `toml:"BidThreshold"`
	MinimumBid     decimal.Decimal   `toml:"MinimumBid"`
	WaitingPeriod  int64             `toml:"WaitingPeriod"`
	MaxWaitingBids int               `toml:"MaxWaitingBids"`
}

// StabilityPoolConfig captures native/stabilitypool.AssetPool's
// construction parameters.
type StabilityPoolConfig struct {
	MinimumDeposit  decimal.Decimal `toml:"MinimumDeposit"`
	UnstakingPeriod int64           `toml:"UnstakingPeriod"`
	IncentiveRate   decimal.Decimal `toml:"IncentiveRate"`
	MaxIncentives   decimal.Decimal `toml:"MaxIncentives"`
	IncentiveAsset  string          `toml:"IncentiveAsset"`
}

// VaultConfig captures the Stability-Pool vault's liquidity-buffer
// fraction; the Leveraged-Earn vault built on top of it is wired
// programmatically per leveraged position, not from static config.
type VaultConfig struct {
	PercentToKeepLiquid decimal.Decimal `toml:"PercentToKeepLiquid"`
}

// AuctionConfig captures the singleton DebtAuction's discount schedule,
// per spec.md §8's worked auction examples (1% initial, 1%/60s increase).
type AuctionConfig struct {
	InitialDiscount     decimal.Decimal `toml:"InitialDiscount"`
	IncreasePerInterval decimal.Decimal `toml:"IncreasePerInterval"`
	IntervalSeconds     int64           `toml:"IntervalSeconds"`
	MaxDiscount         decimal.Decimal `toml:"MaxDiscount"`
}

// Load reads path as TOML, writing a default file when none exists yet,
// mirroring the teacher's config.Load create-default-if-absent behavior.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.EnsureDefaults()
	return cfg, nil
}

// EnsureDefaults mirrors native/lending/config.go's EnsureDefaults
// nil-guarding pattern, generalized from big.Int fields to decimal.Decimal
// zero-value checks (decimal.Decimal's zero value is already usable, so
// this only fills in protocol-level defaults left blank in a hand-edited
// file).
func (c *Config) EnsureDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = "0.0.0.0:9555"
	}
	if c.DataDir == "" {
		c.DataDir = "./liquidationd-data"
	}
	if c.CDP.ProtocolFeeRate.IsZero() {
		c.CDP.ProtocolFeeRate = decimal.NewFromFloat(0.005)
	}
	if c.CDP.DebtMinimum.IsZero() {
		c.CDP.DebtMinimum = decimal.NewFromFloat(1)
	}
	if c.CreditDenom == "" {
		c.CreditDenom = "ucredit"
	}
	if c.StabilityPool.UnstakingPeriod == 0 {
		c.StabilityPool.UnstakingPeriod = 86_400
	}
	if c.Vault.PercentToKeepLiquid.IsZero() {
		c.Vault.PercentToKeepLiquid = decimal.NewFromFloat(0.1)
	}
	if c.DebtAuction.IntervalSeconds == 0 {
		c.DebtAuction.IntervalSeconds = 60
	}
	if c.DebtAuction.InitialDiscount.IsZero() {
		c.DebtAuction.InitialDiscount = decimal.NewFromFloat(0.01)
	}
	if c.DebtAuction.IncreasePerInterval.IsZero() {
		c.DebtAuction.IncreasePerInterval = decimal.NewFromFloat(0.01)
	}
	if c.DebtAuction.MaxDiscount.IsZero() {
		c.DebtAuction.MaxDiscount = decimal.NewFromFloat(0.5)
	}
	for i := range c.Collateral {
		entry := &c.Collateral[i]
		if entry.MinimumBid.IsZero() {
			entry.MinimumBid = decimal.NewFromFloat(1)
		}
		if entry.WaitingPeriod == 0 {
			entry.WaitingPeriod = 3_600
		}
		if entry.MaxWaitingBids == 0 {
			entry.MaxWaitingBids = 100
		}
		if len(entry.Premiums) == 0 {
			entry.Premiums = []decimal.Decimal{decimal.Zero, decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.1)}
		}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: "0.0.0.0:9555",
		RPCAddress:    "127.0.0.1:8081",
		DataDir:       "./liquidationd-data",
		Collateral: []CollateralEntry{
			{
				Denom:        "ucollateral",
				PriceQuote:   decimal.NewFromInt(1),
				Decimals:     6,
				MaxLTVBps:    6000,
				BorrowLTVBps: 5000,
				BidThreshold: decimal.NewFromFloat(10_000),
			},
		},
	}
	cfg.EnsureDefaults()

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
