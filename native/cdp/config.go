package cdp

import "github.com/shopspring/decimal"

// Params captures the runtime configuration for the Position Liquidator,
// grounded on native/lending/config.go's TOML-backed Config shape
// (EnsureDefaults nil-guards every configured decimal so the math below
// never touches a zero-valued decimal.Decimal by accident).
type Params struct {
	// DebtMinimum is the repay-value floor of spec.md §4.A step 4: a
	// liquidation never leaves a residual debt smaller than this without
	// closing the position entirely.
	DebtMinimum decimal.Decimal `toml:"DebtMinimum"`
	// ProtocolFeeRate is the configuration-constant protocol fee rate of
	// spec.md §4.A step 5 (the caller fee rate is always computed live as
	// current_LTV - avg_max_LTV).
	ProtocolFeeRate decimal.Decimal `toml:"ProtocolFeeRate"`
}

// EnsureDefaults nil-guards every configured decimal, matching
// native/lending/config.go's EnsureDefaults pattern for big.Int fields.
func (p *Params) EnsureDefaults() {
	if p.DebtMinimum.IsZero() {
		p.DebtMinimum = decimal.Zero
	}
	if p.ProtocolFeeRate.IsZero() {
		p.ProtocolFeeRate = decimal.Zero
	}
}
