package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/cdp"
	"creditcore/native/vault"
)

type stubEngine struct{}

func (stubEngine) Liquidate(crypto.Address, uint64, crypto.Address, int64) (*cdp.LiquidationResult, error) {
	return nil, nil
}
func (stubEngine) RepayPosition(crypto.Address, uint64, crypto.Address, *uint256.Int, *crypto.Address) error {
	return nil
}
func (stubEngine) DepositCollateral(context.Context, uint64, types.AssetInfo, decimal.Decimal) error {
	return nil
}
func (stubEngine) WithdrawCollateral(context.Context, uint64, types.AssetInfo, decimal.Decimal) error {
	return nil
}
func (stubEngine) Borrow(context.Context, uint64, decimal.Decimal) error { return nil }

type stubVault struct {
	underlying decimal.Decimal
}

func (s stubVault) VaultTokenUnderlying(decimal.Decimal) decimal.Decimal { return s.underlying }
func (s stubVault) DepositTokenConversion(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(2))
}
func (s stubVault) APR(int64) vault.Report {
	return vault.Report{Week: vault.Period{Rate: decimal.NewFromFloat(0.05)}}
}

func TestHandleVaultTokenUnderlying(t *testing.T) {
	srv := New(Config{Engine: stubEngine{}, Vault: stubVault{underlying: decimal.NewFromInt(42)}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vault/underlying?vault_token_amount=100", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "42", body["amount"])
}

func TestHandleDepositTokenConversion(t *testing.T) {
	srv := New(Config{Engine: stubEngine{}, Vault: stubVault{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vault/conversion?deposit_token_amount=21", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "42", body["amount"])
}

func TestHandleVaultAPR(t *testing.T) {
	srv := New(Config{Engine: stubEngine{}, Vault: stubVault{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vault/apr", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report vault.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.True(t, report.Week.Rate.Equal(decimal.NewFromFloat(0.05)))
}

func TestHandleVaultTokenUnderlyingNotConfigured(t *testing.T) {
	srv := New(Config{Engine: stubEngine{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vault/underlying?vault_token_amount=1", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
