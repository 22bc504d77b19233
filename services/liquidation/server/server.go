// Package server implements the HTTP surface for liquidationd, exposing
// the message set of spec.md §6 (Liquidate, Repay, Deposit/Withdraw
// collateral) over chi routing, grounded on
// services/otc-gateway/server/server.go's router/middleware shape since
// no protobuf codegen tool is available to reproduce the teacher's own
// lending service's gRPC surface.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"creditcore/core/types"
	"creditcore/crypto"
	"creditcore/native/cdp"
	"creditcore/native/vault"
)

// Engine is the subset of *cdp.Engine the HTTP surface drives.
type Engine interface {
	Liquidate(caller crypto.Address, positionID uint64, positionOwner crypto.Address, now int64) (*cdp.LiquidationResult, error)
	RepayPosition(payer crypto.Address, positionID uint64, positionOwner crypto.Address, amount *uint256.Int, sendExcessTo *crypto.Address) error
	DepositCollateral(ctx context.Context, position uint64, asset types.AssetInfo, amount decimal.Decimal) error
	WithdrawCollateral(ctx context.Context, position uint64, asset types.AssetInfo, amount decimal.Decimal) error
	Borrow(ctx context.Context, position uint64, amount decimal.Decimal) error
}

// VaultQuerier is the read-only query surface of spec.md §6's Vaults
// section — VaultTokenUnderlying and APR — satisfied by both
// *vault.SPVault and *vault.LeveragedVault.
type VaultQuerier interface {
	VaultTokenUnderlying(vaultTokenAmount decimal.Decimal) decimal.Decimal
	DepositTokenConversion(depositTokenAmount decimal.Decimal) decimal.Decimal
	APR(now int64) vault.Report
}

// Config captures the dependencies New needs to build a Server.
type Config struct {
	Engine           Engine
	Vault            VaultQuerier
	Auth             AuthConfig
	CollateralAssets map[string]types.AssetInfo
	Now              func() int64
	Idempotency      idempotencyStore
}

// Server wires the Position Liquidator's public entry points to HTTP.
type Server struct {
	engine Engine
	vault  VaultQuerier
	assets map[string]types.AssetInfo
	now    func() int64
	router http.Handler
}

// New constructs a configured HTTP router.
func New(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().Unix() }
	}
	srv := &Server{engine: cfg.Engine, vault: cfg.Vault, assets: cfg.CollateralAssets, now: cfg.Now}
	srv.router = srv.buildRouter(newAuthenticator(cfg.Auth), cfg.Idempotency)
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter(auth *authenticator, idempotency idempotencyStore) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(auth.Middleware)
	r.Use(func(next http.Handler) http.Handler { return withIdempotency(idempotency, next) })

	r.Route("/api/v1/positions/{id}", func(api chi.Router) {
		api.Post("/liquidate", s.handleLiquidate)
		api.Post("/repay", s.handleRepay)
		api.Post("/collateral/deposit", s.handleDepositCollateral)
		api.Post("/collateral/withdraw", s.handleWithdrawCollateral)
		api.Post("/borrow", s.handleBorrow)
	})
	r.Route("/api/v1/vault", func(api chi.Router) {
		api.Get("/underlying", s.handleVaultTokenUnderlying)
		api.Get("/conversion", s.handleDepositTokenConversion)
		api.Get("/apr", s.handleVaultAPR)
	})
	return r
}

func (s *Server) asset(denom string) (types.AssetInfo, bool) {
	if s.assets == nil {
		return types.AssetInfo{}, false
	}
	info, ok := s.assets[denom]
	return info, ok
}

func positionID(r *http.Request) (uint64, error) {
	return decodeUint64(chi.URLParam(r, "id"))
}

type liquidateRequest struct {
	Caller        string `json:"caller"`
	PositionOwner string `json:"position_owner"`
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return
	}
	var req liquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		http.Error(w, "invalid caller address", http.StatusBadRequest)
		return
	}
	owner, err := crypto.DecodeAddress(req.PositionOwner)
	if err != nil {
		http.Error(w, "invalid position owner address", http.StatusBadRequest)
		return
	}
	result, err := s.engine.Liquidate(caller, id, owner, s.now())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type repayRequest struct {
	Payer         string `json:"payer"`
	PositionOwner string `json:"position_owner"`
	Amount        string `json:"amount"`
	SendExcessTo  string `json:"send_excess_to,omitempty"`
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return
	}
	var req repayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	payer, err := crypto.DecodeAddress(req.Payer)
	if err != nil {
		http.Error(w, "invalid payer address", http.StatusBadRequest)
		return
	}
	owner, err := crypto.DecodeAddress(req.PositionOwner)
	if err != nil {
		http.Error(w, "invalid position owner address", http.StatusBadRequest)
		return
	}
	amount, err := decodeUint256(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	var excess *crypto.Address
	if req.SendExcessTo != "" {
		addr, err := crypto.DecodeAddress(req.SendExcessTo)
		if err != nil {
			http.Error(w, "invalid send_excess_to address", http.StatusBadRequest)
			return
		}
		excess = &addr
	}
	if err := s.engine.RepayPosition(payer, id, owner, amount, excess); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type collateralRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (s *Server) handleDepositCollateral(w http.ResponseWriter, r *http.Request) {
	s.handleCollateralAdjustment(w, r, s.engine.DepositCollateral)
}

func (s *Server) handleWithdrawCollateral(w http.ResponseWriter, r *http.Request) {
	s.handleCollateralAdjustment(w, r, s.engine.WithdrawCollateral)
}

func (s *Server) handleCollateralAdjustment(w http.ResponseWriter, r *http.Request, op func(context.Context, uint64, types.AssetInfo, decimal.Decimal) error) {
	id, err := positionID(r)
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return
	}
	var req collateralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	asset, ok := s.asset(req.Asset)
	if !ok {
		http.Error(w, "unknown collateral asset", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	if err := op(r.Context(), id, asset, amount); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type borrowRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return
	}
	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	if err := s.engine.Borrow(r.Context(), id, amount); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVaultTokenUnderlying answers spec.md §6's
// `VaultTokenUnderlying { vault_token_amount } → amount` query.
func (s *Server) handleVaultTokenUnderlying(w http.ResponseWriter, r *http.Request) {
	if s.vault == nil {
		http.Error(w, "vault not configured", http.StatusNotFound)
		return
	}
	amount, err := decimal.NewFromString(r.URL.Query().Get("vault_token_amount"))
	if err != nil {
		http.Error(w, "invalid vault_token_amount", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": s.vault.VaultTokenUnderlying(amount).String()})
}

// handleDepositTokenConversion answers the DepositTokenConversion
// query (VaultTokenUnderlying's inverse, per §4.9's original_source
// audit): how many vault shares a quantity of deposit tokens would
// currently mint.
func (s *Server) handleDepositTokenConversion(w http.ResponseWriter, r *http.Request) {
	if s.vault == nil {
		http.Error(w, "vault not configured", http.StatusNotFound)
		return
	}
	amount, err := decimal.NewFromString(r.URL.Query().Get("deposit_token_amount"))
	if err != nil {
		http.Error(w, "invalid deposit_token_amount", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": s.vault.DepositTokenConversion(amount).String()})
}

// handleVaultAPR answers spec.md §6's `APR {} → { week, month,
// three_month, year }` query.
func (s *Server) handleVaultAPR(w http.ResponseWriter, r *http.Request) {
	if s.vault == nil {
		http.Error(w, "vault not configured", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.vault.APR(s.now()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
