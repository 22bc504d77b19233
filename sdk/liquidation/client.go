// Package liquidation provides typed helpers over the liquidation
// service's HTTP API, grounded on sdk/lending/client.go's thin-wrapper-
// over-transport shape, adapted from a generated gRPC client to a plain
// net/http JSON transport since no .proto file or protoc codegen is
// available in this environment.
package liquidation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client wraps an HTTP transport with typed helpers over the Position
// Liquidator's message surface.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// New constructs a Client targeting baseURL ("https://host:port"),
// authenticating with apiToken if non-empty.
func New(baseURL, apiToken string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// LiquidationResult mirrors cdp.LiquidationResult's JSON shape.
type LiquidationResult struct {
	PositionID         uint64 `json:"PositionID"`
	CallerFeeValue     string `json:"CallerFeeValue"`
	ProtocolFeeValue   string `json:"ProtocolFeeValue"`
	SelfRepaidSP       string `json:"SelfRepaidSP"`
	CreditRepaidLQ     string `json:"CreditRepaidLQ"`
	CreditRepaidSP     string `json:"CreditRepaidSP"`
	CreditDispatchedSW string `json:"CreditDispatchedSW"`
	BadDebtValue       string `json:"BadDebtValue"`
}

// Liquidate calls POST /api/v1/positions/{id}/liquidate.
func (c *Client) Liquidate(ctx context.Context, positionID uint64, caller, positionOwner string) (*LiquidationResult, error) {
	var result LiquidationResult
	body := map[string]string{"caller": caller, "position_owner": positionOwner}
	if err := c.post(ctx, fmt.Sprintf("/api/v1/positions/%d/liquidate", positionID), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Repay calls POST /api/v1/positions/{id}/repay.
func (c *Client) Repay(ctx context.Context, positionID uint64, payer, positionOwner, amount, sendExcessTo string) error {
	body := map[string]string{
		"payer":          payer,
		"position_owner": positionOwner,
		"amount":         amount,
		"send_excess_to": sendExcessTo,
	}
	return c.post(ctx, fmt.Sprintf("/api/v1/positions/%d/repay", positionID), body, nil)
}

// DepositCollateral calls POST /api/v1/positions/{id}/collateral/deposit.
func (c *Client) DepositCollateral(ctx context.Context, positionID uint64, asset, amount string) error {
	body := map[string]string{"asset": asset, "amount": amount}
	return c.post(ctx, fmt.Sprintf("/api/v1/positions/%d/collateral/deposit", positionID), body, nil)
}

// WithdrawCollateral calls POST /api/v1/positions/{id}/collateral/withdraw.
func (c *Client) WithdrawCollateral(ctx context.Context, positionID uint64, asset, amount string) error {
	body := map[string]string{"asset": asset, "amount": amount}
	return c.post(ctx, fmt.Sprintf("/api/v1/positions/%d/collateral/withdraw", positionID), body, nil)
}

// Borrow calls POST /api/v1/positions/{id}/borrow.
func (c *Client) Borrow(ctx context.Context, positionID uint64, amount string) error {
	body := map[string]string{"amount": amount}
	return c.post(ctx, fmt.Sprintf("/api/v1/positions/%d/borrow", positionID), body, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("liquidation: %s returned status %d", path, resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
