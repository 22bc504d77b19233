// Package oraclefeed streams collateral and credit-asset prices over a
// websocket connection and republishes them through the PriceStreamer
// interface consumed by native/basket.
package oraclefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 30 * time.Second
)

// Tick is one price update as published by the upstream feed.
type Tick struct {
	AssetKey string `json:"asset"`
	Quote    string `json:"quote"`
}

// PriceStreamer receives decoded price ticks. basket.OracleStreamer
// implements it by routing each tick to Basket.SetCreditPrice /
// Basket.SetCollateralPrice for the matching registered AssetInfo.
type PriceStreamer interface {
	OnPrice(assetKey string, quote decimal.Decimal) error
}

// Feed maintains a reconnecting websocket subscription to a price-tick
// stream and republishes decoded ticks to a PriceStreamer.
type Feed struct {
	url      string
	streamer PriceStreamer
	log      *slog.Logger
	dialer   *websocket.Dialer
}

// New constructs a Feed that will dial url and forward decoded ticks to
// streamer. log may be nil, in which case slog.Default() is used.
func New(url string, streamer PriceStreamer, log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{url: url, streamer: streamer, log: log, dialer: websocket.DefaultDialer}
}

// Run blocks, maintaining the subscription with exponential backoff on
// disconnect, until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := f.connectAndConsume(ctx)
		if err == nil {
			delay = reconnectDelay
			continue
		}

		f.log.Warn("oraclefeed disconnected, reconnecting", "error", err, "delay", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (f *Feed) connectAndConsume(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("oraclefeed: dial: %w", err)
	}
	defer conn.Close()

	f.log.Info("oraclefeed connected", "url", f.url)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			return fmt.Errorf("oraclefeed: read: %w", err)
		}
		var tick Tick
		if err := json.Unmarshal(raw, &tick); err != nil {
			f.log.Warn("oraclefeed: malformed tick", "error", err)
			continue
		}
		quote, err := decimal.NewFromString(tick.Quote)
		if err != nil {
			f.log.Warn("oraclefeed: malformed quote", "asset", tick.AssetKey, "quote", tick.Quote)
			continue
		}
		if err := f.streamer.OnPrice(tick.AssetKey, quote); err != nil {
			f.log.Warn("oraclefeed: rejected tick", "asset", tick.AssetKey, "error", err)
		}
	}
}
