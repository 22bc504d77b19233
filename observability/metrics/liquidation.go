// Package metrics carries the prometheus series liquidationd exposes,
// grounded on the teacher's observability/metrics/potso.go: one
// sync.Once-guarded singleton, CounterVec/GaugeVec series keyed by the
// labels the caller has on hand, and nil-receiver methods so an unwired
// caller never needs a presence check before recording an observation.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LiquidationMetrics carries the Position Liquidator's series.
type LiquidationMetrics struct {
	liquidationsTotal *prometheus.CounterVec
	badDebtOpened     *prometheus.CounterVec
	callerFeeValue    *prometheus.GaugeVec
	protocolFeeValue  *prometheus.GaugeVec
}

var (
	liquidationOnce     sync.Once
	liquidationRegistry *LiquidationMetrics
)

// Liquidation returns the process-wide LiquidationMetrics singleton,
// registering its series with the default prometheus registry on first
// use.
func Liquidation() *LiquidationMetrics {
	liquidationOnce.Do(func() {
		liquidationRegistry = &LiquidationMetrics{
			liquidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidation_position_liquidations_total",
				Help: "Count of completed Liquidate calls by credit asset.",
			}, []string{"asset"}),
			badDebtOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "liquidation_bad_debt_opened_total",
				Help: "Count of positions that opened a debt auction after full collateral exhaustion.",
			}, []string{"asset"}),
			callerFeeValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidation_caller_fee_value",
				Help: "Caller fee value paid on the most recent liquidation, by credit asset.",
			}, []string{"asset"}),
			protocolFeeValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "liquidation_protocol_fee_value",
				Help: "Protocol fee value paid on the most recent liquidation, by credit asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			liquidationRegistry.liquidationsTotal,
			liquidationRegistry.badDebtOpened,
			liquidationRegistry.callerFeeValue,
			liquidationRegistry.protocolFeeValue,
		)
	})
	return liquidationRegistry
}

// ObserveLiquidation records a completed Liquidate call's fee split.
func (m *LiquidationMetrics) ObserveLiquidation(asset string, callerFee, protocolFee float64) {
	if m == nil {
		return
	}
	label := normalise(asset)
	m.liquidationsTotal.WithLabelValues(label).Inc()
	m.callerFeeValue.WithLabelValues(label).Set(callerFee)
	m.protocolFeeValue.WithLabelValues(label).Set(protocolFee)
}

// ObserveBadDebt records a position transitioning to protocol bad debt.
func (m *LiquidationMetrics) ObserveBadDebt(asset string) {
	if m == nil {
		return
	}
	m.badDebtOpened.WithLabelValues(normalise(asset)).Inc()
}

func normalise(label string) string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
