package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TurnMetrics records counters for the turn handler. All methods are
// nil-safe: a nil *TurnMetrics is a valid, inert receiver.
type TurnMetrics struct {
	turnsTotal    *prometheus.CounterVec
	upstreamCalls *prometheus.CounterVec
}

// NewTurnMetrics returns a TurnMetrics instance, or nil if metrics are
// disabled.
func NewTurnMetrics() *TurnMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	return &TurnMetrics{
		turnsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ussdgw_turns_total",
				Help: "Total number of USSD turns processed, by final action.",
			},
			[]string{"action"}, // "con", "end"
		),
		upstreamCalls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ussdgw_upstream_calls_total",
				Help: "Total number of core-banking upstream calls, by outcome.",
			},
			[]string{"outcome"}, // "success", "failure", "transport_error"
		),
	}
}

// RecordTurn records a completed turn's final action.
func (m *TurnMetrics) RecordTurn(action string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(action).Inc()
}

// RecordUpstreamCall records the outcome of a single upstream RPC.
func (m *TurnMetrics) RecordUpstreamCall(outcome string) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(outcome).Inc()
}
