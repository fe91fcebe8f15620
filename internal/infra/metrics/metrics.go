// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	inboundTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_inbound_total",
			Help: "Inbound webhook messages by outcome.",
		},
		[]string{"outcome"},
	)

	quotaBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_quota_blocks_total",
			Help: "Messages blocked by the quota gate per clinic.",
		},
		[]string{"clinic"},
	)

	responderLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_responder_latency_ms",
			Help:    "Generative responder call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"provider", "success"},
	)

	promptTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_prompt_tokens_total",
			Help: "Sum of prompt tokens sent to the responder per provider/model.",
		},
		[]string{"provider", "model"},
	)

	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Outbound delivery attempts by status (ok/failed/skipped).",
		},
		[]string{"status"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			inboundTotal, quotaBlocks, responderLatencyMs,
			promptTokens, deliveriesTotal,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncInbound(outcome string) {
	inboundTotal.WithLabelValues(norm(outcome)).Inc()
}

func QuotaBlocked(clinicID string) {
	quotaBlocks.WithLabelValues(clinicID).Inc()
}

func ObserveResponderCall(provider string, latencyMs int64, success bool) {
	responderLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddPromptTokens(provider, model string, n int) {
	promptTokens.WithLabelValues(norm(provider), norm(model)).Add(float64(n))
}

func IncDelivery(status string) {
	deliveriesTotal.WithLabelValues(norm(status)).Inc()
}
