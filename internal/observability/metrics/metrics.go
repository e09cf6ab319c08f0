package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// knownClassifications bounds the classification label; anything else the
// model invents is counted as "other".
var knownClassifications = map[string]bool{
	"continuar_conversa":            true,
	"lead_qualificado_para_reuniao": true,
	"continuar_conerva":             true,
}

// RelayMetrics exposes counters/histograms for the webhook relay flow.
type RelayMetrics struct {
	webhookTotal    *prometheus.CounterVec
	webhookLatency  prometheus.Histogram
	classifications *prometheus.CounterVec
	crmCalls        *prometheus.CounterVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghl_relay",
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Total inbound GHL webhooks by outcome",
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ghl_relay",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "End-to-end latency of GHL webhook processing",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghl_relay",
			Subsystem: "llm",
			Name:      "classifications_total",
			Help:      "Lead classifications produced by the LLM, including fallbacks",
		}, []string{"classification", "fallback"}),
		crmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghl_relay",
			Subsystem: "crm",
			Name:      "calls_total",
			Help:      "Outbound GHL API calls by operation and status",
		}, []string{"operation", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookTotal, m.webhookLatency, m.classifications, m.crmCalls)
	return m
}

func (m *RelayMetrics) ObserveWebhook(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(outcome).Inc()
	m.webhookLatency.Observe(seconds)
}

func (m *RelayMetrics) ObserveClassification(classification string, fallback bool) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(classificationLabel(classification), strconv.FormatBool(fallback)).Inc()
}

func classificationLabel(classification string) string {
	switch {
	case classification == "":
		return "none"
	case knownClassifications[classification]:
		return classification
	default:
		return "other"
	}
}

// ObserveCRMCall records one GHL call; status is "ok" or a short failure reason.
func (m *RelayMetrics) ObserveCRMCall(operation, status string) {
	if m == nil {
		return
	}
	m.crmCalls.WithLabelValues(operation, status).Inc()
}
