package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects application metrics.
type Metrics interface {
	RecordRequest(ctx context.Context, labels RequestLabels)
	RecordLatency(ctx context.Context, duration time.Duration, labels RequestLabels)
	RecordTokens(ctx context.Context, input, output int, labels RequestLabels)
	RecordAuditEntry(ctx context.Context, tenantID, action string)
}

// RequestLabels contains metric dimensions.
type RequestLabels struct {
	TenantID string
	Model    string
	Provider string
	Status   string
}

func (l RequestLabels) values() []string {
	return []string{l.TenantID, l.Model, l.Provider, l.Status}
}

var requestLabelNames = []string{"tenant", "model", "provider", "status"}

// PrometheusMetrics implements Metrics with client_golang collectors
type PrometheusMetrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	tokens       *prometheus.CounterVec
	auditEntries *prometheus.CounterVec
}

// NewPrometheusMetrics registers the gateway collectors on a fresh registry
// alongside the Go runtime and process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_chat_requests_total",
			Help: "Total number of chat completion calls.",
		}, requestLabelNames),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_chat_duration_seconds",
			Help:    "Chat completion latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, requestLabelNames),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_chat_tokens_total",
			Help: "Tokens reported by the provider.",
		}, append(append([]string{}, requestLabelNames...), "direction")),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenant_audit_entries_total",
			Help: "Audit log entries appended.",
		}, []string{"tenant", "action"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.tokens,
		m.auditEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *PrometheusMetrics) RecordRequest(_ context.Context, labels RequestLabels) {
	m.requests.WithLabelValues(labels.values()...).Inc()
}

func (m *PrometheusMetrics) RecordLatency(_ context.Context, duration time.Duration, labels RequestLabels) {
	m.latency.WithLabelValues(labels.values()...).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordTokens(_ context.Context, input, output int, labels RequestLabels) {
	m.tokens.WithLabelValues(append(labels.values(), "input")...).Add(float64(input))
	m.tokens.WithLabelValues(append(labels.values(), "output")...).Add(float64(output))
}

func (m *PrometheusMetrics) RecordAuditEntry(_ context.Context, tenantID, action string) {
	m.auditEntries.WithLabelValues(tenantID, action).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) RecordRequest(context.Context, RequestLabels) {}
func (NopMetrics) RecordLatency(context.Context, time.Duration, RequestLabels) {}
func (NopMetrics) RecordTokens(context.Context, int, int, RequestLabels) {}
func (NopMetrics) RecordAuditEntry(context.Context, string, string) {}
