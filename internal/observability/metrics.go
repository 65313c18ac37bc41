package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a centralized Prometheus metrics set for the parts of the
// runtime worth watching in production: tool call throughput and
// latency, model prompt round counts, and the two outward-facing
// transports (RPC, HTTP façade). Wiring this is optional — callers in
// this module check for a nil *Metrics before recording anything.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	start := time.Now()
//	// ... dispatch a tool call ...
//	metrics.RecordToolCall("search", "success", time.Since(start).Seconds())
type Metrics struct {
	// ToolCallCounter counts tool calls by tool name and outcome.
	// Labels: tool, status (success|error)
	ToolCallCounter *prometheus.CounterVec

	// ToolCallDuration measures tool call latency in seconds.
	// Labels: tool
	ToolCallDuration *prometheus.HistogramVec

	// PromptCounter counts model prompt rounds by ai name and outcome.
	// Labels: ai, status (success|error)
	PromptCounter *prometheus.CounterVec

	// PromptDuration measures model prompt round latency in seconds.
	// Labels: ai
	PromptDuration *prometheus.HistogramVec

	// RPCCallCounter counts RPC calls dispatched through the broker.
	// Labels: function, status (success|error|timeout)
	RPCCallCounter *prometheus.CounterVec

	// HTTPCallCounter counts calls served by the HTTP façade.
	// Labels: function, status (success|error)
	HTTPCallCounter *prometheus.CounterVec

	// ActiveToolWorkers tracks the number of tool worker processes currently running.
	ActiveToolWorkers prometheus.Gauge
}

// NewMetrics creates and registers the metrics set with Prometheus's
// default registry. Call once at startup.
func NewMetrics() *Metrics {
	return &Metrics{
		ToolCallCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_tool_calls_total",
				Help: "Total number of tool calls by tool name and outcome",
			},
			[]string{"tool", "status"},
		),
		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentrt_tool_call_duration_seconds",
				Help:    "Duration of tool calls in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		PromptCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_prompt_rounds_total",
				Help: "Total number of model prompt rounds by ai name and outcome",
			},
			[]string{"ai", "status"},
		),
		PromptDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentrt_prompt_duration_seconds",
				Help:    "Duration of model prompt rounds in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"ai"},
		),
		RPCCallCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_rpc_calls_total",
				Help: "Total number of RPC calls by function and outcome",
			},
			[]string{"function", "status"},
		),
		HTTPCallCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_http_calls_total",
				Help: "Total number of HTTP façade calls by function and outcome",
			},
			[]string{"function", "status"},
		),
		ActiveToolWorkers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentrt_active_tool_workers",
				Help: "Current number of running tool worker processes",
			},
		),
	}
}

// RecordToolCall records the outcome and latency of a tool call.
func (m *Metrics) RecordToolCall(tool, status string, durationSeconds float64) {
	m.ToolCallCounter.WithLabelValues(tool, status).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(durationSeconds)
}

// RecordPrompt records the outcome and latency of a model prompt round.
func (m *Metrics) RecordPrompt(ai, status string, durationSeconds float64) {
	m.PromptCounter.WithLabelValues(ai, status).Inc()
	m.PromptDuration.WithLabelValues(ai).Observe(durationSeconds)
}

// RecordRPCCall records the outcome of an RPC call.
func (m *Metrics) RecordRPCCall(function, status string) {
	m.RPCCallCounter.WithLabelValues(function, status).Inc()
}

// RecordHTTPCall records the outcome of an HTTP façade call.
func (m *Metrics) RecordHTTPCall(function, status string) {
	m.HTTPCallCounter.WithLabelValues(function, status).Inc()
}

// ToolWorkerStarted increments the active tool worker gauge.
func (m *Metrics) ToolWorkerStarted() {
	m.ActiveToolWorkers.Inc()
}

// ToolWorkerStopped decrements the active tool worker gauge.
func (m *Metrics) ToolWorkerStopped() {
	m.ActiveToolWorkers.Dec()
}
