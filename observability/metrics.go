package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Agent loop metrics
	AgentRunsTotal      *prometheus.CounterVec
	AgentRunDuration    *prometheus.HistogramVec
	AgentIterations     *prometheus.HistogramVec
	AgentErrorsTotal    *prometheus.CounterVec
	ToolExecutionsTotal *prometheus.CounterVec

	// Response normalizer metrics
	NormalizerOutcomes *prometheus.CounterVec

	// Result cache metrics
	CacheLookupsTotal *prometheus.CounterVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// iterationBuckets cover the bounded agent loop budget
var iterationBuckets = []float64{0, 1, 2, 3, 4, 5, 7, 10}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		AgentRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "agent",
				Name:      "runs_total",
				Help:      "Total number of agent runs by operation",
			},
			[]string{"operation"},
		),
		AgentRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "market_insight",
				Subsystem: "agent",
				Name:      "run_duration_seconds",
				Help:      "Duration of agent runs in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "status"},
		),
		AgentIterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "market_insight",
				Subsystem: "agent",
				Name:      "iterations",
				Help:      "Number of loop iterations used per agent run",
				Buckets:   iterationBuckets,
			},
			[]string{"terminal_state"},
		),
		AgentErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "agent",
				Name:      "errors_total",
				Help:      "Total number of agent errors",
			},
			[]string{"operation", "error_type"},
		),
		ToolExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "agent",
				Name:      "tool_executions_total",
				Help:      "Total number of tool executions requested by the model",
			},
			[]string{"tool", "status"},
		),
		NormalizerOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "normalizer",
				Name:      "outcomes_total",
				Help:      "Response normalizer outcomes by parsing stage",
			},
			[]string{"stage"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Result cache lookups by outcome",
			},
			[]string{"namespace", "outcome"},
		),
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "market_insight",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "market_insight",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "market_insight",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market_insight",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordAgentRun records an agent run by operation
func (m *Metrics) RecordAgentRun(operation string) {
	m.AgentRunsTotal.WithLabelValues(operation).Inc()
}

// RecordAgentRunDuration records the duration of an agent run
func (m *Metrics) RecordAgentRunDuration(operation, status string, duration time.Duration) {
	m.AgentRunDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordAgentIterations records how many loop iterations a run consumed
func (m *Metrics) RecordAgentIterations(terminalState string, iterations int) {
	m.AgentIterations.WithLabelValues(terminalState).Observe(float64(iterations))
}

// RecordAgentError records an agent error
func (m *Metrics) RecordAgentError(operation, errorType string) {
	m.AgentErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordToolExecution records a tool execution requested by the model
func (m *Metrics) RecordToolExecution(tool, status string) {
	m.ToolExecutionsTotal.WithLabelValues(tool, status).Inc()
}

// RecordNormalizerOutcome records which parsing stage produced the result
func (m *Metrics) RecordNormalizerOutcome(stage string) {
	m.NormalizerOutcomes.WithLabelValues(stage).Inc()
}

// RecordCacheLookup records a cache lookup outcome ("hit" or "miss")
func (m *Metrics) RecordCacheLookup(namespace, outcome string) {
	m.CacheLookupsTotal.WithLabelValues(namespace, outcome).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveAgentRun records the agent run duration and status
func (t *Timer) ObserveAgentRun(operation, status string) {
	t.metrics.RecordAgentRunDuration(operation, status, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
