package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
)

// Metrics provides Prometheus metrics for browse-helper. It satisfies the
// engine Metrics interface. A disabled instance is a safe no-op.
type Metrics struct {
	config MetricsConfig

	executionsStarted   prometheus.Counter
	executionsCompleted *prometheus.CounterVec
	executionDuration   *prometheus.HistogramVec

	actionsExecuted *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec

	plannerCalls *prometheus.CounterVec
	tokensUsed   *prometheus.CounterVec

	errorsByClass *prometheus.CounterVec

	activeExecutions prometheus.Gauge
	gateInFlight     prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		executionsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_started_total",
				Help:      "Total number of plan executions started",
			},
		),
		executionsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_completed_total",
				Help:      "Total number of plan executions completed",
			},
			[]string{"status"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Duration of plan executions in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		actionsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_executed_total",
				Help:      "Total number of actions executed",
			},
			[]string{"action_type", "status"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of actions in seconds, retries included",
				Buckets:   buckets,
			},
			[]string{"action_type"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of action retry attempts",
			},
			[]string{"action_type"},
		),

		plannerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "planner_calls_total",
				Help:      "Total number of planner invocations",
			},
			[]string{"outcome"},
		),
		tokensUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_used_total",
				Help:      "Total number of model tokens consumed",
			},
			[]string{"operation"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by classification",
			},
			[]string{"class"},
		),

		activeExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_executions",
				Help:      "Current number of in-flight plan executions",
			},
		),
		gateInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gate_in_flight",
				Help:      "Current number of handlers holding a gate slot",
			},
		),
	}

	registry.MustRegister(
		m.executionsStarted,
		m.executionsCompleted,
		m.executionDuration,
		m.actionsExecuted,
		m.actionDuration,
		m.retriesTotal,
		m.plannerCalls,
		m.tokensUsed,
		m.errorsByClass,
		m.activeExecutions,
		m.gateInFlight,
	)

	return m, nil
}

// RecordExecutionStarted counts one started plan execution.
func (m *Metrics) RecordExecutionStarted() {
	if m.executionsStarted == nil {
		return
	}
	m.executionsStarted.Inc()
	m.activeExecutions.Inc()
}

// ObserveExecution records one finished plan execution.
func (m *Metrics) ObserveExecution(success bool, duration time.Duration) {
	if m.executionsCompleted == nil {
		return
	}
	status := "failed"
	if success {
		status = "completed"
	}
	m.executionsCompleted.WithLabelValues(status).Inc()
	m.executionDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeExecutions.Dec()
}

// ObserveAction records one terminal action result.
func (m *Metrics) ObserveAction(actionType engine.ActionType, status engine.ActionStatus, duration time.Duration) {
	if m.actionsExecuted == nil {
		return
	}
	m.actionsExecuted.WithLabelValues(string(actionType), string(status)).Inc()
	m.actionDuration.WithLabelValues(string(actionType)).Observe(duration.Seconds())
}

// AddRetry counts one retry attempt.
func (m *Metrics) AddRetry(actionType engine.ActionType) {
	if m.retriesTotal == nil {
		return
	}
	m.retriesTotal.WithLabelValues(string(actionType)).Inc()
}

// RecordPlannerCall counts one planner invocation by outcome
// (planned, fallback, failed).
func (m *Metrics) RecordPlannerCall(outcome string) {
	if m.plannerCalls == nil {
		return
	}
	m.plannerCalls.WithLabelValues(outcome).Inc()
}

// AddTokens counts model tokens spent on an operation.
func (m *Metrics) AddTokens(operation string, n int) {
	if m.tokensUsed == nil {
		return
	}
	m.tokensUsed.WithLabelValues(operation).Add(float64(n))
}

// RecordError counts an error by classification.
func (m *Metrics) RecordError(class engine.ErrorClass) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(string(class)).Inc()
}

// GateAcquired counts a handler entering the gate.
func (m *Metrics) GateAcquired() {
	if m.gateInFlight == nil {
		return
	}
	m.gateInFlight.Inc()
}

// GateReleased counts a handler leaving the gate.
func (m *Metrics) GateReleased() {
	if m.gateInFlight == nil {
		return
	}
	m.gateInFlight.Dec()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer(logger *Logger) error {
	if !m.config.Enabled {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server error")
		}
	}()

	return nil
}
