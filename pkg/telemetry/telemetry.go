package telemetry

import (
	"context"
	"errors"
)

// Telemetry bundles the logger, metrics, tracer, and event bus behind one
// lifecycle.
type Telemetry struct {
	Logger  *Logger
	Metrics *Metrics
	Tracer  *Tracer
	Events  *EventBus

	config *Config
}

// telemetryContextKey is the context key for Telemetry instances.
type telemetryContextKey struct{}

// New builds the full telemetry stack from the configuration.
func New(cfg *Config) (*Telemetry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	events := NewEventBus(cfg.Events)
	if cfg.Events.Enabled {
		events.Subscribe(LogSubscriber(logger.NewComponentLogger("events")), nil)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
		Events:  events,
		config:  cfg,
	}, nil
}

// WithContext adds the telemetry bundle to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, telemetryContextKey{}, t)
}

// FromTelemetryContext retrieves the bundle from the context, nil if absent.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// StartMetricsServer exposes the metrics endpoint if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer(t.Logger.NewComponentLogger("metrics"))
}

// Shutdown stops the tracer and event bus, combining their errors.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.Events.Shutdown(ctx),
		t.Tracer.Shutdown(ctx),
	)
}

// Flush forces pending trace export.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}
