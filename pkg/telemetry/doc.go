// Package telemetry provides the observability stack for browse-helper:
// structured logging (zerolog), Prometheus metrics, OpenTelemetry tracing,
// and an in-process event bus that fans engine lifecycle events out to
// subscribers.
//
// The pieces are independent but share a single configuration and lifecycle
// through the Telemetry bundle:
//
//	tel, err := telemetry.New(telemetry.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	log := tel.Logger.NewComponentLogger("engine")
//	log.WithExecutionID(id).Info("plan execution started")
//
// Metrics and the event bus implement the engine's Metrics and
// EventPublisher interfaces, so wiring them into a coordinator is a matter
// of passing them in its options.
package telemetry
