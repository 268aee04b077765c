package commands

import (
	"context"
	"fmt"

	"github.com/FuckingPengvin/browse-helper/pkg/browser"
	"github.com/FuckingPengvin/browse-helper/pkg/config"
	"github.com/FuckingPengvin/browse-helper/pkg/engine"
	"github.com/FuckingPengvin/browse-helper/pkg/planner"
	"github.com/FuckingPengvin/browse-helper/pkg/stores"
	"github.com/FuckingPengvin/browse-helper/pkg/telemetry"
	"github.com/FuckingPengvin/browse-helper/pkg/tokens"
)

// app wires the configured components behind one lifecycle: telemetry,
// the execution ledger, the browser, the coordinator, and the planner.
type app struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	store   *stores.SQLiteStore
	budget  *tokens.Manager
	browser *browser.Controller
	coord   *engine.Coordinator
	planner planner.Planner
}

// newApp loads the configuration and assembles the application. When launch
// is true the browser is started and the coordinator initialized; commands
// that only inspect state pass false.
func newApp(ctx context.Context, launch bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	tel, err := telemetry.New(&telemetry.Config{
		ServiceName:    "browse-helper",
		ServiceVersion: appVersion,
		Environment:    "production",
		Logging:        cfg.Logging,
		Tracing:        cfg.Tracing,
		Metrics:        cfg.Metrics,
		Events:         cfg.Events,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &app{
		cfg:    cfg,
		tel:    tel,
		budget: tokens.NewManager(cfg.Tokens),
	}

	var recorder engine.Recorder
	usageSink := usageReporter{metrics: tel.Metrics}
	if cfg.Store.Enabled {
		store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Store.Path})
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			a.shutdown(ctx)
			return nil, fmt.Errorf("failed to migrate store: %w", err)
		}
		a.store = store

		rec := stores.NewRecorder(store)
		recorder = rec
		usageSink.store = rec
		tel.Events.Subscribe(rec.EventSink(ctx), nil)
	}

	a.browser = browser.NewController(cfg.Browser, tel.Logger.NewComponentLogger("browser").Zerolog())
	if launch {
		if err := a.browser.Launch(ctx); err != nil {
			a.shutdown(ctx)
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	a.coord = engine.NewCoordinator(a.browser, engine.CoordinatorOptions{
		MaxParallel: cfg.Coordinator.MaxParallelActions,
		Retry: engine.RetryPolicy{
			MaxRetries: cfg.Coordinator.RetryAttempts,
			BaseDelay:  cfg.Coordinator.RetryDelay,
		},
		StepPacing:    cfg.Coordinator.StepInterval,
		ActionTimeout: cfg.Coordinator.ActionTimeout,
		Recorder:      recorder,
		Events:        tel.Events,
		Metrics:       tel.Metrics,
		Logger:        tel.Logger.NewComponentLogger("engine").Zerolog(),
	})
	if launch {
		if err := a.coord.Initialize(ctx); err != nil {
			a.shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize coordinator: %w", err)
		}
	}

	fallback := planner.NewHeuristicPlanner(tel.Logger.NewComponentLogger("planner").Zerolog())
	ollama, err := planner.NewOllamaPlanner(cfg.Ollama, a.budget, fallback,
		tel.Logger.NewComponentLogger("planner").Zerolog())
	if err != nil {
		a.shutdown(ctx)
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}
	ollama.WithUsageRecorder(usageSink)
	a.planner = ollama

	if cfg.Metrics.Enabled {
		if err := tel.StartMetricsServer(); err != nil {
			tel.Logger.WithError(err).Warn("failed to start metrics server")
		}
	}

	return a, nil
}

// usageReporter fans model token usage out to metrics and, when persistence
// is enabled, the store.
type usageReporter struct {
	metrics *telemetry.Metrics
	store   *stores.Recorder
}

func (u usageReporter) SaveTokenUsage(ctx context.Context, usage tokens.Usage) error {
	u.metrics.AddTokens(usage.Operation, usage.Total())
	if u.store == nil {
		return nil
	}
	return u.store.SaveTokenUsage(ctx, usage)
}

// shutdown tears the application down in reverse construction order.
// Safe to call on a partially constructed app.
func (a *app) shutdown(ctx context.Context) {
	if a.coord != nil {
		if err := a.coord.Shutdown(ctx); err != nil {
			a.tel.Logger.WithError(err).Warn("coordinator shutdown failed")
		}
	}
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.tel.Logger.WithError(err).Warn("browser close failed")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.tel.Logger.WithError(err).Warn("store close failed")
		}
	}
	if a.tel != nil {
		if err := a.tel.Shutdown(ctx); err != nil {
			a.tel.Logger.WithError(err).Warn("telemetry shutdown failed")
		}
	}
}
