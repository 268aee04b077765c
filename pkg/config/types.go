package config

import (
	"time"

	"github.com/FuckingPengvin/browse-helper/pkg/browser"
	"github.com/FuckingPengvin/browse-helper/pkg/planner"
	"github.com/FuckingPengvin/browse-helper/pkg/telemetry"
	"github.com/FuckingPengvin/browse-helper/pkg/tokens"
)

// Config is the full application configuration. Sections left out of the
// file keep their defaults.
type Config struct {
	// Browser configures the browser controller.
	Browser browser.Config `yaml:"browser"`

	// Ollama configures the planning model.
	Ollama planner.OllamaConfig `yaml:"ollama"`

	// Coordinator configures plan execution.
	Coordinator CoordinatorConfig `yaml:"coordinator"`

	// Tokens configures the model token budget.
	Tokens tokens.Budget `yaml:"tokens"`

	// Store configures execution history persistence.
	Store StoreConfig `yaml:"store"`

	// Logging configures structured logging.
	Logging telemetry.LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics telemetry.MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry export.
	Tracing telemetry.TracingConfig `yaml:"tracing"`

	// Events configures the in-process event bus.
	Events telemetry.EventsConfig `yaml:"events"`
}

// CoordinatorConfig configures the plan executor.
type CoordinatorConfig struct {
	// MaxParallelActions bounds concurrent handler invocations.
	MaxParallelActions int `yaml:"max_parallel_actions" validate:"omitempty,gt=0"`

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int `yaml:"retry_attempts" validate:"gte=0"`

	// RetryDelay is the base backoff delay; it doubles per retry.
	RetryDelay time.Duration `yaml:"retry_delay" validate:"omitempty,gt=0"`

	// StepInterval is the settle delay between consecutive plan steps.
	StepInterval time.Duration `yaml:"step_interval"`

	// ActionTimeout is the default per-attempt time budget for actions
	// that carry none of their own.
	ActionTimeout time.Duration `yaml:"action_timeout" validate:"omitempty,gt=0"`
}

// StoreConfig configures execution history persistence.
type StoreConfig struct {
	// Enabled turns persistence on.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// Default returns the full default configuration.
func Default() *Config {
	tel := telemetry.DefaultConfig()
	return &Config{
		Browser: browser.DefaultConfig(),
		Ollama:  planner.DefaultOllamaConfig(),
		Coordinator: CoordinatorConfig{
			MaxParallelActions: 2,
			RetryAttempts:      3,
			RetryDelay:         time.Second,
			StepInterval:       500 * time.Millisecond,
			ActionTimeout:      60 * time.Second,
		},
		Tokens: tokens.DefaultBudget(),
		Store: StoreConfig{
			Enabled: true,
			Path:    "browse-helper.db",
		},
		Logging: tel.Logging,
		Metrics: tel.Metrics,
		Tracing: tel.Tracing,
		Events:  tel.Events,
	}
}
