package planner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
	"github.com/FuckingPengvin/browse-helper/pkg/tokens"
)

const (
	// DefaultBaseURL is the local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the default planning model.
	DefaultModel = "glm4"

	// DefaultMaxTokens bounds the model's plan response.
	DefaultMaxTokens = 2048

	// DefaultTemperature keeps planning output near-deterministic.
	DefaultTemperature = 0.1

	// DefaultRequestTimeout bounds one model call.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxPlanLength caps the number of actions taken from one plan.
	DefaultMaxPlanLength = 10
)

// planningPrompt instructs the model to emit a JSON plan over the supported
// capability tags.
const planningPrompt = `You are an autonomous browser agent. Produce an action plan for the task below.

TASK: %s

AVAILABLE ACTIONS:
1. navigate(url) - open a URL
2. click(selector) - click an element
3. input_text(selector, text) - type text into an element
4. extract_data(selector, attribute) - read data from an element
5. wait(seconds_or_selector) - wait a duration or for an element to appear
6. scroll(direction) - scroll the page
7. execute_script(code) - run JavaScript

INSTRUCTIONS:
- Be as specific as possible about selectors and targets
- Break complex tasks into simple steps
- Account for pages that load slowly

Respond with JSON only, in this shape:
{
    "plan": [
        {
            "action": "action_type",
            "target": "selector_or_url",
            "value": "value_if_needed",
            "description": "clear_step_description",
            "conditions": ["preconditions"]
        }
    ],
    "expected_outcome": "what_success_looks_like",
    "assumptions": ["assumptions_about_the_page"],
    "constraints": ["time_or_resource_constraints"]
}`

// OllamaConfig configures the Ollama planner.
type OllamaConfig struct {
	// BaseURL is the Ollama server address.
	BaseURL string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`

	// Model is the model identifier to plan with.
	Model string `yaml:"model" json:"model"`

	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`

	// MaxTokens bounds the model response length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"omitempty,gt=0"`

	// RequestTimeout bounds one model call.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// MaxPlanLength caps the number of actions taken from a model plan.
	MaxPlanLength int `yaml:"max_plan_length" json:"max_plan_length" validate:"omitempty,gt=0"`
}

// DefaultOllamaConfig returns the default planner configuration.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL:        DefaultBaseURL,
		Model:          DefaultModel,
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// withDefaults fills zero fields with the defaults.
func (c OllamaConfig) withDefaults() OllamaConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxPlanLength <= 0 {
		c.MaxPlanLength = DefaultMaxPlanLength
	}
	return c
}

// UsageRecorder persists model token usage.
type UsageRecorder interface {
	SaveTokenUsage(ctx context.Context, usage tokens.Usage) error
}

// OllamaPlanner plans through a local Ollama model, charging every call to
// the token budget. When the model fails it defers to the fallback planner
// if one is configured.
type OllamaPlanner struct {
	client   *api.Client
	cfg      OllamaConfig
	budget   *tokens.Manager
	fallback Planner
	recorder UsageRecorder
	logger   zerolog.Logger
}

// NewOllamaPlanner creates a planner against the configured Ollama server.
// The budget and fallback may be nil.
func NewOllamaPlanner(cfg OllamaConfig, budget *tokens.Manager, fallback Planner, logger zerolog.Logger) (*OllamaPlanner, error) {
	cfg = cfg.withDefaults()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama URL: %w", err)
	}
	return &OllamaPlanner{
		client:   api.NewClient(base, http.DefaultClient),
		cfg:      cfg,
		budget:   budget,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// WithUsageRecorder persists token usage through r after every model call.
func (p *OllamaPlanner) WithUsageRecorder(r UsageRecorder) *OllamaPlanner {
	p.recorder = r
	return p
}

// CreatePlan asks the model for a plan. Model errors and unusable responses
// fall through to the fallback planner; budget refusals do not.
func (p *OllamaPlanner) CreatePlan(ctx context.Context, task string) (*engine.Plan, error) {
	prompt := fmt.Sprintf(planningPrompt, task)

	if p.budget != nil {
		if err := p.budget.Check(tokens.Estimate(prompt), p.cfg.MaxTokens); err != nil {
			return nil, err
		}
	}

	response, promptTokens, completionTokens, err := p.generate(ctx, prompt)
	if err != nil {
		p.logger.Error().Err(err).Msg("model call failed")
		return p.fallbackPlan(ctx, task, err)
	}

	if p.budget != nil {
		usage, err := p.budget.Record(promptTokens, completionTokens, p.cfg.Model, "planning")
		if err != nil {
			p.logger.Warn().Err(err).Msg("token budget refused recorded usage")
		} else if p.recorder != nil {
			if err := p.recorder.SaveTokenUsage(ctx, usage); err != nil {
				p.logger.Warn().Err(err).Msg("failed to persist token usage")
			}
		}
	}

	plan, err := parsePlan(task, response, p.logger)
	if err != nil {
		p.logger.Warn().Err(err).Msg("model response was not a usable plan")
		return p.fallbackPlan(ctx, task, err)
	}
	if len(plan.Actions) > p.cfg.MaxPlanLength {
		p.logger.Warn().Int("actions", len(plan.Actions)).Int("limit", p.cfg.MaxPlanLength).
			Msg("truncating oversized plan")
		plan.Actions = plan.Actions[:p.cfg.MaxPlanLength]
	}
	p.logger.Info().Int("actions", len(plan.Actions)).Msg("plan created")
	return plan, nil
}

// generate performs one non-streaming model call and returns the response
// text with its token counts.
func (p *OllamaPlanner) generate(ctx context.Context, prompt string) (string, int, int, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  p.cfg.Model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": p.cfg.Temperature,
			"num_predict": p.cfg.MaxTokens,
		},
	}

	var out strings.Builder
	var promptTokens, completionTokens int
	respFunc := func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		if resp.PromptEvalCount > 0 {
			promptTokens = resp.PromptEvalCount
		}
		if resp.EvalCount > 0 {
			completionTokens = resp.EvalCount
		}
		return nil
	}

	if err := p.client.Generate(callCtx, req, respFunc); err != nil {
		return "", 0, 0, fmt.Errorf("ollama generate failed: %w", err)
	}
	return out.String(), promptTokens, completionTokens, nil
}

// fallbackPlan defers to the fallback planner, or surfaces the original
// error when none is configured.
func (p *OllamaPlanner) fallbackPlan(ctx context.Context, task string, cause error) (*engine.Plan, error) {
	if p.fallback == nil {
		return nil, cause
	}
	p.logger.Warn().Msg("falling back to heuristic planning")
	plan, err := p.fallback.CreatePlan(ctx, task)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return plan, nil
}
