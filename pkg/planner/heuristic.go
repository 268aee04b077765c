package planner

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
)

var (
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	quotedPattern = regexp.MustCompile(`["']([^"']+)["']`)
)

// HeuristicPlanner builds minimal plans from task keywords. It is the
// last-resort fallback when model planning is unavailable.
type HeuristicPlanner struct {
	logger zerolog.Logger
}

// NewHeuristicPlanner creates a heuristic planner.
func NewHeuristicPlanner(logger zerolog.Logger) *HeuristicPlanner {
	return &HeuristicPlanner{logger: logger}
}

// CreatePlan derives a simple plan from the task text. The plan always ends
// with a settle wait.
func (p *HeuristicPlanner) CreatePlan(ctx context.Context, task string) (*engine.Plan, error) {
	plan := &engine.Plan{
		Task:            task,
		ExpectedOutcome: "task completed",
		Assumptions:     []string{"simplified plan in use"},
		Constraints:     []string{"model planning unavailable"},
	}

	lower := strings.ToLower(task)

	if url := urlPattern.FindString(task); url != "" {
		plan.Actions = append(plan.Actions, engine.Action{
			Type:        engine.ActionNavigate,
			Target:      url,
			Description: "open " + url,
			RetryOnFail: true,
		})
	}

	switch {
	case strings.Contains(lower, "click") || strings.Contains(lower, "press"):
		plan.Actions = append(plan.Actions, engine.Action{
			Type:        engine.ActionClick,
			Target:      "button, a, input[type='submit']",
			Description: "click the most likely interactive element",
			RetryOnFail: true,
		})
	case strings.Contains(lower, "type") || strings.Contains(lower, "enter") || strings.Contains(lower, "input"):
		text := "text"
		if m := quotedPattern.FindStringSubmatch(task); m != nil {
			text = m[1]
		}
		plan.Actions = append(plan.Actions, engine.Action{
			Type:        engine.ActionInputText,
			Target:      "input, textarea",
			Value:       text,
			Description: "type " + text,
			RetryOnFail: true,
		})
	case strings.Contains(lower, "extract") || strings.Contains(lower, "read") || strings.Contains(lower, "scrape"):
		plan.Actions = append(plan.Actions, engine.Action{
			Type:        engine.ActionExtractData,
			Target:      "body",
			Description: "extract the page text",
			RetryOnFail: true,
		})
	}

	plan.Actions = append(plan.Actions, engine.Action{
		Type:        engine.ActionWait,
		Value:       "2",
		Description: "let the page settle",
		RetryOnFail: true,
	})

	p.logger.Debug().Int("actions", len(plan.Actions)).Msg("heuristic plan built")
	return plan, nil
}
