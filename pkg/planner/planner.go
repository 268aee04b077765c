// Package planner turns a natural-language task into an executable plan.
// The primary implementation asks a local Ollama model; a keyword heuristic
// covers model outages.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
)

// ErrNoPlan is returned when no usable actions could be produced for a task.
var ErrNoPlan = errors.New("no usable plan produced")

// Planner produces an executable plan for a task.
type Planner interface {
	CreatePlan(ctx context.Context, task string) (*engine.Plan, error)
}

// planWire is the JSON shape the model is asked to produce.
type planWire struct {
	Plan            []actionWire `json:"plan"`
	ExpectedOutcome string       `json:"expected_outcome"`
	Assumptions     []string     `json:"assumptions"`
	Constraints     []string     `json:"constraints"`
}

// actionWire is one model-produced action. Value is loosely typed because
// models emit numbers and booleans where text is expected.
type actionWire struct {
	Action      string   `json:"action"`
	Target      string   `json:"target"`
	Value       any      `json:"value"`
	Description string   `json:"description"`
	Conditions  []string `json:"conditions"`
	RetryOnFail *bool    `json:"retry_on_fail"`
	Timeout     int      `json:"timeout"`
}

// extractJSON cuts the substring between the first '{' and the last '}' so
// prose around the model's JSON does not break decoding.
func extractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return "", errors.New("response contains no JSON object")
	}
	return s[start : end+1], nil
}

// parsePlan decodes a model response into a plan, dropping malformed
// actions rather than failing the whole plan.
func parsePlan(task, response string, logger zerolog.Logger) (*engine.Plan, error) {
	raw, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var wire planWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("failed to decode plan JSON: %w", err)
	}

	plan := &engine.Plan{
		Task:            task,
		ExpectedOutcome: wire.ExpectedOutcome,
		Assumptions:     wire.Assumptions,
		Constraints:     wire.Constraints,
	}
	for i, w := range wire.Plan {
		action, err := w.toAction()
		if err != nil {
			logger.Warn().Int("index", i).Err(err).Msg("skipping malformed action")
			continue
		}
		plan.Actions = append(plan.Actions, action)
	}
	if len(plan.Actions) == 0 {
		return nil, ErrNoPlan
	}
	return plan, nil
}

// toAction converts one wire action, validating its tag and normalizing
// loose value types.
func (w actionWire) toAction() (engine.Action, error) {
	t := engine.ActionType(w.Action)
	if err := t.Validate(); err != nil {
		return engine.Action{}, err
	}

	retry := true
	if w.RetryOnFail != nil {
		retry = *w.RetryOnFail
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30000
	}

	return engine.Action{
		Type:        t,
		Target:      strings.TrimSpace(w.Target),
		Value:       valueString(w.Value),
		Description: w.Description,
		Conditions:  w.Conditions,
		RetryOnFail: retry,
		Timeout:     timeout,
	}, nil
}

// valueString renders a loosely typed wire value as the string the handlers
// expect.
func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
