package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// defaultWaitTimeout bounds a selector wait when the action carries no
	// explicit timeout.
	defaultWaitTimeout = 10 * time.Second

	// defaultScrollAmount is the scroll distance in pixels when the action
	// does not specify one.
	defaultScrollAmount = 500

	// scriptResultLimit caps the length of an echoed script result so a
	// page cannot flood the ledger.
	scriptResultLimit = 500
)

// handlerSet binds the capability handlers to a backend. Each method has the
// HandlerFunc signature and is registered under its tag by NewRegistry.
type handlerSet struct {
	backend Backend
	sleeper Sleeper
}

// navigate loads the target URL, normalizing a missing scheme to https.
func (h *handlerSet) navigate(ctx context.Context, action Action) (map[string]any, error) {
	target := strings.TrimSpace(action.Target)
	if target == "" {
		return nil, NewValidationError("navigate requires a target URL", nil)
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	if err := h.backend.Navigate(ctx, target); err != nil {
		return nil, NewEnvironmentError("navigation failed", err)
	}

	actual, err := h.backend.CurrentURL(ctx)
	if err != nil {
		return nil, NewEnvironmentError("reading current URL failed", err)
	}
	title, err := h.backend.Title(ctx)
	if err != nil {
		return nil, NewEnvironmentError("reading page title failed", err)
	}

	return map[string]any{
		"action":        "navigate",
		"requested_url": target,
		"actual_url":    actual,
		"page_title":    title,
	}, nil
}

// click clicks the element matching the target selector.
func (h *handlerSet) click(ctx context.Context, action Action) (map[string]any, error) {
	selector := strings.TrimSpace(action.Target)
	if selector == "" {
		return nil, NewValidationError("click requires a target selector", nil)
	}

	if err := h.backend.Click(ctx, selector); err != nil {
		return nil, NewEnvironmentError(fmt.Sprintf("click on %q failed", selector), err)
	}

	return map[string]any{
		"action":   "click",
		"selector": selector,
	}, nil
}

// inputText clears the target element and types the value into it.
func (h *handlerSet) inputText(ctx context.Context, action Action) (map[string]any, error) {
	selector := strings.TrimSpace(action.Target)
	if selector == "" {
		return nil, NewValidationError("input_text requires a target selector", nil)
	}
	if action.Value == "" {
		return nil, NewValidationError("input_text requires a value", nil)
	}

	if err := h.backend.InputText(ctx, selector, action.Value); err != nil {
		return nil, NewEnvironmentError(fmt.Sprintf("typing into %q failed", selector), err)
	}

	return map[string]any{
		"action":      "input_text",
		"selector":    selector,
		"text_length": len(action.Value),
	}, nil
}

// extractData reads an attribute from the target element. The attribute
// defaults to the element text.
func (h *handlerSet) extractData(ctx context.Context, action Action) (map[string]any, error) {
	selector := strings.TrimSpace(action.Target)
	if selector == "" {
		return nil, NewValidationError("extract_data requires a target selector", nil)
	}
	attribute := strings.TrimSpace(action.Value)
	if attribute == "" {
		attribute = "text"
	}

	data, err := h.backend.ExtractData(ctx, selector, attribute)
	if err != nil {
		return nil, NewEnvironmentError(fmt.Sprintf("extraction from %q failed", selector), err)
	}

	return map[string]any{
		"action":    "extract_data",
		"selector":  selector,
		"attribute": attribute,
		"data":      data,
	}, nil
}

// wait either sleeps for a numeric duration in seconds or waits for a
// selector to appear. A selector wait that times out is reported in the data,
// not as an error: the planner treats presence as advisory.
func (h *handlerSet) wait(ctx context.Context, action Action) (map[string]any, error) {
	target := strings.TrimSpace(action.Target)
	if target == "" {
		target = strings.TrimSpace(action.Value)
	}
	if target == "" {
		return nil, NewValidationError("wait requires a duration or selector", nil)
	}

	if seconds, err := strconv.ParseFloat(target, 64); err == nil {
		if seconds < 0 {
			return nil, NewValidationError("wait duration must not be negative", nil)
		}
		d := time.Duration(seconds * float64(time.Second))
		if err := h.sleeper.Sleep(ctx, d); err != nil {
			return nil, NewEnvironmentError("wait interrupted", err)
		}
		return map[string]any{
			"action":       "wait",
			"wait_type":    "duration",
			"duration_sec": seconds,
		}, nil
	}

	timeout := action.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	found, err := h.backend.WaitForSelector(ctx, target, timeout)
	if err != nil {
		return nil, NewEnvironmentError(fmt.Sprintf("wait for %q failed", target), err)
	}

	return map[string]any{
		"action":    "wait",
		"wait_type": "selector",
		"selector":  target,
		"found":     found,
	}, nil
}

// scroll scrolls the page; direction defaults to down, amount to
// defaultScrollAmount pixels.
func (h *handlerSet) scroll(ctx context.Context, action Action) (map[string]any, error) {
	direction := strings.ToLower(strings.TrimSpace(action.Value))
	if direction == "" {
		direction = "down"
	}
	switch direction {
	case "up", "down", "left", "right":
	default:
		return nil, NewValidationError("scroll direction must be up, down, left, or right", nil)
	}

	amount := defaultScrollAmount
	if t := strings.TrimSpace(action.Target); t != "" {
		n, err := strconv.Atoi(t)
		if err != nil || n <= 0 {
			return nil, NewValidationError("scroll amount must be a positive integer", err)
		}
		amount = n
	}

	if err := h.backend.Scroll(ctx, direction, amount); err != nil {
		return nil, NewEnvironmentError("scroll failed", err)
	}

	return map[string]any{
		"action":    "scroll",
		"direction": direction,
		"amount":    amount,
	}, nil
}

// executeScript runs JavaScript on the page and echoes a truncated result.
func (h *handlerSet) executeScript(ctx context.Context, action Action) (map[string]any, error) {
	script := action.Target
	if strings.TrimSpace(script) == "" {
		script = action.Value
	}
	if strings.TrimSpace(script) == "" {
		return nil, NewValidationError("execute_script requires script code", nil)
	}

	result, err := h.backend.EvaluateScript(ctx, script)
	if err != nil {
		return nil, NewEnvironmentError("script evaluation failed", err)
	}

	truncated := false
	if len(result) > scriptResultLimit {
		result = result[:scriptResultLimit]
		truncated = true
	}

	return map[string]any{
		"action":    "execute_script",
		"result":    result,
		"truncated": truncated,
	}, nil
}
