package engine

import (
	"context"
	"sort"
)

// HandlerFunc executes a single action against the environment and returns
// the structured data the action produced. Handlers report problems through
// the returned error only; they never touch shared engine state.
type HandlerFunc func(ctx context.Context, action Action) (map[string]any, error)

// Registry is the closed mapping from capability tags to handlers. It is
// populated once at construction and never mutated afterwards, so concurrent
// lookups need no locking.
type Registry struct {
	handlers map[ActionType]HandlerFunc
}

// NewRegistry builds the registry covering every supported capability tag,
// binding each handler to the given backend. Durations for the wait
// capability are slept through the given sleeper so tests can observe them.
func NewRegistry(backend Backend, sleeper Sleeper) *Registry {
	h := &handlerSet{backend: backend, sleeper: sleeper}
	return &Registry{
		handlers: map[ActionType]HandlerFunc{
			ActionNavigate:      h.navigate,
			ActionClick:         h.click,
			ActionInputText:     h.inputText,
			ActionExtractData:   h.extractData,
			ActionWait:          h.wait,
			ActionScroll:        h.scroll,
			ActionExecuteScript: h.executeScript,
		},
	}
}

// Resolve returns the handler for the given tag, or ErrUnknownAction wrapped
// in a validation error when the tag is outside the registry.
func (r *Registry) Resolve(t ActionType) (HandlerFunc, error) {
	fn, ok := r.handlers[t]
	if !ok {
		return nil, &EngineError{
			Class:      ErrorClassValidation,
			Message:    "unknown action type: " + string(t),
			ActionType: t,
			Step:       -1,
			Err:        ErrUnknownAction,
		}
	}
	return fn, nil
}

// Tags returns the supported capability tags in stable order.
func (r *Registry) Tags() []ActionType {
	tags := make([]ActionType, 0, len(r.handlers))
	for t := range r.handlers {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
