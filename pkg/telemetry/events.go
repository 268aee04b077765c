package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event engine.Event)

// EventFilter determines if an event should be delivered.
type EventFilter func(event engine.Event) bool

// EventBus fans engine events out to subscribers, optionally through an
// async buffer. It satisfies the engine EventPublisher interface. A disabled
// bus is a safe no-op.
type EventBus struct {
	config      EventsConfig
	buffer      chan engine.Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventBus creates a new event bus with the given configuration.
func NewEventBus(cfg EventsConfig) *EventBus {
	if !cfg.Enabled {
		return &EventBus{config: cfg}
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		config: cfg,
		buffer: make(chan engine.Event, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		eb.wg.Add(1)
		go eb.processEvents()
	}
	return eb
}

// Publish delivers an event to all subscribers. With async delivery enabled
// a full buffer drops the event and reports an error rather than blocking
// the execution path.
func (eb *EventBus) Publish(ctx context.Context, event engine.Event) error {
	if !eb.config.Enabled {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	for _, filter := range eb.filters {
		if !filter(event) {
			eb.mu.RUnlock()
			return nil
		}
	}
	eb.mu.RUnlock()

	if eb.config.EnableAsync {
		select {
		case eb.buffer <- event:
			return nil
		case <-eb.ctx.Done():
			return fmt.Errorf("event bus stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	eb.deliverEvent(event)
	return nil
}

// Subscribe registers a subscriber with an optional filter.
func (eb *EventBus) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global filter applied before delivery.
func (eb *EventBus) AddFilter(filter EventFilter) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.filters = append(eb.filters, filter)
}

// processEvents drains the buffer until shutdown.
func (eb *EventBus) processEvents() {
	defer eb.wg.Done()
	for {
		select {
		case event := <-eb.buffer:
			eb.deliverEvent(event)
		case <-eb.ctx.Done():
			for {
				select {
				case event := <-eb.buffer:
					eb.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent sends one event to every matching subscriber.
func (eb *EventBus) deliverEvent(event engine.Event) {
	eb.mu.RLock()
	subscribers := make([]subscriberEntry, len(eb.subscribers))
	copy(subscribers, eb.subscribers)
	eb.mu.RUnlock()

	for _, entry := range subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops async delivery after draining buffered events.
func (eb *EventBus) Shutdown(ctx context.Context) error {
	if !eb.config.Enabled || eb.cancel == nil {
		return nil
	}
	eb.cancel()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FilterBySeverity passes only events at or above the given severity.
func FilterBySeverity(minSeverity string) EventFilter {
	rank := map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}
	min, ok := rank[minSeverity]
	if !ok {
		min = 0
	}
	return func(event engine.Event) bool {
		return rank[event.Severity] >= min
	}
}

// FilterByType passes only events of the given types.
func FilterByType(types ...engine.EventType) EventFilter {
	set := make(map[engine.EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return func(event engine.Event) bool {
		return set[event.Type]
	}
}

// FilterByExecutionID passes only events for one execution.
func FilterByExecutionID(executionID string) EventFilter {
	return func(event engine.Event) bool {
		return event.ExecutionID == executionID
	}
}

// LogSubscriber returns a subscriber that writes events to the logger at
// their own severity.
func LogSubscriber(logger *Logger) EventSubscriber {
	return func(event engine.Event) {
		l := logger.WithExecutionID(event.ExecutionID)
		if event.Step >= 0 {
			l = l.WithStep(event.Step)
		}
		if event.ActionType != "" {
			l = l.WithActionType(string(event.ActionType))
		}
		msg := fmt.Sprintf("%s: %s", event.Type, event.Message)
		switch event.Severity {
		case "debug":
			l.Debug(msg)
		case "warn":
			l.Warn(msg)
		case "error":
			l.Error(msg)
		default:
			l.Info(msg)
		}
	}
}
