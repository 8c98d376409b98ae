// Package eventbus provides the in-memory publish/subscribe service used to
// decouple the aggregate's recorded events from their side effects. The bus
// is constructed explicitly and injected wherever it is needed; it holds no
// package-level state.
package eventbus

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/riskops/backend/domain"
)

// Handler consumes a published domain event. A handler error is logged and
// never aborts the remaining handlers or the publishing call.
type Handler func(ctx context.Context, event domain.Event) error

type subscription struct {
	name     string
	priority int
	handler  Handler
}

// Bus dispatches domain events to subscribers sequentially: type-specific
// handlers first, in descending priority order, then wildcard handlers.
type Bus struct {
	mu       sync.RWMutex
	byType   map[string][]subscription
	wildcard []subscription
	logger   *zap.Logger
}

// New creates an empty bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		byType: make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for one event type. Higher priority runs
// first; equal priorities keep registration order.
func (b *Bus) Subscribe(eventType, name string, priority int, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := append(b.byType[eventType], subscription{name: name, priority: priority, handler: handler})
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].priority > subs[j].priority })
	b.byType[eventType] = subs
}

// SubscribeAll registers a handler invoked for every event type, after the
// type-specific handlers.
func (b *Bus) SubscribeAll(name string, priority int, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, subscription{name: name, priority: priority, handler: handler})
	sort.SliceStable(b.wildcard, func(i, j int) bool { return b.wildcard[i].priority > b.wildcard[j].priority })
}

// Publish dispatches one event to all matching handlers. Handler failures are
// logged and dispatch continues.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	subs := append(append([]subscription(nil), b.byType[event.EventType]...), b.wildcard...)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("handler", sub.name),
				zap.String("event_type", event.EventType),
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}
}

// PublishAll dispatches events one at a time in slice order, each fully
// drained before the next begins.
func (b *Bus) PublishAll(ctx context.Context, events []domain.Event) {
	for _, event := range events {
		b.Publish(ctx, event)
	}
}

// Clear removes every subscription. Intended for tests.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType = make(map[string][]subscription)
	b.wildcard = nil
}
