package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shoplink/backend/internal/domain/shared"
	"github.com/shoplink/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// InMemoryEventBus implements EventBus with in-memory pub/sub. Between Start
// and Stop, published events are queued on a buffered channel and dispatched
// by a small worker pool, so sync passes never wait on event handlers. Before
// Start, after Stop, or when the queue is full, events are dispatched inline
// on the publisher's goroutine instead of being dropped.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	queue    chan shared.DomainEvent
	workers  int
	running  atomic.Bool
	mu       sync.RWMutex // guards enqueue against Stop closing the queue
	wg       sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(cfg config.EventConfig, logger *zap.Logger) *InMemoryEventBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
		queue:    make(chan shared.DomainEvent, cfg.BufferSize),
		workers:  cfg.Workers,
	}
}

// Publish hands events to the worker pool. Errors from individual handlers
// are logged, never returned; a publisher cannot fail because a subscriber did.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if !b.enqueue(event) {
			b.dispatch(ctx, event)
		}
	}
	return nil
}

func (b *InMemoryEventBus) enqueue(event shared.DomainEvent) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.running.Load() {
		return false
	}
	select {
	case b.queue <- event:
		return true
	default:
		b.logger.Warn("event queue full, dispatching inline",
			zap.String("event_type", event.EventType()),
		)
		return false
	}
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start launches the dispatch workers
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	b.logger.Info("event bus started",
		zap.Int("workers", b.workers),
		zap.Int("buffer_size", cap(b.queue)),
	)
	return nil
}

func (b *InMemoryEventBus) work() {
	defer b.wg.Done()
	// Workers outlive any single request, so dispatch is not tied to a
	// publisher's context
	for event := range b.queue {
		b.dispatch(context.Background(), event)
	}
}

// Stop drains the queue and waits for the workers. The bus cannot be
// restarted; publishing after Stop falls back to inline dispatch.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	b.mu.Lock()
	close(b.queue)
	b.mu.Unlock()
	b.wg.Wait()
	b.logger.Info("event bus stopped")
	return nil
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			// Log error but continue with other handlers
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
