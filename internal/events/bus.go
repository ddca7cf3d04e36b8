// internal/events/bus.go
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus fans vault events out to subscribers. Delivery is asynchronous but
// strictly ordered: one dispatch goroutine drains the queue in publish order,
// so a vault's hedge.requested is always seen before the matching
// hedge.confirmed and a policy.epoch_updated before the policy.updated of the
// same tick. Delivery is best-effort: when the queue is full Publish drops
// the event instead of stalling a state transition.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler

	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	queue  chan Event
}

// NewBus starts a bus with a bounded queue of bufferSize events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers: make(map[EventType]map[string]Handler),
		logger:   logger.Named("event_bus"),
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan Event, bufferSize),
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Subscribe registers a handler for one event type and returns its
// subscription handle.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	id := uuid.New().String()
	b.handlers[eventType][id] = handler

	b.logger.Debug("Subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, bus: b, typ: eventType}
}

// SubscribeFunc registers a plain function as a handler.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(ctx context.Context, event Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues an event for in-order delivery. It never blocks: a full
// queue drops the event with a warning that names the vault it concerned.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is shut down")
	default:
	}

	select {
	case b.queue <- event:
		return nil
	default:
		vaultID, slot := event.Origin()
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())),
			zap.String("vault", vaultID.String()),
			zap.Uint64("slot", slot))
		return fmt.Errorf("event queue full")
	}
}

// dispatch drains the queue sequentially. On shutdown it delivers whatever
// was already queued before returning.
func (b *Bus) dispatch() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			for {
				select {
				case event := <-b.queue:
					b.deliver(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.queue:
			b.deliver(b.ctx, event)
		}
	}
}

// deliver invokes every handler subscribed to the event's type. Handler
// errors are logged with the event's vault identity, never propagated back
// into the vault state machine.
func (b *Bus) deliver(ctx context.Context, event Event) {
	b.mu.RLock()
	subs := make([]Handler, 0, len(b.handlers[event.Type()]))
	for _, h := range b.handlers[event.Type()] {
		subs = append(subs, h)
	}
	b.mu.RUnlock()

	for _, h := range subs {
		if err := h.Handle(ctx, event); err != nil {
			vaultID, slot := event.Origin()
			b.logger.Error("Event handler failed",
				zap.String("event_type", string(event.Type())),
				zap.String("vault", vaultID.String()),
				zap.Uint64("slot", slot),
				zap.Error(err))
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.handlers[eventType]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

// Shutdown stops intake and waits for the dispatcher to drain, or for ctx.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus shutdown timed out: %w", ctx.Err())
	}
}
