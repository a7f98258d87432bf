package eventing

import (
	"context"
	"log"
	"sync"

	"zepp-bridge/internal/ingest/events"
)

// PayloadReceivedHandler consumes stored-payload events.
type PayloadReceivedHandler func(ctx context.Context, event events.PayloadReceived) error

// Bus is a lightweight in-process event bus. Fan-out is synchronous and
// at-most-once: a failing subscriber is logged and does not block the others,
// and never surfaces to the webhook sender.
type Bus struct {
	logger *log.Logger

	mu       sync.RWMutex
	handlers []namedHandler
}

type namedHandler struct {
	name    string
	handler PayloadReceivedHandler
}

// NewBus constructs a bus.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{logger: logger}
}

// SubscribePayloadReceived registers a named consumer.
func (b *Bus) SubscribePayloadReceived(name string, handler PayloadReceivedHandler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, namedHandler{name: name, handler: handler})
}

// PublishPayloadReceived delivers the event to every subscriber.
func (b *Bus) PublishPayloadReceived(ctx context.Context, event events.PayloadReceived) {
	b.mu.RLock()
	handlers := append([]namedHandler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, sub := range handlers {
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Printf("event consumer %s error: %v", sub.name, err)
		}
	}
}
