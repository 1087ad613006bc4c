package events

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

// Publisher accepts events without blocking the caller. Delivery is best
// effort: a lost event is logged, never returned as an error.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Broker queues published events and feeds them to a Hub from a single
// goroutine started with Run.
type Broker struct {
	queue chan Event
	hub   *Hub
}

func NewBroker(hub *Hub, bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Broker{queue: make(chan Event, bufferSize), hub: hub}
}

func (b *Broker) Publish(ctx context.Context, e Event) {
	select {
	case b.queue <- e:
	default:
		log.Warnw("event queue full, dropping event", "type", e.Type, "entity_id", e.EntityID)
	}
}

// Run delivers queued events until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) error {
	log.Infow("event broker started", "buffer", cap(b.queue))
	for {
		select {
		case <-ctx.Done():
			log.Infow("event broker stopped")
			return nil
		case e := <-b.queue:
			b.hub.Broadcast(e)
		}
	}
}
