package events

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// subscriberBuffer is how many events may wait for one subscriber before it
// is considered too slow and disconnected.
const subscriberBuffer = 32

// Subscriber is one live connection receiving serialized events.
type Subscriber interface {
	Send(payload []byte) error
}

type subscription struct {
	subscriber Subscriber
	queue      chan []byte
}

// Hub fans events out to every connected subscriber. Each subscriber has its
// own queue and writer goroutine so a slow connection only delays itself.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]*subscription
}

func NewHub() *Hub {
	return &Hub{subscriptions: make(map[uuid.UUID]*subscription)}
}

func (h *Hub) Subscribe(s Subscriber) uuid.UUID {
	id := uuid.New()
	sub := &subscription{subscriber: s, queue: make(chan []byte, subscriberBuffer)}

	h.mu.Lock()
	h.subscriptions[id] = sub
	total := len(h.subscriptions)
	h.mu.Unlock()

	go h.write(id, sub)
	log.Infow("subscriber connected", "subscriber_id", id.String(), "total", total)
	return id
}

func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	sub, ok := h.subscriptions[id]
	if ok {
		delete(h.subscriptions, id)
		close(sub.queue)
	}
	total := len(h.subscriptions)
	h.mu.Unlock()

	if ok {
		log.Infow("subscriber disconnected", "subscriber_id", id.String(), "total", total)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// Broadcast queues e for all subscribers without waiting on any of them.
// A subscriber whose queue is full is disconnected.
func (h *Hub) Broadcast(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Errorw("failed to serialize event", "type", e.Type, "error", err)
		return
	}

	var slow []uuid.UUID
	h.mu.RLock()
	for id, sub := range h.subscriptions {
		select {
		case sub.queue <- payload:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		log.Warnw("dropping slow subscriber", "subscriber_id", id.String(), "queued", subscriberBuffer)
		h.Unsubscribe(id)
	}
}

// write drains one subscriber's queue until it is closed. After a failed send
// the subscriber is removed and the rest of its queue discarded.
func (h *Hub) write(id uuid.UUID, sub *subscription) {
	failed := false
	for payload := range sub.queue {
		if failed {
			continue
		}
		if err := sub.subscriber.Send(payload); err != nil {
			log.Warnw("dropping subscriber after send failure", "subscriber_id", id.String(), "error", err)
			failed = true
			h.Unsubscribe(id)
		}
	}
}
