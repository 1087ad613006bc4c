package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (r *recordingSubscriber) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingSubscriber) received() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func TestReceiptStatusEvent(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	id := uuid.New()
	msg := "Receipt processing failed: boom"
	e := ReceiptStatus(id, "failed", 3, 1, &msg)

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["type"] != TypeReceiptStatus {
		t.Errorf("type = %v", decoded["type"])
	}
	if decoded["timestamp"] != "2026-01-02T03:04:05Z" {
		t.Errorf("timestamp = %v", decoded["timestamp"])
	}
	if decoded["entity_id"] != id.String() {
		t.Errorf("entity_id = %v", decoded["entity_id"])
	}
	data := decoded["data"].(map[string]any)
	if data["receipt_id"] != id.String() || data["status"] != "failed" || data["error"] != msg {
		t.Errorf("unexpected data: %v", data)
	}
	if data["items_extracted"] != float64(3) || data["items_matched"] != float64(1) {
		t.Errorf("unexpected counts: %v", data)
	}
}

func TestInventoryUpdateEvent(t *testing.T) {
	id := uuid.New()
	e := InventoryUpdate(id, "consumed", decimal.RequireFromString("750.00"), "opened", "Valio Whole Milk 1L")

	if e.Data["current_quantity"] != "750" {
		t.Errorf("current_quantity = %v", e.Data["current_quantity"])
	}
	if e.Data["inventory_item_id"] != id.String() || e.Data["action"] != "consumed" || e.Data["status"] != "opened" {
		t.Errorf("unexpected data: %v", e.Data)
	}

	anonymous := InventoryUpdate(id, "deleted", decimal.Zero, "empty", "")
	if anonymous.Data["product_name"] != nil {
		t.Errorf("expected nil product_name, got %v", anonymous.Data["product_name"])
	}
}

// blockingSubscriber holds every Send until release is closed.
type blockingSubscriber struct {
	release chan struct{}
}

func (b *blockingSubscriber) Send(payload []byte) error {
	<-b.release
	return nil
}

func eventually(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}

func TestHub_BroadcastRemovesFailingSubscriber(t *testing.T) {
	hub := NewHub()
	good := &recordingSubscriber{}
	bad := &recordingSubscriber{err: errors.New("broken pipe")}

	hub.Subscribe(good)
	hub.Subscribe(bad)

	hub.Broadcast(ReceiptStatus(uuid.New(), "processing", 0, 0, nil))

	if !eventually(t, func() bool { return good.received() == 1 }) {
		t.Errorf("healthy subscriber got %d events", good.received())
	}
	if !eventually(t, func() bool { return hub.Count() == 1 }) {
		t.Errorf("expected failing subscriber removed, %d remain", hub.Count())
	}

	hub.Broadcast(ReceiptStatus(uuid.New(), "completed", 2, 2, nil))
	if !eventually(t, func() bool { return good.received() == 2 }) {
		t.Errorf("healthy subscriber got %d events", good.received())
	}
}

func TestHub_SlowSubscriberDoesNotDelayOthers(t *testing.T) {
	hub := NewHub()
	slow := &blockingSubscriber{release: make(chan struct{})}
	defer close(slow.release)
	fast := &recordingSubscriber{}

	hub.Subscribe(slow)
	hub.Subscribe(fast)

	start := time.Now()
	for i := 0; i < 3; i++ {
		hub.Broadcast(ReceiptStatus(uuid.New(), "processing", 0, 0, nil))
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Broadcast waited on a blocked subscriber for %s", elapsed)
	}
	if !eventually(t, func() bool { return fast.received() == 3 }) {
		t.Errorf("fast subscriber got %d events while another was blocked", fast.received())
	}
	if hub.Count() != 2 {
		t.Errorf("count = %d, want 2", hub.Count())
	}
}

func TestHub_DropsSubscriberWithFullQueue(t *testing.T) {
	hub := NewHub()
	slow := &blockingSubscriber{release: make(chan struct{})}
	defer close(slow.release)
	fast := &recordingSubscriber{}

	hub.Subscribe(slow)
	hub.Subscribe(fast)

	total := subscriberBuffer + 2
	for i := 0; i < total; i++ {
		hub.Broadcast(ReceiptStatus(uuid.New(), "processing", 0, 0, nil))
		// keep the fast queue drained so only the blocked one overflows
		want := i + 1
		if !eventually(t, func() bool { return fast.received() == want }) {
			t.Fatalf("fast subscriber stuck at %d events", fast.received())
		}
	}

	if hub.Count() != 1 {
		t.Errorf("expected blocked subscriber dropped, %d remain", hub.Count())
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	s := &recordingSubscriber{}
	id := hub.Subscribe(s)
	hub.Unsubscribe(id)
	hub.Unsubscribe(id)

	hub.Broadcast(ReceiptStatus(uuid.New(), "processing", 0, 0, nil))
	time.Sleep(20 * time.Millisecond)
	if s.received() != 0 {
		t.Errorf("unsubscribed subscriber received %d events", s.received())
	}
}

func TestBroker_DeliversQueuedEvents(t *testing.T) {
	hub := NewHub()
	s := &recordingSubscriber{}
	hub.Subscribe(s)

	broker := NewBroker(hub, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx) }()

	for i := 0; i < 3; i++ {
		broker.Publish(context.Background(), ReceiptStatus(uuid.New(), "processing", 0, 0, nil))
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.received() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.received() != 3 {
		t.Errorf("expected 3 events delivered, got %d", s.received())
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestBroker_PublishNeverBlocks(t *testing.T) {
	broker := NewBroker(NewHub(), 1)

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			broker.Publish(context.Background(), ReceiptStatus(uuid.New(), "processing", 0, 0, nil))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
