package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeReceiptStatus   = "receipt_status"
	TypeInventoryUpdate = "inventory_update"
)

// Event is the message pushed to live clients. Data values are JSON-safe:
// ids, decimals and timestamps are already strings.
type Event struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	EntityID  string         `json:"entity_id"`
	Data      map[string]any `json:"data"`
}

var now = time.Now

func newEvent(eventType string, entityID uuid.UUID, data map[string]any) Event {
	return Event{
		Type:      eventType,
		Timestamp: now().UTC().Format(time.RFC3339Nano),
		EntityID:  entityID.String(),
		Data:      data,
	}
}

func ReceiptStatus(receiptID uuid.UUID, status string, itemsExtracted, itemsMatched int, errMsg *string) Event {
	var e any
	if errMsg != nil {
		e = *errMsg
	}
	return newEvent(TypeReceiptStatus, receiptID, map[string]any{
		"receipt_id":      receiptID.String(),
		"status":          status,
		"items_extracted": itemsExtracted,
		"items_matched":   itemsMatched,
		"error":           e,
	})
}

func InventoryUpdate(itemID uuid.UUID, action string, currentQuantity decimal.Decimal, status, productName string) Event {
	var name any
	if productName != "" {
		name = productName
	}
	return newEvent(TypeInventoryUpdate, itemID, map[string]any{
		"inventory_item_id": itemID.String(),
		"action":            action,
		"current_quantity":  currentQuantity.String(),
		"status":            status,
		"product_name":      name,
	})
}
