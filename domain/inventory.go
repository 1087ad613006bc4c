package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	InventoryStatusSealed    = "sealed"
	InventoryStatusOpened    = "opened"
	InventoryStatusPartial   = "partial"
	InventoryStatusEmpty     = "empty"
	InventoryStatusDiscarded = "discarded"

	ExpirySourceScanned    = "scanned"
	ExpirySourceCalculated = "calculated"
	ExpirySourceManual     = "manual"

	LocationMainFridge = "main_fridge"
	LocationFreezer    = "freezer"
	LocationPantry     = "pantry"

	ConsumptionActionPartial = "use_partial"
	ConsumptionActionFull    = "use_full"

	InventoryActionCreated  = "created"
	InventoryActionUpdated  = "updated"
	InventoryActionConsumed = "consumed"
	InventoryActionDeleted  = "deleted"
)

// PartialThreshold is the remaining/initial ratio below which an opened item counts as partial.
var PartialThreshold = decimal.NewFromFloat(0.75)

var (
	MessageSuccessGetInventory     = "inventory retrieved successfully"
	MessageSuccessGetInventoryItem = "inventory item retrieved successfully"
	MessageSuccessCreateInventory  = "inventory item created successfully"
	MessageSuccessUpdateInventory  = "inventory item updated successfully"
	MessageSuccessDeleteInventory  = "inventory item deleted successfully"
	MessageSuccessConsume          = "inventory item consumed"

	MessageFailedGetInventory     = "failed to retrieve inventory"
	MessageFailedGetInventoryItem = "failed to retrieve inventory item"
	MessageFailedCreateInventory  = "failed to create inventory item"
	MessageFailedUpdateInventory  = "failed to update inventory item"
	MessageFailedDeleteInventory  = "failed to delete inventory item"
	MessageFailedConsume          = "failed to consume inventory item"

	ErrInventoryItemNotFound = errors.New("inventory item not found")
	ErrInsufficientQuantity  = errors.New("insufficient quantity")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrConcurrentUpdate      = errors.New("inventory item was modified concurrently")
)

type (
	InventoryFilter struct {
		Location     string
		Status       string
		ExpiringDays *int
	}

	ConsumeRequest struct {
		Quantity decimal.Decimal `json:"quantity"`
	}

	// CreateInventoryItemRequest adds stock by hand. Without an expiry date
	// the product's shelf life decides it.
	CreateInventoryItemRequest struct {
		ProductID    string          `json:"product_master_id" validate:"required,uuid"`
		Quantity     decimal.Decimal `json:"quantity"`
		Unit         string          `json:"unit" validate:"required,max=20"`
		PurchaseDate string          `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
		ExpiryDate   string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
		Location     string          `json:"location" validate:"omitempty,oneof=main_fridge freezer pantry"`
		Notes        *string         `json:"notes" validate:"omitempty,max=1000"`
	}

	UpdateInventoryItemRequest struct {
		Location   *string `json:"location" validate:"omitempty,oneof=main_fridge freezer pantry"`
		Notes      *string `json:"notes" validate:"omitempty,max=1000"`
		ExpiryDate *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
		// only "discarded" can be set by hand; other statuses follow consumption
		Status     *string `json:"status" validate:"omitempty,oneof=discarded"`
	}

	InventoryItemResponse struct {
		ID              string          `json:"id"`
		ProductMasterID string          `json:"product_master_id"`
		ProductName     string          `json:"product_name,omitempty"`
		ReceiptID       *string         `json:"receipt_id"`
		InitialQuantity decimal.Decimal `json:"initial_quantity"`
		CurrentQuantity decimal.Decimal `json:"current_quantity"`
		Unit            string          `json:"unit"`
		Status          string          `json:"status"`
		PurchaseDate    *string         `json:"purchase_date"`
		ExpiryDate      string          `json:"expiry_date"`
		ExpirySource    string          `json:"expiry_source"`
		OpenedDate      *string         `json:"opened_date"`
		Location        string          `json:"location"`
		Notes           *string         `json:"notes"`
		CreatedAt       time.Time       `json:"created_at"`
		ConsumedAt      *time.Time      `json:"consumed_at"`
	}
)
