package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InventoryItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	ProductMasterID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_master_id"`
	ReceiptID       *uuid.UUID      `gorm:"type:uuid;index" json:"receipt_id"`
	InitialQuantity decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"initial_quantity"`
	CurrentQuantity decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"current_quantity"`
	Unit            string          `gorm:"not null" json:"unit"`
	Status          string          `gorm:"not null;default:sealed;index" json:"status"` // sealed, opened, partial, empty, discarded
	PurchaseDate    *time.Time      `gorm:"type:date" json:"purchase_date"`
	ExpiryDate      time.Time       `gorm:"type:date;not null;index" json:"expiry_date"`
	ExpirySource    string          `gorm:"not null;default:calculated" json:"expiry_source"` // scanned, calculated, manual
	OpenedDate      *time.Time      `gorm:"type:date" json:"opened_date"`
	Location        string          `gorm:"not null;default:main_fridge" json:"location"`
	Notes           *string         `gorm:"type:text" json:"notes"`
	ConsumedAt      *time.Time      `json:"consumed_at"`

	Product *Product `gorm:"foreignKey:ProductMasterID"`
	Receipt *Receipt `gorm:"foreignKey:ReceiptID"`
	Timestamp
}
