package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ConsumptionLog struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	InventoryItemID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"inventory_item_id"`
	ProductMasterID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_master_id"`
	Action           string          `gorm:"not null;index" json:"action"` // use_partial, use_full
	QuantityConsumed decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"quantity_consumed"`
	LoggedAt         time.Time       `gorm:"not null;index" json:"logged_at"`

	InventoryItem *InventoryItem `gorm:"foreignKey:InventoryItemID"`
}
