package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is seed data; the receipt pipeline only reads it.
type Category struct {
	ID                   string `gorm:"type:varchar(50);primary_key" json:"id"`
	DisplayName          string `gorm:"not null" json:"display_name"`
	Icon                 string `json:"icon,omitempty"`
	DefaultShelfLifeDays int    `gorm:"not null" json:"default_shelf_life_days"`
	SortOrder            int    `gorm:"not null;default:0" json:"sort_order"`
}

type Product struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	CanonicalName        string           `gorm:"not null;index" json:"canonical_name"`
	CategoryID           string           `gorm:"column:category;not null;index" json:"category"`
	StorageType          string           `gorm:"not null" json:"storage_type"` // refrigerator, freezer, pantry
	DefaultShelfLifeDays int              `gorm:"not null" json:"default_shelf_life_days"`
	OpenedShelfLifeDays  *int             `json:"opened_shelf_life_days"`
	UnitType             string           `gorm:"not null" json:"unit_type"`
	DefaultUnit          string           `gorm:"not null" json:"default_unit"`
	DefaultQuantity      *decimal.Decimal `gorm:"type:numeric(10,2)" json:"default_quantity"`
	OffProductID         *string          `gorm:"index" json:"off_product_id"`

	Category *Category `gorm:"foreignKey:CategoryID"`
	Timestamp
}

func (Product) TableName() string {
	return "product_master"
}
