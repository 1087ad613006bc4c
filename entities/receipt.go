package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Receipt struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	StoreChain       *string        `gorm:"index" json:"store_chain"`
	PurchaseDate     *time.Time     `gorm:"type:date" json:"purchase_date"`
	ImagePath        string         `gorm:"not null" json:"image_path"`
	OcrRawText       *string        `gorm:"type:text" json:"ocr_raw_text"`
	OcrStructured    datatypes.JSON `gorm:"type:jsonb" json:"ocr_structured"`
	ProcessingStatus string         `gorm:"not null;default:uploaded;index" json:"processing_status"`
	BatchID          *uuid.UUID     `gorm:"type:uuid;index" json:"batch_id"`
	ItemsExtracted   int            `gorm:"not null;default:0" json:"items_extracted"`
	ItemsMatched     int            `gorm:"not null;default:0" json:"items_matched"`

	InventoryItems []*InventoryItem `gorm:"foreignKey:ReceiptID"`
	Timestamp
}
