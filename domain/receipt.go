package domain

import (
	"errors"
	"mime/multipart"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReceiptStatusUploaded   = "uploaded"
	ReceiptStatusProcessing = "processing"
	ReceiptStatusCompleted  = "completed"
	ReceiptStatusFailed     = "failed"
	ReceiptStatusConfirmed  = "confirmed"
)

var (
	MessageSuccessUploadReceipt  = "receipt uploaded successfully"
	MessageSuccessGetReceipt     = "receipt retrieved successfully"
	MessageSuccessGetReceipts    = "receipts retrieved successfully"
	MessageSuccessProcessReceipt = "receipt processed"
	MessageSuccessConfirmReceipt = "receipt confirmed"

	MessageFailedUploadReceipt  = "failed to upload receipt"
	MessageFailedGetReceipt     = "failed to retrieve receipt"
	MessageFailedGetReceipts    = "failed to retrieve receipts"
	MessageFailedProcessReceipt = "failed to process receipt"
	MessageFailedConfirmReceipt = "failed to confirm receipt"

	ErrReceiptNotFound        = errors.New("receipt not found")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrReceiptFileMissing     = errors.New("receipt file is required")
	ErrInvalidReceiptState    = errors.New("receipt cannot be processed in its current state")
)

// AllowedReceiptContentTypes lists the upload content types accepted by POST /receipts/scan.
var AllowedReceiptContentTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/webp",
	"application/pdf",
}

type (
	UploadReceiptRequest struct {
		File         *multipart.FileHeader `form:"file" validate:"required"`
		StoreChain   string                `form:"store_chain" validate:"omitempty,max=100"`
		PurchaseDate string                `form:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
		BatchID      string                `form:"batch_id" validate:"omitempty,uuid"`
	}

	ReceiptFilter struct {
		Status     string
		StoreChain string
	}

	ReceiptResponse struct {
		ID               string         `json:"id"`
		StoreChain       *string        `json:"store_chain"`
		PurchaseDate     *string        `json:"purchase_date"`
		ImagePath        string         `json:"image_path"`
		BatchID          *string        `json:"batch_id"`
		OcrRawText       *string        `json:"ocr_raw_text"`
		OcrStructured    map[string]any `json:"ocr_structured"`
		ProcessingStatus string         `json:"processing_status"`
		ItemsExtracted   int            `json:"items_extracted"`
		ItemsMatched     int            `json:"items_matched"`
		CreatedAt        time.Time      `json:"created_at"`
	}

	ProductMatchResponse struct {
		Name          string  `json:"name"`
		ProductID     string  `json:"product_id"`
		CanonicalName string  `json:"canonical_name"`
		Score         float64 `json:"score"`
		Confidence    string  `json:"confidence"`
	}

	ProcessReceiptResponse struct {
		Success        bool                   `json:"success"`
		ItemsExtracted int                    `json:"items_extracted"`
		ItemsMatched   int                    `json:"items_matched"`
		Error          *string                `json:"error"`
		Matches        []ProductMatchResponse `json:"matches"`
	}

	ConfirmItemRequest struct {
		ProductID    string          `json:"product_id" validate:"required,uuid"`
		Quantity     decimal.Decimal `json:"quantity"`
		Unit         string          `json:"unit" validate:"required,max=20"`
		PurchaseDate string          `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
		Location     string          `json:"location" validate:"omitempty,oneof=main_fridge freezer pantry"`
	}

	ConfirmReceiptRequest struct {
		Items []ConfirmItemRequest `json:"items" validate:"dive"`
	}

	ConfirmReceiptResponse struct {
		Success      bool    `json:"success"`
		ItemsCreated int     `json:"items_created"`
		Error        *string `json:"error"`
	}
)
