package receipt

import (
	"context"
	"errors"

	"kyokki-backend/domain"
	"kyokki-backend/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	ReceiptRepository interface {
		CreateReceipt(ctx context.Context, receipt *entities.Receipt) error
		GetReceiptByID(ctx context.Context, id uuid.UUID) (*entities.Receipt, error)
		GetReceipts(ctx context.Context, filter domain.ReceiptFilter) ([]entities.Receipt, error)
		BeginProcessing(ctx context.Context, id uuid.UUID) error
		FinishProcessing(ctx context.Context, receipt *entities.Receipt) error
	}

	receiptRepository struct {
		db *gorm.DB
	}
)

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) CreateReceipt(ctx context.Context, receipt *entities.Receipt) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(receipt).Error
}

func (r *receiptRepository) GetReceiptByID(ctx context.Context, id uuid.UUID) (*entities.Receipt, error) {
	var receipt entities.Receipt
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&receipt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) GetReceipts(ctx context.Context, filter domain.ReceiptFilter) ([]entities.Receipt, error) {
	query := r.db.WithContext(ctx)
	if filter.Status != "" {
		query = query.Where("processing_status = ?", filter.Status)
	}
	if filter.StoreChain != "" {
		query = query.Where("store_chain = ?", filter.StoreChain)
	}

	var receipts []entities.Receipt
	if err := query.Order("created_at DESC").Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// processableStatuses are the states a processing run may start from.
var processableStatuses = []string{domain.ReceiptStatusUploaded, domain.ReceiptStatusFailed}

// BeginProcessing moves the receipt to processing only when it is uploaded or
// failed, so two runs never overlap and a confirmed receipt is never reopened.
func (r *receiptRepository) BeginProcessing(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&entities.Receipt{}).
		Where("id = ? AND processing_status IN ?", id, processableStatuses).
		Update("processing_status", domain.ReceiptStatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.stateConflict(ctx, id)
	}
	return nil
}

// FinishProcessing writes the pipeline columns and the final status. Columns
// owned by upload (image_path, purchase_date, batch_id) are left alone.
func (r *receiptRepository) FinishProcessing(ctx context.Context, receipt *entities.Receipt) error {
	res := r.db.WithContext(ctx).
		Model(&entities.Receipt{}).
		Where("id = ? AND processing_status = ?", receipt.ID, domain.ReceiptStatusProcessing).
		Updates(processingColumns(receipt))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.stateConflict(ctx, receipt.ID)
	}
	return nil
}

func processingColumns(receipt *entities.Receipt) map[string]any {
	return map[string]any{
		"processing_status": receipt.ProcessingStatus,
		"ocr_raw_text":      receipt.OcrRawText,
		"ocr_structured":    receipt.OcrStructured,
		"items_extracted":   receipt.ItemsExtracted,
		"items_matched":     receipt.ItemsMatched,
		"store_chain":       receipt.StoreChain,
	}
}

func (r *receiptRepository) stateConflict(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Receipt{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrReceiptNotFound
	}
	return domain.ErrInvalidReceiptState
}
