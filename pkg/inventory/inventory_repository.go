package inventory

import (
	"context"
	"errors"
	"time"

	"kyokki-backend/domain"
	"kyokki-backend/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	InventoryRepository interface {
		CreateItem(ctx context.Context, item *entities.InventoryItem) error
		CreateItemsForReceipt(ctx context.Context, receiptID uuid.UUID, items []*entities.InventoryItem) error
		GetItemByID(ctx context.Context, id uuid.UUID) (*entities.InventoryItem, error)
		ListItems(ctx context.Context, filter domain.InventoryFilter, today time.Time) ([]entities.InventoryItem, error)
		SaveConsumption(ctx context.Context, item *entities.InventoryItem, previousQuantity decimal.Decimal, entry *entities.ConsumptionLog) error
		UpdateItem(ctx context.Context, id uuid.UUID, changes map[string]any) error
		DeleteItem(ctx context.Context, id uuid.UUID) error
	}

	inventoryRepository struct {
		db *gorm.DB
	}
)

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) CreateItem(ctx context.Context, item *entities.InventoryItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// CreateItemsForReceipt inserts all items and marks the receipt confirmed in
// one transaction.
func (r *inventoryRepository) CreateItemsForReceipt(ctx context.Context, receiptID uuid.UUID, items []*entities.InventoryItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return err
		}
		res := tx.Model(&entities.Receipt{}).
			Where("id = ?", receiptID).
			Update("processing_status", domain.ReceiptStatusConfirmed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrReceiptNotFound
		}
		return nil
	})
}

func (r *inventoryRepository) GetItemByID(ctx context.Context, id uuid.UUID) (*entities.InventoryItem, error) {
	var item entities.InventoryItem
	if err := r.db.WithContext(ctx).Preload("Product").Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInventoryItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) ListItems(ctx context.Context, filter domain.InventoryFilter, today time.Time) ([]entities.InventoryItem, error) {
	query := r.db.WithContext(ctx).Preload("Product")

	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ExpiringDays != nil {
		query = query.Where("expiry_date <= ?", today.AddDate(0, 0, *filter.ExpiringDays))
	}

	var items []entities.InventoryItem
	if err := query.Order("expiry_date ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SaveConsumption writes the new quantity and status only if the stored
// quantity still equals previousQuantity, and appends the log entry in the
// same transaction.
func (r *inventoryRepository) SaveConsumption(ctx context.Context, item *entities.InventoryItem, previousQuantity decimal.Decimal, entry *entities.ConsumptionLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.InventoryItem{}).
			Where("id = ? AND current_quantity = ?", item.ID, previousQuantity).
			Updates(map[string]interface{}{
				"current_quantity": item.CurrentQuantity,
				"status":           item.Status,
				"opened_date":      item.OpenedDate,
				"consumed_at":      item.ConsumedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConcurrentUpdate
		}
		return tx.Omit(clause.Associations).Create(entry).Error
	})
}

// UpdateItem writes only the given columns so a concurrent consumption keeps
// its quantity and status.
func (r *inventoryRepository) UpdateItem(ctx context.Context, id uuid.UUID, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&entities.InventoryItem{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInventoryItemNotFound
	}
	return nil
}

func (r *inventoryRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inventory_item_id = ?", id).Delete(&entities.ConsumptionLog{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entities.InventoryItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInventoryItemNotFound
		}
		return nil
	})
}
