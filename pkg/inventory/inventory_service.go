package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kyokki-backend/domain"
	"kyokki-backend/entities"
	"kyokki-backend/pkg/events"
	"kyokki-backend/pkg/product"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	InventoryService interface {
		CreateItem(ctx context.Context, req domain.CreateInventoryItemRequest) (domain.InventoryItemResponse, error)
		ConfirmReceipt(ctx context.Context, receipt *entities.Receipt, items []domain.ConfirmItemRequest) (int, error)
		Consume(ctx context.Context, id string, quantity decimal.Decimal) (domain.InventoryItemResponse, error)
		GetItems(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItemResponse, error)
		GetItemByID(ctx context.Context, id string) (domain.InventoryItemResponse, error)
		UpdateItem(ctx context.Context, id string, req domain.UpdateInventoryItemRequest) (domain.InventoryItemResponse, error)
		DeleteItem(ctx context.Context, id string) error
	}

	inventoryService struct {
		inventoryRepository InventoryRepository
		productRepository   product.ProductRepository
		publisher           events.Publisher
		now                 func() time.Time
	}
)

func NewInventoryService(inventoryRepository InventoryRepository, productRepository product.ProductRepository, publisher events.Publisher) InventoryService {
	return &inventoryService{
		inventoryRepository: inventoryRepository,
		productRepository:   productRepository,
		publisher:           publisher,
		now:                 time.Now,
	}
}

func (s *inventoryService) CreateItem(ctx context.Context, req domain.CreateInventoryItemRequest) (domain.InventoryItemResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return domain.InventoryItemResponse{}, domain.ErrParseUUID
	}
	if !req.Quantity.IsPositive() {
		return domain.InventoryItemResponse{}, domain.ErrInvalidQuantity
	}

	p, err := s.productRepository.GetProductByID(ctx, productID)
	if err != nil {
		return domain.InventoryItemResponse{}, err
	}

	purchase := dateOf(s.now())
	if req.PurchaseDate != "" {
		if purchase, err = time.Parse(domain.DateLayout, req.PurchaseDate); err != nil {
			return domain.InventoryItemResponse{}, domain.ErrInvalidDate
		}
	}

	expiry := ExpiryDate(purchase, p.DefaultShelfLifeDays)
	source := domain.ExpirySourceCalculated
	if req.ExpiryDate != "" {
		if expiry, err = time.Parse(domain.DateLayout, req.ExpiryDate); err != nil {
			return domain.InventoryItemResponse{}, domain.ErrInvalidDate
		}
		source = domain.ExpirySourceManual
	}

	location := req.Location
	if location == "" {
		location = domain.LocationMainFridge
	}

	item := &entities.InventoryItem{
		ID:              uuid.New(),
		ProductMasterID: p.ID,
		InitialQuantity: req.Quantity,
		CurrentQuantity: req.Quantity,
		Unit:            req.Unit,
		Status:          domain.InventoryStatusSealed,
		PurchaseDate:    &purchase,
		ExpiryDate:      expiry,
		ExpirySource:    source,
		Location:        location,
		Notes:           req.Notes,
		Product:         p,
	}
	if err := s.inventoryRepository.CreateItem(ctx, item); err != nil {
		return domain.InventoryItemResponse{}, err
	}

	log.Infow("inventory item created", "inventory_item_id", item.ID.String(), "product_id", p.ID.String())
	s.publish(ctx, item, domain.InventoryActionCreated)
	return toResponse(item), nil
}

// ConfirmReceipt turns approved line items into sealed inventory. Every
// product is resolved before anything is written, and the rows plus the
// receipt status change commit together.
func (s *inventoryService) ConfirmReceipt(ctx context.Context, receipt *entities.Receipt, items []domain.ConfirmItemRequest) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	today := dateOf(s.now())
	created := make([]*entities.InventoryItem, 0, len(items))
	names := make(map[uuid.UUID]string, len(items))

	for i, req := range items {
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			return 0, domain.ErrParseUUID
		}
		if !req.Quantity.IsPositive() {
			return 0, domain.ErrInvalidQuantity
		}

		p, err := s.productRepository.GetProductByID(ctx, productID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return 0, fmt.Errorf("item %d: %w: %s", i, domain.ErrProductNotFound, productID)
			}
			return 0, err
		}
		names[p.ID] = p.CanonicalName

		purchase := today
		switch {
		case req.PurchaseDate != "":
			purchase, err = time.Parse(domain.DateLayout, req.PurchaseDate)
			if err != nil {
				return 0, domain.ErrInvalidDate
			}
		case receipt.PurchaseDate != nil:
			purchase = dateOf(*receipt.PurchaseDate)
		}

		location := req.Location
		if location == "" {
			location = domain.LocationMainFridge
		}

		receiptID := receipt.ID
		purchaseDate := purchase
		created = append(created, &entities.InventoryItem{
			ID:              uuid.New(),
			ProductMasterID: p.ID,
			ReceiptID:       &receiptID,
			InitialQuantity: req.Quantity,
			CurrentQuantity: req.Quantity,
			Unit:            req.Unit,
			Status:          domain.InventoryStatusSealed,
			PurchaseDate:    &purchaseDate,
			ExpiryDate:      ExpiryDate(purchase, p.DefaultShelfLifeDays),
			ExpirySource:    domain.ExpirySourceCalculated,
			Location:        location,
		})
	}

	if err := s.inventoryRepository.CreateItemsForReceipt(ctx, receipt.ID, created); err != nil {
		return 0, err
	}

	for _, item := range created {
		s.publisher.Publish(ctx, events.InventoryUpdate(item.ID, domain.InventoryActionCreated, item.CurrentQuantity, item.Status, names[item.ProductMasterID]))
	}
	log.Infow("inventory created from receipt", "receipt_id", receipt.ID.String(), "items_created", len(created))
	return len(created), nil
}

func (s *inventoryService) Consume(ctx context.Context, id string, quantity decimal.Decimal) (domain.InventoryItemResponse, error) {
	item, err := s.getItem(ctx, id)
	if err != nil {
		return domain.InventoryItemResponse{}, err
	}

	previous := item.CurrentQuantity
	now := s.now()
	action, err := Consume(item, quantity, now)
	if err != nil {
		return domain.InventoryItemResponse{}, err
	}

	entry := &entities.ConsumptionLog{
		ID:               uuid.New(),
		InventoryItemID:  item.ID,
		ProductMasterID:  item.ProductMasterID,
		Action:           action,
		QuantityConsumed: quantity,
		LoggedAt:         now,
	}
	if err := s.inventoryRepository.SaveConsumption(ctx, item, previous, entry); err != nil {
		return domain.InventoryItemResponse{}, err
	}

	log.Infow("inventory consumed",
		"inventory_item_id", item.ID.String(),
		"quantity", quantity.String(),
		"remaining", item.CurrentQuantity.String(),
		"status", item.Status,
	)
	s.publish(ctx, item, domain.InventoryActionConsumed)
	return toResponse(item), nil
}

func (s *inventoryService) GetItems(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItemResponse, error) {
	items, err := s.inventoryRepository.ListItems(ctx, filter, dateOf(s.now()))
	if err != nil {
		return nil, err
	}

	res := make([]domain.InventoryItemResponse, 0, len(items))
	for i := range items {
		res = append(res, toResponse(&items[i]))
	}
	return res, nil
}

func (s *inventoryService) GetItemByID(ctx context.Context, id string) (domain.InventoryItemResponse, error) {
	item, err := s.getItem(ctx, id)
	if err != nil {
		return domain.InventoryItemResponse{}, err
	}
	return toResponse(item), nil
}

// UpdateItem applies the user-editable fields and leaves quantity and
// consumption state to Consume.
func (s *inventoryService) UpdateItem(ctx context.Context, id string, req domain.UpdateInventoryItemRequest) (domain.InventoryItemResponse, error) {
	item, err := s.getItem(ctx, id)
	if err != nil {
		return domain.InventoryItemResponse{}, err
	}

	changes, err := updateColumns(req)
	if err != nil {
		return domain.InventoryItemResponse{}, err
	}
	if err := s.inventoryRepository.UpdateItem(ctx, item.ID, changes); err != nil {
		return domain.InventoryItemResponse{}, err
	}

	updated, err := s.inventoryRepository.GetItemByID(ctx, item.ID)
	if err != nil {
		return domain.InventoryItemResponse{}, err
	}
	s.publish(ctx, updated, domain.InventoryActionUpdated)
	return toResponse(updated), nil
}

func updateColumns(req domain.UpdateInventoryItemRequest) (map[string]any, error) {
	changes := make(map[string]any)
	if req.Location != nil {
		changes["location"] = *req.Location
	}
	if req.Notes != nil {
		changes["notes"] = *req.Notes
	}
	if req.ExpiryDate != nil {
		expiry, err := time.Parse(domain.DateLayout, *req.ExpiryDate)
		if err != nil {
			return nil, domain.ErrInvalidDate
		}
		changes["expiry_date"] = expiry
		changes["expiry_source"] = domain.ExpirySourceManual
	}
	if req.Status != nil {
		changes["status"] = *req.Status
	}
	return changes, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, id string) error {
	item, err := s.getItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.inventoryRepository.DeleteItem(ctx, item.ID); err != nil {
		return err
	}

	s.publish(ctx, item, domain.InventoryActionDeleted)
	return nil
}

func (s *inventoryService) getItem(ctx context.Context, id string) (*entities.InventoryItem, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrParseUUID
	}
	return s.inventoryRepository.GetItemByID(ctx, itemID)
}

func (s *inventoryService) publish(ctx context.Context, item *entities.InventoryItem, action string) {
	name := ""
	if item.Product != nil {
		name = item.Product.CanonicalName
	}
	s.publisher.Publish(ctx, events.InventoryUpdate(item.ID, action, item.CurrentQuantity, item.Status, name))
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateLayout)
	return &s
}

func toResponse(item *entities.InventoryItem) domain.InventoryItemResponse {
	res := domain.InventoryItemResponse{
		ID:              item.ID.String(),
		ProductMasterID: item.ProductMasterID.String(),
		InitialQuantity: item.InitialQuantity,
		CurrentQuantity: item.CurrentQuantity,
		Unit:            item.Unit,
		Status:          item.Status,
		PurchaseDate:    formatDate(item.PurchaseDate),
		ExpiryDate:      item.ExpiryDate.Format(domain.DateLayout),
		ExpirySource:    item.ExpirySource,
		OpenedDate:      formatDate(item.OpenedDate),
		Location:        item.Location,
		Notes:           item.Notes,
		CreatedAt:       item.CreatedAt,
		ConsumedAt:      item.ConsumedAt,
	}
	if item.ReceiptID != nil {
		rid := item.ReceiptID.String()
		res.ReceiptID = &rid
	}
	if item.Product != nil {
		res.ProductName = item.Product.CanonicalName
	}
	return res
}
