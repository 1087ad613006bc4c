package product

import (
	"context"
	"errors"

	"kyokki-backend/domain"
	"kyokki-backend/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	// ProductRepository is a read-only view of the product catalog.
	ProductRepository interface {
		GetProductByID(ctx context.Context, id uuid.UUID) (*entities.Product, error)
		GetProductByBarcode(ctx context.Context, barcode string) (*entities.Product, error)
		ListProducts(ctx context.Context) ([]entities.Product, error)
	}

	productRepository struct {
		db *gorm.DB
	}
)

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	var product entities.Product
	if err := r.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProductByBarcode looks a product up by its Open Food Facts code.
func (r *productRepository) GetProductByBarcode(ctx context.Context, barcode string) (*entities.Product, error) {
	var product entities.Product
	if err := r.db.WithContext(ctx).Preload("Category").Where("off_product_id = ?", barcode).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]entities.Product, error) {
	var products []entities.Product
	if err := r.db.WithContext(ctx).Order("canonical_name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
