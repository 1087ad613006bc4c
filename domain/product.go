package domain

import "errors"

const (
	ConfidenceExact  = "exact"
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"

	DefaultMatchLimit    = 5
	DefaultMatchMinScore = 50.0
)

var (
	MessageSuccessMatchProducts = "product matches retrieved successfully"
	MessageFailedMatchProducts  = "failed to match products"
	MessageSuccessGetProduct    = "product retrieved successfully"
	MessageFailedGetProduct     = "failed to retrieve product"

	ErrProductNotFound = errors.New("product not found")
)

type (
	MatchProductsRequest struct {
		Name     string  `query:"name" validate:"required,max=200"`
		Limit    int     `query:"limit" validate:"omitempty,min=1,max=50"`
		MinScore float64 `query:"min_score" validate:"omitempty,min=0,max=100"`
	}

	ProductSummary struct {
		ID                   string `json:"id"`
		CanonicalName        string `json:"canonical_name"`
		Category             string `json:"category"`
		DefaultShelfLifeDays int    `json:"default_shelf_life_days"`
	}

	ProductMatch struct {
		Product    ProductSummary `json:"product"`
		Score      float64        `json:"score"`
		Confidence string         `json:"confidence"`
	}
)
