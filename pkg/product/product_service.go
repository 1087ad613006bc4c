package product

import (
	"context"

	"kyokki-backend/domain"
	"kyokki-backend/entities"
	"kyokki-backend/pkg/matching"
)

type (
	// RankedMatcher returns several candidate products for one name.
	RankedMatcher interface {
		MatchTopN(ctx context.Context, name string, limit int, minScore float64) ([]matching.Result, error)
	}

	ProductService interface {
		MatchProducts(ctx context.Context, req domain.MatchProductsRequest) ([]domain.ProductMatch, error)
		GetProductByBarcode(ctx context.Context, barcode string) (domain.ProductSummary, error)
	}

	productService struct {
		productRepository ProductRepository
		matcher           RankedMatcher
	}
)

func NewProductService(productRepository ProductRepository, matcher RankedMatcher) ProductService {
	return &productService{
		productRepository: productRepository,
		matcher:           matcher,
	}
}

func (s *productService) MatchProducts(ctx context.Context, req domain.MatchProductsRequest) ([]domain.ProductMatch, error) {
	limit := req.Limit
	if limit == 0 {
		limit = domain.DefaultMatchLimit
	}
	minScore := req.MinScore
	if minScore == 0 {
		minScore = domain.DefaultMatchMinScore
	}

	results, err := s.matcher.MatchTopN(ctx, req.Name, limit, minScore)
	if err != nil {
		return nil, err
	}

	res := make([]domain.ProductMatch, 0, len(results))
	for i := range results {
		res = append(res, domain.ProductMatch{
			Product:    toSummary(&results[i].Product),
			Score:      results[i].Score,
			Confidence: results[i].Confidence,
		})
	}
	return res, nil
}

func (s *productService) GetProductByBarcode(ctx context.Context, barcode string) (domain.ProductSummary, error) {
	p, err := s.productRepository.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.ProductSummary{}, err
	}
	return toSummary(p), nil
}

func toSummary(p *entities.Product) domain.ProductSummary {
	return domain.ProductSummary{
		ID:                   p.ID.String(),
		CanonicalName:        p.CanonicalName,
		Category:             p.CategoryID,
		DefaultShelfLifeDays: p.DefaultShelfLifeDays,
	}
}
