package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kyokki-backend/domain"
	"kyokki-backend/entities"

	"github.com/gofiber/fiber/v2/log"
	gocache "github.com/patrickmn/go-cache"
)

const (
	ExactThreshold  = 100.0
	HighThreshold   = 75.0
	MediumThreshold = 60.0
	LowThreshold    = 50.0

	catalogKey = "catalog"
)

// Result is a catalog product paired with how well it matched.
type Result struct {
	Product    entities.Product
	Score      float64
	Confidence string
}

// CatalogSource supplies the full product catalog.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]entities.Product, error)
}

// Tier maps a 0..100 score to its confidence label.
func Tier(score float64) string {
	switch {
	case score >= ExactThreshold:
		return domain.ConfidenceExact
	case score >= HighThreshold:
		return domain.ConfidenceHigh
	case score >= MediumThreshold:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// Matcher resolves free-text product names against a cached catalog snapshot.
type Matcher struct {
	source CatalogSource
	scorer Scorer
	cache  *gocache.Cache
}

// NewMatcher builds a matcher whose catalog snapshot lives for ttl. A zero ttl
// reloads the catalog on every call. A nil scorer means WRatio.
func NewMatcher(source CatalogSource, ttl time.Duration, scorer Scorer) *Matcher {
	if scorer == nil {
		scorer = WRatio
	}
	var c *gocache.Cache
	if ttl > 0 {
		c = gocache.New(ttl, 2*ttl)
	}
	return &Matcher{source: source, scorer: scorer, cache: c}
}

func (m *Matcher) catalog(ctx context.Context) ([]entities.Product, error) {
	if m.cache != nil {
		if cached, ok := m.cache.Get(catalogKey); ok {
			return cached.([]entities.Product), nil
		}
	}

	products, err := m.source.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if m.cache != nil {
		m.cache.Set(catalogKey, products, gocache.DefaultExpiration)
	}
	return products, nil
}

// Invalidate drops the cached catalog so the next match reloads it.
func (m *Matcher) Invalidate() {
	if m.cache != nil {
		m.cache.Delete(catalogKey)
	}
}

// Match returns the best product scoring at least minScore, or nil.
func (m *Matcher) Match(ctx context.Context, name string, minScore float64) (*Result, error) {
	query := Normalize(name)
	if query == "" {
		log.Debugw("empty product name")
		return nil, nil
	}

	products, err := m.catalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		log.Debugw("product catalog is empty")
		return nil, nil
	}

	for _, p := range products {
		if Normalize(p.CanonicalName) == query {
			log.Infow("exact product match", "name", name, "product", p.CanonicalName)
			return &Result{Product: p, Score: ExactThreshold, Confidence: domain.ConfidenceExact}, nil
		}
	}

	var best *Result
	for i := range products {
		score := m.scorer(query, Normalize(products[i].CanonicalName))
		if score < minScore {
			continue
		}
		if best == nil || score > best.Score {
			best = &Result{Product: products[i], Score: score}
		}
	}
	if best == nil {
		log.Debugw("no product match", "name", name, "min_score", minScore)
		return nil, nil
	}

	best.Confidence = Tier(best.Score)
	log.Infow("fuzzy product match",
		"name", name,
		"product", best.Product.CanonicalName,
		"score", fmt.Sprintf("%.1f", best.Score),
		"confidence", best.Confidence,
	)
	return best, nil
}

// MatchTopN returns up to limit products scoring at least minScore, best first.
func (m *Matcher) MatchTopN(ctx context.Context, name string, limit int, minScore float64) ([]Result, error) {
	query := Normalize(name)
	if query == "" || limit <= 0 {
		return []Result{}, nil
	}

	products, err := m.catalog(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(products))
	for _, p := range products {
		candidate := Normalize(p.CanonicalName)
		score := ExactThreshold
		if candidate != query {
			score = m.scorer(query, candidate)
		}
		if score < minScore {
			continue
		}
		results = append(results, Result{Product: p, Score: score, Confidence: Tier(score)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	log.Infow("ranked product matches", "name", name, "found", len(results), "limit", limit, "min_score", minScore)
	return results, nil
}
