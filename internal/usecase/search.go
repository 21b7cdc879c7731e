package usecase

import (
	"errors"
	"sort"

	"go.uber.org/zap"
	"vibeshop/internal/domain"
	"vibeshop/internal/port"
)

// HybridSearch ranks products for a free-text query by combining attribute
// similarity with vibe similarity. Vibe matches are weighted higher: queries
// like "romantic dinner" describe a mood, not literal product fields.
type HybridSearch struct {
	products        port.ProductStore
	vibes           port.VibeStore
	productWeight   float64
	vibeWeight      float64
	candidateFactor int
	logger          *zap.Logger
}

func NewHybridSearch(
	products port.ProductStore,
	vibes port.VibeStore,
	productWeight, vibeWeight float64,
	candidateFactor int,
	logger *zap.Logger,
) *HybridSearch {
	if productWeight <= 0 && vibeWeight <= 0 {
		productWeight, vibeWeight = 0.4, 0.6
	}
	if candidateFactor < 1 {
		candidateFactor = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridSearch{
		products:        products,
		vibes:           vibes,
		productWeight:   productWeight,
		vibeWeight:      vibeWeight,
		candidateFactor: candidateFactor,
		logger:          logger,
	}
}

type mergedHit struct {
	product     domain.Product
	vibe        *domain.ProductVibe
	productSim  float64
	vibeSim     float64
	productRank int // rank in the product candidate list; large when absent
}

// Search returns the top-n products for the query. Each collection is
// queried for candidateFactor*n candidates so the two candidate sets can
// disagree without starving the merged list. A product present in only one
// set keeps 0 for the missing similarity term.
func (s *HybridSearch) Search(query string, n int) ([]domain.SearchResult, error) {
	if n <= 0 {
		return nil, nil
	}
	poolK := n * s.candidateFactor

	productHits, err := s.products.SearchSimilar(query, poolK)
	if err != nil {
		return nil, err
	}

	// A missing or failing vibe collection degrades ranking, never the query.
	vibeHits, err := s.vibes.SearchSimilar(query, poolK)
	if err != nil {
		s.logger.Warn("vibe search failed, ranking on product similarity only", zap.Error(err))
		vibeHits = nil
	}

	const unranked = 1 << 30

	merged := make(map[string]*mergedHit, len(productHits)+len(vibeHits))
	order := make([]string, 0, len(productHits)+len(vibeHits))

	for rank, hit := range productHits {
		id := hit.Product.ProductID
		merged[id] = &mergedHit{
			product:     hit.Product,
			productSim:  hit.Similarity,
			productRank: rank,
		}
		order = append(order, id)
	}

	for _, hit := range vibeHits {
		id := hit.Vibe.ProductID
		if entry, ok := merged[id]; ok {
			entry.vibeSim = hit.Similarity
			v := hit.Vibe
			entry.vibe = &v
			continue
		}
		// Vibe-only hit: the product record must still exist to be shown.
		p, err := s.products.Get(id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			continue
		}
		v := hit.Vibe
		merged[id] = &mergedHit{
			product:     p,
			vibe:        &v,
			vibeSim:     hit.Similarity,
			productRank: unranked,
		}
		order = append(order, id)
	}

	type rankedResult struct {
		result domain.SearchResult
		rank   int
	}

	ranked := make([]rankedResult, 0, len(merged))
	for _, id := range order {
		entry := merged[id]

		// Attach vibe metadata to product-only hits when a record exists.
		if entry.vibe == nil {
			if v, err := s.vibes.Get(id); err == nil {
				entry.vibe = &v
			}
		}

		r := domain.SearchResult{
			ProductID:         entry.product.ProductID,
			ProductName:       entry.product.Name,
			ProductType:       entry.product.Type,
			PriceMin:          entry.product.PriceMin,
			PriceMax:          entry.product.PriceMax,
			Currency:          entry.product.Currency,
			ProductSimilarity: entry.productSim,
			VibeSimilarity:    entry.vibeSim,
			CombinedScore:     s.productWeight*entry.productSim + s.vibeWeight*entry.vibeSim,
		}
		if entry.vibe != nil {
			r.VibeTags = entry.vibe.VibeTags
			r.MoodSummary = entry.vibe.MoodSummary
		}
		ranked = append(ranked, rankedResult{result: r, rank: entry.productRank})
	}

	// Highest combined score first; ties keep the product-store ordering.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].result.CombinedScore != ranked[j].result.CombinedScore {
			return ranked[i].result.CombinedScore > ranked[j].result.CombinedScore
		}
		return ranked[i].rank < ranked[j].rank
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	results := make([]domain.SearchResult, len(ranked))
	for i, rr := range ranked {
		results[i] = rr.result
	}
	return results, nil
}
