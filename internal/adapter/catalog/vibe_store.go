package catalog

import (
	"fmt"
	"strings"

	"vibeshop/internal/adapter/store"
	"vibeshop/internal/domain"
	"vibeshop/internal/port"
)

// VibeStore persists generated vibe records and mirrors their tag text into
// the vibe vector collection. A product without a vibe record is a normal
// condition, reported as domain.ErrNotFound.
type VibeStore struct {
	records  *store.BoltStore
	vectors  port.VectorIndex
	embedder port.Embedder
}

func NewVibeStore(records *store.BoltStore, vectors port.VectorIndex, embedder port.Embedder) *VibeStore {
	return &VibeStore{
		records:  records,
		vectors:  vectors,
		embedder: embedder,
	}
}

func (s *VibeStore) Upsert(v domain.ProductVibe) error {
	if err := s.records.PutVibe(v); err != nil {
		return fmt.Errorf("failed to store vibe for %s: %w", v.ProductID, err)
	}

	embeddings, err := s.embedder.Embed([]string{v.Document()})
	if err != nil {
		return fmt.Errorf("failed to embed vibe for %s: %w", v.ProductID, err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("embedder returned no vector for vibe %s", v.ProductID)
	}

	return s.vectors.Upsert(CollectionVibes, []port.VectorItem{{
		ID:     v.ProductID,
		Vector: embeddings[0],
		Metadata: map[string]string{
			"tags":   strings.Join(v.VibeTags, ","),
			"method": string(v.GenerationMethod),
		},
	}})
}

func (s *VibeStore) Get(productID string) (domain.ProductVibe, error) {
	return s.records.GetVibe(productID)
}

func (s *VibeStore) Exists(productID string) (bool, error) {
	return s.records.VibeExists(productID)
}

// SearchSimilar returns the top-k vibe records for a free-text query,
// similarity computed as 1 - cosine distance, unclamped.
func (s *VibeStore) SearchSimilar(query string, k int) ([]port.ScoredVibe, error) {
	embeddings, err := s.embedder.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	hits, err := s.vectors.Query(CollectionVibes, embeddings[0], k)
	if err != nil {
		return nil, err
	}

	results := make([]port.ScoredVibe, 0, len(hits))
	for _, hit := range hits {
		v, err := s.records.GetVibe(hit.ID)
		if err != nil {
			continue
		}
		results = append(results, port.ScoredVibe{
			Vibe:       v,
			Similarity: 1 - hit.Distance,
		})
	}
	return results, nil
}
