package catalog

import (
	"fmt"

	"vibeshop/internal/adapter/store"
	"vibeshop/internal/domain"
	"vibeshop/internal/port"
)

// Vector collection names. Products and vibes are independent namespaces of
// the same index.
const (
	CollectionProducts = "products"
	CollectionVibes    = "vibes"
)

// ProductStore persists canonical products in bbolt and mirrors their
// attribute text into the product vector collection.
type ProductStore struct {
	records  *store.BoltStore
	vectors  port.VectorIndex
	embedder port.Embedder
}

func NewProductStore(records *store.BoltStore, vectors port.VectorIndex, embedder port.Embedder) *ProductStore {
	return &ProductStore{
		records:  records,
		vectors:  vectors,
		embedder: embedder,
	}
}

// Upsert writes the record and re-embeds the searchable document text. When
// the descriptive content is unchanged and a vector already exists, the
// record is rewritten (price and URL updates must persist) but the embedding
// call is skipped.
func (s *ProductStore) Upsert(p domain.Product) error {
	skipEmbed := false
	if existing, err := s.records.GetProduct(p.ProductID); err == nil && existing.ContentHash() == p.ContentHash() {
		if ok, err := s.vectors.Has(CollectionProducts, p.ProductID); err == nil && ok {
			skipEmbed = true
		}
	}

	if err := s.records.PutProduct(p); err != nil {
		return fmt.Errorf("failed to store product %s: %w", p.ProductID, err)
	}
	if skipEmbed {
		return nil
	}

	embeddings, err := s.embedder.Embed([]string{p.Document()})
	if err != nil {
		return fmt.Errorf("failed to embed product %s: %w", p.ProductID, err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("embedder returned no vector for product %s", p.ProductID)
	}

	return s.vectors.Upsert(CollectionProducts, []port.VectorItem{{
		ID:     p.ProductID,
		Vector: embeddings[0],
		Metadata: map[string]string{
			"name": p.Name,
			"type": p.Type,
		},
	}})
}

func (s *ProductStore) Get(productID string) (domain.Product, error) {
	return s.records.GetProduct(productID)
}

func (s *ProductStore) Exists(productID string) (bool, error) {
	return s.records.ProductExists(productID)
}

func (s *ProductStore) List() ([]domain.Product, error) {
	return s.records.ListProducts()
}

// ContentHash returns the stored product's content hash for change detection.
func (s *ProductStore) ContentHash(productID string) (string, error) {
	p, err := s.records.GetProduct(productID)
	if err != nil {
		return "", err
	}
	return p.ContentHash(), nil
}

// SearchSimilar returns the top-k products for a free-text query. Similarity
// is 1 - cosine distance and is deliberately not clamped; a negative value
// means "very dissimilar".
func (s *ProductStore) SearchSimilar(query string, k int) ([]port.ScoredProduct, error) {
	embeddings, err := s.embedder.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	hits, err := s.vectors.Query(CollectionProducts, embeddings[0], k)
	if err != nil {
		return nil, err
	}

	results := make([]port.ScoredProduct, 0, len(hits))
	for _, hit := range hits {
		p, err := s.records.GetProduct(hit.ID)
		if err != nil {
			continue // stale vector without a record
		}
		results = append(results, port.ScoredProduct{
			Product:    p,
			Similarity: 1 - hit.Distance,
		})
	}
	return results, nil
}
