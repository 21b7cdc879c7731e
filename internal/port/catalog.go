package port

import "vibeshop/internal/domain"

// ScoredProduct is a product hit from similarity search. Similarity is
// 1 - distance and may be negative for very dissimilar vectors; callers treat
// negative values as "very dissimilar" rather than clamping them.
type ScoredProduct struct {
	Product    domain.Product
	Similarity float64
}

// ScoredVibe is a vibe hit from similarity search.
type ScoredVibe struct {
	Vibe       domain.ProductVibe
	Similarity float64
}

// ProductStore is durable storage for canonical products plus a vector index
// over their attribute text.
type ProductStore interface {
	// Upsert inserts or replaces a product by id.
	Upsert(p domain.Product) error

	// Get returns a product by id, or domain.ErrNotFound.
	Get(productID string) (domain.Product, error)

	// Exists reports whether a product id is known.
	Exists(productID string) (bool, error)

	// ContentHash returns the stored content hash for change detection, or
	// domain.ErrNotFound for an unseen id.
	ContentHash(productID string) (string, error)

	// List returns every stored product.
	List() ([]domain.Product, error)

	// SearchSimilar returns the top-k products by attribute-text similarity.
	SearchSimilar(query string, k int) ([]ScoredProduct, error)
}

// VibeStore is durable storage for generated vibe records plus a vector index
// over their tag text. Lookups for products without vibes return
// domain.ErrNotFound rather than failing.
type VibeStore interface {
	Upsert(v domain.ProductVibe) error

	Get(productID string) (domain.ProductVibe, error)

	Exists(productID string) (bool, error)

	SearchSimilar(query string, k int) ([]ScoredVibe, error)
}
