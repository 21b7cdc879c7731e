package port

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex stores and searches embedding vectors across independent named
// collections. Product and vibe embeddings live in separate collections of
// the same index.
type VectorIndex interface {
	// Upsert adds or replaces vectors in a collection.
	Upsert(collection string, items []VectorItem) error

	// Query returns the k nearest vectors in a collection, closest first.
	Query(collection string, vector []float32, k int) ([]VectorHit, error)

	// Delete removes vectors from a collection by id.
	Delete(collection string, ids []string) error

	// Has reports whether a collection holds a vector for id.
	Has(collection, id string) (bool, error)

	// Count returns the number of vectors in a collection.
	Count(collection string) (int, error)
}

// VectorItem is a vector to be stored.
type VectorItem struct {
	ID       string            // Record id (product id for both collections)
	Vector   []float32         // Embedding vector
	Metadata map[string]string // Optional metadata
}

// VectorHit is one query result. Distance is cosine distance
// (1 - cosine similarity), so it lies in [0, 2] and smaller is closer.
type VectorHit struct {
	ID       string
	Distance float64
	Metadata map[string]string
}
