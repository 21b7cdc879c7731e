package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"
	"vibeshop/internal/port"
)

// BoltVectorIndex implements port.VectorIndex using BoltDB for persistence,
// with one bucket per named collection. Uses brute-force cosine search;
// catalogs are small enough that an ANN structure is not warranted.
type BoltVectorIndex struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	// In-memory cache per collection for fast search
	collections map[string]map[string]vectorEntry
}

type vectorEntry struct {
	vector   []float32
	metadata map[string]string
}

type storedVector struct {
	Vector   []float32         `json:"v"`
	Metadata map[string]string `json:"m,omitempty"`
}

func collectionBucket(collection string) []byte {
	return []byte("vectors_" + collection)
}

// NewBoltVectorIndex creates a vector index over the given database. Existing
// collections are loaded into memory.
func NewBoltVectorIndex(db *bbolt.DB, dimension int, collections ...string) (*BoltVectorIndex, error) {
	idx := &BoltVectorIndex{
		db:          db,
		dimension:   dimension,
		collections: make(map[string]map[string]vectorEntry),
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		for _, c := range collections {
			if _, err := tx.CreateBucketIfNotExists(collectionBucket(c)); err != nil {
				return err
			}
			idx.collections[c] = make(map[string]vectorEntry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vector buckets: %w", err)
	}

	if err := idx.loadVectors(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return idx, nil
}

// loadVectors loads all vectors of every known collection into memory.
func (s *BoltVectorIndex) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		for name, cache := range s.collections {
			b := tx.Bucket(collectionBucket(name))
			if b == nil {
				continue
			}
			err := b.ForEach(func(k, v []byte) error {
				var stored storedVector
				if err := json.Unmarshal(v, &stored); err != nil {
					return nil // Skip corrupted entries
				}
				cache[string(k)] = vectorEntry{
					vector:   stored.Vector,
					metadata: stored.Metadata,
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltVectorIndex) cache(collection string) (map[string]vectorEntry, error) {
	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("unknown vector collection: %s", collection)
	}
	return c, nil
}

// Upsert adds or replaces vectors in a collection.
func (s *BoltVectorIndex) Upsert(collection string, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := s.cache(collection)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(collectionBucket(collection))
		if b == nil {
			return fmt.Errorf("bucket missing for collection %s", collection)
		}

		for _, item := range items {
			if len(item.Vector) != s.dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(item.Vector))
			}

			stored := storedVector{
				Vector:   item.Vector,
				Metadata: item.Metadata,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}

			cache[item.ID] = vectorEntry{
				vector:   item.Vector,
				metadata: item.Metadata,
			}
		}

		return nil
	})
}

// Query finds the k nearest vectors in a collection by cosine distance.
// Results are ordered closest first.
func (s *BoltVectorIndex) Query(collection string, query []float32, k int) ([]port.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cache, err := s.cache(collection)
	if err != nil {
		return nil, err
	}

	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	if len(cache) == 0 {
		return nil, nil
	}

	hits := make([]port.VectorHit, 0, len(cache))
	for id, entry := range cache {
		hits = append(hits, port.VectorHit{
			ID:       id,
			Distance: 1 - cosineSimilarity(query, entry.vector),
			Metadata: entry.metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Delete removes vectors from a collection by id.
func (s *BoltVectorIndex) Delete(collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := s.cache(collection)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(collectionBucket(collection))
		if b == nil {
			return nil
		}

		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(cache, id)
		}

		return nil
	})
}

// Has reports whether a collection holds a vector for id.
func (s *BoltVectorIndex) Has(collection, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cache, err := s.cache(collection)
	if err != nil {
		return false, err
	}
	_, ok := cache[id]
	return ok, nil
}

// Count returns the number of vectors in a collection.
func (s *BoltVectorIndex) Count(collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cache, err := s.cache(collection)
	if err != nil {
		return 0, err
	}
	return len(cache), nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
