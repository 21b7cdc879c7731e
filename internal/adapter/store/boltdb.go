package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
	"vibeshop/internal/domain"
)

var (
	bucketProducts       = []byte("products")
	bucketVibes          = []byte("vibes")
	bucketOrders         = []byte("orders")
	bucketCustomerOrders = []byte("customer_orders")
	bucketStock          = []byte("stock")
	bucketMeta           = []byte("meta")
)

// BoltStore is the single source of truth for products, vibes, orders and
// stock. The vector index is a derived, rebuildable secondary structure on
// top of the same database file.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketProducts, bucketVibes, bucketOrders, bucketCustomerOrders, bucketStock, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// touchLastUpdated bumps the monotonic marker for a collection inside tx.
func touchLastUpdated(tx *bbolt.Tx, collection string) error {
	stamp, err := time.Now().UTC().MarshalText()
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMeta).Put([]byte("last_updated:"+collection), stamp)
}

// LastUpdated returns the last-updated marker for a collection, or the zero
// time when the collection was never written.
func (s *BoltStore) LastUpdated(collection string) (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte("last_updated:" + collection))
		if data == nil {
			return nil
		}
		return t.UnmarshalText(data)
	})
	return t, err
}

func (s *BoltStore) PutProduct(p domain.Product) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketProducts).Put([]byte(p.ProductID), data); err != nil {
			return err
		}
		return touchLastUpdated(tx, "products")
	})
}

func (s *BoltStore) GetProduct(id string) (domain.Product, error) {
	var p domain.Product
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketProducts).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &p)
	})
	return p, err
}

func (s *BoltStore) ProductExists(id string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketProducts).Get([]byte(id)) != nil
		return nil
	})
	return exists, err
}

func (s *BoltStore) ListProducts() ([]domain.Product, error) {
	var products []domain.Product
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProducts).ForEach(func(k, v []byte) error {
			var p domain.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	})
	return products, err
}

func (s *BoltStore) PutVibe(v domain.ProductVibe) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketVibes).Put([]byte(v.ProductID), data); err != nil {
			return err
		}
		return touchLastUpdated(tx, "vibes")
	})
}

func (s *BoltStore) GetVibe(productID string) (domain.ProductVibe, error) {
	var v domain.ProductVibe
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketVibes).Get([]byte(productID))
		if data == nil {
			return fmt.Errorf("vibe for product %s: %w", productID, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &v)
	})
	return v, err
}

func (s *BoltStore) VibeExists(productID string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketVibes).Get([]byte(productID)) != nil
		return nil
	})
	return exists, err
}

func (s *BoltStore) PutOrder(o domain.Order) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(o)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketOrders).Put([]byte(o.OrderID), data); err != nil {
			return err
		}

		// Maintain the by-customer index in the same transaction.
		idx := tx.Bucket(bucketCustomerOrders)
		var orderIDs []string
		if existing := idx.Get([]byte(o.CustomerEmail)); existing != nil {
			if err := json.Unmarshal(existing, &orderIDs); err != nil {
				return err
			}
		}
		found := false
		for _, id := range orderIDs {
			if id == o.OrderID {
				found = true
				break
			}
		}
		if !found {
			orderIDs = append(orderIDs, o.OrderID)
			idxData, err := json.Marshal(orderIDs)
			if err != nil {
				return err
			}
			if err := idx.Put([]byte(o.CustomerEmail), idxData); err != nil {
				return err
			}
		}

		return touchLastUpdated(tx, "orders")
	})
}

func (s *BoltStore) GetOrder(orderID string) (domain.Order, error) {
	var o domain.Order
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketOrders).Get([]byte(orderID))
		if data == nil {
			return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &o)
	})
	return o, err
}

func (s *BoltStore) OrdersByCustomer(email string) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCustomerOrders).Get([]byte(email))
		if data == nil {
			return nil
		}
		var orderIDs []string
		if err := json.Unmarshal(data, &orderIDs); err != nil {
			return err
		}
		orderBucket := tx.Bucket(bucketOrders)
		for _, id := range orderIDs {
			raw := orderBucket.Get([]byte(id))
			if raw == nil {
				continue
			}
			var o domain.Order
			if err := json.Unmarshal(raw, &o); err != nil {
				continue
			}
			orders = append(orders, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *BoltStore) PutStock(st domain.Stock) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketStock).Put([]byte(st.ProductID), data); err != nil {
			return err
		}
		return touchLastUpdated(tx, "stock")
	})
}

func (s *BoltStore) GetStock(productID string) (domain.Stock, error) {
	var st domain.Stock
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStock).Get([]byte(productID))
		if data == nil {
			return fmt.Errorf("stock for product %s: %w", productID, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &st)
	})
	return st, err
}
