package port

import "vibeshop/internal/domain"

// OrderStore persists orders and the by-customer index.
type OrderStore interface {
	// PutOrder inserts or replaces an order by id.
	PutOrder(o domain.Order) error

	// GetOrder returns an order by id, or domain.ErrNotFound.
	GetOrder(orderID string) (domain.Order, error)

	// OrdersByCustomer returns orders for a customer email, newest first.
	OrdersByCustomer(email string) ([]domain.Order, error)
}

// StockStore persists per-product stock records.
type StockStore interface {
	// PutStock inserts or replaces the stock record for a product.
	PutStock(s domain.Stock) error

	// GetStock returns the stock record for a product, or domain.ErrNotFound.
	GetStock(productID string) (domain.Stock, error)
}
