package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"vibeshop/internal/domain"
	"vibeshop/internal/port"
)

// keyedLocks serializes stock mutations per product id. Multi-product
// operations lock the sorted, deduplicated id set so two orders touching the
// same products in different order cannot deadlock. This protects in-process
// callers only; cross-process safety would need compare-and-swap in the
// substrate.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lockAll(ids []string) func() {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for id := range unique {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		k.mu.Lock()
		m, ok := k.locks[id]
		if !ok {
			m = &sync.Mutex{}
			k.locks[id] = m
		}
		k.mu.Unlock()
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// OrderManager owns the order lifecycle and per-variant stock counts. All
// mutations go through it; rejections carry user-facing reasons while faults
// wrap the underlying error.
type OrderManager struct {
	orders port.OrderStore
	stock  port.StockStore
	locks  *keyedLocks
	logger *zap.Logger
}

func NewOrderManager(orders port.OrderStore, stock port.StockStore, logger *zap.Logger) *OrderManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderManager{
		orders: orders,
		stock:  stock,
		locks:  newKeyedLocks(),
		logger: logger,
	}
}

// CreateOrderInput carries the fields a caller controls. Subtotals and the
// order total are always recomputed, never taken from input.
type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	Items           []domain.OrderItem
	Currency        string
	ShippingAddress string
	Notes           string
}

// OrderUpdates are the independently updatable fields of ModifyOrder. Nil
// means "leave unchanged". Only Items interacts with stock.
type OrderUpdates struct {
	Items           *[]domain.OrderItem
	ShippingAddress *string
	Notes           *string
	Status          *domain.OrderStatus
}

// generateOrderID builds a date-prefixed globally unique order id.
func generateOrderID(at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), uuid.New().String()[:8])
}

// CheckStock reports whether qty units of the variant are available and the
// current quantity. Unknown products and variants report (false, 0).
func (m *OrderManager) CheckStock(productID, size, color string, qty int) (bool, int, error) {
	st, err := m.stock.GetStock(productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}
	i := st.FindVariant(size, color)
	if i < 0 {
		return false, 0, nil
	}
	return st.Variants[i].Quantity >= qty, st.Variants[i].Quantity, nil
}

// UpdateStock adjusts one variant's quantity by delta (negative reserves,
// positive restores). The operation is rejected with no mutation when the
// product or variant is unknown or the result would be negative.
func (m *OrderManager) UpdateStock(productID, size, color string, delta int) error {
	unlock := m.locks.lockAll([]string{productID})
	defer unlock()
	return m.adjustLocked(productID, size, color, delta)
}

// adjustLocked performs the read-modify-write; callers must hold the product lock.
func (m *OrderManager) adjustLocked(productID, size, color string, delta int) error {
	st, err := m.stock.GetStock(productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Reject(fmt.Sprintf("no stock record for product %q", productID))
		}
		return err
	}

	i := st.FindVariant(size, color)
	if i < 0 {
		return domain.Reject(fmt.Sprintf("product %q has no variant size %q color %q", productID, size, color))
	}

	next := st.Variants[i].Quantity + delta
	if next < 0 {
		return domain.Reject(fmt.Sprintf("insufficient stock for product %q size %q color %q: requested %d, available %d",
			productID, size, color, -delta, st.Variants[i].Quantity))
	}

	st.Variants[i].Quantity = next
	st.Recompute()
	if err := m.stock.PutStock(st); err != nil {
		return fmt.Errorf("failed to persist stock for %s: %w", productID, err)
	}
	return nil
}

// SetStock creates or replaces a product's stock record, recomputing derived
// fields. Used for seeding and restocking.
func (m *OrderManager) SetStock(productID string, variants []domain.StockVariant) error {
	if productID == "" {
		return domain.Reject("product id is required")
	}
	for _, v := range variants {
		if v.Quantity < 0 {
			return domain.Reject(fmt.Sprintf("variant size %q color %q: quantity must not be negative", v.Size, v.Color))
		}
	}

	unlock := m.locks.lockAll([]string{productID})
	defer unlock()

	st := domain.Stock{ProductID: productID, Variants: variants}
	st.Recompute()
	if err := m.stock.PutStock(st); err != nil {
		return fmt.Errorf("failed to persist stock for %s: %w", productID, err)
	}
	return nil
}

// GetStockForProduct returns the stock record for a product.
func (m *OrderManager) GetStockForProduct(productID string) (domain.Stock, error) {
	return m.stock.GetStock(productID)
}

func validateItems(items []domain.OrderItem) error {
	if len(items) == 0 {
		return domain.Reject("an order needs at least one item")
	}
	for _, it := range items {
		switch {
		case it.ProductID == "":
			return domain.Reject("every item needs a product id")
		case it.Quantity <= 0:
			return domain.Reject(fmt.Sprintf("item %q: quantity must be positive", it.ProductID))
		case it.Price < 0:
			return domain.Reject(fmt.Sprintf("item %q: price must not be negative", it.ProductID))
		}
	}
	return nil
}

func productIDs(items []domain.OrderItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	return ids
}

// loadStocks reads the stock records for every product in items into a
// working set keyed by product id.
func (m *OrderManager) loadStocks(items []domain.OrderItem) (map[string]domain.Stock, error) {
	stocks := make(map[string]domain.Stock)
	for _, it := range items {
		if _, ok := stocks[it.ProductID]; ok {
			continue
		}
		st, err := m.stock.GetStock(it.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.Reject(fmt.Sprintf("no stock record for product %q", it.ProductID))
			}
			return nil, err
		}
		stocks[it.ProductID] = st
	}
	return stocks, nil
}

// applyItems adjusts the working set by sign*quantity per item, failing on
// the first item that would drive a variant negative. The working set is
// in memory; nothing is persisted here.
func applyItems(stocks map[string]domain.Stock, items []domain.OrderItem, sign int) error {
	for _, it := range items {
		st, ok := stocks[it.ProductID]
		if !ok {
			return domain.Reject(fmt.Sprintf("no stock record for product %q", it.ProductID))
		}
		i := st.FindVariant(it.Size, it.Color)
		if i < 0 {
			return domain.Reject(fmt.Sprintf("product %q has no variant size %q color %q", it.ProductID, it.Size, it.Color))
		}
		next := st.Variants[i].Quantity + sign*it.Quantity
		if next < 0 {
			return domain.Reject(fmt.Sprintf("insufficient stock for product %q size %q color %q: requested %d, available %d",
				it.ProductID, it.Size, it.Color, it.Quantity, st.Variants[i].Quantity))
		}
		st.Variants[i].Quantity = next
		st.Recompute()
		stocks[it.ProductID] = st
	}
	return nil
}

// persistStocks writes the working set. On a fault partway through it puts
// back what it already wrote from the snapshot so stock is not left half
// applied, then reports the fault for wholesale retry.
func (m *OrderManager) persistStocks(stocks, snapshot map[string]domain.Stock) error {
	written := make([]string, 0, len(stocks))
	for id, st := range stocks {
		if err := m.stock.PutStock(st); err != nil {
			for _, wid := range written {
				if restoreErr := m.stock.PutStock(snapshot[wid]); restoreErr != nil {
					m.logger.Error("failed to restore stock after persist fault",
						zap.String("product_id", wid), zap.Error(restoreErr))
				}
			}
			return fmt.Errorf("failed to persist stock for %s: %w", id, err)
		}
		written = append(written, id)
	}
	return nil
}

func snapshotStocks(stocks map[string]domain.Stock) map[string]domain.Stock {
	snap := make(map[string]domain.Stock, len(stocks))
	for id, st := range stocks {
		variants := make([]domain.StockVariant, len(st.Variants))
		copy(variants, st.Variants)
		st.Variants = variants
		snap[id] = st
	}
	return snap
}

// CreateOrder validates stock for every item before mutating anything, then
// reserves stock and persists the order with status pending. If any item is
// unavailable the rejection names it and nothing changes.
func (m *OrderManager) CreateOrder(input CreateOrderInput) (domain.Order, error) {
	if err := validateItems(input.Items); err != nil {
		return domain.Order{}, err
	}
	if input.CustomerEmail == "" {
		return domain.Order{}, domain.Reject("customer email is required")
	}

	unlock := m.locks.lockAll(productIDs(input.Items))
	defer unlock()

	stocks, err := m.loadStocks(input.Items)
	if err != nil {
		return domain.Order{}, err
	}
	snapshot := snapshotStocks(stocks)

	// All-or-nothing check phase: the first unavailable item rejects the
	// whole order before any stock moves.
	if err := applyItems(stocks, input.Items, -1); err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		OrderID:         generateOrderID(now),
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		Items:           append([]domain.OrderItem(nil), input.Items...),
		Currency:        input.Currency,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
		Status:          domain.StatusPending,
		CreatedAt:       now,
	}
	order.RecomputeTotals()
	order.AppendHistory("created", fmt.Sprintf("order created with %d item(s)", len(order.Items)), now)

	if err := m.persistStocks(stocks, snapshot); err != nil {
		return domain.Order{}, err
	}

	if err := m.orders.PutOrder(order); err != nil {
		// The order record failed to persist after stock was reduced;
		// put the reservation back so the two cannot diverge.
		if restoreErr := m.persistStocks(snapshot, stocks); restoreErr != nil {
			m.logger.Error("failed to restore stock after order persist fault",
				zap.String("order_id", order.OrderID), zap.Error(restoreErr))
		}
		return domain.Order{}, fmt.Errorf("failed to persist order: %w", err)
	}

	m.logger.Info("order created",
		zap.String("order_id", order.OrderID),
		zap.String("customer", order.CustomerEmail),
		zap.Float64("total", order.TotalAmount))
	return order, nil
}

// ModifyOrder applies updates to an order. When items are replaced, stock for
// the original items is restored and stock for the new items reserved; any
// failure leaves stock exactly as it was before the call.
func (m *OrderManager) ModifyOrder(orderID string, updates OrderUpdates) (domain.Order, error) {
	order, err := m.orders.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, domain.Reject(fmt.Sprintf("order %q not found", orderID))
		}
		return domain.Order{}, err
	}

	// Every update is validated up front so a rejection can never leave a
	// partial stock reservation behind.
	if updates.Items != nil {
		if !order.Status.Modifiable() {
			return domain.Order{}, domain.Reject(fmt.Sprintf("order %q is %s and can no longer be modified", orderID, order.Status))
		}
		if err := validateItems(*updates.Items); err != nil {
			return domain.Order{}, err
		}
	}
	if updates.Status != nil && !order.Status.CanTransitionTo(*updates.Status) {
		return domain.Order{}, domain.Reject(fmt.Sprintf("order %q cannot move from %s to %s", orderID, order.Status, *updates.Status))
	}

	var changes []string
	var workingStocks, stockSnapshot map[string]domain.Stock

	if updates.Items != nil {
		newItems := *updates.Items

		ids := append(productIDs(order.Items), productIDs(newItems)...)
		unlock := m.locks.lockAll(ids)
		defer unlock()

		combined := append(append([]domain.OrderItem(nil), order.Items...), newItems...)
		stocks, err := m.loadStocks(combined)
		if err != nil {
			return domain.Order{}, err
		}
		snapshot := snapshotStocks(stocks)

		// Restore the original reservation, then reserve the new items.
		// Both steps run on the in-memory working set, so a failed
		// reservation abandons the set and stock stays at its pre-call
		// state without compensation writes.
		if err := applyItems(stocks, order.Items, +1); err != nil {
			return domain.Order{}, err
		}
		if err := applyItems(stocks, newItems, -1); err != nil {
			return domain.Order{}, err
		}
		if err := m.persistStocks(stocks, snapshot); err != nil {
			return domain.Order{}, err
		}
		workingStocks, stockSnapshot = stocks, snapshot

		order.Items = append([]domain.OrderItem(nil), newItems...)
		order.RecomputeTotals()
		changes = append(changes, fmt.Sprintf("items replaced (%d item(s), total %.2f)", len(newItems), order.TotalAmount))
	}

	if updates.ShippingAddress != nil {
		order.ShippingAddress = *updates.ShippingAddress
		changes = append(changes, "shipping address updated")
	}
	if updates.Notes != nil {
		order.Notes = *updates.Notes
		changes = append(changes, "notes updated")
	}
	if updates.Status != nil {
		order.Status = *updates.Status
		changes = append(changes, fmt.Sprintf("status changed to %s", *updates.Status))
	}

	if len(changes) == 0 {
		return order, nil
	}

	order.AppendHistory("modified", strings.Join(changes, "; "), time.Now().UTC())
	if err := m.orders.PutOrder(order); err != nil {
		// The order record failed to persist after stock moved; put the
		// pre-call reservation back so the two cannot diverge.
		if stockSnapshot != nil {
			if restoreErr := m.persistStocks(stockSnapshot, workingStocks); restoreErr != nil {
				m.logger.Error("failed to restore stock after order persist fault",
					zap.String("order_id", orderID), zap.Error(restoreErr))
			}
		}
		return domain.Order{}, fmt.Errorf("failed to persist order: %w", err)
	}

	m.logger.Info("order modified", zap.String("order_id", orderID), zap.Strings("changes", changes))
	return order, nil
}

// CancelOrder restores stock for every item and marks the order cancelled.
// Shipped, delivered and already-cancelled orders cannot be cancelled.
func (m *OrderManager) CancelOrder(orderID, reason string) (domain.Order, error) {
	order, err := m.orders.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, domain.Reject(fmt.Sprintf("order %q not found", orderID))
		}
		return domain.Order{}, err
	}

	if !order.Status.Cancellable() {
		return domain.Order{}, domain.Reject(fmt.Sprintf("order %q is %s and cannot be cancelled", orderID, order.Status))
	}

	unlock := m.locks.lockAll(productIDs(order.Items))
	defer unlock()

	stocks, err := m.loadStocks(order.Items)
	if err != nil {
		return domain.Order{}, err
	}
	snapshot := snapshotStocks(stocks)
	if err := applyItems(stocks, order.Items, +1); err != nil {
		return domain.Order{}, err
	}
	if err := m.persistStocks(stocks, snapshot); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.StatusCancelled
	details := "order cancelled"
	if reason != "" {
		details += ": " + reason
	}
	order.AppendHistory("cancelled", details, time.Now().UTC())

	if err := m.orders.PutOrder(order); err != nil {
		// The cancellation did not persist; take the restored stock back so
		// a later retry cannot return the reservation twice.
		if restoreErr := m.persistStocks(snapshot, stocks); restoreErr != nil {
			m.logger.Error("failed to restore stock after order persist fault",
				zap.String("order_id", orderID), zap.Error(restoreErr))
		}
		return domain.Order{}, fmt.Errorf("failed to persist order: %w", err)
	}

	m.logger.Info("order cancelled", zap.String("order_id", orderID), zap.String("reason", reason))
	return order, nil
}

// GetOrder returns an order by id. An unknown id is an expected outcome and
// is reported as a rejection, not a fault.
func (m *OrderManager) GetOrder(orderID string) (domain.Order, error) {
	order, err := m.orders.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, domain.Reject(fmt.Sprintf("order %q not found", orderID))
		}
		return domain.Order{}, err
	}
	return order, nil
}

// GetOrderStatus returns just the status of an order.
func (m *OrderManager) GetOrderStatus(orderID string) (domain.OrderStatus, error) {
	order, err := m.GetOrder(orderID)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

// GetOrdersByCustomer returns a customer's orders, newest first.
func (m *OrderManager) GetOrdersByCustomer(email string) ([]domain.Order, error) {
	return m.orders.OrdersByCustomer(email)
}
