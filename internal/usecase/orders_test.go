package usecase

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"vibeshop/internal/adapter/store"
	"vibeshop/internal/domain"
	"vibeshop/internal/port"
)

func newTestOrderManager(t *testing.T) *OrderManager {
	t.Helper()
	records, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { records.Close() })
	return NewOrderManager(records, records, nil)
}

// faultingOrderStore fails the next failPuts PutOrder calls, then recovers.
type faultingOrderStore struct {
	port.OrderStore
	failPuts int
}

func (f *faultingOrderStore) PutOrder(o domain.Order) error {
	if f.failPuts > 0 {
		f.failPuts--
		return errors.New("disk full")
	}
	return f.OrderStore.PutOrder(o)
}

func newFaultingOrderManager(t *testing.T) (*OrderManager, *faultingOrderStore) {
	t.Helper()
	records, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { records.Close() })
	orders := &faultingOrderStore{OrderStore: records}
	return NewOrderManager(orders, records, nil), orders
}

func seedStock(t *testing.T, m *OrderManager, productID string, variants ...domain.StockVariant) {
	t.Helper()
	if err := m.SetStock(productID, variants); err != nil {
		t.Fatal(err)
	}
}

func variantQty(t *testing.T, m *OrderManager, productID, size, color string) int {
	t.Helper()
	st, err := m.GetStockForProduct(productID)
	if err != nil {
		t.Fatal(err)
	}
	i := st.FindVariant(size, color)
	if i < 0 {
		t.Fatalf("variant %s/%s missing for %s", size, color, productID)
	}
	return st.Variants[i].Quantity
}

func TestCreateOrderReservesStock(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 50}},
		Currency:      "USD",
	})
	if err != nil {
		t.Fatal(err)
	}

	if order.Status != domain.StatusPending {
		t.Errorf("status: %s", order.Status)
	}
	if !strings.HasPrefix(order.OrderID, "ORD-") {
		t.Errorf("order id: %s", order.OrderID)
	}
	if order.TotalAmount != 100 {
		t.Errorf("total: %v", order.TotalAmount)
	}
	if order.Items[0].Subtotal != 100 {
		t.Errorf("item subtotal: %v", order.Items[0].Subtotal)
	}
	if len(order.History) != 1 || order.History[0].Action != "created" {
		t.Errorf("history: %+v", order.History)
	}
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 3 {
		t.Errorf("stock after reserve: %d", got)
	}

	stored, err := m.GetOrder(order.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CustomerEmail != "ada@example.com" {
		t.Errorf("stored order: %+v", stored)
	}
}

func TestCreateOrderInsufficientStockRejectsWholeOrder(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})
	seedStock(t, m, "prod-2", domain.StockVariant{Size: "S", Color: "Red", Quantity: 1})

	_, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items: []domain.OrderItem{
			{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 50},
			{ProductID: "prod-2", Size: "S", Color: "Red", Quantity: 3, Price: 20},
		},
	})
	if !domain.IsRejection(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "prod-2") {
		t.Errorf("rejection should name the item: %v", err)
	}

	// Nothing moved, including the first item that was available.
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 5 {
		t.Errorf("prod-1 stock mutated: %d", got)
	}
	if got := variantQty(t, m, "prod-2", "S", "Red"); got != 1 {
		t.Errorf("prod-2 stock mutated: %d", got)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	m := newTestOrderManager(t)

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"no items", CreateOrderInput{CustomerEmail: "a@b.c"}},
		{"no email", CreateOrderInput{Items: []domain.OrderItem{{ProductID: "p", Quantity: 1}}}},
		{"zero quantity", CreateOrderInput{CustomerEmail: "a@b.c", Items: []domain.OrderItem{{ProductID: "p", Quantity: 0}}}},
		{"negative price", CreateOrderInput{CustomerEmail: "a@b.c", Items: []domain.OrderItem{{ProductID: "p", Quantity: 1, Price: -1}}}},
		{"missing product id", CreateOrderInput{CustomerEmail: "a@b.c", Items: []domain.OrderItem{{Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.CreateOrder(tc.input); !domain.IsRejection(err) {
				t.Errorf("expected rejection, got %v", err)
			}
		})
	}
}

func TestCreateOrderVariantMatchIsCaseInsensitive(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 2})

	_, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "m", Color: "black", Quantity: 1, Price: 10}},
	})
	if err != nil {
		t.Fatalf("case-insensitive variant match failed: %v", err)
	}
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 1 {
		t.Errorf("stock: %d", got)
	}
}

func TestModifyOrderReplacesItemsAndAdjustsStock(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})
	seedStock(t, m, "prod-2", domain.StockVariant{Size: "S", Color: "Red", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 50}},
	})
	if err != nil {
		t.Fatal(err)
	}

	newItems := []domain.OrderItem{{ProductID: "prod-2", Size: "S", Color: "Red", Quantity: 1, Price: 30}}
	modified, err := m.ModifyOrder(order.OrderID, OrderUpdates{Items: &newItems})
	if err != nil {
		t.Fatal(err)
	}

	if modified.TotalAmount != 30 {
		t.Errorf("total after modify: %v", modified.TotalAmount)
	}
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 5 {
		t.Errorf("original items not restored: %d", got)
	}
	if got := variantQty(t, m, "prod-2", "S", "Red"); got != 4 {
		t.Errorf("new items not reserved: %d", got)
	}
	if len(modified.History) != 2 || modified.History[1].Action != "modified" {
		t.Errorf("history: %+v", modified.History)
	}
}

func TestModifyOrderFailedReservationLeavesStockUntouched(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})
	seedStock(t, m, "prod-2", domain.StockVariant{Size: "S", Color: "Red", Quantity: 1})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 50}},
	})
	if err != nil {
		t.Fatal(err)
	}

	newItems := []domain.OrderItem{{ProductID: "prod-2", Size: "S", Color: "Red", Quantity: 3, Price: 30}}
	_, err = m.ModifyOrder(order.OrderID, OrderUpdates{Items: &newItems})
	if !domain.IsRejection(err) {
		t.Fatalf("expected rejection, got %v", err)
	}

	// The original reservation stands and nothing else moved.
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 3 {
		t.Errorf("prod-1 stock: %d", got)
	}
	if got := variantQty(t, m, "prod-2", "S", "Red"); got != 1 {
		t.Errorf("prod-2 stock: %d", got)
	}

	unchanged, err := m.GetOrder(order.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if unchanged.Items[0].ProductID != "prod-1" {
		t.Errorf("order items should be unchanged: %+v", unchanged.Items)
	}
}

func TestModifyOrderStatusTransitions(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 1, Price: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}

	confirmed := domain.StatusConfirmed
	if _, err := m.ModifyOrder(order.OrderID, OrderUpdates{Status: &confirmed}); err != nil {
		t.Fatal(err)
	}
	status, err := m.GetOrderStatus(order.OrderID)
	if err != nil || status != domain.StatusConfirmed {
		t.Fatalf("status after confirm: %s (%v)", status, err)
	}

	// Skipping ahead is not allowed.
	delivered := domain.StatusDelivered
	if _, err := m.ModifyOrder(order.OrderID, OrderUpdates{Status: &delivered}); !domain.IsRejection(err) {
		t.Errorf("confirmed -> delivered should be rejected, got %v", err)
	}
}

func TestModifyOrderAddressOnlyWorksAfterShipping(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 1, Price: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, next := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped} {
		s := next
		if _, err := m.ModifyOrder(order.OrderID, OrderUpdates{Status: &s}); err != nil {
			t.Fatal(err)
		}
	}

	// Items can no longer change, but notes still can.
	newItems := []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 10}}
	if _, err := m.ModifyOrder(order.OrderID, OrderUpdates{Items: &newItems}); !domain.IsRejection(err) {
		t.Errorf("shipped order items must be locked, got %v", err)
	}

	notes := "leave at the door"
	modified, err := m.ModifyOrder(order.OrderID, OrderUpdates{Notes: &notes})
	if err != nil {
		t.Fatal(err)
	}
	if modified.Notes != notes {
		t.Errorf("notes: %q", modified.Notes)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 50}},
	})
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := m.CancelOrder(order.OrderID, "changed my mind")
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("status: %s", cancelled.Status)
	}
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 5 {
		t.Errorf("stock not restored: %d", got)
	}
	last := cancelled.History[len(cancelled.History)-1]
	if last.Action != "cancelled" || !strings.Contains(last.Details, "changed my mind") {
		t.Errorf("history: %+v", last)
	}

	// Cancelling twice is rejected.
	if _, err := m.CancelOrder(order.OrderID, ""); !domain.IsRejection(err) {
		t.Errorf("double cancel should be rejected, got %v", err)
	}
}

func TestCancelShippedOrderRejected(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 1, Price: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, next := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped} {
		s := next
		if _, err := m.ModifyOrder(order.OrderID, OrderUpdates{Status: &s}); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := m.CancelOrder(order.OrderID, ""); !domain.IsRejection(err) {
		t.Errorf("shipped order cancel should be rejected, got %v", err)
	}
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 4 {
		t.Errorf("stock should stay reserved: %d", got)
	}
}

func TestCheckStock(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 2})

	ok, qty, err := m.CheckStock("prod-1", "M", "Black", 2)
	if err != nil || !ok || qty != 2 {
		t.Errorf("available check: ok=%v qty=%d err=%v", ok, qty, err)
	}

	ok, qty, err = m.CheckStock("prod-1", "M", "Black", 3)
	if err != nil || ok || qty != 2 {
		t.Errorf("over-ask check: ok=%v qty=%d err=%v", ok, qty, err)
	}

	ok, qty, err = m.CheckStock("prod-1", "XL", "Black", 1)
	if err != nil || ok || qty != 0 {
		t.Errorf("unknown variant: ok=%v qty=%d err=%v", ok, qty, err)
	}

	ok, qty, err = m.CheckStock("nope", "M", "Black", 1)
	if err != nil || ok || qty != 0 {
		t.Errorf("unknown product: ok=%v qty=%d err=%v", ok, qty, err)
	}
}

func TestUpdateStock(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1",
		domain.StockVariant{Size: "M", Color: "Black", Quantity: 2},
		domain.StockVariant{Size: "S", Color: "Black", Quantity: 0},
	)

	if err := m.UpdateStock("prod-1", "M", "Black", -2); err != nil {
		t.Fatal(err)
	}
	st, err := m.GetStockForProduct("prod-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalInventory != 0 {
		t.Errorf("total inventory: %d", st.TotalInventory)
	}
	if st.Variants[0].Status != domain.StockOutOfStock {
		t.Errorf("variant status: %s", st.Variants[0].Status)
	}

	if err := m.UpdateStock("prod-1", "M", "Black", -1); !domain.IsRejection(err) {
		t.Errorf("negative stock should be rejected, got %v", err)
	}
	if err := m.UpdateStock("prod-1", "XL", "Black", 1); !domain.IsRejection(err) {
		t.Errorf("unknown variant should be rejected, got %v", err)
	}

	if err := m.UpdateStock("prod-1", "M", "Black", 3); err != nil {
		t.Fatal(err)
	}
	st, _ = m.GetStockForProduct("prod-1")
	if st.Variants[0].Status != domain.StockLowStock {
		t.Errorf("quantity 3 should be low stock: %s", st.Variants[0].Status)
	}
}

func TestSetStockValidation(t *testing.T) {
	m := newTestOrderManager(t)

	if err := m.SetStock("", nil); !domain.IsRejection(err) {
		t.Errorf("empty product id: %v", err)
	}
	err := m.SetStock("prod-1", []domain.StockVariant{{Size: "M", Color: "Black", Quantity: -1}})
	if !domain.IsRejection(err) {
		t.Errorf("negative quantity: %v", err)
	}
}

func TestModifyOrderItemsWithIllegalStatusLeavesStockUntouched(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})
	seedStock(t, m, "prod-2", domain.StockVariant{Size: "S", Color: "Red", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 50}},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Valid item replacement combined with an illegal transition: the whole
	// call must be rejected with no stock movement.
	newItems := []domain.OrderItem{{ProductID: "prod-2", Size: "S", Color: "Red", Quantity: 1, Price: 30}}
	shipped := domain.StatusShipped
	_, err = m.ModifyOrder(order.OrderID, OrderUpdates{Items: &newItems, Status: &shipped})
	if !domain.IsRejection(err) {
		t.Fatalf("expected rejection, got %v", err)
	}

	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 3 {
		t.Errorf("original reservation disturbed: prod-1 stock %d", got)
	}
	if got := variantQty(t, m, "prod-2", "S", "Red"); got != 5 {
		t.Errorf("new items reserved despite rejection: prod-2 stock %d", got)
	}

	stored, err := m.GetOrder(order.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.StatusPending || stored.Items[0].ProductID != "prod-1" {
		t.Errorf("order should be unchanged: %+v", stored)
	}
}

func TestModifyOrderPersistFaultRollsBackStock(t *testing.T) {
	m, orders := newFaultingOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})
	seedStock(t, m, "prod-2", domain.StockVariant{Size: "S", Color: "Red", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 50}},
	})
	if err != nil {
		t.Fatal(err)
	}

	orders.failPuts = 1
	newItems := []domain.OrderItem{{ProductID: "prod-2", Size: "S", Color: "Red", Quantity: 1, Price: 30}}
	_, err = m.ModifyOrder(order.OrderID, OrderUpdates{Items: &newItems})
	if err == nil || domain.IsRejection(err) {
		t.Fatalf("expected fault, got %v", err)
	}

	// Stock must read as if the call never happened.
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 3 {
		t.Errorf("prod-1 stock: %d", got)
	}
	if got := variantQty(t, m, "prod-2", "S", "Red"); got != 5 {
		t.Errorf("prod-2 stock: %d", got)
	}

	stored, err := m.GetOrder(order.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Items[0].ProductID != "prod-1" {
		t.Errorf("order items should be unchanged: %+v", stored.Items)
	}
}

func TestCancelOrderPersistFaultKeepsReservation(t *testing.T) {
	m, orders := newFaultingOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 5})

	order, err := m.CreateOrder(CreateOrderInput{
		CustomerEmail: "ada@example.com",
		Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 2, Price: 50}},
	})
	if err != nil {
		t.Fatal(err)
	}

	orders.failPuts = 1
	if _, err := m.CancelOrder(order.OrderID, ""); err == nil || domain.IsRejection(err) {
		t.Fatalf("expected fault, got %v", err)
	}

	// The failed cancel must not return the reservation.
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 3 {
		t.Errorf("stock after failed cancel: %d", got)
	}
	status, err := m.GetOrderStatus(order.OrderID)
	if err != nil || status != domain.StatusPending {
		t.Fatalf("order should still be pending: %s (%v)", status, err)
	}

	// A retry returns the reservation exactly once.
	if _, err := m.CancelOrder(order.OrderID, ""); err != nil {
		t.Fatal(err)
	}
	if got := variantQty(t, m, "prod-1", "M", "Black"); got != 5 {
		t.Errorf("stock after retried cancel: %d", got)
	}
}

func TestGetOrderUnknownIsRejection(t *testing.T) {
	m := newTestOrderManager(t)

	if _, err := m.GetOrder("ORD-nope"); !domain.IsRejection(err) {
		t.Errorf("expected rejection for unknown order, got %v", err)
	}
	if _, err := m.GetOrderStatus("ORD-nope"); !domain.IsRejection(err) {
		t.Errorf("expected rejection for unknown order status, got %v", err)
	}
}

func TestGetOrdersByCustomer(t *testing.T) {
	m := newTestOrderManager(t)
	seedStock(t, m, "prod-1", domain.StockVariant{Size: "M", Color: "Black", Quantity: 10})

	for i := 0; i < 3; i++ {
		_, err := m.CreateOrder(CreateOrderInput{
			CustomerEmail: "ada@example.com",
			Items:         []domain.OrderItem{{ProductID: "prod-1", Size: "M", Color: "Black", Quantity: 1, Price: 10}},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	orders, err := m.GetOrdersByCustomer("ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 3 {
		t.Errorf("expected 3 orders, got %d", len(orders))
	}

	orders, err = m.GetOrdersByCustomer("nobody@example.com")
	if err != nil || len(orders) != 0 {
		t.Errorf("unknown customer: %v %v", orders, err)
	}
}
