package domain

import "strings"

// StockStatus is derived deterministically from a variant's quantity.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// LowStockThreshold is the quantity at or below which a variant counts as low stock.
const LowStockThreshold = 3

// StatusForQuantity maps a quantity to its stock status.
func StatusForQuantity(qty int) StockStatus {
	switch {
	case qty <= 0:
		return StockOutOfStock
	case qty <= LowStockThreshold:
		return StockLowStock
	default:
		return StockInStock
	}
}

// StockVariant tracks inventory for one size/color combination.
type StockVariant struct {
	Size     string      `json:"size"`
	Color    string      `json:"color"`
	Quantity int         `json:"quantity"`
	Status   StockStatus `json:"status"`
}

// Stock holds all variants of a product.
type Stock struct {
	ProductID      string         `json:"product_id"`
	Variants       []StockVariant `json:"variants"`
	TotalInventory int            `json:"total_inventory"`
}

// FindVariant returns the index of the variant matching size and color
// case-insensitively, or -1 when no variant matches.
func (s *Stock) FindVariant(size, color string) int {
	for i := range s.Variants {
		if strings.EqualFold(s.Variants[i].Size, size) && strings.EqualFold(s.Variants[i].Color, color) {
			return i
		}
	}
	return -1
}

// Recompute refreshes every variant status and the total inventory count.
func (s *Stock) Recompute() {
	total := 0
	for i := range s.Variants {
		s.Variants[i].Status = StatusForQuantity(s.Variants[i].Quantity)
		total += s.Variants[i].Quantity
	}
	s.TotalInventory = total
}
