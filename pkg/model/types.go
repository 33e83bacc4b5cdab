package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is the display status derived from quantity and threshold.
type StockStatus string

const (
	StatusInStock    StockStatus = "In Stock"
	StatusLowStock   StockStatus = "Low Stock"
	StatusOutOfStock StockStatus = "Out of Stock"
)

// Product is a stocked item.
type Product struct {
	ID               string          `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Supplier         string          `json:"supplier" db:"supplier"`
	Quantity         int             `json:"quantity" db:"quantity"`
	RestockThreshold int             `json:"restock_threshold" db:"restock_threshold"`
	Price            decimal.Decimal `json:"price" db:"price"`
	Unit             string          `json:"unit" db:"unit"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// IsLowStock reports whether the quantity is at or below the restock threshold.
func (p Product) IsLowStock() bool {
	return p.Quantity <= p.RestockThreshold
}

// Status derives the stock status.
func (p Product) Status() StockStatus {
	switch {
	case p.Quantity <= 0:
		return StatusOutOfStock
	case p.IsLowStock():
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Value is quantity times unit price.
func (p Product) Value() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// LowStock returns the low-stock products in their original order.
func LowStock(products []Product) []Product {
	var low []Product
	for _, p := range products {
		if p.IsLowStock() {
			low = append(low, p)
		}
	}
	return low
}

// Supplier is a vendor products are restocked from.
type Supplier struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	ContactPerson string    `json:"contact_person,omitempty" db:"contact_person"`
	Email         string    `json:"email,omitempty" db:"email"`
	Phone         string    `json:"phone,omitempty" db:"phone"`
	Address       string    `json:"address,omitempty" db:"address"`
	Notes         string    `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// CartItem is a product queued for restocking by a user.
type CartItem struct {
	ID               string          `json:"id" db:"id"`
	ProductID        string          `json:"product_id" db:"product_id"`
	ProductName      string          `json:"product_name" db:"product_name"`
	Supplier         string          `json:"supplier" db:"supplier"`
	Unit             string          `json:"unit" db:"unit"`
	Price            decimal.Decimal `json:"price" db:"price"`
	CurrentStock     int             `json:"current_stock" db:"current_stock"`
	RestockThreshold int             `json:"restock_threshold" db:"restock_threshold"`
	NeededQuantity   int             `json:"needed_quantity" db:"needed_quantity"`
	UserName         string          `json:"user_name" db:"user_name"`
	AddedAt          time.Time       `json:"added_at" db:"added_at"`
}

// Total is the cost of ordering the needed quantity.
func (c CartItem) Total() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.NeededQuantity)))
}

// ActionKind classifies an activity log entry.
type ActionKind string

const (
	ActionCreate         ActionKind = "CREATE"
	ActionUpdate         ActionKind = "UPDATE"
	ActionDelete         ActionKind = "DELETE"
	ActionAddToCart      ActionKind = "ADD_TO_CART"
	ActionRemoveFromCart ActionKind = "REMOVE_FROM_CART"
	ActionClearCart      ActionKind = "CLEAR_CART"
	ActionReceive        ActionKind = "RECEIVE"
	ActionAutoAlert      ActionKind = "AUTO_ALERT"
	ActionManualAlert    ActionKind = "MANUAL_ALERT"
)

// ActivityEntry is one audit record.
type ActivityEntry struct {
	ID        string     `json:"id" db:"id"`
	Actor     string     `json:"actor" db:"actor"`
	Action    ActionKind `json:"action" db:"action"`
	Details   string     `json:"details" db:"details"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
}

// ProductFilter narrows product listings. Zero values match everything.
type ProductFilter struct {
	Search   string      `json:"search,omitempty"`
	Supplier string      `json:"supplier,omitempty"`
	Status   StockStatus `json:"status,omitempty"`
}

// Match applies the filter to a single product. Search is a
// case-insensitive substring match on name or supplier.
func (f ProductFilter) Match(p Product) bool {
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Supplier), term) {
			return false
		}
	}
	if f.Supplier != "" && p.Supplier != f.Supplier {
		return false
	}
	if f.Status != "" && p.Status() != f.Status {
		return false
	}
	return true
}

// InventoryStats holds aggregate inventory figures.
type InventoryStats struct {
	TotalProducts  int             `json:"total_products"`
	LowStockItems  int             `json:"low_stock_items"`
	OutOfStock     int             `json:"out_of_stock_items"`
	SuppliersCount int             `json:"suppliers_count"`
	TotalValue     decimal.Decimal `json:"total_value"`
}
