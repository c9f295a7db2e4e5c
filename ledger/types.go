/*
Package ledger provides the session-scoped sales ledger for kermes events.

PURPOSE:
  A kermes point of sale appends one Transaction per checkout. Sales are
  grouped into Sessions (one per event day or weekend). This package owns
  the transaction log, the session lifecycle, the linking of transactions
  to sessions, and the read-side statistics computed from both.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product / ProductSnapshot: live catalog entry vs. the frozen copy
    embedded into a sale
  - CartItem / Item: what the cashier rings up vs. what the ledger stores
  - Transaction: one finalized checkout

DESIGN PRINCIPLES:
  1. Snapshots: items carry a value copy of the product at sale time.
     Catalog edits never rewrite history.
  2. Precision: money is decimal.Decimal, rounded only for display.
  3. Soft references: Transaction.SessionID may be empty or dangling.
     Membership is resolved at read time (see report.go).

SEE ALSO:
  - session.go: Session type and state machine
  - ledger.go: Transaction Ledger
  - sessions.go: Session Manager
  - report.go: Aggregation
*/
package ledger

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCTS
// =============================================================================

// Category groups products on the menu ("food", "drink", "dessert").
type Category string

const (
	CategoryFood    Category = "food"
	CategoryDrink   Category = "drink"
	CategoryDessert Category = "dessert"
)

// Product is a live catalog entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Description string          `json:"description,omitempty"`
	InStock     bool            `json:"inStock"`
	Hidden      bool            `json:"hidden,omitempty"`
	Order       int             `json:"order,omitempty"`
}

// ProductSnapshot is the subset of a product frozen into a sale.
type ProductSnapshot struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category Category        `json:"category"`
}

// Snapshot copies the fields a receipt needs. The result shares nothing
// with p.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
	}
}

// CartItem is a line in the cashier's cart.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Item is a stored transaction line.
type Item struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// Subtotal is quantity times the snapshot price.
func (i Item) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// =============================================================================
// TRANSACTION
// =============================================================================

// TransactionID is assigned by the store and increases monotonically.
type TransactionID int64

func (id TransactionID) String() string { return strconv.FormatInt(int64(id), 10) }

// Transaction is one finalized checkout.
//
// Created on checkout, changed only through Ledger.UpdateTransaction or
// session linking, removed only through Ledger.DeleteTransaction.
type Transaction struct {
	ID              TransactionID   `json:"id"`
	TransactionDate time.Time       `json:"transaction_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ItemsCount      int             `json:"items_count"`
	Items           []Item          `json:"items"`
	PaymentMethod   string          `json:"payment_method"`
	SessionID       string          `json:"session_id,omitempty"`

	// ItemsErr is set when the stored item blob could not be decoded.
	// Items is nil in that case; totals are still trustworthy.
	ItemsErr *ParseError `json:"-"`
}

// IsAssigned reports whether the transaction carries a session id.
func (t Transaction) IsAssigned() bool { return t.SessionID != "" }

// ItemsFromCart snapshots every cart line.
func ItemsFromCart(cart []CartItem) []Item {
	items := make([]Item, len(cart))
	for i, ci := range cart {
		items[i] = Item{Product: ci.Product.Snapshot(), Quantity: ci.Quantity}
	}
	return items
}

// CountItems sums quantities.
func CountItems(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// SumItems totals the snapshot subtotals.
func SumItems(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// cloneItems returns a copy so callers cannot mutate stored slices.
func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Clone returns a deep copy of the transaction.
func (t Transaction) Clone() Transaction {
	t.Items = cloneItems(t.Items)
	return t
}

// =============================================================================
// STATS ROWS
// =============================================================================

// DailyStats aggregates one calendar day (UTC).
type DailyStats struct {
	Date             string          `json:"date"`
	TransactionCount int             `json:"transaction_count"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalItems       int             `json:"total_items"`
}

// CategoryStats is the quantity sold per category.
type CategoryStats struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// ProductStat is one product row valued at the current catalog price.
type ProductStat struct {
	Product Product         `json:"product"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// ProductStatsReport is the result of GetProductStatsByDateRange.
type ProductStatsReport struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalItems       int             `json:"total_items"`
	TransactionCount int             `json:"transaction_count"`
	ProductStats     []ProductStat   `json:"product_stats"`
}
