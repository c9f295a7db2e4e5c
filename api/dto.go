/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts leave the API as strings with two decimals ("25.50"). The
  ledger itself never rounds.

VALIDATION:
  Request types carry validator struct tags. Handlers run them before the
  ledger sees the request; the ledger re-checks its own preconditions.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kermes/pos-ledger/ledger"
)

// ClearConfirmation must be sent verbatim to wipe the transaction log.
const ClearConfirmation = "DELETE ALL"

// =============================================================================
// TRANSACTIONS
// =============================================================================

// CheckoutItem is one cart line. Product is looked up in the catalog by
// ProductID unless the client sends the product inline.
type CheckoutItem struct {
	ProductID string         `json:"product_id" validate:"required_without=Product"`
	Product   *InlineProduct `json:"product,omitempty"`
	Quantity  int            `json:"quantity" validate:"required,gt=0"`
}

// InlineProduct is a product sold without a catalog lookup.
type InlineProduct struct {
	ID       string          `json:"id" validate:"required,max=64"`
	Name     string          `json:"name" validate:"required,max=100"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category" validate:"required,oneof=food drink dessert"`
}

func (p InlineProduct) toProduct() ledger.Product {
	return ledger.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Category: ledger.Category(p.Category),
		InStock:  true,
	}
}

// CheckoutRequest finalises a cart. Without TotalAmount the total is the
// sum of the line subtotals. Without SessionID the active session is used.
type CheckoutRequest struct {
	Items         []CheckoutItem   `json:"items" validate:"required,min=1,dive"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	PaymentMethod string           `json:"payment_method" validate:"required,max=32"`
	SessionID     string           `json:"session_id,omitempty"`
}

// ItemDTO is a stored transaction line.
type ItemDTO struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Price     string `json:"price" validate:"required,numeric"`
	Category  string `json:"category" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Subtotal  string `json:"subtotal,omitempty"`
}

// TransactionDTO represents a transaction in API responses.
type TransactionDTO struct {
	ID              int64     `json:"id"`
	TransactionDate string    `json:"transaction_date"`
	TotalAmount     string    `json:"total_amount"`
	ItemsCount      int       `json:"items_count"`
	Items           []ItemDTO `json:"items"`
	PaymentMethod   string    `json:"payment_method"`
	SessionID       string    `json:"session_id,omitempty"`
	Malformed       bool      `json:"malformed,omitempty"`
}

// UpdateTransactionRequest merges into a stored transaction.
type UpdateTransactionRequest struct {
	Items           *[]ItemDTO       `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	TotalAmount     *decimal.Decimal `json:"total_amount,omitempty"`
	PaymentMethod   *string          `json:"payment_method,omitempty" validate:"omitempty,max=32"`
	TransactionDate *time.Time       `json:"transaction_date,omitempty"`
	SessionID       *string          `json:"session_id,omitempty"`
}

// ClearTransactionsRequest guards the wipe endpoint.
type ClearTransactionsRequest struct {
	Confirm string `json:"confirm" validate:"required"`
}

// ImportResponse reports a CSV restore.
type ImportResponse struct {
	Imported  int `json:"imported"`
	Malformed int `json:"malformed"`
}

// =============================================================================
// STATS
// =============================================================================

// DailyStatsDTO is one day row.
type DailyStatsDTO struct {
	Date             string `json:"date"`
	TransactionCount int    `json:"transaction_count"`
	TotalRevenue     string `json:"total_revenue"`
	TotalItems       int    `json:"total_items"`
}

// ProductStatDTO is one product row.
type ProductStatDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Price     string `json:"price"`
	Count     int    `json:"count"`
	Revenue   string `json:"revenue"`
}

// Valuation labels how revenue figures were computed.
const (
	ValuationCurrentPrice  = "current_price"
	ValuationRecordedTotal = "recorded_total"
)

// ProductStatsResponse wraps GET /stats/products. Revenue is quantity times
// today's menu price, not the cash taken.
type ProductStatsResponse struct {
	From             string           `json:"from"`
	To               string           `json:"to"`
	Valuation        string           `json:"valuation"`
	TotalRevenue     string           `json:"total_revenue"`
	TotalItems       int              `json:"total_items"`
	TransactionCount int              `json:"transaction_count"`
	ProductStats     []ProductStatDTO `json:"product_stats"`
}

// TrendDTO compares one product across two periods.
type TrendDTO struct {
	ProductStatDTO
	PreviousCount   int      `json:"previous_count"`
	PreviousRevenue string   `json:"previous_revenue"`
	RevenueChange   *float64 `json:"revenue_change"`
	QuantityChange  *float64 `json:"quantity_change"`
	Direction       string   `json:"direction"`
}

// CategoryStatsDTO is the quantity sold per category.
type CategoryStatsDTO struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// SummaryLineDTO is one product line of the category report.
type SummaryLineDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Revenue   string `json:"revenue"`
}

// CategorySummaryDTO groups the lines of one category.
type CategorySummaryDTO struct {
	Category string           `json:"category"`
	Lines    []SummaryLineDTO `json:"lines"`
	Quantity int              `json:"quantity"`
	Revenue  string           `json:"revenue"`
}

// SummaryDTO is the end-of-event report.
type SummaryDTO struct {
	SessionID        string               `json:"session_id,omitempty"`
	From             string               `json:"from,omitempty"`
	To               string               `json:"to,omitempty"`
	Categories       []CategorySummaryDTO `json:"categories"`
	TransactionCount int                  `json:"transaction_count"`
	TotalItems       int                  `json:"total_items"`
	GrandTotal       string               `json:"grand_total"`
}

// OverviewDTO is the headline block of the statistics page.
type OverviewDTO struct {
	TransactionCount    int            `json:"transaction_count"`
	TotalRevenue        string         `json:"total_revenue"`
	ItemsSold           int            `json:"items_sold"`
	PaymentMethodCounts map[string]int `json:"payment_method_counts"`
	CategoryTotals      map[string]int `json:"category_totals"`
}

// =============================================================================
// SESSIONS
// =============================================================================

// SessionDTO represents a session in API responses.
type SessionDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description,omitempty"`
	Status             string  `json:"status"`
	StartDate          string  `json:"start_date"`
	EndDate            *string `json:"end_date,omitempty"`
	HasManualDateRange bool    `json:"has_manual_date_range"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// CreateSessionRequest is the request to create a session.
type CreateSessionRequest struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=500"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// UpdateSessionRequest merges into a session. ClearEndDate reopens the
// window; it wins over EndDate when both are sent.
type UpdateSessionRequest struct {
	Name               *string    `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description        *string    `json:"description,omitempty" validate:"omitempty,max=500"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	ClearEndDate       bool       `json:"clear_end_date,omitempty"`
	HasManualDateRange *bool      `json:"has_manual_date_range,omitempty"`
}

// SessionResponse wraps a session with the outcome of the paired linking.
type SessionResponse struct {
	Session       SessionDTO `json:"session"`
	LinkedCount   int        `json:"linked_count"`
	UnlinkedCount int        `json:"unlinked_count"`
}

// OverlapRequest asks whether a manual range would collide.
type OverlapRequest struct {
	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	ExcludeID string     `json:"exclude_id,omitempty"`
}

// OverlapResponse names the conflicting session, if any.
type OverlapResponse struct {
	Overlaps bool        `json:"overlaps"`
	Conflict *SessionDTO `json:"conflict,omitempty"`
}

// SessionStatsDTO summarises a session.
type SessionStatsDTO struct {
	Valuation         string            `json:"valuation"`
	TransactionCount  int               `json:"transaction_count"`
	TotalRevenue      string            `json:"total_revenue"`
	TotalItems        int               `json:"total_items"`
	AverageOrderValue string            `json:"average_order_value"`
	TopProducts       []ProductSalesDTO `json:"top_products"`
}

// ProductSalesDTO is a best-seller row.
type ProductSalesDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Revenue     string `json:"revenue"`
}

// =============================================================================
// PRODUCTS
// =============================================================================

// ProductRequest creates or replaces a catalog entry.
type ProductRequest struct {
	ID          string          `json:"id" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=100"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" validate:"required,oneof=food drink dessert"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	InStock     *bool           `json:"in_stock,omitempty"`
	Hidden      bool            `json:"hidden,omitempty"`
	Order       int             `json:"order,omitempty" validate:"gte=0"`
}

// ProductDTO represents a catalog entry in API responses.
type ProductDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	InStock     bool   `json:"in_stock"`
	Hidden      bool   `json:"hidden,omitempty"`
	Order       int    `json:"order"`
}

// =============================================================================
// DEMO DATA
// =============================================================================

// DemoDTO describes a loadable demo data set.
type DemoDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadDemoRequest is the request to load a demo data set.
type LoadDemoRequest struct {
	DemoID string `json:"demo_id" validate:"required"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func toItemDTO(it ledger.Item) ItemDTO {
	return ItemDTO{
		ProductID: it.Product.ID,
		Name:      it.Product.Name,
		Price:     money(it.Product.Price),
		Category:  string(it.Product.Category),
		Quantity:  it.Quantity,
		Subtotal:  money(it.Subtotal()),
	}
}

func fromItemDTO(d ItemDTO) (ledger.Item, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return ledger.Item{}, err
	}
	return ledger.Item{
		Product: ledger.ProductSnapshot{
			ID:       d.ProductID,
			Name:     d.Name,
			Price:    price,
			Category: ledger.Category(d.Category),
		},
		Quantity: d.Quantity,
	}, nil
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	items := make([]ItemDTO, len(tx.Items))
	for i, it := range tx.Items {
		items[i] = toItemDTO(it)
	}
	return TransactionDTO{
		ID:              int64(tx.ID),
		TransactionDate: formatTime(tx.TransactionDate),
		TotalAmount:     money(tx.TotalAmount),
		ItemsCount:      tx.ItemsCount,
		Items:           items,
		PaymentMethod:   tx.PaymentMethod,
		SessionID:       tx.SessionID,
		Malformed:       tx.ItemsErr != nil,
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toSessionDTO(s ledger.Session) SessionDTO {
	dto := SessionDTO{
		ID:                 s.ID,
		Name:               s.Name,
		Description:        s.Description,
		Status:             string(s.Status),
		StartDate:          formatTime(s.StartDate),
		HasManualDateRange: s.HasManualDateRange,
		CreatedAt:          formatTime(s.CreatedAt),
		UpdatedAt:          formatTime(s.UpdatedAt),
	}
	if s.EndDate != nil {
		end := formatTime(*s.EndDate)
		dto.EndDate = &end
	}
	return dto
}

func toProductStatDTO(s ledger.ProductStat) ProductStatDTO {
	return ProductStatDTO{
		ProductID: s.Product.ID,
		Name:      s.Product.Name,
		Category:  string(s.Product.Category),
		Price:     money(s.Product.Price),
		Count:     s.Count,
		Revenue:   money(s.Revenue),
	}
}

func toProductStatDTOs(stats []ledger.ProductStat) []ProductStatDTO {
	dtos := make([]ProductStatDTO, len(stats))
	for i, s := range stats {
		dtos[i] = toProductStatDTO(s)
	}
	return dtos
}

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Price:       money(p.Price),
		Category:    string(p.Category),
		Description: p.Description,
		InStock:     p.InStock,
		Hidden:      p.Hidden,
		Order:       p.Order,
	}
}

func (r ProductRequest) toProduct() ledger.Product {
	inStock := true
	if r.InStock != nil {
		inStock = *r.InStock
	}
	return ledger.Product{
		ID:          r.ID,
		Name:        r.Name,
		Price:       r.Price,
		Category:    ledger.Category(r.Category),
		Description: r.Description,
		InStock:     inStock,
		Hidden:      r.Hidden,
		Order:       r.Order,
	}
}

func toSummaryDTO(s ledger.Summary) SummaryDTO {
	dto := SummaryDTO{
		Categories:       make([]CategorySummaryDTO, len(s.Categories)),
		TransactionCount: s.TransactionCount,
		TotalItems:       s.TotalItems,
		GrandTotal:       money(s.GrandTotal),
	}
	for i, c := range s.Categories {
		lines := make([]SummaryLineDTO, len(c.Lines))
		for j, l := range c.Lines {
			lines[j] = SummaryLineDTO{
				ProductID: l.ProductID,
				Name:      l.Name,
				UnitPrice: money(l.UnitPrice),
				Quantity:  l.Quantity,
				Revenue:   money(l.Revenue),
			}
		}
		dto.Categories[i] = CategorySummaryDTO{
			Category: string(c.Category),
			Lines:    lines,
			Quantity: c.Quantity,
			Revenue:  money(c.Revenue),
		}
	}
	return dto
}

func toTrendDTO(t ledger.ProductTrend) TrendDTO {
	dto := TrendDTO{
		ProductStatDTO:  toProductStatDTO(t.Current),
		PreviousRevenue: money(decimal.Zero),
		RevenueChange:   t.RevenueChange,
		QuantityChange:  t.QuantityChange,
		Direction:       string(t.Direction),
	}
	if t.Previous != nil {
		dto.PreviousCount = t.Previous.Count
		dto.PreviousRevenue = money(t.Previous.Revenue)
	}
	return dto
}
