/*
report.go - Aggregation and reporting

PURPOSE:
  Read-side views over transactions and sessions. Nothing here writes.

SESSION MEMBERSHIP:
  A transaction belongs to session S when
    1. its SessionID names S, or
    2. its SessionID is empty or dangling and its date falls inside S's
       window. Sessions are scanned newest start first, so the most
       recent containing session wins.
  Membership is derived on every read and never persisted.

VALUATION:
  Session stats and summaries use historical values (stored totals and
  item snapshots). Product stats in a date range use the current catalog
  price, see ledger.go.

SEE ALSO:
  - ledger.go: date range product stats
  - sessions.go: linking that makes membership explicit
*/
package ledger

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SESSION MEMBERSHIP
// =============================================================================

// ResolveSession returns the session tx belongs to, or nil.
func ResolveSession(tx Transaction, sessions []Session, now time.Time) *Session {
	if tx.SessionID != "" {
		for i := range sessions {
			if sessions[i].ID == tx.SessionID {
				return &sessions[i]
			}
		}
	}

	ordered := make([]int, len(sessions))
	for i := range ordered {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		return sessions[ordered[a]].StartDate.After(sessions[ordered[b]].StartDate)
	})
	for _, i := range ordered {
		if sessions[i].Contains(tx.TransactionDate, now) {
			return &sessions[i]
		}
	}
	return nil
}

// SessionTransactions returns the transactions resolving to sessionID.
func SessionTransactions(txs []Transaction, sessions []Session, sessionID string, now time.Time) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if s := ResolveSession(tx, sessions, now); s != nil && s.ID == sessionID {
			out = append(out, tx)
		}
	}
	return out
}

// =============================================================================
// SESSION STATS
// =============================================================================

// ProductSales is a best-seller row valued at snapshot prices.
type ProductSales struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Category    Category        `json:"category"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// SessionStats summarises one session.
type SessionStats struct {
	TransactionCount  int             `json:"transactionCount"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalItems        int             `json:"totalItems"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	TopProducts       []ProductSales  `json:"topProducts"`
}

// ComputeSessionStats aggregates txs. TopProducts is limited to topN rows
// (all rows when topN <= 0), sorted by quantity then revenue.
func ComputeSessionStats(txs []Transaction, topN int) SessionStats {
	stats := SessionStats{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	sales := make(map[string]*ProductSales)

	for _, tx := range txs {
		stats.TransactionCount++
		stats.TotalRevenue = stats.TotalRevenue.Add(tx.TotalAmount)
		stats.TotalItems += tx.ItemsCount

		for _, it := range tx.Items {
			row, ok := sales[it.Product.ID]
			if !ok {
				row = &ProductSales{
					ProductID:   it.Product.ID,
					ProductName: it.Product.Name,
					Category:    it.Product.Category,
					Revenue:     decimal.Zero,
				}
				sales[it.Product.ID] = row
			}
			row.Quantity += it.Quantity
			row.Revenue = row.Revenue.Add(it.Subtotal())
		}
	}

	if stats.TransactionCount > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(stats.TransactionCount)))
	}

	stats.TopProducts = make([]ProductSales, 0, len(sales))
	for _, row := range sales {
		stats.TopProducts = append(stats.TopProducts, *row)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		a, b := stats.TopProducts[i], stats.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		return a.ProductID < b.ProductID
	})
	if topN > 0 && len(stats.TopProducts) > topN {
		stats.TopProducts = stats.TopProducts[:topN]
	}
	return stats
}

// =============================================================================
// LEADERBOARD
// =============================================================================

// SortField selects the leaderboard ordering.
type SortField string

const (
	SortByRevenue  SortField = "revenue"
	SortByQuantity SortField = "quantity"
	SortByName     SortField = "name"
)

// LeaderboardQuery filters and orders product stats.
type LeaderboardQuery struct {
	SortBy    SortField
	Ascending bool
	// Search is a case-insensitive substring of the product name.
	Search   string
	Category Category
	Limit    int
}

// Leaderboard returns a filtered, sorted copy of stats.
func Leaderboard(stats []ProductStat, q LeaderboardQuery) []ProductStat {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]ProductStat, 0, len(stats))
	for _, s := range stats {
		if search != "" && !strings.Contains(strings.ToLower(s.Product.Name), search) {
			continue
		}
		if q.Category != "" && s.Product.Category != q.Category {
			continue
		}
		out = append(out, s)
	}

	cmp := func(a, b ProductStat) int {
		switch q.SortBy {
		case SortByName:
			return strings.Compare(strings.ToLower(a.Product.Name), strings.ToLower(b.Product.Name))
		case SortByQuantity:
			return a.Count - b.Count
		default:
			return a.Revenue.Cmp(b.Revenue)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if q.Ascending {
			return c < 0
		}
		return c > 0
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// =============================================================================
// TRENDS
// =============================================================================

// TrendDirection is the sign of a change.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// ProductTrend compares one product across two periods. Changes are in
// percent and nil when there is no usable baseline.
type ProductTrend struct {
	Product        Product        `json:"product"`
	Current        ProductStat    `json:"current"`
	Previous       *ProductStat   `json:"previous,omitempty"`
	RevenueChange  *float64       `json:"revenueChange"`
	QuantityChange *float64       `json:"quantityChange"`
	Direction      TrendDirection `json:"direction"`
}

// CompareProductStats pairs every current row with its previous-period row.
func CompareProductStats(current, previous []ProductStat) []ProductTrend {
	prev := make(map[string]ProductStat, len(previous))
	for _, p := range previous {
		prev[p.Product.ID] = p
	}

	out := make([]ProductTrend, 0, len(current))
	for _, cur := range current {
		t := ProductTrend{Product: cur.Product, Current: cur, Direction: TrendFlat}
		if p, ok := prev[cur.Product.ID]; ok {
			pc := p
			t.Previous = &pc
			t.RevenueChange = percentChange(cur.Revenue, p.Revenue)
			t.QuantityChange = percentChange(decimal.NewFromInt(int64(cur.Count)), decimal.NewFromInt(int64(p.Count)))
		}
		if t.RevenueChange != nil {
			switch {
			case *t.RevenueChange > 0:
				t.Direction = TrendUp
			case *t.RevenueChange < 0:
				t.Direction = TrendDown
			}
		}
		out = append(out, t)
	}
	return out
}

func percentChange(cur, prev decimal.Decimal) *float64 {
	if prev.IsZero() {
		return nil
	}
	pct, _ := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Float64()
	return &pct
}

// =============================================================================
// CATEGORY SUMMARY
// =============================================================================

// SummaryLine is one product on the end-of-event report.
type SummaryLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// CategorySummary groups the lines of one category.
type CategorySummary struct {
	Category Category        `json:"category"`
	Lines    []SummaryLine   `json:"lines"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Summary is the end-of-event sales report, grouped by category.
type Summary struct {
	Categories       []CategorySummary `json:"categories"`
	TransactionCount int               `json:"transactionCount"`
	TotalItems       int               `json:"totalItems"`
	GrandTotal       decimal.Decimal   `json:"grandTotal"`
}

// SummarizeByCategory builds the category report from item snapshots.
// Lines are keyed by product id and unit price, so a price change during
// the event shows up as two lines.
func SummarizeByCategory(txs []Transaction) Summary {
	type lineKey struct {
		id    string
		price string
	}
	cats := make(map[Category]*CategorySummary)
	lines := make(map[Category]map[lineKey]*SummaryLine)
	sum := Summary{GrandTotal: decimal.Zero}

	for _, tx := range txs {
		if tx.ItemsErr != nil {
			continue
		}
		sum.TransactionCount++
		for _, it := range tx.Items {
			c, ok := cats[it.Product.Category]
			if !ok {
				c = &CategorySummary{Category: it.Product.Category, Revenue: decimal.Zero}
				cats[it.Product.Category] = c
				lines[it.Product.Category] = make(map[lineKey]*SummaryLine)
			}
			k := lineKey{id: it.Product.ID, price: it.Product.Price.String()}
			l, ok := lines[it.Product.Category][k]
			if !ok {
				l = &SummaryLine{
					ProductID: it.Product.ID,
					Name:      it.Product.Name,
					UnitPrice: it.Product.Price,
					Revenue:   decimal.Zero,
				}
				lines[it.Product.Category][k] = l
			}
			sub := it.Subtotal()
			l.Quantity += it.Quantity
			l.Revenue = l.Revenue.Add(sub)
			c.Quantity += it.Quantity
			c.Revenue = c.Revenue.Add(sub)
			sum.TotalItems += it.Quantity
			sum.GrandTotal = sum.GrandTotal.Add(sub)
		}
	}

	for cat, c := range cats {
		for _, l := range lines[cat] {
			c.Lines = append(c.Lines, *l)
		}
		sort.Slice(c.Lines, func(i, j int) bool {
			if c.Lines[i].Name != c.Lines[j].Name {
				return c.Lines[i].Name < c.Lines[j].Name
			}
			return c.Lines[i].UnitPrice.LessThan(c.Lines[j].UnitPrice)
		})
		sum.Categories = append(sum.Categories, *c)
	}
	sort.Slice(sum.Categories, func(i, j int) bool {
		return sum.Categories[i].Category < sum.Categories[j].Category
	})
	return sum
}

// =============================================================================
// OVERVIEW
// =============================================================================

// Overview is the headline block of the statistics page.
type Overview struct {
	TransactionCount    int              `json:"transactionCount"`
	TotalRevenue        decimal.Decimal  `json:"totalRevenue"`
	ItemsSold           int              `json:"itemsSold"`
	PaymentMethodCounts map[string]int   `json:"paymentMethodCounts"`
	CategoryTotals      map[Category]int `json:"categoryTotals"`
}

// OverviewOf totals txs. Category totals skip malformed records.
func OverviewOf(txs []Transaction) Overview {
	o := Overview{
		TotalRevenue:        decimal.Zero,
		PaymentMethodCounts: make(map[string]int),
		CategoryTotals:      make(map[Category]int),
	}
	for _, tx := range txs {
		o.TransactionCount++
		o.TotalRevenue = o.TotalRevenue.Add(tx.TotalAmount)
		o.ItemsSold += tx.ItemsCount
		o.PaymentMethodCounts[tx.PaymentMethod]++
		for _, it := range tx.Items {
			o.CategoryTotals[it.Product.Category] += it.Quantity
		}
	}
	return o
}

// =============================================================================
// REPORTER - store-backed entry points
// =============================================================================

// Reporter loads data from the stores and runs the pure aggregations.
type Reporter struct {
	Store   Store
	Catalog Catalog
	Logger  zerolog.Logger
	Now     func() time.Time
}

// NewReporter creates a reporter.
func NewReporter(store Store, catalog Catalog, logger zerolog.Logger) *Reporter {
	return &Reporter{Store: store, Catalog: catalog, Logger: logger, Now: time.Now}
}

func (r *Reporter) load(ctx context.Context) ([]Transaction, []Session, error) {
	txs, err := r.Store.ListTransactions(ctx)
	if err != nil {
		return nil, nil, storageErr("list transactions", err)
	}
	sessions, err := r.Store.ListSessions(ctx)
	if err != nil {
		return nil, nil, storageErr("list sessions", err)
	}
	return txs, sessions, nil
}

// SessionTransactions returns the transactions that belong to sessionID.
func (r *Reporter) SessionTransactions(ctx context.Context, sessionID string) ([]Transaction, error) {
	if _, err := r.Store.GetSession(ctx, sessionID); err != nil {
		return nil, storageErr("get session", err)
	}
	txs, sessions, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return SessionTransactions(txs, sessions, sessionID, r.Now().UTC()), nil
}

// SessionStats computes stats for one session.
func (r *Reporter) SessionStats(ctx context.Context, sessionID string, topN int) (SessionStats, error) {
	txs, err := r.SessionTransactions(ctx, sessionID)
	if err != nil {
		return SessionStats{}, err
	}
	for _, tx := range txs {
		if tx.ItemsErr != nil {
			r.Logger.Warn().Err(tx.ItemsErr).Str("session_id", sessionID).Msg("malformed transaction in session stats")
		}
	}
	return ComputeSessionStats(txs, topN), nil
}

// ProductStats values the items sold in [from, to] (whole days) at the
// current catalog price.
func (r *Reporter) ProductStats(ctx context.Context, from, to time.Time, productID string) (ProductStatsReport, error) {
	catalog, err := r.Catalog.Products(ctx)
	if err != nil {
		return ProductStatsReport{}, storageErr("list products", err)
	}
	l := &Ledger{Store: r.Store, Logger: r.Logger, Now: r.Now}
	return l.GetProductStatsByDateRange(ctx, from, to, catalog, productID)
}

// Trend compares product stats of two date ranges.
func (r *Reporter) Trend(ctx context.Context, from, to, prevFrom, prevTo time.Time) ([]ProductTrend, error) {
	cur, err := r.ProductStats(ctx, from, to, "")
	if err != nil {
		return nil, err
	}
	prev, err := r.ProductStats(ctx, prevFrom, prevTo, "")
	if err != nil {
		return nil, err
	}
	return CompareProductStats(cur.ProductStats, prev.ProductStats), nil
}

// Summary builds the category report for a session, or for a date range
// (whole days) when sessionID is empty.
func (r *Reporter) Summary(ctx context.Context, sessionID string, from, to time.Time) (Summary, error) {
	if sessionID != "" {
		txs, err := r.SessionTransactions(ctx, sessionID)
		if err != nil {
			return Summary{}, err
		}
		return SummarizeByCategory(txs), nil
	}

	start, end := DayRange(from, to)
	all, err := r.Store.ListTransactions(ctx)
	if err != nil {
		return Summary{}, storageErr("list transactions", err)
	}
	var txs []Transaction
	for _, tx := range all {
		if within(tx.TransactionDate, start, end) {
			txs = append(txs, tx)
		}
	}
	return SummarizeByCategory(txs), nil
}
