/*
ledger.go - Transaction Ledger

PURPOSE:
  Owns transaction CRUD and the read-side aggregations that only need the
  transactions themselves (daily, category, per-product in a date range).

CONTRACT:
  - SaveTransaction snapshots every cart line. A failed write returns a
    StorageError and the caller must keep the cart as it was.
  - DeleteTransaction is idempotent: deleting an absent id succeeds.
  - ClearAllTransactions is irreversible. It does not ask for
    confirmation itself; the call site must (see api.ClearTransactions).
  - Aggregations never round; display rounding happens in DTOs.
  - Records with undecodable items are skipped by item-level aggregations
    and logged.

TWO VALUATIONS:
  Daily stats and session stats sum the stored TotalAmount (cash taken).
  GetProductStatsByDateRange values items at the CURRENT catalog price
  ("what this would be worth today"). Both are intentional.

SEE ALSO:
  - store.go: TransactionStore contract
  - sessions.go: session linking writes SessionID through the same store
*/
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger is the transaction log.
type Ledger struct {
	Store  TransactionStore
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewLedger creates a ledger over store.
func NewLedger(store TransactionStore, logger zerolog.Logger) *Ledger {
	return &Ledger{Store: store, Logger: logger, Now: time.Now}
}

// WithStore returns a copy of the ledger bound to another store, typically
// the view handed out by TxStore.WithTx.
func (l *Ledger) WithStore(store TransactionStore) *Ledger {
	cp := *l
	cp.Store = store
	return &cp
}

// =============================================================================
// WRITES
// =============================================================================

// SaveTransaction appends a checkout.
func (l *Ledger) SaveTransaction(ctx context.Context, cart []CartItem, total decimal.Decimal, paymentMethod, sessionID string) (Transaction, error) {
	if total.IsNegative() {
		return Transaction{}, invalid("total_amount", "must not be negative")
	}
	for _, ci := range cart {
		if ci.Quantity <= 0 {
			return Transaction{}, invalid("quantity", "must be positive for product "+ci.Product.ID)
		}
	}

	items := ItemsFromCart(cart)
	tx := Transaction{
		TransactionDate: l.Now().UTC(),
		TotalAmount:     total,
		ItemsCount:      CountItems(items),
		Items:           items,
		PaymentMethod:   paymentMethod,
		SessionID:       sessionID,
	}
	if err := l.Store.InsertTransaction(ctx, &tx); err != nil {
		return Transaction{}, storageErr("save transaction", err)
	}

	l.Logger.Debug().
		Int64("transaction_id", int64(tx.ID)).
		Str("session_id", sessionID).
		Str("total", total.String()).
		Msg("transaction saved")
	return tx, nil
}

// TransactionUpdate lists the fields UpdateTransaction may merge.
type TransactionUpdate struct {
	// Items replaces the item list; counts and total are recomputed.
	Items *[]Item
	// TotalAmount overrides the (recomputed) total.
	TotalAmount     *decimal.Decimal
	PaymentMethod   *string
	TransactionDate *time.Time
	SessionID       *string
}

// UpdateTransaction merges upd into the stored record.
func (l *Ledger) UpdateTransaction(ctx context.Context, id TransactionID, upd TransactionUpdate) (Transaction, error) {
	if upd.TotalAmount != nil && upd.TotalAmount.IsNegative() {
		return Transaction{}, invalid("total_amount", "must not be negative")
	}
	if upd.Items != nil {
		for _, it := range *upd.Items {
			if it.Quantity <= 0 {
				return Transaction{}, invalid("quantity", "must be positive for product "+it.Product.ID)
			}
		}
	}

	tx, err := l.Store.GetTransaction(ctx, id)
	if err != nil {
		return Transaction{}, storageErr("get transaction", err)
	}

	if upd.Items != nil {
		tx.Items = cloneItems(*upd.Items)
		tx.ItemsErr = nil
		tx.ItemsCount = CountItems(tx.Items)
		tx.TotalAmount = SumItems(tx.Items)
	}
	if upd.TotalAmount != nil {
		tx.TotalAmount = *upd.TotalAmount
	}
	if upd.PaymentMethod != nil {
		tx.PaymentMethod = *upd.PaymentMethod
	}
	if upd.TransactionDate != nil {
		tx.TransactionDate = upd.TransactionDate.UTC()
	}
	if upd.SessionID != nil {
		tx.SessionID = *upd.SessionID
	}

	if err := l.Store.PutTransaction(ctx, tx); err != nil {
		return Transaction{}, storageErr("update transaction", err)
	}
	return tx, nil
}

// DeleteTransaction removes a transaction. Absent ids are not an error.
func (l *Ledger) DeleteTransaction(ctx context.Context, id TransactionID) error {
	return storageErr("delete transaction", l.Store.DeleteTransaction(ctx, id))
}

// ClearAllTransactions wipes the log.
func (l *Ledger) ClearAllTransactions(ctx context.Context) error {
	if err := l.Store.ClearTransactions(ctx); err != nil {
		return storageErr("clear transactions", err)
	}
	l.Logger.Warn().Msg("all transactions cleared")
	return nil
}

// ClearSessionID detaches every transaction from sessionID in one bulk
// write and returns how many were touched.
func (l *Ledger) ClearSessionID(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, invalid("session_id", "required")
	}
	all, err := l.Store.ListTransactions(ctx)
	if err != nil {
		return 0, storageErr("list transactions", err)
	}

	var changed []Transaction
	for _, tx := range all {
		if tx.SessionID == sessionID {
			tx.SessionID = ""
			changed = append(changed, tx)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := l.Store.PutTransactions(ctx, changed); err != nil {
		return 0, storageErr("clear session id", err)
	}
	return len(changed), nil
}

// ImportTransactions appends restored records as new transactions. Ids and
// session links from the source are dropped.
func (l *Ledger) ImportTransactions(ctx context.Context, txs []Transaction) (int, error) {
	n := 0
	for _, src := range txs {
		tx := src.Clone()
		tx.ID = 0
		tx.SessionID = ""
		if tx.ItemsErr != nil {
			l.Logger.Warn().Err(tx.ItemsErr).Msg("importing transaction without items")
			tx.ItemsErr = nil
		}
		if err := l.Store.InsertTransaction(ctx, &tx); err != nil {
			return n, storageErr("import transaction", err)
		}
		n++
	}
	return n, nil
}

// =============================================================================
// READS
// =============================================================================

// GetTransactions returns every transaction. Order is not guaranteed.
func (l *Ledger) GetTransactions(ctx context.Context) ([]Transaction, error) {
	txs, err := l.Store.ListTransactions(ctx)
	return txs, storageErr("list transactions", err)
}

// GetTransaction returns a single transaction.
func (l *Ledger) GetTransaction(ctx context.Context, id TransactionID) (Transaction, error) {
	tx, err := l.Store.GetTransaction(ctx, id)
	return tx, storageErr("get transaction", err)
}

// GetTransactionsByDateRange returns transactions between the start of
// start's day and the end of end's day, both inclusive.
func (l *Ledger) GetTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]Transaction, error) {
	from, to := DayRange(start, end)
	if to.Before(from) {
		return nil, invalid("end", "before start")
	}
	txs, err := l.Store.ListTransactionsInRange(ctx, from, to)
	return txs, storageErr("list transactions in range", err)
}

// =============================================================================
// AGGREGATIONS
// =============================================================================

// GetDailyStats groups every transaction by UTC date, newest first.
func (l *Ledger) GetDailyStats(ctx context.Context) ([]DailyStats, error) {
	txs, err := l.GetTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return DailyStatsOf(txs), nil
}

// DailyStatsOf is the pure form of GetDailyStats.
func DailyStatsOf(txs []Transaction) []DailyStats {
	byDate := make(map[string]*DailyStats)
	for _, tx := range txs {
		date := ISODate(tx.TransactionDate)
		s, ok := byDate[date]
		if !ok {
			s = &DailyStats{Date: date, TotalRevenue: decimal.Zero}
			byDate[date] = s
		}
		s.TransactionCount++
		s.TotalRevenue = s.TotalRevenue.Add(tx.TotalAmount)
		s.TotalItems += tx.ItemsCount
	}

	out := make([]DailyStats, 0, len(byDate))
	for _, s := range byDate {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// GetCategoryStats sums item quantities per category over all time.
func (l *Ledger) GetCategoryStats(ctx context.Context) ([]CategoryStats, error) {
	txs, err := l.GetTransactions(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[Category]int)
	for _, tx := range txs {
		if l.skipMalformed(tx) {
			continue
		}
		for _, it := range tx.Items {
			counts[it.Product.Category] += it.Quantity
		}
	}

	out := make([]CategoryStats, 0, len(counts))
	for c, n := range counts {
		out = append(out, CategoryStats{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// GetProductStatsByDateRange values the items sold in [start, end] (whole
// days) at the current catalog price. Items whose product left the catalog
// are ignored. A non-empty productID restricts the report to that product.
func (l *Ledger) GetProductStatsByDateRange(ctx context.Context, start, end time.Time, catalog []Product, productID string) (ProductStatsReport, error) {
	txs, err := l.GetTransactionsByDateRange(ctx, start, end)
	if err != nil {
		return ProductStatsReport{}, err
	}
	return ProductStatsOf(txs, catalog, productID, l.Logger), nil
}

// ProductStatsOf is the pure form of GetProductStatsByDateRange. The
// caller is responsible for filtering txs to the window.
func ProductStatsOf(txs []Transaction, catalog []Product, productID string, logger zerolog.Logger) ProductStatsReport {
	byID := make(map[string]Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	report := ProductStatsReport{TotalRevenue: decimal.Zero}
	stats := make(map[string]*ProductStat)
	var order []string

	for _, tx := range txs {
		if tx.ItemsErr != nil {
			logger.Warn().Err(tx.ItemsErr).Msg("skipping malformed transaction")
			continue
		}
		matched := productID == ""
		for _, it := range tx.Items {
			if productID != "" && it.Product.ID != productID {
				continue
			}
			matched = true
			p, ok := byID[it.Product.ID]
			if !ok {
				continue
			}
			s, ok := stats[p.ID]
			if !ok {
				s = &ProductStat{Product: p, Revenue: decimal.Zero}
				stats[p.ID] = s
				order = append(order, p.ID)
			}
			revenue := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			s.Count += it.Quantity
			s.Revenue = s.Revenue.Add(revenue)
			report.TotalItems += it.Quantity
			report.TotalRevenue = report.TotalRevenue.Add(revenue)
		}
		if matched {
			report.TransactionCount++
		}
	}

	report.ProductStats = make([]ProductStat, 0, len(order))
	for _, id := range order {
		report.ProductStats = append(report.ProductStats, *stats[id])
	}
	return report
}

func (l *Ledger) skipMalformed(tx Transaction) bool {
	if tx.ItemsErr == nil {
		return false
	}
	l.Logger.Warn().Err(tx.ItemsErr).Msg("skipping malformed transaction")
	return true
}
