package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kermes/pos-ledger/ledger"
)

// =============================================================================
// STATISTICS HANDLERS
// =============================================================================

// DailyStats returns one row per UTC day, newest first.
// GET /api/stats/daily
func (h *Handler) DailyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Ledger.GetDailyStats(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to compute daily stats", err)
		return
	}

	dtos := make([]DailyStatsDTO, len(stats))
	for i, s := range stats {
		dtos[i] = DailyStatsDTO{
			Date:             s.Date,
			TransactionCount: s.TransactionCount,
			TotalRevenue:     money(s.TotalRevenue),
			TotalItems:       s.TotalItems,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CategoryStats returns the quantity sold per category.
// GET /api/stats/categories
func (h *Handler) CategoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Ledger.GetCategoryStats(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to compute category stats", err)
		return
	}

	dtos := make([]CategoryStatsDTO, len(stats))
	for i, s := range stats {
		dtos[i] = CategoryStatsDTO{Category: string(s.Category), Count: s.Count}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ProductStats values sales in a date range at current catalog prices.
// GET /api/stats/products?from=2025-05-18&to=2025-05-20&product_id=p1
func (h *Handler) ProductStats(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	report, err := h.Reports.ProductStats(r.Context(), from, to, r.URL.Query().Get("product_id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to compute product stats", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductStatsResponse{
		From:             ledger.ISODate(from),
		To:               ledger.ISODate(to),
		Valuation:        ValuationCurrentPrice,
		TotalRevenue:     money(report.TotalRevenue),
		TotalItems:       report.TotalItems,
		TransactionCount: report.TransactionCount,
		ProductStats:     toProductStatDTOs(report.ProductStats),
	})
}

// Leaderboard ranks products of a date range.
// GET /api/stats/leaderboard?sort=revenue&order=desc&search=kebap&category=food&limit=10
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	q := r.URL.Query()
	query := ledger.LeaderboardQuery{
		SortBy:    ledger.SortByRevenue,
		Ascending: q.Get("order") == "asc",
		Search:    q.Get("search"),
		Category:  ledger.Category(q.Get("category")),
	}
	switch s := ledger.SortField(q.Get("sort")); s {
	case "", ledger.SortByRevenue:
	case ledger.SortByQuantity, ledger.SortByName:
		query.SortBy = s
	default:
		writeError(w, http.StatusBadRequest, "Invalid sort field", nil)
		return
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		query.Limit = n
	}

	report, err := h.Reports.ProductStats(r.Context(), from, to, "")
	if err != nil {
		h.writeLedgerError(w, r, "Failed to compute leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductStatDTOs(ledger.Leaderboard(report.ProductStats, query)))
}

// Trend compares product stats with the previous period. Without
// ?prev_from and ?prev_to the previous period is the window of the same
// length that ends the day before "from".
// GET /api/stats/trend?from=2025-05-19&to=2025-05-19
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	prevFrom, prevTo := previousWindow(from, to)
	q := r.URL.Query()
	if q.Get("prev_from") != "" || q.Get("prev_to") != "" {
		prevFrom, prevTo, err = h.dateRangeParams(r, "prev_from", "prev_to")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid previous date range", err)
			return
		}
	}

	trends, err := h.Reports.Trend(r.Context(), from, to, prevFrom, prevTo)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to compute trend", err)
		return
	}

	dtos := make([]TrendDTO, len(trends))
	for i, t := range trends {
		dtos[i] = toTrendDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Summary returns the category report of a session, or of a date range
// when no session is given.
// GET /api/stats/summary?session_id=...  or  ?from=...&to=...
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	var from, to time.Time
	if sessionID == "" {
		var err error
		from, to, err = h.dateRange(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date range", err)
			return
		}
	}

	summary, err := h.Reports.Summary(r.Context(), sessionID, from, to)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to build summary", err)
		return
	}

	dto := toSummaryDTO(summary)
	if sessionID != "" {
		dto.SessionID = sessionID
	} else {
		dto.From = ledger.ISODate(from)
		dto.To = ledger.ISODate(to)
	}
	writeJSON(w, http.StatusOK, dto)
}

// Overview returns headline totals over all transactions, or over a date
// range when ?from or ?to is given.
// GET /api/stats/overview
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		txs []ledger.Transaction
		err error
	)
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, perr := h.dateRange(r)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid date range", perr)
			return
		}
		txs, err = h.Ledger.GetTransactionsByDateRange(ctx, from, to)
	} else {
		txs, err = h.Ledger.GetTransactions(ctx)
	}
	if err != nil {
		h.writeLedgerError(w, r, "Failed to compute overview", err)
		return
	}

	o := ledger.OverviewOf(txs)
	cats := make(map[string]int, len(o.CategoryTotals))
	for c, n := range o.CategoryTotals {
		cats[string(c)] = n
	}
	writeJSON(w, http.StatusOK, OverviewDTO{
		TransactionCount:    o.TransactionCount,
		TotalRevenue:        money(o.TotalRevenue),
		ItemsSold:           o.ItemsSold,
		PaymentMethodCounts: o.PaymentMethodCounts,
		CategoryTotals:      cats,
	})
}

// previousWindow returns the whole-day window of the same length that ends
// the day before from.
func previousWindow(from, to time.Time) (time.Time, time.Time) {
	start := ledger.StartOfDay(from)
	days := int(ledger.StartOfDay(to).Sub(start).Hours()/24) + 1
	prevTo := start.AddDate(0, 0, -1)
	return prevTo.AddDate(0, 0, -(days - 1)), prevTo
}
