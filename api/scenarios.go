/*
scenarios.go - Demo data sets for testing and demonstrations

PURPOSE:

	Provides pre-built data sets that populate the stores with realistic
	kermes sales so the statistics and session pages have something to
	show. Each data set installs a menu, a batch of transactions and,
	optionally, sessions with manual date ranges.

AVAILABLE DEMOS:

	example-day:     Four hand-written sales plus a busy Monday of 162 sales
	weekend-kermes:  Same sales, split into two sessions by date range

HOW DEMOS WORK:
 1. Reset (clear transactions, delete sessions, replace the menu)
 2. Import transactions through the ledger (new ids, no session)
 3. Create sessions through the workflows, which link by date range

USAGE VIA API:

	POST /api/demos/load
	{"demo_id": "weekend-kermes"}

NOTE:

	Demos wipe existing data. Only use in development/demo environments.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
	"github.com/shopspring/decimal"

	"github.com/kermes/pos-ledger/ledger"
)

// =============================================================================
// DEMO DEFINITIONS
// =============================================================================

var demos = []DemoDTO{
	{
		ID:          "example-day",
		Name:        "Example Day",
		Description: "166 sales between 17 and 20 May 2025, no sessions",
	},
	{
		ID:          "weekend-kermes",
		Name:        "Weekend Kermes",
		Description: "The example sales split into a Saturday-Sunday and a Monday-Tuesday session",
	},
}

// ListDemos returns the available demo data sets.
// GET /api/demos
func (h *Handler) ListDemos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, demos)
}

// GetCurrentDemo returns the loaded demo data set, or null.
// GET /api/demos/current
func (h *Handler) GetCurrentDemo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentDemo
	h.mu.Unlock()

	for _, d := range demos {
		if d.ID == current {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadDemo wipes the stores and loads a demo data set.
// POST /api/demos/load
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	var req LoadDemoRequest
	if !h.decode(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.DemoID {
	case "example-day":
		load = h.loadExampleDay
	case "weekend-kermes":
		load = h.loadWeekendKermes
	default:
		writeError(w, http.StatusBadRequest, "Unknown demo", fmt.Errorf("demo %q", req.DemoID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentDemo = ""
	if err := h.resetDemoData(ctx); err != nil {
		h.writeLedgerError(w, r, "Failed to reset data", err)
		return
	}
	if err := load(ctx); err != nil {
		h.writeLedgerError(w, r, fmt.Sprintf("Failed to load demo %s", req.DemoID), err)
		return
	}
	h.currentDemo = req.DemoID

	hlog.FromRequest(r).Info().Str("demo", req.DemoID).Msg("demo data loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "demo": req.DemoID})
}

// =============================================================================
// DEMO LOADERS
// =============================================================================

func (h *Handler) resetDemoData(ctx context.Context) error {
	if err := h.Ledger.ClearAllTransactions(ctx); err != nil {
		return err
	}
	sessions, err := h.Sessions.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if err := h.Sessions.DeleteSession(ctx, s.ID); err != nil {
			return err
		}
	}
	return h.Catalog.ReplaceProducts(ctx, demoMenu())
}

func (h *Handler) loadExampleDay(ctx context.Context) error {
	_, err := h.Ledger.ImportTransactions(ctx, exampleTransactions())
	return err
}

func (h *Handler) loadWeekendKermes(ctx context.Context) error {
	if err := h.loadExampleDay(ctx); err != nil {
		return err
	}

	for _, s := range []struct {
		name, desc string
		from, to   time.Time
	}{
		{"Weekend Kermes", "Saturday and Sunday stalls", demoDay(17), demoDay(18)},
		{"Monday Bazaar", "Weekday market after the weekend", demoDay(19), demoDay(20)},
	} {
		end := ledger.EndOfDay(s.to)
		if _, _, err := h.Flows.CreateSession(ctx, ledger.CreateSessionInput{
			Name:        s.name,
			Description: s.desc,
			StartDate:   ledger.StartOfDay(s.from),
			EndDate:     &end,
		}); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// DEMO DATA
// =============================================================================

var demoProducts = []struct {
	id, name string
	price    int64
	category ledger.Category
}{
	{"p1", "Börek", 5, ledger.CategoryFood},
	{"p2", "Baklava", 7, ledger.CategoryFood},
	{"p3", "Çay", 2, ledger.CategoryDrink},
	{"p4", "Kola", 4, ledger.CategoryDrink},
	{"p5", "Kebap", 10, ledger.CategoryFood},
	{"p6", "Ayran", 2, ledger.CategoryDrink},
	{"p7", "Simit", 3, ledger.CategoryFood},
	{"p8", "Su", 1, ledger.CategoryDrink},
	{"p9", "Tatlı", 5, ledger.CategoryFood},
}

func demoMenu() []ledger.Product {
	out := make([]ledger.Product, len(demoProducts))
	for i, p := range demoProducts {
		out[i] = ledger.Product{
			ID:       p.id,
			Name:     p.name,
			Price:    decimal.NewFromInt(p.price),
			Category: p.category,
			InStock:  true,
			Order:    i,
		}
	}
	return out
}

func demoDay(day int) time.Time {
	return time.Date(2025, time.May, day, 0, 0, 0, 0, time.UTC)
}

func demoItem(id string, qty int) ledger.Item {
	for _, p := range demoProducts {
		if p.id == id {
			return ledger.Item{
				Product: ledger.ProductSnapshot{
					ID:       p.id,
					Name:     p.name,
					Price:    decimal.NewFromInt(p.price),
					Category: p.category,
				},
				Quantity: qty,
			}
		}
	}
	panic("unknown demo product " + id)
}

// exampleTransactions returns the recorded totals as-is, even where they
// disagree with the item subtotals: the cashier may have typed a total.
func exampleTransactions() []ledger.Transaction {
	at := func(day, hour, min int) time.Time {
		return time.Date(2025, time.May, day, hour, min, 0, 0, time.UTC)
	}
	txs := []ledger.Transaction{
		{
			TransactionDate: at(20, 10, 15),
			TotalAmount:     decimal.RequireFromString("25.50"),
			ItemsCount:      3,
			Items:           []ledger.Item{demoItem("p1", 2), demoItem("p2", 1)},
			PaymentMethod:   "cash",
		},
		{
			TransactionDate: at(20, 11, 0),
			TotalAmount:     decimal.NewFromInt(12),
			ItemsCount:      2,
			Items:           []ledger.Item{demoItem("p3", 2), demoItem("p4", 1)},
			PaymentMethod:   "card",
		},
		{
			TransactionDate: at(18, 12, 30),
			TotalAmount:     decimal.NewFromInt(30),
			ItemsCount:      4,
			Items:           []ledger.Item{demoItem("p5", 3), demoItem("p6", 1)},
			PaymentMethod:   "cash",
		},
		{
			TransactionDate: at(17, 9, 45),
			TotalAmount:     decimal.NewFromInt(18),
			ItemsCount:      2,
			Items:           []ledger.Item{demoItem("p7", 2), demoItem("p8", 2), demoItem("p9", 1)},
			PaymentMethod:   "cash",
		},
	}

	// A busy Monday: one generated product per sale, off the menu.
	for i := 0; i < 162; i++ {
		category, method := ledger.CategoryFood, "cash"
		if i%2 == 1 {
			category, method = ledger.CategoryDrink, "card"
		}
		txs = append(txs, ledger.Transaction{
			TransactionDate: at(19, 10+i%10, (10+i*3)%60),
			TotalAmount:     decimal.NewFromInt(int64(10 + (i%5)*5)),
			ItemsCount:      1 + i%4,
			Items: []ledger.Item{{
				Product: ledger.ProductSnapshot{
					ID:       fmt.Sprintf("p%d", 10+i),
					Name:     fmt.Sprintf("Ürün %d", i+1),
					Price:    decimal.NewFromInt(int64(2 + i%7)),
					Category: category,
				},
				Quantity: 1 + i%3,
			}},
			PaymentMethod: method,
		})
	}
	return txs
}
