package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kermes/pos-ledger/ledger"
)

func (f *fixture) reporter(t *testing.T, catalog ...ledger.Product) *ledger.Reporter {
	t.Helper()
	require.NoError(t, f.store.ReplaceProducts(context.Background(), catalog))
	r := ledger.NewReporter(f.store, f.store, zerolog.Nop())
	r.Now = f.clock.Now
	return r
}

// =============================================================================
// SESSION MEMBERSHIP
// =============================================================================

func TestResolveSession(t *testing.T) {
	older := ledger.Session{ID: "older", StartDate: day(17, 0, 0), EndDate: ptr(day(19, 23, 0))}
	newer := ledger.Session{ID: "newer", StartDate: day(19, 0, 0)}
	sessions := []ledger.Session{older, newer}
	now := day(19, 12, 0)

	tests := []struct {
		name string
		tx   ledger.Transaction
		want string
	}{
		{"explicit id wins over dates", ledger.Transaction{SessionID: "older", TransactionDate: day(19, 10, 0)}, "older"},
		{"newest containing session wins", ledger.Transaction{TransactionDate: day(19, 10, 0)}, "newer"},
		{"only the older window contains it", ledger.Transaction{TransactionDate: day(18, 10, 0)}, "older"},
		{"dangling id falls back to dates", ledger.Transaction{SessionID: "gone", TransactionDate: day(18, 10, 0)}, "older"},
		{"outside every window", ledger.Transaction{TransactionDate: day(16, 10, 0)}, ""},
		{"after now is outside the open window", ledger.Transaction{TransactionDate: day(20, 10, 0)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.ResolveSession(tt.tx, sessions, now)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestSessionTransactions_OverlappingOpenWindows(t *testing.T) {
	// GIVEN: Two open sessions whose windows both contain the 19 May sales
	// WHEN: Listing the unassigned sales of each session
	// THEN: Each sale counts once, for the session that started last

	first := ledger.Session{ID: "first", StartDate: day(17, 0, 0)}
	second := ledger.Session{ID: "second", StartDate: day(18, 12, 0)}
	sessions := []ledger.Session{first, second}
	now := day(20, 0, 0)

	txs := []ledger.Transaction{
		{ID: 1, TransactionDate: day(17, 10, 0)},
		{ID: 2, TransactionDate: day(18, 13, 0)},
		{ID: 3, TransactionDate: day(19, 9, 0)},
	}

	ids := func(txs []ledger.Transaction) []ledger.TransactionID {
		var out []ledger.TransactionID
		for _, tx := range txs {
			out = append(out, tx.ID)
		}
		return out
	}
	assert.Equal(t, []ledger.TransactionID{1}, ids(ledger.SessionTransactions(txs, sessions, "first", now)))
	assert.Equal(t, []ledger.TransactionID{2, 3}, ids(ledger.SessionTransactions(txs, sessions, "second", now)))
}

// =============================================================================
// SESSION STATS
// =============================================================================

func TestComputeSessionStats(t *testing.T) {
	txs := []ledger.Transaction{
		{TotalAmount: dec("12"), ItemsCount: 3, Items: []ledger.Item{item(borek, 2), item(cay, 1)}},
		{TotalAmount: dec("10"), ItemsCount: 5, Items: []ledger.Item{item(cay, 5)}},
		{TotalAmount: dec("8.5"), ItemsCount: 1, ItemsErr: &ledger.ParseError{Err: ledger.ErrParse}},
	}

	stats := ledger.ComputeSessionStats(txs, 1)

	assert.Equal(t, 3, stats.TransactionCount)
	assert.Equal(t, 9, stats.TotalItems)
	assert.True(t, stats.TotalRevenue.Equal(dec("30.5")))
	assert.Equal(t, "10.17", stats.AverageOrderValue.StringFixed(2))
	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, "p3", stats.TopProducts[0].ProductID)
	assert.Equal(t, 6, stats.TopProducts[0].Quantity)
	assert.True(t, stats.TopProducts[0].Revenue.Equal(dec("12")))
}

func TestComputeSessionStats_Empty(t *testing.T) {
	stats := ledger.ComputeSessionStats(nil, 5)

	assert.Equal(t, 0, stats.TransactionCount)
	assert.True(t, stats.AverageOrderValue.IsZero())
	assert.Empty(t, stats.TopProducts)
}

func TestReporter_SessionStats_UsesHistoricalValues(t *testing.T) {
	// GIVEN: A session with one explicit sale and one legacy sale in its window
	// WHEN: Börek is repriced and session stats are computed
	// THEN: Revenue is the stored totals, not the new price

	f := newFixture(t)
	ctx := context.Background()
	s := f.manualSession(t, "Weekend", day(17, 0, 0), day(18, 23, 0))
	f.seed(t, day(17, 10, 0), s.ID, item(borek, 2))
	f.seed(t, day(18, 10, 0), "", item(borek, 1))
	f.seed(t, day(19, 10, 0), "", item(borek, 9))

	repriced := borek
	repriced.Price = dec("50")
	r := f.reporter(t, repriced)

	stats, err := r.SessionStats(ctx, s.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TransactionCount)
	assert.True(t, stats.TotalRevenue.Equal(dec("15")))
	assert.True(t, stats.AverageOrderValue.Equal(dec("7.5")))
}

func TestReporter_SessionStats_UnknownSession(t *testing.T) {
	f := newFixture(t)
	r := f.reporter(t)

	_, err := r.SessionStats(context.Background(), "nope", 5)

	assert.True(t, ledger.IsNotFound(err))
}

func TestSnapshotVersusCurrentPrice(t *testing.T) {
	// GIVEN: A sale of Börek at 5.00
	// WHEN: The catalog price becomes 7.00
	// THEN: The stored item still reads 5.00 while product stats use 7.00

	f := newFixture(t)
	ctx := context.Background()
	tx, err := f.ledger.SaveTransaction(ctx, []ledger.CartItem{{Product: borek, Quantity: 1}}, dec("5"), "cash", "")
	require.NoError(t, err)

	repriced := borek
	repriced.Price = dec("7")
	r := f.reporter(t, repriced)

	stored, err := f.ledger.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].Product.Price.Equal(dec("5")))

	report, err := r.ProductStats(ctx, may19, may19, "")
	require.NoError(t, err)
	assert.True(t, report.TotalRevenue.Equal(dec("7")))
}

// =============================================================================
// LEADERBOARD
// =============================================================================

func TestLeaderboard(t *testing.T) {
	stats := []ledger.ProductStat{
		{Product: borek, Count: 10, Revenue: dec("50")},
		{Product: cay, Count: 40, Revenue: dec("80")},
		{Product: kebap, Count: 3, Revenue: dec("30")},
		{Product: baklava, Count: 5, Revenue: dec("35")},
	}
	ids := func(rows []ledger.ProductStat) []string {
		out := []string{}
		for _, r := range rows {
			out = append(out, r.Product.ID)
		}
		return out
	}

	tests := []struct {
		name string
		q    ledger.LeaderboardQuery
		want []string
	}{
		{"revenue desc", ledger.LeaderboardQuery{SortBy: ledger.SortByRevenue}, []string{"p3", "p1", "p2", "p5"}},
		{"quantity asc", ledger.LeaderboardQuery{SortBy: ledger.SortByQuantity, Ascending: true}, []string{"p5", "p2", "p1", "p3"}},
		{"name asc", ledger.LeaderboardQuery{SortBy: ledger.SortByName, Ascending: true}, []string{"p2", "p1", "p5", "p3"}},
		{"category filter", ledger.LeaderboardQuery{Category: ledger.CategoryFood}, []string{"p1", "p5"}},
		{"search is case-insensitive", ledger.LeaderboardQuery{Search: "KEB"}, []string{"p5"}},
		{"limit", ledger.LeaderboardQuery{Limit: 2}, []string{"p3", "p1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ledger.Leaderboard(stats, tt.q)))
		})
	}
}

// =============================================================================
// TRENDS
// =============================================================================

func TestCompareProductStats(t *testing.T) {
	current := []ledger.ProductStat{
		{Product: borek, Count: 15, Revenue: dec("75")},
		{Product: cay, Count: 5, Revenue: dec("10")},
		{Product: kebap, Count: 2, Revenue: dec("20")},
		{Product: baklava, Count: 1, Revenue: dec("7")},
	}
	previous := []ledger.ProductStat{
		{Product: borek, Count: 10, Revenue: dec("50")},
		{Product: cay, Count: 10, Revenue: dec("20")},
		{Product: baklava, Count: 0, Revenue: dec("0")},
	}

	trends := ledger.CompareProductStats(current, previous)
	require.Len(t, trends, 4)

	byID := map[string]ledger.ProductTrend{}
	for _, tr := range trends {
		byID[tr.Product.ID] = tr
	}

	require.NotNil(t, byID["p1"].RevenueChange)
	assert.InDelta(t, 50.0, *byID["p1"].RevenueChange, 1e-9)
	assert.InDelta(t, 50.0, *byID["p1"].QuantityChange, 1e-9)
	assert.Equal(t, ledger.TrendUp, byID["p1"].Direction)

	require.NotNil(t, byID["p3"].RevenueChange)
	assert.InDelta(t, -50.0, *byID["p3"].RevenueChange, 1e-9)
	assert.Equal(t, ledger.TrendDown, byID["p3"].Direction)

	assert.Nil(t, byID["p5"].Previous)
	assert.Nil(t, byID["p5"].RevenueChange, "no previous period")
	assert.Equal(t, ledger.TrendFlat, byID["p5"].Direction)

	assert.NotNil(t, byID["p2"].Previous)
	assert.Nil(t, byID["p2"].RevenueChange, "zero baseline is not infinite growth")
	assert.Equal(t, ledger.TrendFlat, byID["p2"].Direction)
}

func TestReporter_Trend(t *testing.T) {
	f := newFixture(t)
	f.seed(t, day(18, 10, 0), "", item(borek, 2))
	f.seed(t, day(19, 10, 0), "", item(borek, 3))
	r := f.reporter(t, borek)

	trends, err := r.Trend(context.Background(), day(19, 0, 0), day(19, 0, 0), day(18, 0, 0), day(18, 0, 0))
	require.NoError(t, err)

	require.Len(t, trends, 1)
	require.NotNil(t, trends[0].QuantityChange)
	assert.InDelta(t, 50.0, *trends[0].QuantityChange, 1e-9)
}

// =============================================================================
// SUMMARY / OVERVIEW
// =============================================================================

func TestSummarizeByCategory(t *testing.T) {
	// GIVEN: Börek sold at two different prices, Çay once, a malformed record
	// THEN: Two Börek lines, category and grand totals from snapshots

	cheap := borek
	cheap.Price = dec("4")
	txs := []ledger.Transaction{
		{Items: []ledger.Item{item(borek, 2), item(cay, 3)}},
		{Items: []ledger.Item{item(cheap, 1)}},
		{ItemsErr: &ledger.ParseError{Err: ledger.ErrParse}, TotalAmount: dec("99")},
	}

	sum := ledger.SummarizeByCategory(txs)

	assert.Equal(t, 2, sum.TransactionCount)
	assert.Equal(t, 6, sum.TotalItems)
	assert.True(t, sum.GrandTotal.Equal(dec("20")))
	require.Len(t, sum.Categories, 2)

	drink, food := sum.Categories[0], sum.Categories[1]
	assert.Equal(t, ledger.CategoryDrink, drink.Category)
	assert.True(t, drink.Revenue.Equal(dec("6")))
	assert.Equal(t, ledger.CategoryFood, food.Category)
	assert.Equal(t, 3, food.Quantity)
	require.Len(t, food.Lines, 2)
	assert.True(t, food.Lines[0].UnitPrice.Equal(dec("4")))
	assert.True(t, food.Lines[1].UnitPrice.Equal(dec("5")))
}

func TestReporter_Summary_ByDateRange(t *testing.T) {
	f := newFixture(t)
	f.seed(t, day(18, 23, 0), "", item(cay, 1))
	f.seed(t, day(19, 10, 0), "", item(cay, 2))
	r := f.reporter(t)

	sum, err := r.Summary(context.Background(), "", day(19, 0, 0), day(19, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, 1, sum.TransactionCount)
	assert.Equal(t, 2, sum.TotalItems)
}

func TestOverviewOf(t *testing.T) {
	txs := []ledger.Transaction{
		{TotalAmount: dec("12.5"), ItemsCount: 3, PaymentMethod: "cash", Items: []ledger.Item{item(borek, 2), item(cay, 1)}},
		{TotalAmount: dec("4"), ItemsCount: 2, PaymentMethod: "card", Items: []ledger.Item{item(cay, 2)}},
		{TotalAmount: dec("7"), ItemsCount: 1, PaymentMethod: "cash", ItemsErr: &ledger.ParseError{Err: ledger.ErrParse}},
	}

	o := ledger.OverviewOf(txs)

	assert.Equal(t, 3, o.TransactionCount)
	assert.Equal(t, 6, o.ItemsSold)
	assert.True(t, o.TotalRevenue.Equal(dec("23.5")))
	assert.Equal(t, map[string]int{"cash": 2, "card": 1}, o.PaymentMethodCounts)
	assert.Equal(t, map[ledger.Category]int{ledger.CategoryFood: 2, ledger.CategoryDrink: 3}, o.CategoryTotals)
}

func TestSessionTransactions_UsesNow(t *testing.T) {
	open := ledger.Session{ID: "live", StartDate: day(19, 9, 0)}
	txs := []ledger.Transaction{
		{ID: 1, TransactionDate: day(19, 10, 0)},
		{ID: 2, TransactionDate: day(19, 14, 0)},
	}

	got := ledger.SessionTransactions(txs, []ledger.Session{open}, "live", day(19, 12, 0))
	require.Len(t, got, 1)
	assert.Equal(t, ledger.TransactionID(1), got[0].ID)

	got = ledger.SessionTransactions(txs, []ledger.Session{open}, "live", day(19, 12, 0).Add(3*time.Hour))
	assert.Len(t, got, 2)
}
