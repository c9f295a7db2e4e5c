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

// =============================================================================
// SAVE / UPDATE / DELETE
// =============================================================================

func TestSaveTransaction_SnapshotsCart(t *testing.T) {
	// GIVEN: A cart with two products
	// WHEN: It is saved and the live product is repriced afterwards
	// THEN: The stored item keeps the price at sale time

	f := newFixture(t)
	ctx := context.Background()

	live := borek
	cart := []ledger.CartItem{{Product: live, Quantity: 2}, {Product: cay, Quantity: 3}}
	tx, err := f.ledger.SaveTransaction(ctx, cart, dec("16"), "cash", "")
	require.NoError(t, err)

	live.Price = dec("99")
	cart[0].Product.Name = "changed"

	stored, err := f.ledger.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, may19, stored.TransactionDate)
	assert.Equal(t, 5, stored.ItemsCount)
	assert.True(t, stored.TotalAmount.Equal(dec("16")))
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Börek", stored.Items[0].Product.Name)
	assert.True(t, stored.Items[0].Product.Price.Equal(dec("5")))
}

func TestSaveTransaction_IDsIncrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := []ledger.CartItem{{Product: cay, Quantity: 1}}

	a, err := f.ledger.SaveTransaction(ctx, cart, dec("2"), "cash", "")
	require.NoError(t, err)
	b, err := f.ledger.SaveTransaction(ctx, cart, dec("2"), "card", "")
	require.NoError(t, err)

	assert.Greater(t, b.ID, a.ID)
}

func TestSaveTransaction_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		cart  []ledger.CartItem
		total string
	}{
		{"negative total", []ledger.CartItem{{Product: cay, Quantity: 1}}, "-1"},
		{"zero quantity", []ledger.CartItem{{Product: cay, Quantity: 0}}, "0"},
		{"negative quantity", []ledger.CartItem{{Product: cay, Quantity: -2}}, "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.ledger.SaveTransaction(ctx, tt.cart, dec(tt.total), "cash", "")

			assert.ErrorIs(t, err, ledger.ErrValidation)
			all, err := f.ledger.GetTransactions(ctx)
			require.NoError(t, err)
			assert.Empty(t, all, "nothing is written on validation failure")
		})
	}
}

func TestUpdateTransaction_ItemsRecomputeTotals(t *testing.T) {
	// GIVEN: A stored sale of one Çay
	// WHEN: Its items are replaced by 2 Börek + 1 Baklava
	// THEN: Count and total follow the new items

	f := newFixture(t)
	ctx := context.Background()
	tx := f.seed(t, day(19, 10, 0), "", item(cay, 1))

	items := []ledger.Item{item(borek, 2), item(baklava, 1)}
	got, err := f.ledger.UpdateTransaction(ctx, tx.ID, ledger.TransactionUpdate{Items: &items})
	require.NoError(t, err)

	assert.Equal(t, 3, got.ItemsCount)
	assert.True(t, got.TotalAmount.Equal(dec("17")))
	assert.Equal(t, tx.TransactionDate, got.TransactionDate)
}

func TestUpdateTransaction_ExplicitTotalWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.seed(t, day(19, 10, 0), "", item(cay, 1))

	items := []ledger.Item{item(borek, 2)}
	total := dec("8.50")
	got, err := f.ledger.UpdateTransaction(ctx, tx.ID, ledger.TransactionUpdate{
		Items:         &items,
		TotalAmount:   &total,
		PaymentMethod: ptr("card"),
	})
	require.NoError(t, err)

	assert.True(t, got.TotalAmount.Equal(dec("8.50")))
	assert.Equal(t, 2, got.ItemsCount)
	assert.Equal(t, "card", got.PaymentMethod)
}

func TestUpdateTransaction_UnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.UpdateTransaction(context.Background(), 42, ledger.TransactionUpdate{PaymentMethod: ptr("card")})

	assert.True(t, ledger.IsNotFound(err))
}

func TestDeleteTransaction_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.seed(t, day(19, 10, 0), "", item(cay, 1))

	require.NoError(t, f.ledger.DeleteTransaction(ctx, tx.ID))
	require.NoError(t, f.ledger.DeleteTransaction(ctx, tx.ID), "second delete is a no-op")

	_, err := f.ledger.GetTransaction(ctx, tx.ID)
	assert.True(t, ledger.IsNotFound(err))
}

func TestClearAllTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, day(19, 10, 0), "", item(cay, 1))
	f.seed(t, day(19, 11, 0), "", item(borek, 1))

	require.NoError(t, f.ledger.ClearAllTransactions(ctx))

	all, err := f.ledger.GetTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestClearSessionID_OnlyTouchesThatSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, day(19, 10, 0), "s-a", item(cay, 1))
	b := f.seed(t, day(19, 11, 0), "s-a", item(cay, 1))
	c := f.seed(t, day(19, 12, 0), "s-b", item(cay, 1))

	n, err := f.ledger.ClearSessionID(ctx, "s-a")
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Empty(t, f.sessionOf(t, a.ID))
	assert.Empty(t, f.sessionOf(t, b.ID))
	assert.Equal(t, "s-b", f.sessionOf(t, c.ID))
}

func TestImportTransactions_DropsIDsAndSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, day(18, 10, 0), "", item(cay, 1))

	src := []ledger.Transaction{
		{ID: 900, TransactionDate: day(17, 9, 0), TotalAmount: dec("4"), ItemsCount: 2,
			Items: []ledger.Item{item(cay, 2)}, PaymentMethod: "cash", SessionID: "old"},
		{ID: 901, TransactionDate: day(17, 9, 5), TotalAmount: dec("3"), ItemsCount: 1,
			PaymentMethod: "card", ItemsErr: &ledger.ParseError{TransactionID: 901, Err: ledger.ErrParse}},
	}
	n, err := f.ledger.ImportTransactions(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := f.ledger.GetTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, tx := range all[1:] {
		assert.Less(t, int64(tx.ID), int64(900))
		assert.Empty(t, tx.SessionID)
	}
	assert.True(t, all[1].TotalAmount.Equal(dec("4")))
}

// =============================================================================
// DATE RANGE
// =============================================================================

func TestGetTransactionsByDateRange_WholeDays(t *testing.T) {
	// GIVEN: Sales just before, at the start of, at the end of and just after May 19
	// WHEN: Querying May 19 to May 19 with mid-day bounds
	// THEN: Both May 19 sales are returned, widened to whole days

	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, time.Date(2025, time.May, 18, 23, 59, 59, 0, time.UTC), "", item(cay, 1))
	in1 := f.seed(t, day(19, 0, 0), "", item(cay, 1))
	in2 := f.seed(t, time.Date(2025, time.May, 19, 23, 59, 59, int(999*time.Millisecond), time.UTC), "", item(cay, 1))
	f.seed(t, day(20, 0, 0), "", item(cay, 1))

	got, err := f.ledger.GetTransactionsByDateRange(ctx, day(19, 15, 0), day(19, 9, 0))
	require.NoError(t, err)

	ids := []ledger.TransactionID{}
	for _, tx := range got {
		ids = append(ids, tx.ID)
	}
	assert.ElementsMatch(t, []ledger.TransactionID{in1.ID, in2.ID}, ids)
}

func TestGetTransactionsByDateRange_EndBeforeStart(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.GetTransactionsByDateRange(context.Background(), day(20, 0, 0), day(19, 0, 0))

	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// AGGREGATIONS
// =============================================================================

func TestGetDailyStats_GroupsByDateNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, day(18, 10, 0), "", item(borek, 2))
	f.seed(t, day(19, 10, 0), "", item(cay, 1))
	f.seed(t, day(19, 18, 0), "", item(kebap, 1), item(cay, 2))

	stats, err := f.ledger.GetDailyStats(ctx)
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, "2025-05-19", stats[0].Date)
	assert.Equal(t, 2, stats[0].TransactionCount)
	assert.Equal(t, 4, stats[0].TotalItems)
	assert.True(t, stats[0].TotalRevenue.Equal(dec("16")))
	assert.Equal(t, "2025-05-18", stats[1].Date)
	assert.True(t, stats[1].TotalRevenue.Equal(dec("10")))
}

func TestGetDailyStats_CountsMalformedTotals(t *testing.T) {
	f := newFixture(t)
	f.seedMalformed(t, day(19, 10, 0), "12", 3)

	stats, err := f.ledger.GetDailyStats(context.Background())
	require.NoError(t, err)

	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].TotalItems)
	assert.True(t, stats[0].TotalRevenue.Equal(dec("12")))
}

func TestGetCategoryStats_SkipsMalformed(t *testing.T) {
	f := newFixture(t)
	f.seed(t, day(19, 10, 0), "", item(borek, 2), item(cay, 1))
	f.seed(t, day(19, 11, 0), "", item(kebap, 1), item(baklava, 4))
	f.seedMalformed(t, day(19, 12, 0), "50", 10)

	stats, err := f.ledger.GetCategoryStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ledger.CategoryStats{
		{Category: ledger.CategoryDessert, Count: 4},
		{Category: ledger.CategoryFood, Count: 3},
		{Category: ledger.CategoryDrink, Count: 1},
	}, stats)
}

func TestGetProductStatsByDateRange_UsesCurrentPrice(t *testing.T) {
	// GIVEN: Börek sold at 5 on May 19, now priced at 6; a product since
	//        removed from the menu; a sale outside the window
	// WHEN: Computing product stats for May 19
	// THEN: Börek is valued at 6, the removed product is ignored

	f := newFixture(t)
	f.seed(t, day(19, 10, 0), "", item(borek, 2), item(cay, 1))
	f.seed(t, day(19, 11, 0), "", item(kebap, 1))
	f.seed(t, day(20, 11, 0), "", item(borek, 5))

	repriced := borek
	repriced.Price = dec("6")
	catalog := []ledger.Product{repriced, cay}

	report, err := f.ledger.GetProductStatsByDateRange(context.Background(), day(19, 0, 0), day(19, 0, 0), catalog, "")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TransactionCount)
	assert.Equal(t, 3, report.TotalItems)
	assert.True(t, report.TotalRevenue.Equal(dec("14")), "2*6 + 1*2, kebap ignored")
	require.Len(t, report.ProductStats, 2)
	assert.Equal(t, "p1", report.ProductStats[0].Product.ID)
	assert.True(t, report.ProductStats[0].Revenue.Equal(dec("12")))
}

func TestGetProductStatsByDateRange_SingleProduct(t *testing.T) {
	f := newFixture(t)
	f.seed(t, day(19, 10, 0), "", item(borek, 2), item(cay, 1))
	f.seed(t, day(19, 11, 0), "", item(cay, 3))
	f.seed(t, day(19, 12, 0), "", item(kebap, 1))

	report, err := f.ledger.GetProductStatsByDateRange(context.Background(),
		day(19, 0, 0), day(19, 0, 0), []ledger.Product{borek, cay, kebap}, "p3")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TransactionCount, "only sales containing Çay")
	assert.Equal(t, 4, report.TotalItems)
	require.Len(t, report.ProductStats, 1)
	assert.Equal(t, "p3", report.ProductStats[0].Product.ID)
}

func TestProductStatsOf_SkipsMalformed(t *testing.T) {
	txs := []ledger.Transaction{
		{TransactionDate: day(19, 10, 0), Items: []ledger.Item{item(cay, 1)}, ItemsCount: 1},
		{TransactionDate: day(19, 11, 0), ItemsCount: 5, ItemsErr: &ledger.ParseError{Err: ledger.ErrParse}},
	}

	report := ledger.ProductStatsOf(txs, []ledger.Product{cay}, "", zerolog.Nop())

	assert.Equal(t, 1, report.TransactionCount)
	assert.Equal(t, 1, report.TotalItems)
}
