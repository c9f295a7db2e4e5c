package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDemo(t *testing.T, s *testServer, id string) {
	t.Helper()
	rec := s.do(t, "POST", "/api/demos/load", map[string]string{"demo_id": id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDemos_ListAndCurrent(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "GET", "/api/demos", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]DemoDTO](t, rec), 2)

	rec = s.do(t, "GET", "/api/demos/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, "POST", "/api/demos/load", map[string]string{"demo_id": "nope"}).Code)

	loadDemo(t, s, "example-day")
	rec = s.do(t, "GET", "/api/demos/current", nil)
	assert.Equal(t, "example-day", decodeBody[DemoDTO](t, rec).ID)
}

func TestDemo_ExampleDayStats(t *testing.T) {
	// GIVEN: The example-day data set
	// WHEN: Reading the statistics endpoints
	// THEN: Daily rows come newest first and totals match the recorded amounts

	s := newTestServer(t)
	loadDemo(t, s, "example-day")

	rec := s.do(t, "GET", "/api/stats/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	daily := decodeBody[[]DailyStatsDTO](t, rec)
	require.Len(t, daily, 4)
	assert.Equal(t, DailyStatsDTO{Date: "2025-05-20", TransactionCount: 2, TotalRevenue: "37.50", TotalItems: 5}, daily[0])
	assert.Equal(t, "2025-05-19", daily[1].Date)
	assert.Equal(t, 162, daily[1].TransactionCount)
	assert.Equal(t, DailyStatsDTO{Date: "2025-05-17", TransactionCount: 1, TotalRevenue: "18.00", TotalItems: 2}, daily[3])

	rec = s.do(t, "GET", "/api/stats/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decodeBody[OverviewDTO](t, rec)
	assert.Equal(t, 166, overview.TransactionCount)
	assert.Equal(t, 166, overview.PaymentMethodCounts["cash"]+overview.PaymentMethodCounts["card"])

	rec = s.do(t, "GET", "/api/stats/overview?from=2025-05-20&to=2025-05-20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "37.50", decodeBody[OverviewDTO](t, rec).TotalRevenue)

	rec = s.do(t, "GET", "/api/stats/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[[]CategoryStatsDTO](t, rec))

	rec = s.do(t, "GET", "/api/stats/summary?from=2025-05-20&to=2025-05-20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[SummaryDTO](t, rec)
	assert.Equal(t, 2, summary.TransactionCount)
	assert.Len(t, summary.Categories, 2)
	assert.Equal(t, "2025-05-20", summary.From)
}

func TestDemo_ProductStatsAndLeaderboard(t *testing.T) {
	s := newTestServer(t)
	loadDemo(t, s, "example-day")

	rec := s.do(t, "GET", "/api/stats/products?from=2025-05-20&to=2025-05-20", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeBody[ProductStatsResponse](t, rec)
	assert.Equal(t, 2, report.TransactionCount)
	assert.Equal(t, ValuationCurrentPrice, report.Valuation)
	assert.Len(t, report.ProductStats, 4)

	rec = s.do(t, "GET", "/api/stats/products?from=2025-05-20&to=2025-05-20&product_id=p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	single := decodeBody[ProductStatsResponse](t, rec)
	require.Len(t, single.ProductStats, 1)
	assert.Equal(t, 2, single.ProductStats[0].Count)
	assert.Equal(t, "10.00", single.ProductStats[0].Revenue)

	rec = s.do(t, "GET", "/api/stats/leaderboard?from=2025-05-20&to=2025-05-20&sort=name&order=asc&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decodeBody[[]ProductStatDTO](t, rec)
	require.Len(t, board, 2)
	assert.Equal(t, "Baklava", board[0].Name)

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, "GET", "/api/stats/leaderboard?sort=price", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, "GET", "/api/stats/leaderboard?limit=-3", nil).Code)

	rec = s.do(t, "GET", "/api/stats/trend?from=2025-05-18&to=2025-05-18", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trends := decodeBody[[]TrendDTO](t, rec)
	require.NotEmpty(t, trends)
	for _, tr := range trends {
		assert.Equal(t, 0, tr.PreviousCount, "17 May sold no kebap or ayran")
	}
}

func TestDemo_WeekendKermesSessions(t *testing.T) {
	// GIVEN: The weekend-kermes data set
	// WHEN: Listing sessions and their stats
	// THEN: The Monday session holds the busy day and is the active one

	s := newTestServer(t)
	loadDemo(t, s, "weekend-kermes")

	rec := s.do(t, "GET", "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decodeBody[[]SessionDTO](t, rec)
	require.Len(t, sessions, 2)
	monday, weekend := sessions[0], sessions[1]
	assert.Equal(t, "Monday Bazaar", monday.Name)
	assert.Equal(t, "active", monday.Status)
	assert.Equal(t, "paused", weekend.Status)

	stats := decodeBody[SessionStatsDTO](t, s.do(t, "GET", "/api/sessions/"+monday.ID+"/stats", nil))
	assert.Equal(t, 164, stats.TransactionCount)
	assert.LessOrEqual(t, len(stats.TopProducts), 5)

	stats = decodeBody[SessionStatsDTO](t, s.do(t, "GET", "/api/sessions/"+weekend.ID+"/stats", nil))
	assert.Equal(t, 2, stats.TransactionCount)
	assert.Equal(t, "48.00", stats.TotalRevenue)
	assert.Equal(t, ValuationRecordedTotal, stats.Valuation)

	rec = s.do(t, "GET", "/api/stats/summary?session_id="+weekend.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[SummaryDTO](t, rec)
	assert.Equal(t, weekend.ID, summary.SessionID)
	assert.Equal(t, 2, summary.TransactionCount)

	// Reloading wipes the previous sessions.
	loadDemo(t, s, "example-day")
	assert.Empty(t, decodeBody[[]SessionDTO](t, s.do(t, "GET", "/api/sessions", nil)))
}

func TestPreviousWindow(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, time.May, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name             string
		from, to         time.Time
		wantFrom, wantTo time.Time
	}{
		{"single day", day(19), day(19), day(18), day(18)},
		{"two days", day(19), day(20), day(17), day(18)},
		{"across month start", day(1), day(3), time.Date(2025, time.April, 28, 0, 0, 0, 0, time.UTC), time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := previousWindow(tt.from, tt.to)
			assert.True(t, tt.wantFrom.Equal(from), "from = %s", from)
			assert.True(t, tt.wantTo.Equal(to), "to = %s", to)
		})
	}
}
