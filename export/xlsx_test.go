package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kermes/pos-ledger/ledger"
)

func sampleTransactions() []ledger.Transaction {
	borek := ledger.ProductSnapshot{ID: "p1", Name: "Börek", Price: decimal.NewFromInt(5), Category: ledger.CategoryFood}
	cay := ledger.ProductSnapshot{ID: "p3", Name: "Çay", Price: decimal.NewFromInt(2), Category: ledger.CategoryDrink}
	return []ledger.Transaction{
		{
			ID:              1,
			TransactionDate: time.Date(2025, time.May, 20, 10, 15, 0, 0, time.UTC),
			TotalAmount:     decimal.RequireFromString("12.50"),
			ItemsCount:      3,
			Items:           []ledger.Item{{Product: borek, Quantity: 2}, {Product: cay, Quantity: 1}},
			PaymentMethod:   "cash",
		},
		{
			ID:              2,
			TransactionDate: time.Date(2025, time.May, 19, 9, 0, 0, 0, time.UTC),
			TotalAmount:     decimal.NewFromInt(4),
			ItemsCount:      2,
			ItemsErr:        &ledger.ParseError{TransactionID: 2, Err: ledger.ErrParse},
			PaymentMethod:   "card",
		},
	}
}

func TestWrite_Sheets(t *testing.T) {
	// GIVEN: Two transactions, one with an undecodable item blob
	// WHEN: Writing the workbook with a summary
	// THEN: Three sheets are produced and the malformed row is marked

	txs := sampleTransactions()
	summary := ledger.SummarizeByCategory(txs)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, txs, ledger.DailyStatsOf(txs), &summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTransactions, SheetDaily, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ledger.CSVHeader, rows[0])
	assert.Equal(t, []string{"1", "2025-05-20T10:15:00Z", "12.5", "3", "2 line(s)", "cash"}, rows[1])
	assert.Equal(t, "malformed", rows[2][4])

	daily, err := f.GetRows(SheetDaily)
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.Equal(t, []string{"2025-05-20", "1", "12.5", "3"}, daily[1])

	lines, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	last := lines[len(lines)-1]
	assert.Equal(t, "Total", last[0])
	assert.Equal(t, "12", last[len(last)-1])
}

func TestWorkbook_WithoutSummary(t *testing.T) {
	f, err := Workbook(nil, nil, nil)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTransactions, SheetDaily}, f.GetSheetList())
	rows, err := f.GetRows(SheetTransactions)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
