// Package export renders ledger data as spreadsheet files.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kermes/pos-ledger/ledger"
)

const (
	SheetTransactions = "Transactions"
	SheetDaily        = "Daily"
	SheetSummary      = "Summary"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook builds an XLSX file with one sheet of transactions (same columns
// as the CSV backup) and one sheet of daily totals. A non-nil summary adds
// the category report as a third sheet.
func Workbook(txs []ledger.Transaction, daily []ledger.DailyStats, summary *ledger.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeTransactions(f, txs); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeDaily(f, daily); err != nil {
		f.Close()
		return nil, err
	}
	if summary != nil {
		if err := writeSummary(f, *summary); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, txs []ledger.Transaction, daily []ledger.DailyStats, summary *ledger.Summary) error {
	f, err := Workbook(txs, daily, summary)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func writeTransactions(f *excelize.File, txs []ledger.Transaction) error {
	if err := setRow(f, SheetTransactions, 1, toRow(ledger.CSVHeader)); err != nil {
		return err
	}
	for i, tx := range txs {
		items := fmt.Sprintf("%d line(s)", len(tx.Items))
		if tx.ItemsErr != nil {
			items = "malformed"
		}
		row := []any{
			int64(tx.ID),
			tx.TransactionDate.UTC().Format(time.RFC3339),
			tx.TotalAmount.InexactFloat64(),
			tx.ItemsCount,
			items,
			tx.PaymentMethod,
		}
		if err := setRow(f, SheetTransactions, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeDaily(f *excelize.File, daily []ledger.DailyStats) error {
	if _, err := f.NewSheet(SheetDaily); err != nil {
		return err
	}
	if err := setRow(f, SheetDaily, 1, []any{"Date", "Transactions", "Revenue", "Items"}); err != nil {
		return err
	}
	for i, d := range daily {
		row := []any{d.Date, d.TransactionCount, d.TotalRevenue.InexactFloat64(), d.TotalItems}
		if err := setRow(f, SheetDaily, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s ledger.Summary) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	rowNo := 1
	if err := setRow(f, SheetSummary, rowNo, []any{"Category", "Product", "Unit Price", "Quantity", "Revenue"}); err != nil {
		return err
	}
	for _, c := range s.Categories {
		for _, l := range c.Lines {
			rowNo++
			row := []any{string(c.Category), l.Name, l.UnitPrice.InexactFloat64(), l.Quantity, l.Revenue.InexactFloat64()}
			if err := setRow(f, SheetSummary, rowNo, row); err != nil {
				return err
			}
		}
		rowNo++
		if err := setRow(f, SheetSummary, rowNo, []any{string(c.Category), "Subtotal", nil, c.Quantity, c.Revenue.InexactFloat64()}); err != nil {
			return err
		}
	}
	rowNo++
	return setRow(f, SheetSummary, rowNo, []any{"Total", nil, nil, s.TotalItems, s.GrandTotal.InexactFloat64()})
}

func setRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toRow(cols []string) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}
