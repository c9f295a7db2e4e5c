package ledger

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CSVHeader is the column layout of a transaction backup.
var CSVHeader = []string{"ID", "Date", "Total Amount", "Items Count", "Items Data", "Payment Method"}

// WriteCSV writes txs as a backup file. Items are embedded as a JSON
// array in the "Items Data" column.
func WriteCSV(w io.Writer, txs []Transaction) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		items := tx.Items
		if items == nil {
			items = []Item{}
		}
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("transaction %d: encode items: %w", tx.ID, err)
		}
		row := []string{
			strconv.FormatInt(int64(tx.ID), 10),
			tx.TransactionDate.UTC().Format(time.RFC3339Nano),
			tx.TotalAmount.String(),
			strconv.Itoa(tx.ItemsCount),
			string(data),
			tx.PaymentMethod,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a backup written by WriteCSV. A row whose items cell
// cannot be decoded is returned with ItemsErr set; any other malformed
// cell fails the whole read with a ValidationError naming the line.
func ReadCSV(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, invalid("csv", err.Error())
	}
	for i, col := range CSVHeader {
		if strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")) != col {
			return nil, invalid("csv", fmt.Sprintf("unexpected column %q, want %q", header[i], col))
		}
	}

	var out []Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, invalid("csv", err.Error())
		}
		tx, err := parseCSVRow(rec)
		if err != nil {
			return nil, invalid("csv", fmt.Sprintf("line %d: %v", line, err))
		}
		out = append(out, tx)
	}
}

func parseCSVRow(rec []string) (Transaction, error) {
	var tx Transaction

	id, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return tx, fmt.Errorf("id: %w", err)
	}
	tx.ID = TransactionID(id)

	tx.TransactionDate, err = time.Parse(time.RFC3339Nano, strings.TrimSpace(rec[1]))
	if err != nil {
		return tx, fmt.Errorf("date: %w", err)
	}
	tx.TransactionDate = tx.TransactionDate.UTC()

	tx.TotalAmount, err = decimal.NewFromString(strings.TrimSpace(rec[2]))
	if err != nil {
		return tx, fmt.Errorf("total amount: %w", err)
	}

	tx.ItemsCount, err = strconv.Atoi(strings.TrimSpace(rec[3]))
	if err != nil {
		return tx, fmt.Errorf("items count: %w", err)
	}

	var items []Item
	if err := json.Unmarshal([]byte(rec[4]), &items); err != nil {
		tx.ItemsErr = &ParseError{TransactionID: tx.ID, Err: err}
	} else {
		tx.Items = items
	}

	tx.PaymentMethod = rec[5]
	return tx, nil
}
