package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kermes/pos-ledger/ledger"
	"github.com/kermes/pos-ledger/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// may19 is a Monday noon; most tests run their clock from here.
var may19 = time.Date(2025, time.May, 19, 12, 0, 0, 0, time.UTC)

func day(d, hour, min int) time.Time {
	return time.Date(2025, time.May, d, hour, min, 0, 0, time.UTC)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	store    *store.Memory
	ledger   *ledger.Ledger
	sessions *ledger.SessionManager
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	c := &clock{now: may19}

	l := ledger.NewLedger(st, zerolog.Nop())
	l.Now = c.Now
	m := ledger.NewSessionManager(st, zerolog.Nop())
	m.Now = c.Now

	return &fixture{store: st, ledger: l, sessions: m, clock: c}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func product(id, name, price string, cat ledger.Category) ledger.Product {
	return ledger.Product{ID: id, Name: name, Price: dec(price), Category: cat, InStock: true}
}

var (
	borek   = product("p1", "Börek", "5", ledger.CategoryFood)
	baklava = product("p2", "Baklava", "7", ledger.CategoryDessert)
	cay     = product("p3", "Çay", "2", ledger.CategoryDrink)
	kebap   = product("p5", "Kebap", "10", ledger.CategoryFood)
)

func item(p ledger.Product, qty int) ledger.Item {
	return ledger.Item{Product: p.Snapshot(), Quantity: qty}
}

// seed stores a transaction as-is and returns it with its id.
func (f *fixture) seed(t *testing.T, at time.Time, sessionID string, items ...ledger.Item) ledger.Transaction {
	t.Helper()
	tx := ledger.Transaction{
		TransactionDate: at,
		TotalAmount:     ledger.SumItems(items),
		ItemsCount:      ledger.CountItems(items),
		Items:           items,
		PaymentMethod:   "cash",
		SessionID:       sessionID,
	}
	require.NoError(t, f.store.InsertTransaction(context.Background(), &tx))
	return tx
}

// seedMalformed stores a transaction whose items could not be decoded.
func (f *fixture) seedMalformed(t *testing.T, at time.Time, total string, count int) ledger.Transaction {
	t.Helper()
	tx := ledger.Transaction{
		TransactionDate: at,
		TotalAmount:     dec(total),
		ItemsCount:      count,
		PaymentMethod:   "card",
		ItemsErr:        &ledger.ParseError{Err: ledger.ErrParse},
	}
	require.NoError(t, f.store.InsertTransaction(context.Background(), &tx))
	return tx
}

func (f *fixture) sessionOf(t *testing.T, id ledger.TransactionID) string {
	t.Helper()
	tx, err := f.store.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return tx.SessionID
}

func ptr[T any](v T) *T { return &v }
