package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kermes/pos-ledger/ledger"
)

func newTx(at time.Time, total int64) ledger.Transaction {
	return ledger.Transaction{
		TransactionDate: at,
		TotalAmount:     decimal.NewFromInt(total),
		ItemsCount:      1,
		PaymentMethod:   "cash",
	}
}

func TestMemory_TransactionsOrderedAndCopied(t *testing.T) {
	// GIVEN: Three inserted transactions
	// WHEN: Listing and mutating a returned record
	// THEN: Ids ascend and the stored copy is untouched

	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2025, time.May, 18, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		tx := newTx(base.Add(time.Duration(i)*time.Hour), int64(i+1))
		tx.Items = []ledger.Item{{Product: ledger.ProductSnapshot{ID: "p1", Name: "Börek", Price: decimal.NewFromInt(5)}, Quantity: 1}}
		require.NoError(t, m.InsertTransaction(ctx, &tx))
		assert.Equal(t, ledger.TransactionID(i+1), tx.ID)
	}

	all, err := m.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, tx := range all {
		assert.Equal(t, ledger.TransactionID(i+1), tx.ID)
	}

	all[0].Items[0].Quantity = 99
	again, err := m.GetTransaction(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)

	inRange, err := m.ListTransactionsInRange(ctx, base.Add(30*time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	assert.Equal(t, ledger.TransactionID(2), inRange[0].ID)
}

func TestMemory_PutRequiresExistingRecord(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.PutTransaction(ctx, ledger.Transaction{ID: 42})
	assert.True(t, ledger.IsNotFound(err))

	err = m.PutSession(ctx, ledger.Session{ID: "session_x"})
	assert.True(t, ledger.IsNotFound(err))

	tx := newTx(time.Now(), 1)
	require.NoError(t, m.InsertTransaction(ctx, &tx))
	err = m.PutTransactions(ctx, []ledger.Transaction{{ID: tx.ID, SessionID: "s1"}, {ID: 99}})
	assert.True(t, ledger.IsNotFound(err))

	got, err := m.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, got.SessionID, "a failed batch writes nothing")
}

func TestMemory_Sessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	created := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)

	first := ledger.Session{ID: "session_1", Name: "Spring", Status: ledger.StatusCompleted, CreatedAt: created}
	second := ledger.Session{ID: "session_2", Name: "Summer", Status: ledger.StatusActive, CreatedAt: created.Add(time.Hour)}
	require.NoError(t, m.InsertSession(ctx, second))
	require.NoError(t, m.InsertSession(ctx, first))

	err := m.InsertSession(ctx, first)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	all, err := m.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "session_1", all[0].ID)

	active, err := m.ListSessionsByStatus(ctx, ledger.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Summer", active[0].Name)

	require.NoError(t, m.DeleteSession(ctx, "session_1"))
	require.NoError(t, m.DeleteSession(ctx, "session_1"))
	_, err = m.GetSession(ctx, "session_1")
	assert.True(t, ledger.IsNotFound(err))
}

func TestMemory_Products(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.PutProduct(ctx, ledger.Product{ID: "p2", Name: "Baklava", Order: 2}))
	require.NoError(t, m.PutProduct(ctx, ledger.Product{ID: "p1", Name: "Börek", Order: 1}))
	require.NoError(t, m.PutProduct(ctx, ledger.Product{ID: "p0", Name: "Ayran", Order: 2}))

	list, err := m.Products(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"p1", "p0", "p2"}, []string{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, m.ReplaceProducts(ctx, []ledger.Product{{ID: "p9", Name: "Ayran"}}))
	_, err = m.GetProduct(ctx, "p1")
	assert.True(t, ledger.IsNotFound(err))

	require.NoError(t, m.DeleteProduct(ctx, "p9"))
	require.NoError(t, m.DeleteProduct(ctx, "p9"))
	list, err = m.Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemory_WithTxRollsBack(t *testing.T) {
	// GIVEN: A stored session and transaction
	// WHEN: A unit of work writes both and then fails
	// THEN: Neither write is visible afterwards

	ctx := context.Background()
	m := NewMemory()
	sess := ledger.Session{ID: "session_1", Name: "Spring", Status: ledger.StatusActive}
	require.NoError(t, m.InsertSession(ctx, sess))
	tx := newTx(time.Now(), 3)
	require.NoError(t, m.InsertTransaction(ctx, &tx))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s ledger.Store) error {
		linked := tx
		linked.SessionID = "session_1"
		if err := s.PutTransaction(ctx, linked); err != nil {
			return err
		}
		sess.Status = ledger.StatusPaused
		if err := s.PutSession(ctx, sess); err != nil {
			return err
		}
		extra := newTx(time.Now(), 4)
		if err := s.InsertTransaction(ctx, &extra); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := m.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, got.SessionID)

	gotSess, err := m.GetSession(ctx, "session_1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusActive, gotSess.Status)

	all, err := m.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Ids handed out inside the failed unit are reused.
	next := newTx(time.Now(), 5)
	require.NoError(t, m.InsertTransaction(ctx, &next))
	assert.Equal(t, ledger.TransactionID(2), next.ID)
}

func TestMemory_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	tx := newTx(time.Now(), 3)
	require.NoError(t, m.InsertTransaction(ctx, &tx))

	err := m.WithTx(ctx, func(s ledger.Store) error {
		tx.SessionID = "session_1"
		return s.PutTransaction(ctx, tx)
	})
	require.NoError(t, err)

	got, err := m.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "session_1", got.SessionID)
}
