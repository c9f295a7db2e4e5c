// Package store provides in-memory implementations of the ledger stores.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kermes/pos-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.TxStore and ledger.CatalogStore.
type Memory struct {
	mu sync.RWMutex
	st *state
}

// state holds the collections. Its methods assume the caller holds the lock.
type state struct {
	transactions map[ledger.TransactionID]ledger.Transaction
	sessions     map[string]ledger.Session
	products     map[string]ledger.Product
	nextID       ledger.TransactionID
}

func newState() *state {
	return &state{
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		sessions:     make(map[string]ledger.Session),
		products:     make(map[string]ledger.Product),
		nextID:       1,
	}
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertTransaction(ctx, tx)
}

func (m *Memory) GetTransaction(ctx context.Context, id ledger.TransactionID) (ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetTransaction(ctx, id)
}

func (m *Memory) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListTransactions(ctx)
}

func (m *Memory) ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListTransactionsInRange(ctx, from, to)
}

func (m *Memory) PutTransaction(ctx context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PutTransaction(ctx, tx)
}

// PutTransactions replaces several records atomically.
func (m *Memory) PutTransactions(ctx context.Context, txs []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PutTransactions(ctx, txs)
}

func (m *Memory) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteTransaction(ctx, id)
}

func (m *Memory) ClearTransactions(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ClearTransactions(ctx)
}

func (s *state) InsertTransaction(_ context.Context, tx *ledger.Transaction) error {
	tx.ID = s.nextID
	s.nextID++
	s.transactions[tx.ID] = tx.Clone()
	return nil
}

func (s *state) GetTransaction(_ context.Context, id ledger.TransactionID) (ledger.Transaction, error) {
	tx, ok := s.transactions[id]
	if !ok {
		return ledger.Transaction{}, &ledger.NotFoundError{Kind: "transaction", ID: id.String()}
	}
	return tx.Clone(), nil
}

func (s *state) ListTransactions(_ context.Context) ([]ledger.Transaction, error) {
	result := make([]ledger.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		result = append(result, tx.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *state) ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]ledger.Transaction, error) {
	all, _ := s.ListTransactions(ctx)
	var result []ledger.Transaction
	for _, tx := range all {
		if !tx.TransactionDate.Before(from) && !tx.TransactionDate.After(to) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (s *state) PutTransaction(_ context.Context, tx ledger.Transaction) error {
	if _, ok := s.transactions[tx.ID]; !ok {
		return &ledger.NotFoundError{Kind: "transaction", ID: tx.ID.String()}
	}
	s.transactions[tx.ID] = tx.Clone()
	return nil
}

func (s *state) PutTransactions(_ context.Context, txs []ledger.Transaction) error {
	// Check all ids first (atomic check)
	for _, tx := range txs {
		if _, ok := s.transactions[tx.ID]; !ok {
			return &ledger.NotFoundError{Kind: "transaction", ID: tx.ID.String()}
		}
	}
	for _, tx := range txs {
		s.transactions[tx.ID] = tx.Clone()
	}
	return nil
}

func (s *state) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	delete(s.transactions, id)
	return nil
}

func (s *state) ClearTransactions(_ context.Context) error {
	s.transactions = make(map[ledger.TransactionID]ledger.Transaction)
	return nil
}

// =============================================================================
// SESSIONS
// =============================================================================

func (m *Memory) InsertSession(ctx context.Context, sess ledger.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertSession(ctx, sess)
}

func (m *Memory) GetSession(ctx context.Context, id string) (ledger.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetSession(ctx, id)
}

func (m *Memory) ListSessions(ctx context.Context) ([]ledger.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListSessions(ctx)
}

func (m *Memory) ListSessionsByStatus(ctx context.Context, status ledger.SessionStatus) ([]ledger.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListSessionsByStatus(ctx, status)
}

func (m *Memory) PutSession(ctx context.Context, sess ledger.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PutSession(ctx, sess)
}

func (m *Memory) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteSession(ctx, id)
}

func (s *state) InsertSession(_ context.Context, sess ledger.Session) error {
	if _, ok := s.sessions[sess.ID]; ok {
		return &ledger.ValidationError{Field: "id", Message: "session " + sess.ID + " already exists"}
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *state) GetSession(_ context.Context, id string) (ledger.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return ledger.Session{}, &ledger.NotFoundError{Kind: "session", ID: id}
	}
	return sess.Clone(), nil
}

func (s *state) ListSessions(_ context.Context) ([]ledger.Session, error) {
	result := make([]ledger.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *state) ListSessionsByStatus(ctx context.Context, status ledger.SessionStatus) ([]ledger.Session, error) {
	all, _ := s.ListSessions(ctx)
	var result []ledger.Session
	for _, sess := range all {
		if sess.Status == status {
			result = append(result, sess)
		}
	}
	return result, nil
}

func (s *state) PutSession(_ context.Context, sess ledger.Session) error {
	if _, ok := s.sessions[sess.ID]; !ok {
		return &ledger.NotFoundError{Kind: "session", ID: sess.ID}
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *state) DeleteSession(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

// =============================================================================
// PRODUCT CATALOG
// =============================================================================

func (m *Memory) Products(_ context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Product, 0, len(m.st.products))
	for _, p := range m.st.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) GetProduct(_ context.Context, id string) (ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.st.products[id]
	if !ok {
		return ledger.Product{}, &ledger.NotFoundError{Kind: "product", ID: id}
	}
	return p, nil
}

// PutProduct inserts or replaces a product.
func (m *Memory) PutProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.products[p.ID] = p
	return nil
}

func (m *Memory) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.products, id)
	return nil
}

func (m *Memory) ReplaceProducts(_ context.Context, products []ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.products = make(map[string]ledger.Product, len(products))
	for _, p := range products {
		m.st.products[p.ID] = p
	}
	return nil
}

// =============================================================================
// TRANSACTIONS (WithTx)
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.snapshot()

	// The view writes straight into the live state; the lock is held.
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (s *state) snapshot() *state {
	cp := &state{
		transactions: make(map[ledger.TransactionID]ledger.Transaction, len(s.transactions)),
		sessions:     make(map[string]ledger.Session, len(s.sessions)),
		products:     make(map[string]ledger.Product, len(s.products)),
		nextID:       s.nextID,
	}
	for k, v := range s.transactions {
		cp.transactions[k] = v.Clone()
	}
	for k, v := range s.sessions {
		cp.sessions[k] = v.Clone()
	}
	for k, v := range s.products {
		cp.products[k] = v
	}
	return cp
}

var (
	_ ledger.TxStore      = (*Memory)(nil)
	_ ledger.CatalogStore = (*Memory)(nil)
	_ ledger.Store        = (*state)(nil)
)
