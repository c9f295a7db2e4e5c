/*
Package sqlite provides a SQLite-backed implementation of the ledger stores.

PURPOSE:
  Durable storage for transactions, sessions and the product catalog of a
  single kermes till.

INTERFACES IMPLEMENTED:
  ledger.TxStore:      transactions + sessions, with WithTx
  ledger.CatalogStore: product catalog

KEY TABLES:
  transactions: one row per checkout, items as a JSON blob
  sessions:     event sessions and their date ranges
  products:     the live catalog

SCHEMA VERSIONS:
  The schema version lives in PRAGMA user_version. Every upgrade step is
  idempotent (CREATE ... IF NOT EXISTS, columns probed before ALTER), so
  re-running a step, or opening a database created by an older build that
  never recorded its version, is a no-op.
    v1: transactions
    v2: sessions, transactions.session_id
    v3: products

TIMESTAMPS:
  Stored as fixed-width UTC text (nanosecond precision) so that range
  queries can compare strings.

MALFORMED ROWS:
  A row whose items blob cannot be decoded is returned with ItemsErr set
  instead of failing the read.

CONCURRENCY:
  Uses sync.RWMutex plus a single open connection. WAL mode keeps file
  readers from blocking.

USAGE:
  store, err := sqlite.New("./data/kermes.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l := ledger.NewLedger(store, logger)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/kermes/pos-ledger/ledger"
)

// timeLayout sorts lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements the ledger storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection and SQLite
	// allows a single writer anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SCHEMA
// =============================================================================

type migration func(ctx context.Context, tx *sql.Tx) error

var migrations = []migration{
	migrateTransactions,
	migrateSessions,
	migrateProducts,
}

// SchemaVersion is the version New upgrades every database to.
var SchemaVersion = len(migrations)

// migrate runs every upgrade step above the stored user_version.
func (s *Store) migrate(ctx context.Context) error {
	version, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for v := version; v < len(migrations); v++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := migrations[v](ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}

func migrateTransactions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_date TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		items_count INTEGER NOT NULL,
		items_data TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(transaction_date);
	`)
	return err
}

func migrateSessions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		has_manual_date_range BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_status
		ON sessions(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_start_date
		ON sessions(start_date);
	`)
	if err != nil {
		return err
	}

	exists, err := columnExists(ctx, tx, "transactions", "session_id")
	if err != nil {
		return err
	}
	if !exists {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE transactions ADD COLUMN session_id TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_transactions_session ON transactions(session_id)`)
	return err
}

func migrateProducts(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		in_stock BOOLEAN NOT NULL DEFAULT TRUE,
		hidden BOOLEAN NOT NULL DEFAULT FALSE,
		sort_order INTEGER NOT NULL DEFAULT 0
	);
	`)
	return err
}

func columnExists(ctx context.Context, q querier, table, column string) (bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// =============================================================================
// QUERIER - shared by *sql.DB and *sql.Tx
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn runs the record operations against a querier. It does no locking.
type conn struct {
	q querier
}

// =============================================================================
// TRANSACTION STORE (ledger.TransactionStore interface)
// =============================================================================

const transactionColumns = `id, transaction_date, total_amount, items_count, items_data, payment_method, session_id`

func (c conn) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	itemsJSON, err := encodeItems(tx.Items)
	if err != nil {
		return err
	}

	res, err := c.q.ExecContext(ctx, `
		INSERT INTO transactions
		(transaction_date, total_amount, items_count, items_data, payment_method, session_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		formatTime(tx.TransactionDate),
		tx.TotalAmount.String(),
		tx.ItemsCount,
		itemsJSON,
		tx.PaymentMethod,
		tx.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tx.ID = ledger.TransactionID(id)
	return nil
}

func (c conn) GetTransaction(ctx context.Context, id ledger.TransactionID) (ledger.Transaction, error) {
	txs, err := c.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, int64(id))
	if err != nil {
		return ledger.Transaction{}, err
	}
	if len(txs) == 0 {
		return ledger.Transaction{}, &ledger.NotFoundError{Kind: "transaction", ID: id.String()}
	}
	return txs[0], nil
}

func (c conn) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	return c.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
}

func (c conn) ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]ledger.Transaction, error) {
	return c.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE transaction_date >= ? AND transaction_date <= ?
		ORDER BY id
	`, formatTime(from), formatTime(to))
}

func (c conn) PutTransaction(ctx context.Context, tx ledger.Transaction) error {
	// A record read back with ItemsErr keeps its stored blob.
	var itemsJSON sql.NullString
	if tx.ItemsErr == nil {
		data, err := encodeItems(tx.Items)
		if err != nil {
			return err
		}
		itemsJSON = sql.NullString{String: data, Valid: true}
	}

	res, err := c.q.ExecContext(ctx, `
		UPDATE transactions
		SET transaction_date = ?, total_amount = ?, items_count = ?, items_data = COALESCE(?, items_data),
		    payment_method = ?, session_id = ?
		WHERE id = ?
	`,
		formatTime(tx.TransactionDate),
		tx.TotalAmount.String(),
		tx.ItemsCount,
		itemsJSON,
		tx.PaymentMethod,
		tx.SessionID,
		int64(tx.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "transaction", ID: tx.ID.String()}
	}
	return nil
}

// PutTransactions on a conn relies on the caller for atomicity.
func (c conn) PutTransactions(ctx context.Context, txs []ledger.Transaction) error {
	for _, tx := range txs {
		if err := c.PutTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (c conn) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	_, err := c.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, int64(id))
	return err
}

func (c conn) ClearTransactions(ctx context.Context) error {
	_, err := c.q.ExecContext(ctx, `DELETE FROM transactions`)
	return err
}

func (c conn) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx        ledger.Transaction
		id        int64
		date      string
		total     string
		itemsJSON string
	)
	if err := rows.Scan(&id, &date, &total, &tx.ItemsCount, &itemsJSON, &tx.PaymentMethod, &tx.SessionID); err != nil {
		return tx, err
	}
	tx.ID = ledger.TransactionID(id)

	var err error
	if tx.TransactionDate, err = parseTime(date); err != nil {
		return tx, fmt.Errorf("transaction %d: bad date: %w", id, err)
	}
	if tx.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return tx, fmt.Errorf("transaction %d: bad total: %w", id, err)
	}

	var items []ledger.Item
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		tx.ItemsErr = &ledger.ParseError{TransactionID: tx.ID, Err: err}
	} else {
		tx.Items = items
	}
	return tx, nil
}

// =============================================================================
// SESSION STORE (ledger.SessionStore interface)
// =============================================================================

const sessionColumns = `id, name, description, status, start_date, end_date, has_manual_date_range, created_at, updated_at`

func (c conn) InsertSession(ctx context.Context, sess ledger.Session) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sess.ID,
		sess.Name,
		sess.Description,
		string(sess.Status),
		formatTime(sess.StartDate),
		nullTime(sess.EndDate),
		sess.HasManualDateRange,
		formatTime(sess.CreatedAt),
		formatTime(sess.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return &ledger.ValidationError{Field: "id", Message: "session " + sess.ID + " already exists"}
	}
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (c conn) GetSession(ctx context.Context, id string) (ledger.Session, error) {
	sessions, err := c.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	if err != nil {
		return ledger.Session{}, err
	}
	if len(sessions) == 0 {
		return ledger.Session{}, &ledger.NotFoundError{Kind: "session", ID: id}
	}
	return sessions[0], nil
}

func (c conn) ListSessions(ctx context.Context) ([]ledger.Session, error) {
	return c.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at, id`)
}

func (c conn) ListSessionsByStatus(ctx context.Context, status ledger.SessionStatus) ([]ledger.Session, error) {
	return c.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE status = ? ORDER BY created_at, id`, string(status))
}

func (c conn) PutSession(ctx context.Context, sess ledger.Session) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE sessions
		SET name = ?, description = ?, status = ?, start_date = ?, end_date = ?,
		    has_manual_date_range = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`,
		sess.Name,
		sess.Description,
		string(sess.Status),
		formatTime(sess.StartDate),
		nullTime(sess.EndDate),
		sess.HasManualDateRange,
		formatTime(sess.CreatedAt),
		formatTime(sess.UpdatedAt),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "session", ID: sess.ID}
	}
	return nil
}

func (c conn) DeleteSession(ctx context.Context, id string) error {
	_, err := c.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (c conn) querySessions(ctx context.Context, query string, args ...any) ([]ledger.Session, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Session
	for rows.Next() {
		var (
			sess                            ledger.Session
			status, start, created, updated string
			end                             sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.Description, &status, &start, &end,
			&sess.HasManualDateRange, &created, &updated); err != nil {
			return nil, err
		}
		sess.Status = ledger.SessionStatus(status)
		if sess.StartDate, err = parseTime(start); err != nil {
			return nil, err
		}
		if end.Valid {
			t, err := parseTime(end.String)
			if err != nil {
				return nil, err
			}
			sess.EndDate = &t
		}
		if sess.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if sess.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

// =============================================================================
// STORE - locked entry points
// =============================================================================

func (s *Store) reader() conn { return conn{q: s.db} }

func (s *Store) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().InsertTransaction(ctx, tx)
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetTransaction(ctx, id)
}

func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListTransactions(ctx)
}

func (s *Store) ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListTransactionsInRange(ctx, from, to)
}

func (s *Store) PutTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().PutTransaction(ctx, tx)
}

// PutTransactions replaces several records in one database transaction.
func (s *Store) PutTransactions(ctx context.Context, txs []ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(c conn) error { return c.PutTransactions(ctx, txs) })
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().DeleteTransaction(ctx, id)
}

func (s *Store) ClearTransactions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().ClearTransactions(ctx)
}

func (s *Store) InsertSession(ctx context.Context, sess ledger.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().InsertSession(ctx, sess)
}

func (s *Store) GetSession(ctx context.Context, id string) (ledger.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetSession(ctx, id)
}

func (s *Store) ListSessions(ctx context.Context) ([]ledger.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListSessions(ctx)
}

func (s *Store) ListSessionsByStatus(ctx context.Context, status ledger.SessionStatus) ([]ledger.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListSessionsByStatus(ctx, status)
}

func (s *Store) PutSession(ctx context.Context, sess ledger.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().PutSession(ctx, sess)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().DeleteSession(ctx, id)
}

// =============================================================================
// TRANSACTIONS (WithTx)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(c conn) error { return fn(txStore{conn: c}) })
}

// inTx assumes s.mu is held.
func (s *Store) inTx(ctx context.Context, fn func(c conn) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(conn{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the view handed to WithTx callbacks. The parent lock is
// already held, so it talks to the *sql.Tx directly.
type txStore struct {
	conn
}

// =============================================================================
// PRODUCT CATALOG (ledger.CatalogStore interface)
// =============================================================================

const productColumns = `id, name, price, category, description, in_stock, hidden, sort_order`

func (s *Store) Products(ctx context.Context) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryProducts(ctx, s.db, `SELECT `+productColumns+` FROM products ORDER BY sort_order, id`)
}

func (s *Store) GetProduct(ctx context.Context, id string) (ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products, err := queryProducts(ctx, s.db, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if err != nil {
		return ledger.Product{}, err
	}
	if len(products) == 0 {
		return ledger.Product{}, &ledger.NotFoundError{Kind: "product", ID: id}
	}
	return products[0], nil
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertProduct(ctx, s.db, p)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

// ReplaceProducts swaps the whole catalog atomically.
func (s *Store) ReplaceProducts(ctx context.Context, products []ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(c conn) error {
		if _, err := c.q.ExecContext(ctx, `DELETE FROM products`); err != nil {
			return err
		}
		for _, p := range products {
			if err := upsertProduct(ctx, c.q, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertProduct(ctx context.Context, q querier, p ledger.Product) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			category = excluded.category,
			description = excluded.description,
			in_stock = excluded.in_stock,
			hidden = excluded.hidden,
			sort_order = excluded.sort_order
	`,
		p.ID,
		p.Name,
		p.Price.String(),
		string(p.Category),
		p.Description,
		p.InStock,
		p.Hidden,
		p.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func queryProducts(ctx context.Context, q querier, query string, args ...any) ([]ledger.Product, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Product
	for rows.Next() {
		var (
			p               ledger.Product
			price, category string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &category, &p.Description, &p.InStock, &p.Hidden, &p.Order); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %s: bad price: %w", p.ID, err)
		}
		p.Category = ledger.Category(category)
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func encodeItems(items []ledger.Item) (string, error) {
	if items == nil {
		items = []ledger.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	return string(data), nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}

var (
	_ ledger.TxStore      = (*Store)(nil)
	_ ledger.CatalogStore = (*Store)(nil)
	_ ledger.Store        = txStore{}
)
