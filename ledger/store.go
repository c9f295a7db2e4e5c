/*
store.go - Persistence contracts for transactions, sessions and products

PURPOSE:
  Defines the interface between the ledger and the record store. The
  ledger and the session manager each own one collection ("transactions",
  "sessions") in a shared store; the product catalog lives next to them.

KEY INTERFACES:
  TransactionStore: transaction CRUD plus range scan and bulk write-back
  SessionStore:     session CRUD
  CatalogStore:     product catalog (read by reports, edited by admins)
  TxStore:          runs several writes as one unit

BULK OPERATIONS:
  Cross-record operations (linking, unlinking) read every transaction
  once, decide in memory, then write back with PutTransactions, which is
  atomic in every implementation.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: durable SQLite store
  - ledger/store/memory.go: in-memory store for tests and dev

SEE ALSO:
  - ledger.go, sessions.go: consumers
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// TRANSACTION STORE
// =============================================================================

// TransactionStore persists transactions.
type TransactionStore interface {
	// InsertTransaction assigns tx.ID and stores the record.
	InsertTransaction(ctx context.Context, tx *Transaction) error

	// GetTransaction returns a *NotFoundError when id is absent.
	GetTransaction(ctx context.Context, id TransactionID) (Transaction, error)

	// ListTransactions returns every record in id order.
	ListTransactions(ctx context.Context) ([]Transaction, error)

	// ListTransactionsInRange returns records whose date is in [from, to].
	ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]Transaction, error)

	// PutTransaction replaces an existing record.
	PutTransaction(ctx context.Context, tx Transaction) error

	// PutTransactions replaces several records atomically.
	PutTransactions(ctx context.Context, txs []Transaction) error

	// DeleteTransaction is idempotent.
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// ClearTransactions removes every transaction.
	ClearTransactions(ctx context.Context) error
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore persists sessions.
type SessionStore interface {
	InsertSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	ListSessionsByStatus(ctx context.Context, status SessionStatus) ([]Session, error)
	PutSession(ctx context.Context, s Session) error
	DeleteSession(ctx context.Context, id string) error
}

// Store is the shared namespace holding both collections.
type Store interface {
	TransactionStore
	SessionStore
}

// TxStore runs fn against a transactional view of the store.
// If fn returns an error every write made through the view is discarded.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// PRODUCT CATALOG
// =============================================================================

// Catalog is the read side reports depend on.
type Catalog interface {
	Products(ctx context.Context) ([]Product, error)
}

// CatalogStore is the editable product catalog.
type CatalogStore interface {
	Catalog
	GetProduct(ctx context.Context, id string) (Product, error)
	PutProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id string) error
	ReplaceProducts(ctx context.Context, products []Product) error
}
