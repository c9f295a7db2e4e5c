/*
handlers.go - HTTP API handlers for the kermes ledger

PURPOSE:
  Exposes the ledger, the session manager and the reports via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Transactions:
    GET    /api/transactions               List (optional ?from&to, whole days)
    POST   /api/transactions               Checkout
    GET    /api/transactions/{id}          Get one
    PUT    /api/transactions/{id}          Merge update
    DELETE /api/transactions/{id}          Delete (idempotent)
    POST   /api/transactions/clear         Wipe, needs {"confirm":"DELETE ALL"}
    GET    /api/transactions/export.csv    CSV backup
    GET    /api/transactions/export.xlsx   Spreadsheet export
    POST   /api/transactions/import        CSV restore

  Stats, Sessions, Products, Demo:
    see handlers_stats.go, handlers_sessions.go, handlers_products.go,
    scenarios.go

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store / Catalog: record stores
  - Ledger, Sessions, Reports: domain services
  - Flows: paired session operations (workflows.go)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator struct tags)
  3. Call domain logic
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Overlapping manual date range
  - 500: Storage errors

SECURITY NOTE:
  No authentication. The service is meant for a single till on a local
  network.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/kermes/pos-ledger/export"
	"github.com/kermes/pos-ledger/ledger"
)

// maxImportBytes caps CSV and JSON uploads.
const maxImportBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.Store
	Catalog  ledger.CatalogStore
	Ledger   *ledger.Ledger
	Sessions *ledger.SessionManager
	Reports  *ledger.Reporter
	Flows    *Workflows
	Metrics  *Metrics
	Logger   zerolog.Logger

	// TopProducts limits the best-seller list in session stats.
	TopProducts int

	validate *validator.Validate
	now      func() time.Time

	// Track currently loaded demo data set
	mu          sync.Mutex
	currentDemo string
}

// NewHandler creates a new handler over the given stores.
func NewHandler(store ledger.Store, catalog ledger.CatalogStore, logger zerolog.Logger) *Handler {
	h := &Handler{
		Store:       store,
		Catalog:     catalog,
		Ledger:      ledger.NewLedger(store, logger),
		Sessions:    ledger.NewSessionManager(store, logger),
		Reports:     ledger.NewReporter(store, catalog, logger),
		Metrics:     NewMetrics(),
		Logger:      logger,
		TopProducts: 5,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}
	h.Flows = &Workflows{
		Store:    store,
		Ledger:   h.Ledger,
		Sessions: h.Sessions,
		Metrics:  h.Metrics,
		Logger:   logger,
	}
	return h
}

// SetClock replaces the clock of every domain service.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
	h.Ledger.Now = now
	h.Sessions.Now = now
	h.Reports.Now = now
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns all transactions, or those in [from, to].
// GET /api/transactions?from=2025-05-18&to=2025-05-20
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		txs []ledger.Transaction
		err error
	)
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, perr := h.dateRange(r)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid date range", perr)
			return
		}
		txs, err = h.Ledger.GetTransactionsByDateRange(ctx, from, to)
	} else {
		txs, err = h.Ledger.GetTransactions(ctx)
	}
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// Checkout saves a finalised cart.
// POST /api/transactions
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart := make([]ledger.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		var product ledger.Product
		if item.Product != nil {
			if item.Product.Price.IsNegative() {
				writeError(w, http.StatusBadRequest, "Validation failed", fmt.Errorf("product.price: must not be negative"))
				return
			}
			product = item.Product.toProduct()
		} else {
			p, err := h.Catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				if ledger.IsNotFound(err) {
					writeError(w, http.StatusBadRequest, "Unknown product", err)
					return
				}
				h.writeLedgerError(w, r, "Failed to load product", err)
				return
			}
			product = p
		}
		cart = append(cart, ledger.CartItem{Product: product, Quantity: item.Quantity})
	}

	total := ledger.SumItems(ledger.ItemsFromCart(cart))
	if req.TotalAmount != nil {
		total = *req.TotalAmount
	}

	sessionID := req.SessionID
	if sessionID == "" {
		active, err := h.Sessions.GetActiveSession(ctx)
		if err != nil {
			h.writeLedgerError(w, r, "Failed to load active session", err)
			return
		}
		if active != nil {
			sessionID = active.ID
		}
	}

	tx, err := h.Ledger.SaveTransaction(ctx, cart, total, req.PaymentMethod, sessionID)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to save transaction", err)
		return
	}
	h.Metrics.saved()

	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// GetTransaction returns a single transaction.
// GET /api/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction id", err)
		return
	}

	tx, err := h.Ledger.GetTransaction(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// UpdateTransaction merges fields into a transaction.
// PUT /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction id", err)
		return
	}

	var req UpdateTransactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	upd := ledger.TransactionUpdate{
		TotalAmount:     req.TotalAmount,
		PaymentMethod:   req.PaymentMethod,
		TransactionDate: req.TransactionDate,
		SessionID:       req.SessionID,
	}
	if req.Items != nil {
		items := make([]ledger.Item, 0, len(*req.Items))
		for _, d := range *req.Items {
			it, err := fromItemDTO(d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid item price", err)
				return
			}
			items = append(items, it)
		}
		upd.Items = &items
	}

	tx, err := h.Ledger.UpdateTransaction(r.Context(), id, upd)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to update transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// DeleteTransaction removes a transaction. Unknown ids succeed.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction id", err)
		return
	}

	if err := h.Ledger.DeleteTransaction(r.Context(), id); err != nil {
		h.writeLedgerError(w, r, "Failed to delete transaction", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearTransactions wipes the transaction log.
// POST /api/transactions/clear {"confirm": "DELETE ALL"}
func (h *Handler) ClearTransactions(w http.ResponseWriter, r *http.Request) {
	var req ClearTransactionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Confirm != ClearConfirmation {
		writeError(w, http.StatusBadRequest, "Confirmation phrase does not match",
			fmt.Errorf("send {\"confirm\": %q}", ClearConfirmation))
		return
	}

	if err := h.Ledger.ClearAllTransactions(r.Context()); err != nil {
		h.writeLedgerError(w, r, "Failed to clear transactions", err)
		return
	}
	hlog.FromRequest(r).Warn().Msg("transaction log cleared via API")

	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV streams a CSV backup of every transaction.
// GET /api/transactions/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Ledger.GetTransactions(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list transactions", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment("transactions", h.now(), "csv"))
	if err := ledger.WriteCSV(w, txs); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("csv export failed mid-stream")
	}
}

// ExportXLSX streams a spreadsheet with transactions, daily totals and the
// category summary.
// GET /api/transactions/export.xlsx
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Ledger.GetTransactions(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list transactions", err)
		return
	}
	summary := ledger.SummarizeByCategory(txs)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", attachment("transactions", h.now(), "xlsx"))
	if err := export.Write(w, txs, ledger.DailyStatsOf(txs), &summary); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("xlsx export failed mid-stream")
	}
}

// ImportCSV restores transactions from a CSV backup. Every row becomes a
// new transaction without a session.
// POST /api/transactions/import
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := ledger.ReadCSV(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		h.writeLedgerError(w, r, "Invalid CSV", err)
		return
	}

	malformed := 0
	for _, tx := range txs {
		if tx.ItemsErr != nil {
			malformed++
		}
	}

	n, err := h.Ledger.ImportTransactions(r.Context(), txs)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to import transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{Imported: n, Malformed: malformed})
}

// =============================================================================
// HEALTH
// =============================================================================

// Healthz reports liveness and that the store answers.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Store.ListSessionsByStatus(r.Context(), ledger.StatusActive); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps ledger error categories to HTTP status codes.
func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var overlap *ledger.OverlapError
	switch {
	case errors.As(err, &overlap):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		hlog.FromRequest(r).Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decode reads a JSON body into v and runs its validation tags. On failure
// it writes a 400 and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
	}
	return errors.New(strings.Join(msgs, "; "))
}

func transactionID(r *http.Request) (ledger.TransactionID, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return ledger.TransactionID(id), nil
}

// parseDay accepts a calendar date (2006-01-02, read as UTC) or RFC 3339.
func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// dateRange reads ?from and ?to. A missing "to" is today; a missing "from"
// is the same day as "to".
func (h *Handler) dateRange(r *http.Request) (time.Time, time.Time, error) {
	return h.dateRangeParams(r, "from", "to")
}

func (h *Handler) dateRangeParams(r *http.Request, fromKey, toKey string) (time.Time, time.Time, error) {
	q := r.URL.Query()

	to := h.now().UTC()
	if s := q.Get(toKey); s != "" {
		t, err := parseDay(s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%s: %w", toKey, err)
		}
		to = t
	}
	from := to
	if s := q.Get(fromKey); s != "" {
		t, err := parseDay(s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%s: %w", fromKey, err)
		}
		from = t
	}
	if ledger.EndOfDay(to).Before(ledger.StartOfDay(from)) {
		return time.Time{}, time.Time{}, fmt.Errorf("%s is after %s", fromKey, toKey)
	}
	return from, to, nil
}

func attachment(prefix string, now time.Time, ext string) string {
	return fmt.Sprintf("attachment; filename=%s_%s.%s", prefix, now.UTC().Format("2006-01-02"), ext)
}
