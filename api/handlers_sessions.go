package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kermes/pos-ledger/ledger"
)

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// ListSessions returns every session, newest start first.
// GET /api/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Sessions.ListSessions(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list sessions", err)
		return
	}

	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSession starts a session and links transactions when a range was
// given.
// POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := ledger.CreateSessionInput{
		Name:        req.Name,
		Description: req.Description,
		EndDate:     req.EndDate,
	}
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	}

	sess, linked, err := h.Flows.CreateSession(r.Context(), in)
	if err != nil {
		msg := "Failed to create session"
		if sess.ID != "" {
			msg = "Session created but linking transactions failed"
		}
		h.writeLedgerError(w, r, msg, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{Session: toSessionDTO(sess), LinkedCount: linked})
}

// GetActiveSession returns the active session or 404.
// GET /api/sessions/active
func (h *Handler) GetActiveSession(w http.ResponseWriter, r *http.Request) {
	active, err := h.Sessions.GetActiveSession(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to load active session", err)
		return
	}
	if active == nil {
		writeError(w, http.StatusNotFound, "No active session", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*active))
}

// CheckOverlap reports whether a manual range would collide with another
// session's manual range.
// POST /api/sessions/overlap
func (h *Handler) CheckOverlap(w http.ResponseWriter, r *http.Request) {
	var req OverlapRequest
	if !h.decode(w, r, &req) {
		return
	}

	conflict, err := h.Sessions.CheckDateRangeOverlap(r.Context(), req.StartDate, req.EndDate, req.ExcludeID)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to check overlap", err)
		return
	}

	resp := OverlapResponse{Overlaps: conflict != nil}
	if conflict != nil {
		dto := toSessionDTO(*conflict)
		resp.Conflict = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSession returns a single session.
// GET /api/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to get session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(sess))
}

// UpdateSession edits a session and re-partitions transactions when its
// dates changed.
// PUT /api/sessions/{id}
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req UpdateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	upd := ledger.SessionUpdate{
		Name:               req.Name,
		Description:        req.Description,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		ClearEndDate:       req.ClearEndDate,
		HasManualDateRange: req.HasManualDateRange,
	}
	if req.ClearEndDate {
		upd.EndDate = nil
	}
	if upd.HasManualDateRange == nil && (upd.StartDate != nil || upd.EndDate != nil) {
		manual := true
		upd.HasManualDateRange = &manual
	}

	sess, res, err := h.Flows.EditSession(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to update session", err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		Session:       toSessionDTO(sess),
		LinkedCount:   res.LinkedCount,
		UnlinkedCount: res.UnlinkedCount,
	})
}

// DeleteSession removes a session and detaches its transactions.
// DELETE /api/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.Flows.DeleteSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to delete session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared_count": cleared})
}

// PauseSession pauses a session.
// POST /api/sessions/{id}/pause
func (h *Handler) PauseSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ledger.StatusPaused, h.Sessions.PauseSession)
}

// ResumeSession makes a session the active one.
// POST /api/sessions/{id}/resume
func (h *Handler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ledger.StatusActive, h.Sessions.ResumeSession)
}

// CompleteSession closes a session for good.
// POST /api/sessions/{id}/complete
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ledger.StatusCompleted, h.Sessions.CompleteSession)
}

// ClearSessionDates drops the manual date range.
// POST /api/sessions/{id}/clear-dates
func (h *Handler) ClearSessionDates(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.ClearManualDateRange(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to clear session dates", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(sess))
}

// LinkSession links transactions by the session's date range. With
// ?unlink=true transactions of other sessions inside the window are moved.
// POST /api/sessions/{id}/link
func (h *Handler) LinkSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var (
		res ledger.LinkResult
		err error
	)
	if r.URL.Query().Get("unlink") == "true" {
		res, err = h.Sessions.LinkTransactionsByDateRangeWithUnlink(ctx, id)
	} else {
		res.LinkedCount, err = h.Sessions.LinkTransactionsByDateRange(ctx, id)
	}
	if err != nil {
		h.writeLedgerError(w, r, "Failed to link transactions", err)
		return
	}
	h.Metrics.linked(res.LinkedCount, "linked")
	h.Metrics.linked(res.UnlinkedCount, "moved")

	writeJSON(w, http.StatusOK, res)
}

// SessionStats returns totals and best sellers of a session.
// GET /api/sessions/{id}/stats
func (h *Handler) SessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reports.SessionStats(r.Context(), chi.URLParam(r, "id"), h.TopProducts)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to compute session stats", err)
		return
	}

	top := make([]ProductSalesDTO, len(stats.TopProducts))
	for i, p := range stats.TopProducts {
		top[i] = ProductSalesDTO{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			Quantity:    p.Quantity,
			Revenue:     money(p.Revenue),
		}
	}
	writeJSON(w, http.StatusOK, SessionStatsDTO{
		Valuation:         ValuationRecordedTotal,
		TransactionCount:  stats.TransactionCount,
		TotalRevenue:      money(stats.TotalRevenue),
		TotalItems:        stats.TotalItems,
		AverageOrderValue: money(stats.AverageOrderValue),
		TopProducts:       top,
	})
}

// SessionTransactions lists the transactions that belong to a session.
// GET /api/sessions/{id}/transactions
func (h *Handler) SessionTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Reports.SessionTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list session transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to ledger.SessionStatus,
	fn func(ctx context.Context, id string) (ledger.Session, error)) {
	sess, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to change session status", err)
		return
	}
	h.Metrics.transition(string(to))
	writeJSON(w, http.StatusOK, toSessionDTO(sess))
}
