/*
sessions.go - Session Manager

PURPOSE:
  Owns the session lifecycle and the algorithm that associates
  transactions with sessions by date range.

STATE MACHINE:
  active -> paused -> active -> ... -> completed
  paused -> completed
  completed is terminal.

ONE ACTIVE SESSION:
  CreateSession and ResumeSession pause every other active session first.
  This is a scan-and-pause pre-step, not a store constraint: under
  concurrent callers two sessions can briefly be active. A failure to
  pause is logged and does not block the caller.

LINKING:
  LinkTransactionsByDateRange only claims unassigned transactions.
  LinkTransactionsByDateRangeWithUnlink additionally takes over
  transactions owned by other sessions inside the window. It is the
  re-partitioning step run after a session's dates are edited.
  Both read all transactions once and write back in one bulk put.
  When two windows could claim the same transaction, whichever link runs
  first wins.

DELETION:
  DeleteSession only removes the session. Clearing SessionID from its
  transactions is the caller's second step (api.Workflows.DeleteSession).
  Until that runs, the dangling id is read back as "unassigned".

SEE ALSO:
  - session.go: Session type
  - report.go: ResolveSession
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionManager runs session operations against a Store.
type SessionManager struct {
	Store  Store
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewSessionManager creates a manager over store.
func NewSessionManager(store Store, logger zerolog.Logger) *SessionManager {
	return &SessionManager{Store: store, Logger: logger, Now: time.Now}
}

// WithStore returns a copy bound to another store.
func (m *SessionManager) WithStore(store Store) *SessionManager {
	cp := *m
	cp.Store = store
	return &cp
}

func (m *SessionManager) now() time.Time { return m.Now().UTC() }

func newSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// CreateSession validates input, pauses any active session and stores a
// new active session.
func (m *SessionManager) CreateSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Session{}, invalid("name", "required")
	}

	now := m.now()
	start := in.StartDate
	if start.IsZero() {
		start = now
	}
	start = start.UTC()

	var end *time.Time
	if in.EndDate != nil {
		e := in.EndDate.UTC()
		if e.Before(start) {
			return Session{}, invalid("endDate", "before startDate")
		}
		end = &e
		conflict, err := m.CheckDateRangeOverlap(ctx, start, end, "")
		if err != nil {
			return Session{}, err
		}
		if conflict != nil {
			return Session{}, &OverlapError{Conflict: *conflict}
		}
	}

	m.pauseOthers(ctx, "")

	s := Session{
		ID:                 newSessionID(now),
		Name:               name,
		Description:        in.Description,
		Status:             StatusActive,
		StartDate:          start,
		EndDate:            end,
		HasManualDateRange: end != nil,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := m.Store.InsertSession(ctx, s); err != nil {
		return Session{}, storageErr("create session", err)
	}

	m.Logger.Info().Str("session_id", s.ID).Str("name", s.Name).
		Bool("manual_range", s.HasManualDateRange).Msg("session created")
	return s, nil
}

// pauseOthers pauses every active session except keepID. Best-effort.
func (m *SessionManager) pauseOthers(ctx context.Context, keepID string) {
	active, err := m.Store.ListSessionsByStatus(ctx, StatusActive)
	if err != nil {
		m.Logger.Warn().Err(err).Msg("could not list active sessions")
		return
	}
	for _, s := range active {
		if s.ID == keepID {
			continue
		}
		if _, err := m.setStatus(ctx, s.ID, StatusPaused); err != nil {
			m.Logger.Warn().Err(err).Str("session_id", s.ID).Msg("could not pause active session")
			continue
		}
		m.Logger.Info().Str("session_id", s.ID).Msg("auto-paused active session")
	}
}

// GetSession returns a session by id.
func (m *SessionManager) GetSession(ctx context.Context, id string) (Session, error) {
	s, err := m.Store.GetSession(ctx, id)
	return s, storageErr("get session", err)
}

// ListSessions returns every session, newest start first.
func (m *SessionManager) ListSessions(ctx context.Context) ([]Session, error) {
	sessions, err := m.Store.ListSessions(ctx)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	sortByStartDesc(sessions)
	return sessions, nil
}

// GetActiveSession returns the active session or nil.
// More than one active session is a bug; the first one found is returned.
func (m *SessionManager) GetActiveSession(ctx context.Context) (*Session, error) {
	active, err := m.Store.ListSessionsByStatus(ctx, StatusActive)
	if err != nil {
		return nil, storageErr("get active session", err)
	}
	if len(active) == 0 {
		return nil, nil
	}
	if len(active) > 1 {
		m.Logger.Error().Int("count", len(active)).Msg("more than one active session")
	}
	s := active[0]
	return &s, nil
}

// PauseSession moves a session to paused.
func (m *SessionManager) PauseSession(ctx context.Context, id string) (Session, error) {
	return m.setStatus(ctx, id, StatusPaused)
}

// ResumeSession pauses every other active session, then activates id.
func (m *SessionManager) ResumeSession(ctx context.Context, id string) (Session, error) {
	s, err := m.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !CanTransition(s.Status, StatusActive) {
		return Session{}, invalid("status", "cannot resume a completed session")
	}
	m.pauseOthers(ctx, id)
	return m.setStatus(ctx, id, StatusActive)
}

// CompleteSession closes a session and stamps its end date.
func (m *SessionManager) CompleteSession(ctx context.Context, id string) (Session, error) {
	s, err := m.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !CanTransition(s.Status, StatusCompleted) {
		return Session{}, invalid("status", "session already completed")
	}
	now := m.now()
	s.Status = StatusCompleted
	s.EndDate = &now
	s.UpdatedAt = now
	if err := m.Store.PutSession(ctx, s); err != nil {
		return Session{}, storageErr("complete session", err)
	}
	m.Logger.Info().Str("session_id", id).Msg("session completed")
	return s, nil
}

func (m *SessionManager) setStatus(ctx context.Context, id string, status SessionStatus) (Session, error) {
	s, err := m.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !CanTransition(s.Status, status) {
		return Session{}, invalid("status", fmt.Sprintf("cannot move from %s to %s", s.Status, status))
	}
	s.Status = status
	s.UpdatedAt = m.now()
	if err := m.Store.PutSession(ctx, s); err != nil {
		return Session{}, storageErr("update session status", err)
	}
	return s, nil
}

// UpdateSession merges upd into a session.
//
// Date-affecting fields are rejected for completed sessions. When the
// merged session has a manual range, it is checked for overlaps against
// the other manual sessions.
func (m *SessionManager) UpdateSession(ctx context.Context, id string, upd SessionUpdate) (Session, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return Session{}, invalid("name", "required")
	}

	s, err := m.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.Status == StatusCompleted && upd.TouchesDates() {
		return Session{}, invalid("dates", "cannot modify date range of completed sessions")
	}

	if upd.Name != nil {
		s.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	if upd.StartDate != nil {
		s.StartDate = upd.StartDate.UTC()
	}
	if upd.ClearEndDate {
		s.EndDate = nil
	}
	if upd.EndDate != nil {
		e := upd.EndDate.UTC()
		s.EndDate = &e
	}
	if upd.HasManualDateRange != nil {
		s.HasManualDateRange = *upd.HasManualDateRange
	}

	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return Session{}, invalid("endDate", "before startDate")
	}
	if upd.TouchesDates() && s.HasManualDateRange {
		conflict, err := m.CheckDateRangeOverlap(ctx, s.StartDate, s.EndDate, s.ID)
		if err != nil {
			return Session{}, err
		}
		if conflict != nil {
			return Session{}, &OverlapError{Conflict: *conflict}
		}
	}

	s.UpdatedAt = m.now()
	if err := m.Store.PutSession(ctx, s); err != nil {
		return Session{}, storageErr("update session", err)
	}
	return s, nil
}

// DeleteSession removes the session record. Linked transactions are left
// untouched; see api.Workflows.DeleteSession for the full operation.
func (m *SessionManager) DeleteSession(ctx context.Context, id string) error {
	if _, err := m.GetSession(ctx, id); err != nil {
		return err
	}
	if err := m.Store.DeleteSession(ctx, id); err != nil {
		return storageErr("delete session", err)
	}
	m.Logger.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

// ClearManualDateRange resets the window to [createdAt, open] and drops
// the manual flag. Transactions linked earlier keep their session id.
func (m *SessionManager) ClearManualDateRange(ctx context.Context, id string) (Session, error) {
	s, err := m.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.Status == StatusCompleted {
		return Session{}, invalid("dates", "cannot modify date range of completed sessions")
	}
	s.StartDate = s.CreatedAt
	s.EndDate = nil
	s.HasManualDateRange = false
	s.UpdatedAt = m.now()
	if err := m.Store.PutSession(ctx, s); err != nil {
		return Session{}, storageErr("clear manual date range", err)
	}
	return s, nil
}

// =============================================================================
// OVERLAP
// =============================================================================

// CheckDateRangeOverlap returns the first manual-range session whose window
// intersects [start, end], or nil. A nil end means "open" and is compared
// as FarFuture. excludeID is skipped (the session being edited).
func (m *SessionManager) CheckDateRangeOverlap(ctx context.Context, start time.Time, end *time.Time, excludeID string) (*Session, error) {
	sessions, err := m.Store.ListSessions(ctx)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	sortByStartDesc(sessions)
	if conflict := FindOverlap(sessions, start, end, excludeID); conflict != nil {
		c := conflict.Clone()
		return &c, nil
	}
	return nil, nil
}

// FindOverlap is the pure form of CheckDateRangeOverlap.
func FindOverlap(sessions []Session, start time.Time, end *time.Time, excludeID string) *Session {
	checkEnd := FarFuture
	if end != nil {
		checkEnd = *end
	}
	for i := range sessions {
		s := sessions[i]
		if !s.HasManualDateRange || s.ID == excludeID {
			continue
		}
		s2, e2 := s.overlapBounds()
		if !start.After(e2) && !s2.After(checkEnd) {
			return &sessions[i]
		}
	}
	return nil
}

// =============================================================================
// LINKING
// =============================================================================

// LinkTransactionsByDateRange assigns every unassigned transaction inside
// the session window to the session. Transactions that already belong to
// another existing session are never touched.
func (m *SessionManager) LinkTransactionsByDateRange(ctx context.Context, id string) (int, error) {
	res, err := m.link(ctx, id, false)
	return res.LinkedCount, err
}

// LinkTransactionsByDateRangeWithUnlink re-partitions the window: unassigned
// transactions are linked and transactions of other sessions are moved to
// this one. Completed sessions are rejected before anything is read.
func (m *SessionManager) LinkTransactionsByDateRangeWithUnlink(ctx context.Context, id string) (LinkResult, error) {
	return m.link(ctx, id, true)
}

func (m *SessionManager) link(ctx context.Context, id string, steal bool) (LinkResult, error) {
	s, err := m.GetSession(ctx, id)
	if err != nil {
		return LinkResult{}, err
	}
	if steal && s.Status == StatusCompleted {
		return LinkResult{}, invalid("status", "cannot modify date range of completed sessions")
	}

	sessions, err := m.Store.ListSessions(ctx)
	if err != nil {
		return LinkResult{}, storageErr("list sessions", err)
	}
	known := sessionIDs(sessions)

	all, err := m.Store.ListTransactions(ctx)
	if err != nil {
		return LinkResult{}, storageErr("list transactions", err)
	}

	now := m.now()
	var res LinkResult
	var changed []Transaction
	for _, tx := range all {
		if tx.SessionID == s.ID || !s.Contains(tx.TransactionDate, now) {
			continue
		}
		switch {
		case !known[tx.SessionID]:
			res.LinkedCount++
		case steal:
			res.UnlinkedCount++
		default:
			continue
		}
		tx.SessionID = s.ID
		changed = append(changed, tx)
	}

	if len(changed) == 0 {
		m.Logger.Debug().Str("session_id", id).Msg("no transactions to link")
		return res, nil
	}
	if err := m.Store.PutTransactions(ctx, changed); err != nil {
		return LinkResult{}, storageErr("link transactions", err)
	}

	m.Logger.Info().Str("session_id", id).
		Int("linked", res.LinkedCount).Int("unlinked", res.UnlinkedCount).
		Msg("transactions linked by date range")
	return res, nil
}

func sessionIDs(sessions []Session) map[string]bool {
	ids := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		ids[s.ID] = true
	}
	return ids
}

func sortByStartDesc(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartDate.After(sessions[j].StartDate)
	})
}
