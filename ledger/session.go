package ledger

import (
	"time"
)

// =============================================================================
// SESSION - One event's sales window
// =============================================================================

// SessionStatus is the lifecycle state of a session.
//
//	active <-> paused
//	active | paused -> completed (terminal)
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal move.
// Re-entering the current non-terminal state is allowed and is a no-op.
func CanTransition(from, to SessionStatus) bool {
	if from == StatusCompleted {
		return false
	}
	switch to {
	case StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Session groups transactions of one kermes event.
//
// INVARIANTS:
//   - At most one session is active system-wide (best-effort, see
//     SessionManager.pauseOthers).
//   - Completed sessions never change their date range again.
//   - Two sessions with HasManualDateRange must not overlap
//     (checked on create/edit, not continuously).
type Session struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	Status             SessionStatus `json:"status"`
	StartDate          time.Time     `json:"startDate"`
	EndDate            *time.Time    `json:"endDate,omitempty"`
	HasManualDateRange bool          `json:"hasManualDateRange"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Window returns the closed interval [StartDate, EndDate-or-now].
func (s Session) Window(now time.Time) (time.Time, time.Time) {
	if s.EndDate != nil {
		return s.StartDate, *s.EndDate
	}
	return s.StartDate, now
}

// Contains reports whether t falls inside the session window.
func (s Session) Contains(t, now time.Time) bool {
	start, end := s.Window(now)
	return !t.Before(start) && !t.After(end)
}

// overlapBounds returns the window used for manual-range overlap checks.
// An open end is the far-future sentinel, not "now".
func (s Session) overlapBounds() (time.Time, time.Time) {
	if s.EndDate != nil {
		return s.StartDate, *s.EndDate
	}
	return s.StartDate, FarFuture
}

// Clone returns a copy that does not share the EndDate pointer.
func (s Session) Clone() Session {
	if s.EndDate != nil {
		end := *s.EndDate
		s.EndDate = &end
	}
	return s
}

// CreateSessionInput is the input of SessionManager.CreateSession.
type CreateSessionInput struct {
	Name        string
	Description string
	// StartDate defaults to now when zero.
	StartDate time.Time
	// EndDate, when set, marks the range as manual.
	EndDate *time.Time
}

// SessionUpdate lists the fields UpdateSession may merge. Nil means
// "leave unchanged".
type SessionUpdate struct {
	Name               *string
	Description        *string
	StartDate          *time.Time
	EndDate            *time.Time
	ClearEndDate       bool
	HasManualDateRange *bool
}

// TouchesDates reports whether the update affects the date range.
func (u SessionUpdate) TouchesDates() bool {
	return u.StartDate != nil || u.EndDate != nil || u.ClearEndDate || u.HasManualDateRange != nil
}

// LinkResult reports the outcome of a re-partitioning link.
type LinkResult struct {
	LinkedCount   int `json:"linkedCount"`
	UnlinkedCount int `json:"unlinkedCount"`
}
