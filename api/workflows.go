/*
workflows.go - Multi-step session operations

PURPOSE:
  The ledger keeps session edits and transaction re-linking as separate
  operations. The UI always runs them in pairs; this file is where the
  pairs live so every HTTP entry point runs them the same way.

FLOWS:
  CreateSession:  create, then link by date range when a range was given
  EditSession:    update, then re-partition with unlink when dates changed
  DeleteSession:  delete the session, then clear its id from transactions

ATOMICITY:
  DeleteSession runs both steps inside WithTx when the store supports it.
  The other flows tolerate a failed second step: the session change is
  kept and the error is returned, so the caller can retry the link.
*/
package api

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kermes/pos-ledger/ledger"
)

// Workflows runs the paired session operations.
type Workflows struct {
	Store    ledger.Store
	Ledger   *ledger.Ledger
	Sessions *ledger.SessionManager
	Metrics  *Metrics
	Logger   zerolog.Logger
}

// CreateSession creates a session and links existing transactions when a
// start or end date was supplied.
func (f *Workflows) CreateSession(ctx context.Context, in ledger.CreateSessionInput) (ledger.Session, int, error) {
	sess, err := f.Sessions.CreateSession(ctx, in)
	if err != nil {
		return ledger.Session{}, 0, err
	}
	f.Metrics.transition(string(ledger.StatusActive))

	if in.StartDate.IsZero() && in.EndDate == nil {
		return sess, 0, nil
	}
	linked, err := f.Sessions.LinkTransactionsByDateRange(ctx, sess.ID)
	if err != nil {
		f.Logger.Error().Err(err).Str("session_id", sess.ID).Msg("session created but linking failed")
		return sess, 0, err
	}
	f.Metrics.linked(linked, "linked")
	return sess, linked, nil
}

// EditSession applies upd and, when the date range changed, re-partitions
// transactions around the new window.
func (f *Workflows) EditSession(ctx context.Context, id string, upd ledger.SessionUpdate) (ledger.Session, ledger.LinkResult, error) {
	sess, err := f.Sessions.UpdateSession(ctx, id, upd)
	if err != nil {
		return ledger.Session{}, ledger.LinkResult{}, err
	}
	if !upd.TouchesDates() {
		return sess, ledger.LinkResult{}, nil
	}

	res, err := f.Sessions.LinkTransactionsByDateRangeWithUnlink(ctx, id)
	if err != nil {
		f.Logger.Error().Err(err).Str("session_id", id).Msg("session updated but re-linking failed")
		return sess, ledger.LinkResult{}, err
	}
	f.Metrics.linked(res.LinkedCount, "linked")
	f.Metrics.linked(res.UnlinkedCount, "moved")
	return sess, res, nil
}

// DeleteSession removes the session and detaches its transactions.
func (f *Workflows) DeleteSession(ctx context.Context, id string) (int, error) {
	run := func(l *ledger.Ledger, m *ledger.SessionManager) (int, error) {
		if err := m.DeleteSession(ctx, id); err != nil {
			return 0, err
		}
		return l.ClearSessionID(ctx, id)
	}

	txs, ok := f.Store.(ledger.TxStore)
	if !ok {
		return run(f.Ledger, f.Sessions)
	}

	var cleared int
	err := txs.WithTx(ctx, func(s ledger.Store) error {
		n, err := run(f.Ledger.WithStore(s), f.Sessions.WithStore(s))
		cleared = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}
