package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
)

// =============================================================================
// STARTUP RECONCILIATION - Fold append logs into deterministic state
// =============================================================================

// State is the in-memory state rebuilt from the durable logs. The fold is a
// sequential scan in the store's native order: a later record for the same
// key overwrites an earlier one.
type State struct {
	People       []roster.Person
	Entries      []attendance.Entry
	Transactions []payroll.Transaction
}

// Load reads every table and folds the logs. Only transactions dated inside
// the given pay cycle are kept: earlier cycles were already settled by their
// payroll run, their records stay in the log for audit only.
//
// The date filter alone is not enough on the closing day itself: a restart
// between the payroll run and midnight still sees the just-settled cycle as
// the current period. The payout log marks the settle instant, so any
// transaction recorded at or before the latest payout is dropped too.
//
// Malformed records are logged and skipped rather than aborting startup; one
// bad spreadsheet row must not take the bot down.
func Load(ctx context.Context, s Store, cycle payroll.Period) (State, error) {
	var state State

	rosterRecs, err := s.ReadRoster(ctx)
	if err != nil {
		return State{}, fmt.Errorf("read roster log: %w", err)
	}
	byPerson := make(map[string]roster.Person)
	var order []string
	for _, rec := range rosterRecs {
		if _, seen := byPerson[rec.PersonID]; !seen {
			order = append(order, rec.PersonID)
		}
		byPerson[rec.PersonID] = rec.Person()
	}
	for _, id := range order {
		state.People = append(state.People, byPerson[id])
	}

	attRecs, err := s.ReadAttendance(ctx)
	if err != nil {
		return State{}, fmt.Errorf("read attendance log: %w", err)
	}
	type dayKey struct {
		personID string
		date     string
	}
	byDay := make(map[dayKey]attendance.Entry)
	var dayOrder []dayKey
	for _, rec := range attRecs {
		e, err := rec.Entry()
		if err != nil {
			log.Printf("[Store] Skipping attendance record: %v", err)
			continue
		}
		k := dayKey{personID: e.PersonID, date: e.Date.String()}
		if _, seen := byDay[k]; !seen {
			dayOrder = append(dayOrder, k)
		}
		byDay[k] = e
	}
	for _, k := range dayOrder {
		state.Entries = append(state.Entries, byDay[k])
	}

	payoutRecs, err := s.ReadPayouts(ctx)
	if err != nil {
		return State{}, fmt.Errorf("read payout log: %w", err)
	}
	var lastClose time.Time
	for _, rec := range payoutRecs {
		if rec.RecordedAt.After(lastClose) {
			lastClose = rec.RecordedAt
		}
	}

	txRecs, err := s.ReadTransactions(ctx)
	if err != nil {
		return State{}, fmt.Errorf("read transaction log: %w", err)
	}
	for _, rec := range txRecs {
		tx, err := rec.Transaction()
		if err != nil {
			log.Printf("[Store] Skipping transaction record: %v", err)
			continue
		}
		if !cycle.Contains(tx.Date) {
			continue
		}
		if !lastClose.IsZero() && !tx.RecordedAt.After(lastClose) {
			continue
		}
		state.Transactions = append(state.Transactions, tx)
	}

	return state, nil
}
