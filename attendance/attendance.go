/*
Package attendance records one work-status entry per person per calendar day.

PURPOSE:
  The attendance ledger is the core state machine of the bot. Per (person,
  date) the state is NoEntry -> Recorded, terminal except through an admin
  override, which is a tagged replace: the prior entry is swapped for a new
  one, never freely edited.

INVARIANT:
  At most one entry per (person, date). A second non-override attempt is
  rejected with DuplicateEntryError and leaves the existing entry untouched.

POLICY CHECKS (CanCheckIn, in priority order):
  1. NotRegistered  - unknown or inactive person (admins pass)
  2. RestDay        - the weekly rest day (admins pass only if configured)
  3. PastCutoff     - at/after the daily cutoff (admins always pass)
  4. AlreadyRecorded

RE-VALIDATION:
  CanCheckIn is advisory: handlers call it before slow external work, and the
  answer can go stale while the handler is suspended. RecordEntry therefore
  re-checks the duplicate invariant under its own lock at write time, so two
  rapid duplicate check-ins cannot both land.

SEE ALSO:
  - roster: registration and admin lookups
  - payroll: aggregates entries into work units at cycle close
*/
package attendance

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/roster"
)

// =============================================================================
// WORK TYPES
// =============================================================================

// WorkType is the category chosen in the check-in dialogue.
type WorkType string

const (
	WorkFull          WorkType = "full"
	WorkHalfMorning   WorkType = "half-morning"
	WorkHalfAfternoon WorkType = "half-afternoon"
	WorkOff           WorkType = "off"
)

var halfUnit = decimal.NewFromFloat(0.5)

// ParseWorkType recognizes the wire token for a work type.
func ParseWorkType(s string) (WorkType, bool) {
	switch WorkType(s) {
	case WorkFull, WorkHalfMorning, WorkHalfAfternoon, WorkOff:
		return WorkType(s), true
	}
	return "", false
}

// Units returns the fractional day-equivalent used for gross pay:
// full = 1.0, half = 0.5, off = 0.
func (w WorkType) Units() decimal.Decimal {
	switch w {
	case WorkFull:
		return decimal.NewFromInt(1)
	case WorkHalfMorning, WorkHalfAfternoon:
		return halfUnit
	default:
		return decimal.Zero
	}
}

// Label returns a human-readable name for replies and reports.
func (w WorkType) Label() string {
	switch w {
	case WorkFull:
		return "full day"
	case WorkHalfMorning:
		return "half day (morning)"
	case WorkHalfAfternoon:
		return "half day (afternoon)"
	case WorkOff:
		return "day off"
	}
	return string(w)
}

// Entry is one person's recorded work status for one calendar day.
// Immutable once recorded, except via OverrideEntry.
type Entry struct {
	ID         string
	PersonID   string
	Date       clock.Date
	Type       WorkType
	RecordedAt time.Time
	// OverriddenBy is the admin id when the entry replaced a prior one.
	OverriddenBy string
}

// =============================================================================
// CHECK-IN DECISIONS
// =============================================================================

// Reason codes for a rejected check-in.
type Reason string

const (
	ReasonNotRegistered   Reason = "not_registered"
	ReasonRestDay         Reason = "rest_day"
	ReasonPastCutoff      Reason = "past_cutoff"
	ReasonAlreadyRecorded Reason = "already_recorded"
)

// Decision is the outcome of CanCheckIn.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allowed = Decision{Allowed: true}

func rejected(r Reason) Decision { return Decision{Reason: r} }

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDuplicateEntry is returned when an entry already exists for the date.
	ErrDuplicateEntry = errors.New("attendance entry already recorded for this date")

	// ErrNotAuthorized is returned when a non-admin attempts an override.
	ErrNotAuthorized = errors.New("actor is not an admin")
)

// DuplicateEntryError carries the conflicting entry.
type DuplicateEntryError struct {
	PersonID string
	Date     clock.Date
	Existing Entry
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("entry already recorded: %s on %s (%s)",
		e.PersonID, e.Date, e.Existing.Type)
}

func (e *DuplicateEntryError) Unwrap() error { return ErrDuplicateEntry }

// =============================================================================
// RULES
// =============================================================================

// Rules are the configured check-in constraints.
type Rules struct {
	// Cutoff is the local time-of-day at/after which non-admin check-ins
	// are rejected.
	Cutoff clock.TimeOfDay

	// RestDay is the weekly day with no check-in at all.
	RestDay time.Weekday

	// RestDayAppliesAdmins controls whether admins are blocked on the rest
	// day too. The observed behavior varies, so it is a flag, default true.
	RestDayAppliesAdmins bool
}

// Directory is the roster surface the ledger needs.
type Directory interface {
	Find(id string) (roster.Person, bool)
	IsAdmin(id string) bool
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger holds attendance entries in memory. The durable store is written by
// the command layer after a successful record; this ledger is the
// authoritative in-process copy, rebuildable from the store's append log.
type Ledger struct {
	mu      sync.RWMutex
	entries map[clock.Date]map[string]Entry
	dir     Directory
	rules   Rules
}

func NewLedger(dir Directory, rules Rules) *Ledger {
	return &Ledger{
		entries: make(map[clock.Date]map[string]Entry),
		dir:     dir,
		rules:   rules,
	}
}

// CanCheckIn evaluates the policy gates for a check-in at `now`.
// The reasons are checked in a fixed priority order so the user always gets
// the most fundamental blocker first.
func (l *Ledger) CanCheckIn(personID string, now time.Time) Decision {
	admin := l.dir.IsAdmin(personID)

	p, known := l.dir.Find(personID)
	if (!known || !p.Active) && !admin {
		return rejected(ReasonNotRegistered)
	}

	if now.Weekday() == l.rules.RestDay {
		if !admin || l.rules.RestDayAppliesAdmins {
			return rejected(ReasonRestDay)
		}
	}

	if !admin && l.rules.Cutoff.AtOrAfter(now) {
		return rejected(ReasonPastCutoff)
	}

	if l.HasEntryForDate(personID, clock.DateOf(now)) {
		return rejected(ReasonAlreadyRecorded)
	}

	return allowed
}

// RecordEntry appends the entry for (personID, date). The duplicate check is
// performed here, under the ledger lock, regardless of any earlier
// CanCheckIn: pre-checks can go stale across an awaited external call.
func (l *Ledger) RecordEntry(personID string, date clock.Date, wt WorkType, now time.Time) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.entries[date][personID]; ok {
		return Entry{}, &DuplicateEntryError{PersonID: personID, Date: date, Existing: existing}
	}

	e := Entry{
		ID:         uuid.NewString(),
		PersonID:   personID,
		Date:       date,
		Type:       wt,
		RecordedAt: now,
	}
	l.putLocked(e)
	return e, nil
}

// OverrideEntry replaces any existing entry for (personID, date). Admin only;
// always succeeds for an admin actor.
func (l *Ledger) OverrideEntry(personID string, date clock.Date, wt WorkType, by string, now time.Time) (Entry, error) {
	if !l.dir.IsAdmin(by) {
		return Entry{}, ErrNotAuthorized
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		ID:           uuid.NewString(),
		PersonID:     personID,
		Date:         date,
		Type:         wt,
		RecordedAt:   now,
		OverriddenBy: by,
	}
	l.putLocked(e)
	return e, nil
}

// Restore inserts an entry as-is, without policy checks. Used by the startup
// reconciliation fold; later records for the same (person, date) overwrite
// earlier ones, matching the store's append ordering.
func (l *Ledger) Restore(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(e)
}

func (l *Ledger) putLocked(e Entry) {
	day := l.entries[e.Date]
	if day == nil {
		day = make(map[string]Entry)
		l.entries[e.Date] = day
	}
	day[e.PersonID] = e
}

// =============================================================================
// QUERIES
// =============================================================================

func (l *Ledger) HasEntryForDate(personID string, date clock.Date) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[date][personID]
	return ok
}

// EntryForDate returns the entry for (personID, date), if any.
func (l *Ledger) EntryForDate(personID string, date clock.Date) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[date][personID]
	return e, ok
}

// EntriesForPerson returns the person's full history, chronological.
func (l *Ledger) EntriesForPerson(personID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for _, day := range l.entries {
		if e, ok := day[personID]; ok {
			out = append(out, e)
		}
	}
	sortByDate(out)
	return out
}

// EntriesInRange returns the person's entries with Date in [from, to],
// chronological. Used by the payroll aggregation.
func (l *Ledger) EntriesInRange(personID string, from, to clock.Date) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for date, day := range l.entries {
		if date.Before(from) || date.After(to) {
			continue
		}
		if e, ok := day[personID]; ok {
			out = append(out, e)
		}
	}
	sortByDate(out)
	return out
}

// EntriesForDate returns every entry recorded for the date, sorted by person.
func (l *Ledger) EntriesForDate(date clock.Date) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for _, e := range l.entries[date] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonID < out[j].PersonID })
	return out
}

// PruneBefore drops entries older than the date and returns how many were
// removed. Retention is a configuration choice; 0-retention setups never
// call this.
func (l *Ledger) PruneBefore(cutoff clock.Date) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for date, day := range l.entries {
		if date.Before(cutoff) {
			removed += len(day)
			delete(l.entries, date)
		}
	}
	return removed
}

func sortByDate(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
}
