/*
Package payroll holds the weekly money flow: the per-cycle transaction ledger
(cash advances and debt repayments) and the calculator that closes a pay
cycle into payslips.

PURPOSE:
  Advances and repayments are only accepted inside a configured weekday/time
  window, at most one of each per person per cycle ("final answer for this
  week": re-requesting overwrites, it does not accumulate). Repayments apply
  to the person's running debt eagerly, at record time, so mid-cycle debt
  queries are always current.

CYCLE CLOSE:
  The weekly payroll run aggregates attendance into work units, nets advances
  and repayments against gross pay, emits one payslip per active person plus
  an aggregate summary, then clears the cycle ledger. Attendance history is
  retained.

SEE ALSO:
  - attendance: source of work units
  - roster: rates and the running debt balance
*/
package payroll

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/roster"
)

// Kind distinguishes the two transaction flavors.
type Kind string

const (
	KindAdvance   Kind = "advance"
	KindRepayment Kind = "repayment"
)

// ParseKind recognizes a stored kind token.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindAdvance, KindRepayment:
		return Kind(s), true
	}
	return "", false
}

// Transaction is one recorded advance or repayment.
type Transaction struct {
	ID         string
	PersonID   string
	Kind       Kind
	Amount     decimal.Decimal
	Date       clock.Date
	RecordedAt time.Time
}

// =============================================================================
// WINDOWS
// =============================================================================

// Window is a weekly half-open time window: transactions of a kind are
// accepted on Day between Start (inclusive) and End (exclusive).
type Window struct {
	Day   time.Weekday
	Start clock.TimeOfDay
	End   clock.TimeOfDay
}

// Contains reports whether `now` falls inside the window.
func (w Window) Contains(now time.Time) bool {
	if now.Weekday() != w.Day {
		return false
	}
	m := clock.TimeOfDayOf(now).Minutes()
	return m >= w.Start.Minutes() && m < w.End.Minutes()
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s-%s", w.Day, w.Start, w.End)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrOutsideWindow is returned when `now` is not in the kind's window.
	ErrOutsideWindow = errors.New("outside the transaction window")

	// ErrInvalidAmount is returned for non-positive or fractional amounts.
	ErrInvalidAmount = errors.New("amount must be a positive whole number")

	// ErrExceedsDebt is returned when a repayment is larger than the debt.
	ErrExceedsDebt = errors.New("repayment exceeds current debt")
)

// ExceedsDebtError carries the balance the repayment was checked against.
type ExceedsDebtError struct {
	PersonID    string
	Amount      decimal.Decimal
	CurrentDebt decimal.Decimal
}

func (e *ExceedsDebtError) Error() string {
	return fmt.Sprintf("repayment %s exceeds current debt %s for %s",
		e.Amount, e.CurrentDebt, e.PersonID)
}

func (e *ExceedsDebtError) Unwrap() error { return ErrExceedsDebt }

// =============================================================================
// CYCLE LEDGER
// =============================================================================

// DebtDirectory is the roster surface the ledger needs: the current debt for
// the repayment bound, and the eager debt application.
type DebtDirectory interface {
	Find(id string) (roster.Person, bool)
	AdjustDebt(id string, delta decimal.Decimal) (roster.Person, bool)
}

// CycleLedger records the current pay cycle's transactions. One advance and
// one repayment per person; a repeat overwrites. Cleared by the payroll run.
type CycleLedger struct {
	mu         sync.RWMutex
	advances   map[string]Transaction
	repayments map[string]Transaction
	windows    map[Kind]Window
	dir        DebtDirectory
}

func NewCycleLedger(dir DebtDirectory, advance, repayment Window) *CycleLedger {
	return &CycleLedger{
		advances:   make(map[string]Transaction),
		repayments: make(map[string]Transaction),
		windows: map[Kind]Window{
			KindAdvance:   advance,
			KindRepayment: repayment,
		},
		dir: dir,
	}
}

// Window returns the configured window for a kind.
func (l *CycleLedger) Window(kind Kind) Window { return l.windows[kind] }

// IsTransactionWindow reports whether `now` is inside the kind's window.
func (l *CycleLedger) IsTransactionWindow(now time.Time, kind Kind) bool {
	return l.windows[kind].Contains(now)
}

// RecordAdvance records (or overwrites) the person's advance for this cycle.
func (l *CycleLedger) RecordAdvance(personID string, amount decimal.Decimal, now time.Time) (Transaction, error) {
	if !l.IsTransactionWindow(now, KindAdvance) {
		return Transaction{}, ErrOutsideWindow
	}
	if err := validateAmount(amount); err != nil {
		return Transaction{}, err
	}

	tx := newTransaction(personID, KindAdvance, amount, now)
	l.mu.Lock()
	l.advances[personID] = tx
	l.mu.Unlock()
	return tx, nil
}

// RecordRepayment records (or overwrites) the person's repayment for this
// cycle and immediately applies it to the running debt. The bound is checked
// against the directory's current balance; a too-large repayment changes
// nothing.
func (l *CycleLedger) RecordRepayment(personID string, amount decimal.Decimal, now time.Time) (Transaction, error) {
	if !l.IsTransactionWindow(now, KindRepayment) {
		return Transaction{}, ErrOutsideWindow
	}
	if err := validateAmount(amount); err != nil {
		return Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	debt := decimal.Zero
	if p, ok := l.dir.Find(personID); ok {
		debt = p.TotalDebt
	}

	// Overwriting a prior repayment means the earlier eager application must
	// be undone first, or the debt would shrink twice for one final answer.
	if prior, ok := l.repayments[personID]; ok {
		debt = debt.Add(prior.Amount)
	}

	if amount.GreaterThan(debt) {
		return Transaction{}, &ExceedsDebtError{PersonID: personID, Amount: amount, CurrentDebt: debt}
	}

	if prior, ok := l.repayments[personID]; ok {
		l.dir.AdjustDebt(personID, prior.Amount)
	}

	tx := newTransaction(personID, KindRepayment, amount, now)
	l.repayments[personID] = tx
	l.dir.AdjustDebt(personID, amount.Neg())
	return tx, nil
}

// Restore inserts a transaction without window or amount checks, and without
// touching the debt balance (the roster log already carries the post-apply
// balance). Used by the startup reconciliation fold.
func (l *CycleLedger) Restore(tx Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch tx.Kind {
	case KindAdvance:
		l.advances[tx.PersonID] = tx
	case KindRepayment:
		l.repayments[tx.PersonID] = tx
	}
}

// AdvancesForCycle returns personID -> advance amount for the open cycle.
func (l *CycleLedger) AdvancesForCycle() map[string]decimal.Decimal {
	return l.amounts(l.advances)
}

// RepaymentsForCycle returns personID -> repayment amount for the open cycle.
func (l *CycleLedger) RepaymentsForCycle() map[string]decimal.Decimal {
	return l.amounts(l.repayments)
}

func (l *CycleLedger) amounts(src map[string]Transaction) map[string]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(src))
	for id, tx := range src {
		out[id] = tx.Amount
	}
	return out
}

// Reset clears the cycle. Called by the payroll run after payslips are
// computed.
func (l *CycleLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advances = make(map[string]Transaction)
	l.repayments = make(map[string]Transaction)
}

func newTransaction(personID string, kind Kind, amount decimal.Decimal, now time.Time) Transaction {
	return Transaction{
		ID:         uuid.NewString(),
		PersonID:   personID,
		Kind:       kind,
		Amount:     amount,
		Date:       clock.DateOf(now),
		RecordedAt: now,
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.IsInteger() {
		return ErrInvalidAmount
	}
	return nil
}
