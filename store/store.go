/*
Package store defines the durable-store boundary: append-only logs per table
plus bulk reads for startup reconciliation and reports.

PURPOSE:
  The external spreadsheet (or database) is the durable copy of record; the
  in-memory roster and ledgers are a cache rebuilt from it at startup. Writes
  are best-effort-durable: an append failure is reported but never rolls back
  the in-memory mutation that preceded it.

TABLES:
  roster        full person state per record; later record per id wins
  attendance    one record per recorded/overridden entry
  transactions  one record per advance/repayment (overwrites append anew)
  payouts       one record per payslip at cycle close (audit only)

IMPLEMENTATIONS:
  - store/sqlite: local SQLite file, insert-only tables
  - store/sheets: Google Sheets, one tab per table
  - store/memory: in-memory, for tests and dev

SEE ALSO:
  - reconcile.go: the deterministic fold from append logs to state
*/
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
)

// Store is the durable append-log boundary. Appends are insert-only; reads
// return records in the store's native append order, which the
// reconciliation fold relies on.
type Store interface {
	AppendRoster(ctx context.Context, rec RosterRecord) error
	AppendAttendance(ctx context.Context, rec AttendanceRecord) error
	AppendTransaction(ctx context.Context, rec TransactionRecord) error
	AppendPayout(ctx context.Context, rec PayoutRecord) error

	ReadRoster(ctx context.Context) ([]RosterRecord, error)
	ReadAttendance(ctx context.Context) ([]AttendanceRecord, error)
	ReadTransactions(ctx context.Context) ([]TransactionRecord, error)
	ReadPayouts(ctx context.Context) ([]PayoutRecord, error)

	Close() error
}

// =============================================================================
// RECORDS
// =============================================================================

// RosterRecord snapshots a person's full state at the time of a roster
// mutation (registration, role change, deactivation, debt change).
type RosterRecord struct {
	PersonID   string
	Name       string
	Role       string
	Active     bool
	DailyRate  decimal.Decimal
	TotalDebt  decimal.Decimal
	RecordedAt time.Time
}

func NewRosterRecord(p roster.Person, at time.Time) RosterRecord {
	return RosterRecord{
		PersonID:   p.ID,
		Name:       p.Name,
		Role:       string(p.Role),
		Active:     p.Active,
		DailyRate:  p.DailyRate,
		TotalDebt:  p.TotalDebt,
		RecordedAt: at,
	}
}

// Person converts the record back to a roster person.
func (r RosterRecord) Person() roster.Person {
	return roster.Person{
		ID:        r.PersonID,
		Name:      r.Name,
		Role:      roster.Role(r.Role),
		Active:    r.Active,
		DailyRate: r.DailyRate,
		TotalDebt: r.TotalDebt,
	}
}

// AttendanceRecord is one appended attendance entry. Overrides append a new
// record for the same (person, date); the fold keeps the later one.
type AttendanceRecord struct {
	EntryID      string
	PersonID     string
	Date         clock.Date
	WorkType     string
	OverriddenBy string
	RecordedAt   time.Time
}

func NewAttendanceRecord(e attendance.Entry) AttendanceRecord {
	return AttendanceRecord{
		EntryID:      e.ID,
		PersonID:     e.PersonID,
		Date:         e.Date,
		WorkType:     string(e.Type),
		OverriddenBy: e.OverriddenBy,
		RecordedAt:   e.RecordedAt,
	}
}

func (r AttendanceRecord) Entry() (attendance.Entry, error) {
	wt, ok := attendance.ParseWorkType(r.WorkType)
	if !ok {
		return attendance.Entry{}, fmt.Errorf("unknown work type %q in record %s", r.WorkType, r.EntryID)
	}
	return attendance.Entry{
		ID:           r.EntryID,
		PersonID:     r.PersonID,
		Date:         r.Date,
		Type:         wt,
		RecordedAt:   r.RecordedAt,
		OverriddenBy: r.OverriddenBy,
	}, nil
}

// TransactionRecord is one appended advance or repayment.
type TransactionRecord struct {
	TxID       string
	PersonID   string
	Kind       string
	Amount     decimal.Decimal
	Date       clock.Date
	RecordedAt time.Time
}

func NewTransactionRecord(tx payroll.Transaction) TransactionRecord {
	return TransactionRecord{
		TxID:       tx.ID,
		PersonID:   tx.PersonID,
		Kind:       string(tx.Kind),
		Amount:     tx.Amount,
		Date:       tx.Date,
		RecordedAt: tx.RecordedAt,
	}
}

func (r TransactionRecord) Transaction() (payroll.Transaction, error) {
	kind, ok := payroll.ParseKind(r.Kind)
	if !ok {
		return payroll.Transaction{}, fmt.Errorf("unknown transaction kind %q in record %s", r.Kind, r.TxID)
	}
	return payroll.Transaction{
		ID:         r.TxID,
		PersonID:   r.PersonID,
		Kind:       kind,
		Amount:     r.Amount,
		Date:       r.Date,
		RecordedAt: r.RecordedAt,
	}, nil
}

// PayoutRecord is the audit trail of one payslip at cycle close. Its
// RecordedAt doubles as the settle marker: the reconciliation fold drops
// transactions recorded at or before the latest payout, because the close
// that wrote it already netted them.
type PayoutRecord struct {
	PersonID      string
	Name          string
	PeriodStart   clock.Date
	PeriodEnd     clock.Date
	WorkUnits     decimal.Decimal
	GrossPay      decimal.Decimal
	Advance       decimal.Decimal
	Repaid        decimal.Decimal
	NetPay        decimal.Decimal
	RemainingDebt decimal.Decimal
	RecordedAt    time.Time
}

func NewPayoutRecord(slip payroll.Payslip, at time.Time) PayoutRecord {
	return PayoutRecord{
		PersonID:      slip.PersonID,
		Name:          slip.Name,
		PeriodStart:   slip.Period.Start,
		PeriodEnd:     slip.Period.End,
		WorkUnits:     slip.WorkUnits,
		GrossPay:      slip.GrossPay,
		Advance:       slip.Advance,
		Repaid:        slip.Repaid,
		NetPay:        slip.NetPay,
		RemainingDebt: slip.RemainingDebt,
		RecordedAt:    at,
	}
}
