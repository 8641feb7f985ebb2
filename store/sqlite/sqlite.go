/*
Package sqlite provides a SQLite-backed implementation of the durable store.

PURPOSE:
  A local, zero-ops durable copy of record. Every table is an insert-only
  append log: no UPDATE, no DELETE. State corrections happen by appending a
  newer record; the startup reconciliation fold keeps the last record per
  key.

KEY TABLES:
  roster_log       one row per roster mutation (full person state)
  attendance_log   one row per recorded/overridden entry
  transaction_log  one row per advance/repayment
  payout_log       one row per payslip at cycle close

ORDERING:
  Reads return rows ordered by rowid, which is the append order. The
  reconciliation fold depends on this.

WAL MODE:
  Opened with WAL for better crash recovery and non-blocking readers.

SEE ALSO:
  - store: interface and record definitions
  - store/sheets: the spreadsheet implementation of the same contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/store"
)

// Store implements store.Store on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	-- Roster log (append-only; later row per person_id wins)
	CREATE TABLE IF NOT EXISTS roster_log (
		person_id TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		active INTEGER NOT NULL,
		daily_rate TEXT NOT NULL,
		total_debt TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_roster_person ON roster_log(person_id);

	-- Attendance log (append-only; overrides append a new row for the day)
	CREATE TABLE IF NOT EXISTS attendance_log (
		entry_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		date TEXT NOT NULL,
		work_type TEXT NOT NULL,
		overridden_by TEXT,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_person_date ON attendance_log(person_id, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance_log(date);

	-- Transaction log (append-only; re-requests append a new row)
	CREATE TABLE IF NOT EXISTS transaction_log (
		tx_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transaction_person ON transaction_log(person_id, date);

	-- Payout log (audit trail of weekly cycle closes)
	CREATE TABLE IF NOT EXISTS payout_log (
		person_id TEXT NOT NULL,
		name TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		work_units TEXT NOT NULL,
		gross_pay TEXT NOT NULL,
		advance TEXT NOT NULL,
		repaid TEXT NOT NULL,
		net_pay TEXT NOT NULL,
		remaining_debt TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payout_period ON payout_log(period_end);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// APPENDS
// =============================================================================

func (s *Store) AppendRoster(ctx context.Context, rec store.RosterRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roster_log (person_id, name, role, active, daily_rate, total_debt, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.PersonID, rec.Name, rec.Role, boolInt(rec.Active),
		rec.DailyRate.String(), rec.TotalDebt.String(), fmtTime(rec.RecordedAt))
	return err
}

func (s *Store) AppendAttendance(ctx context.Context, rec store.AttendanceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_log (entry_id, person_id, date, work_type, overridden_by, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.EntryID, rec.PersonID, rec.Date.String(), rec.WorkType,
		rec.OverriddenBy, fmtTime(rec.RecordedAt))
	return err
}

func (s *Store) AppendTransaction(ctx context.Context, rec store.TransactionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transaction_log (tx_id, person_id, kind, amount, date, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TxID, rec.PersonID, rec.Kind, rec.Amount.String(),
		rec.Date.String(), fmtTime(rec.RecordedAt))
	return err
}

func (s *Store) AppendPayout(ctx context.Context, rec store.PayoutRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payout_log (person_id, name, period_start, period_end, work_units,
			gross_pay, advance, repaid, net_pay, remaining_debt, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PersonID, rec.Name, rec.PeriodStart.String(), rec.PeriodEnd.String(),
		rec.WorkUnits.String(), rec.GrossPay.String(), rec.Advance.String(),
		rec.Repaid.String(), rec.NetPay.String(), rec.RemainingDebt.String(),
		fmtTime(rec.RecordedAt))
	return err
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) ReadRoster(ctx context.Context) ([]store.RosterRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT person_id, name, role, active, daily_rate, total_debt, recorded_at
		FROM roster_log ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []store.RosterRecord
	for rows.Next() {
		var rec store.RosterRecord
		var active int
		var rate, debt, at string
		if err := rows.Scan(&rec.PersonID, &rec.Name, &rec.Role, &active, &rate, &debt, &at); err != nil {
			return nil, err
		}
		rec.Active = active != 0
		if rec.DailyRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("bad daily_rate %q: %w", rate, err)
		}
		if rec.TotalDebt, err = decimal.NewFromString(debt); err != nil {
			return nil, fmt.Errorf("bad total_debt %q: %w", debt, err)
		}
		if rec.RecordedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *Store) ReadAttendance(ctx context.Context) ([]store.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, person_id, date, work_type, COALESCE(overridden_by, ''), recorded_at
		FROM attendance_log ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []store.AttendanceRecord
	for rows.Next() {
		var rec store.AttendanceRecord
		var date, at string
		if err := rows.Scan(&rec.EntryID, &rec.PersonID, &date, &rec.WorkType, &rec.OverriddenBy, &at); err != nil {
			return nil, err
		}
		if rec.Date, err = clock.ParseDate(date); err != nil {
			return nil, err
		}
		if rec.RecordedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *Store) ReadTransactions(ctx context.Context) ([]store.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_id, person_id, kind, amount, date, recorded_at
		FROM transaction_log ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []store.TransactionRecord
	for rows.Next() {
		var rec store.TransactionRecord
		var amount, date, at string
		if err := rows.Scan(&rec.TxID, &rec.PersonID, &rec.Kind, &amount, &date, &at); err != nil {
			return nil, err
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount %q: %w", amount, err)
		}
		if rec.Date, err = clock.ParseDate(date); err != nil {
			return nil, err
		}
		if rec.RecordedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *Store) ReadPayouts(ctx context.Context) ([]store.PayoutRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT person_id, name, period_start, period_end, work_units,
			gross_pay, advance, repaid, net_pay, remaining_debt, recorded_at
		FROM payout_log ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []store.PayoutRecord
	for rows.Next() {
		var rec store.PayoutRecord
		var start, end, at string
		var units, gross, advance, repaid, net, debt string
		if err := rows.Scan(&rec.PersonID, &rec.Name, &start, &end,
			&units, &gross, &advance, &repaid, &net, &debt, &at); err != nil {
			return nil, err
		}
		if rec.PeriodStart, err = clock.ParseDate(start); err != nil {
			return nil, err
		}
		if rec.PeriodEnd, err = clock.ParseDate(end); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			dst  *decimal.Decimal
			text string
		}{
			{&rec.WorkUnits, units}, {&rec.GrossPay, gross}, {&rec.Advance, advance},
			{&rec.Repaid, repaid}, {&rec.NetPay, net}, {&rec.RemainingDebt, debt},
		} {
			if *f.dst, err = decimal.NewFromString(f.text); err != nil {
				return nil, fmt.Errorf("bad payout amount %q: %w", f.text, err)
			}
		}
		if rec.RecordedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}
