/*
Package sheets implements the durable store on a Google Spreadsheet.

PURPOSE:
  The spreadsheet is the copy of record the shop owner actually looks at.
  One tab per log (roster, attendance, transactions, payouts); every write is
  a values.append of a single row, every read is a bulk values.get. Row order
  is append order, which is what the reconciliation fold expects.

AUTH:
  Service-account credentials JSON, same as the spreadsheet integrations
  everywhere else: share the sheet with the service account's email.

CELLS:
  Everything is written as a plain string (RAW input option) so that decimal
  amounts and dates round-trip without locale surprises.

SEE ALSO:
  - store: interface and record definitions
  - store/sqlite: the local implementation of the same contract
*/
package sheets

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/store"
)

const (
	tabRoster       = "roster"
	tabAttendance   = "attendance"
	tabTransactions = "transactions"
	tabPayouts      = "payouts"
)

// Store implements store.Store on the Sheets v4 API.
type Store struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New builds a store for the given spreadsheet using service-account
// credentials read from credentialsFile.
func New(ctx context.Context, spreadsheetID, credentialsFile string) (*Store, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build sheets client: %w", err)
	}
	return &Store{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (s *Store) Close() error { return nil }

// =============================================================================
// APPENDS
// =============================================================================

func (s *Store) appendRow(ctx context.Context, tab string, cells ...string) error {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, tab+"!A:Z", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", tab, err)
	}
	return nil
}

func (s *Store) AppendRoster(ctx context.Context, rec store.RosterRecord) error {
	return s.appendRow(ctx, tabRoster,
		rec.PersonID, rec.Name, rec.Role, strconv.FormatBool(rec.Active),
		rec.DailyRate.String(), rec.TotalDebt.String(), fmtTime(rec.RecordedAt))
}

func (s *Store) AppendAttendance(ctx context.Context, rec store.AttendanceRecord) error {
	return s.appendRow(ctx, tabAttendance,
		rec.EntryID, rec.PersonID, rec.Date.String(), rec.WorkType,
		rec.OverriddenBy, fmtTime(rec.RecordedAt))
}

func (s *Store) AppendTransaction(ctx context.Context, rec store.TransactionRecord) error {
	return s.appendRow(ctx, tabTransactions,
		rec.TxID, rec.PersonID, rec.Kind, rec.Amount.String(),
		rec.Date.String(), fmtTime(rec.RecordedAt))
}

func (s *Store) AppendPayout(ctx context.Context, rec store.PayoutRecord) error {
	return s.appendRow(ctx, tabPayouts,
		rec.PersonID, rec.Name, rec.PeriodStart.String(), rec.PeriodEnd.String(),
		rec.WorkUnits.String(), rec.GrossPay.String(), rec.Advance.String(),
		rec.Repaid.String(), rec.NetPay.String(), rec.RemainingDebt.String(),
		fmtTime(rec.RecordedAt))
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) readRows(ctx context.Context, tab string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, tab+"!A:Z").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	return resp.Values, nil
}

func (s *Store) ReadRoster(ctx context.Context) ([]store.RosterRecord, error) {
	rows, err := s.readRows(ctx, tabRoster)
	if err != nil {
		return nil, err
	}
	var recs []store.RosterRecord
	for i, row := range rows {
		rec := store.RosterRecord{
			PersonID: cell(row, 0),
			Name:     cell(row, 1),
			Role:     cell(row, 2),
			Active:   cell(row, 3) == "true",
		}
		if rec.DailyRate, err = parseDecimal(cell(row, 4)); err != nil {
			logBadRow(tabRoster, i, err)
			continue
		}
		if rec.TotalDebt, err = parseDecimal(cell(row, 5)); err != nil {
			logBadRow(tabRoster, i, err)
			continue
		}
		if rec.RecordedAt, err = parseTime(cell(row, 6)); err != nil {
			logBadRow(tabRoster, i, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Store) ReadAttendance(ctx context.Context) ([]store.AttendanceRecord, error) {
	rows, err := s.readRows(ctx, tabAttendance)
	if err != nil {
		return nil, err
	}
	var recs []store.AttendanceRecord
	for i, row := range rows {
		rec := store.AttendanceRecord{
			EntryID:      cell(row, 0),
			PersonID:     cell(row, 1),
			WorkType:     cell(row, 3),
			OverriddenBy: cell(row, 4),
		}
		if rec.Date, err = clock.ParseDate(cell(row, 2)); err != nil {
			logBadRow(tabAttendance, i, err)
			continue
		}
		if rec.RecordedAt, err = parseTime(cell(row, 5)); err != nil {
			logBadRow(tabAttendance, i, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Store) ReadTransactions(ctx context.Context) ([]store.TransactionRecord, error) {
	rows, err := s.readRows(ctx, tabTransactions)
	if err != nil {
		return nil, err
	}
	var recs []store.TransactionRecord
	for i, row := range rows {
		rec := store.TransactionRecord{
			TxID:     cell(row, 0),
			PersonID: cell(row, 1),
			Kind:     cell(row, 2),
		}
		if rec.Amount, err = parseDecimal(cell(row, 3)); err != nil {
			logBadRow(tabTransactions, i, err)
			continue
		}
		if rec.Date, err = clock.ParseDate(cell(row, 4)); err != nil {
			logBadRow(tabTransactions, i, err)
			continue
		}
		if rec.RecordedAt, err = parseTime(cell(row, 5)); err != nil {
			logBadRow(tabTransactions, i, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Store) ReadPayouts(ctx context.Context) ([]store.PayoutRecord, error) {
	rows, err := s.readRows(ctx, tabPayouts)
	if err != nil {
		return nil, err
	}
	var recs []store.PayoutRecord
	for i, row := range rows {
		rec := store.PayoutRecord{
			PersonID: cell(row, 0),
			Name:     cell(row, 1),
		}
		if rec.PeriodStart, err = clock.ParseDate(cell(row, 2)); err != nil {
			logBadRow(tabPayouts, i, err)
			continue
		}
		if rec.PeriodEnd, err = clock.ParseDate(cell(row, 3)); err != nil {
			logBadRow(tabPayouts, i, err)
			continue
		}
		amounts := []*decimal.Decimal{
			&rec.WorkUnits, &rec.GrossPay, &rec.Advance,
			&rec.Repaid, &rec.NetPay, &rec.RemainingDebt,
		}
		ok := true
		for j, dst := range amounts {
			if *dst, err = parseDecimal(cell(row, 4+j)); err != nil {
				logBadRow(tabPayouts, i, err)
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if rec.RecordedAt, err = parseTime(cell(row, 10)); err != nil {
			logBadRow(tabPayouts, i, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// logBadRow reports a skipped row. Startup must survive a hand-edited cell.
func logBadRow(tab string, i int, err error) {
	log.Printf("[Sheets] Skipping %s row %d: %v", tab, i+1, err)
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad amount cell %q: %w", s, err)
	}
	return d, nil
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp cell %q: %w", s, err)
	}
	return t, nil
}
