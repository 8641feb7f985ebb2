package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
	"github.com/Natts95/line-checkin-bot/store"
	"github.com/Natts95/line-checkin-bot/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testCycle() payroll.Period {
	return payroll.Period{
		Start: clock.NewDate(2026, time.March, 1),
		End:   clock.NewDate(2026, time.March, 7),
	}
}

func at(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
}

func personRec(id, name string, debt int64, recordedAt time.Time) store.RosterRecord {
	return store.NewRosterRecord(roster.Person{
		ID: id, Name: name, Role: roster.RoleEmployee, Active: true,
		DailyRate: decimal.NewFromInt(500),
		TotalDebt: decimal.NewFromInt(debt),
	}, recordedAt)
}

func entryRec(id, personID string, day int, wt attendance.WorkType) store.AttendanceRecord {
	return store.NewAttendanceRecord(attendance.Entry{
		ID: id, PersonID: personID, Date: clock.NewDate(2026, time.March, day),
		Type: wt, RecordedAt: at(day, 9),
	})
}

func txRec(id, personID string, kind payroll.Kind, amount int64, day int) store.TransactionRecord {
	return store.NewTransactionRecord(payroll.Transaction{
		ID: id, PersonID: personID, Kind: kind,
		Amount: decimal.NewFromInt(amount),
		Date:   clock.NewDate(2026, time.March, day),
		RecordedAt: at(day, 10),
	})
}

// =============================================================================
// THE FOLD
// =============================================================================

func TestLoad_LastRosterRecordPerPersonWins(t *testing.T) {
	// GIVEN: Three roster records for the same person (register, debt change)
	// WHEN: Folding the log
	// THEN: Only the latest snapshot survives

	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.AppendRoster(ctx, personRec("emp-1", "Alice", 0, at(1, 9))))
	require.NoError(t, mem.AppendRoster(ctx, personRec("emp-1", "Alice", 1000, at(2, 9))))
	require.NoError(t, mem.AppendRoster(ctx, personRec("emp-1", "Alice B.", 800, at(3, 9))))

	state, err := store.Load(ctx, mem, testCycle())
	require.NoError(t, err)
	require.Len(t, state.People, 1)
	assert.Equal(t, "Alice B.", state.People[0].Name)
	assert.True(t, state.People[0].TotalDebt.Equal(decimal.NewFromInt(800)))
}

func TestLoad_LastAttendanceRecordPerDayWins(t *testing.T) {
	// An override appends a second record for the same (person, date); the
	// fold must surface the override, not the original.
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.AppendAttendance(ctx, entryRec("e1", "emp-1", 2, attendance.WorkFull)))
	require.NoError(t, mem.AppendAttendance(ctx, entryRec("e2", "emp-1", 2, attendance.WorkOff)))
	require.NoError(t, mem.AppendAttendance(ctx, entryRec("e3", "emp-1", 3, attendance.WorkFull)))

	state, err := store.Load(ctx, mem, testCycle())
	require.NoError(t, err)
	require.Len(t, state.Entries, 2)
	assert.Equal(t, attendance.WorkOff, state.Entries[0].Type)
	assert.Equal(t, clock.NewDate(2026, time.March, 3), state.Entries[1].Date)
}

func TestLoad_TransactionsFilteredToOpenCycle(t *testing.T) {
	// GIVEN: One transaction from a settled week and one from the open cycle
	// THEN: Only the open-cycle one is restored; the old one is audit history

	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.AppendTransaction(ctx, store.NewTransactionRecord(payroll.Transaction{
		ID: "old", PersonID: "emp-1", Kind: payroll.KindAdvance,
		Amount: decimal.NewFromInt(100),
		Date:   clock.NewDate(2026, time.February, 25),
	})))
	require.NoError(t, mem.AppendTransaction(ctx, txRec("new", "emp-1", payroll.KindAdvance, 300, 4)))

	state, err := store.Load(ctx, mem, testCycle())
	require.NoError(t, err)
	require.Len(t, state.Transactions, 1)
	assert.Equal(t, "new", state.Transactions[0].ID)
}

func payoutRec(personID string, recordedAt time.Time) store.PayoutRecord {
	return store.PayoutRecord{
		PersonID:    personID,
		Name:        "Alice",
		PeriodStart: clock.NewDate(2026, time.March, 1),
		PeriodEnd:   clock.NewDate(2026, time.March, 7),
		RecordedAt:  recordedAt,
	}
}

func TestLoad_RestartAfterCloseSkipsSettledTransactions(t *testing.T) {
	// GIVEN: An advance taken Wednesday, settled by the Saturday 18:00 payroll
	//        run, and a restart at 19:00 the same day
	// WHEN: Folding with the period that still ends today
	// THEN: The settled advance is not restored; netting it again at the next
	//       close would deduct the same money twice

	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.AppendTransaction(ctx, txRec("tx-1", "emp-1", payroll.KindAdvance, 300, 4)))
	require.NoError(t, mem.AppendPayout(ctx, payoutRec("emp-1", at(7, 18))))

	state, err := store.Load(ctx, mem, testCycle())
	require.NoError(t, err)
	assert.Empty(t, state.Transactions)
}

func TestLoad_OldPayoutDoesNotHideOpenCycleTransactions(t *testing.T) {
	// A payout from last week's close must not filter out transactions
	// recorded since then.
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.AppendPayout(ctx, payoutRec("emp-1", at(1, 18).AddDate(0, 0, -7))))
	require.NoError(t, mem.AppendTransaction(ctx, txRec("tx-1", "emp-1", payroll.KindAdvance, 300, 4)))

	state, err := store.Load(ctx, mem, testCycle())
	require.NoError(t, err)
	require.Len(t, state.Transactions, 1)
	assert.Equal(t, "tx-1", state.Transactions[0].ID)
}

func TestLoad_MalformedRecordsAreSkipped(t *testing.T) {
	// One bad row must not take startup down.
	mem := memory.New()
	ctx := context.Background()
	bad := entryRec("e1", "emp-1", 2, attendance.WorkFull)
	bad.WorkType = "siesta"
	require.NoError(t, mem.AppendAttendance(ctx, bad))
	require.NoError(t, mem.AppendAttendance(ctx, entryRec("e2", "emp-1", 3, attendance.WorkFull)))

	state, err := store.Load(ctx, mem, testCycle())
	require.NoError(t, err)
	require.Len(t, state.Entries, 1)
	assert.Equal(t, "e2", state.Entries[0].ID)
}

func TestLoad_ReadFailurePropagates(t *testing.T) {
	mem := memory.New()
	failing := &failingReads{Store: mem}

	_, err := store.Load(context.Background(), failing, testCycle())
	assert.Error(t, err)
}

// failingReads wraps a store and fails every read.
type failingReads struct {
	store.Store
}

func (f *failingReads) ReadRoster(context.Context) ([]store.RosterRecord, error) {
	return nil, errors.New("spreadsheet unavailable")
}

// =============================================================================
// RETRY WRAPPER
// =============================================================================

func TestWithRetry_SecondAttemptSucceeds(t *testing.T) {
	// GIVEN: An inner store that fails exactly once
	// WHEN: Appending through the retry wrapper
	// THEN: The append lands on the retry

	inner := &flaky{inner: memory.New(), failures: 1}
	st := store.WithRetry(inner)
	st.Delay = time.Millisecond

	err := st.AppendRoster(context.Background(), personRec("emp-1", "Alice", 0, at(1, 9)))
	require.NoError(t, err)

	recs, err := inner.inner.ReadRoster(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestWithRetry_PersistentFailurePropagates(t *testing.T) {
	inner := &flaky{inner: memory.New(), failures: 10}
	st := store.WithRetry(inner)
	st.Delay = time.Millisecond

	err := st.AppendRoster(context.Background(), personRec("emp-1", "Alice", 0, at(1, 9)))
	assert.Error(t, err)
}

// flaky fails the first N appends, then delegates.
type flaky struct {
	inner    *memory.Store
	failures int
}

func (f *flaky) AppendRoster(ctx context.Context, rec store.RosterRecord) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("transient")
	}
	return f.inner.AppendRoster(ctx, rec)
}

func (f *flaky) AppendAttendance(ctx context.Context, rec store.AttendanceRecord) error {
	return f.inner.AppendAttendance(ctx, rec)
}

func (f *flaky) AppendTransaction(ctx context.Context, rec store.TransactionRecord) error {
	return f.inner.AppendTransaction(ctx, rec)
}

func (f *flaky) AppendPayout(ctx context.Context, rec store.PayoutRecord) error {
	return f.inner.AppendPayout(ctx, rec)
}

func (f *flaky) ReadRoster(ctx context.Context) ([]store.RosterRecord, error) {
	return f.inner.ReadRoster(ctx)
}

func (f *flaky) ReadAttendance(ctx context.Context) ([]store.AttendanceRecord, error) {
	return f.inner.ReadAttendance(ctx)
}

func (f *flaky) ReadTransactions(ctx context.Context) ([]store.TransactionRecord, error) {
	return f.inner.ReadTransactions(ctx)
}

func (f *flaky) ReadPayouts(ctx context.Context) ([]store.PayoutRecord, error) {
	return f.inner.ReadPayouts(ctx)
}

func (f *flaky) Close() error { return nil }
