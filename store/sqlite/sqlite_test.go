package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/store"
	"github.com/Natts95/line-checkin-bot/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRosterLog_AppendOrderPreserved(t *testing.T) {
	// The fold relies on read order being append order.
	s := newTestStore(t)
	ctx := context.Background()

	for i, debt := range []int64{0, 1000, 800} {
		err := s.AppendRoster(ctx, store.RosterRecord{
			PersonID:   "emp-1",
			Name:       "Alice",
			Role:       "employee",
			Active:     true,
			DailyRate:  decimal.NewFromInt(500),
			TotalDebt:  decimal.NewFromInt(debt),
			RecordedAt: time.Date(2026, time.March, 2, 9, i, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	recs, err := s.ReadRoster(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.True(t, recs[0].TotalDebt.IsZero())
	assert.True(t, recs[2].TotalDebt.Equal(decimal.NewFromInt(800)))
	assert.True(t, recs[2].DailyRate.Equal(decimal.NewFromInt(500)), "decimals survive the TEXT round trip")
}

func TestAttendanceLog_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := store.AttendanceRecord{
		EntryID:      "e-1",
		PersonID:     "emp-1",
		Date:         clock.NewDate(2026, time.March, 2),
		WorkType:     "half-morning",
		OverriddenBy: "adm-1",
		RecordedAt:   time.Date(2026, time.March, 2, 14, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.AppendAttendance(ctx, rec))

	recs, err := s.ReadAttendance(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec, recs[0])
}

func TestTransactionLog_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := store.TransactionRecord{
		TxID:       "tx-1",
		PersonID:   "emp-1",
		Kind:       "repayment",
		Amount:     decimal.NewFromInt(400),
		Date:       clock.NewDate(2026, time.March, 6),
		RecordedAt: time.Date(2026, time.March, 6, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.AppendTransaction(ctx, rec))

	recs, err := s.ReadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "repayment", recs[0].Kind)
	assert.True(t, recs[0].Amount.Equal(decimal.NewFromInt(400)))
}

func TestPayoutLog_RoundTrip(t *testing.T) {
	// The reconciliation fold reads payouts back to find the last close
	// instant, so the record must survive intact.
	s := newTestStore(t)
	ctx := context.Background()

	closedAt := time.Date(2026, time.March, 7, 18, 0, 0, 0, time.UTC)
	err := s.AppendPayout(ctx, store.PayoutRecord{
		PersonID:      "emp-1",
		Name:          "Alice",
		PeriodStart:   clock.NewDate(2026, time.March, 1),
		PeriodEnd:     clock.NewDate(2026, time.March, 7),
		WorkUnits:     decimal.NewFromInt(4),
		GrossPay:      decimal.NewFromInt(2000),
		Advance:       decimal.NewFromInt(300),
		Repaid:        decimal.NewFromInt(200),
		NetPay:        decimal.NewFromInt(1500),
		RemainingDebt: decimal.NewFromInt(800),
		RecordedAt:    closedAt,
	})
	require.NoError(t, err)

	recs, err := s.ReadPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, closedAt, recs[0].RecordedAt)
	assert.True(t, recs[0].NetPay.Equal(decimal.NewFromInt(1500)))

	roster, err := s.ReadRoster(ctx)
	require.NoError(t, err)
	assert.Empty(t, roster, "payout append must not disturb the other logs")
}
