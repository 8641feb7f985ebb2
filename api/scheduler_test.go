package api_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natts95/line-checkin-bot/api"
	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/bot"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/notify"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
	"github.com/Natts95/line-checkin-bot/store/memory"
)

// recordingPusher keeps every delivered text per recipient.
type recordingPusher struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (p *recordingPusher) Push(_ context.Context, to, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = make(map[string][]string)
	}
	p.sent[to] = append(p.sent[to], text)
	return nil
}

func (p *recordingPusher) textsFor(id string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent[id]
}

func TestRunPayroll_ClosesCyclePersistsAndDelivers(t *testing.T) {
	// GIVEN: Alice (rate 500) worked Mon-Wed full this cycle, took an
	//        advance of 300, and the payroll trigger fires on Saturday
	// THEN:  The cycle ledger is cleared, one payout record is appended,
	//        Alice gets a payslip push, the admin gets the summary, and
	//        attendance older than the retention horizon is pruned

	dir := roster.New("")
	rate := decimal.NewFromInt(500)
	dir.RegisterOrUpdate(roster.Upsert{
		ID: "emp-1", Name: "Alice", Role: roster.RoleEmployee, Active: true,
		DailyRate: &rate,
	})
	dir.RegisterOrUpdate(roster.Upsert{ID: "adm-1", Name: "Carol", Role: roster.RoleAdmin, Active: true})

	att := attendance.NewLedger(dir, attendance.Rules{
		Cutoff:               clock.TimeOfDay{Hour: 9, Minute: 30},
		RestDay:              time.Sunday,
		RestDayAppliesAdmins: true,
	})
	for day := 2; day <= 4; day++ {
		at := time.Date(2026, time.March, day, 9, 0, 0, 0, time.UTC)
		att.Restore(attendance.Entry{
			ID: "seed", PersonID: "emp-1", Date: clock.DateOf(at),
			Type: attendance.WorkFull, RecordedAt: at,
		})
	}
	// A stale entry far before the retention horizon.
	old := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	att.Restore(attendance.Entry{
		ID: "seed-old", PersonID: "emp-1", Date: clock.DateOf(old),
		Type: attendance.WorkFull, RecordedAt: old,
	})

	finance := payroll.NewCycleLedger(dir,
		payroll.Window{Day: time.Wednesday, Start: clock.TimeOfDay{Hour: 9}, End: clock.TimeOfDay{Hour: 18}},
		payroll.Window{Day: time.Friday, Start: clock.TimeOfDay{Hour: 9}, End: clock.TimeOfDay{Hour: 18}},
	)
	_, err := finance.RecordAdvance("emp-1", decimal.NewFromInt(300),
		time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	st := memory.New()
	clk := clock.NewFixed(time.Date(2026, time.March, 7, 18, 0, 0, 0, time.UTC))
	pusher := &recordingPusher{}

	scheduler := &api.Scheduler{
		Bot: &bot.Dispatcher{
			Roster: dir, Attendance: att, Finance: finance, Store: st, Clock: clk,
			AdvanceKeyword: "advance", RepayKeyword: "repay",
		},
		Notify: &notify.Dispatcher{
			Pusher: pusher, Roster: dir, Attendance: att, Clock: clk,
			RestDay: time.Sunday, AdvanceKeyword: "advance", RepayKeyword: "repay",
		},
		Calculator: &payroll.Calculator{
			Roster: dir, Attendance: att, Ledger: finance, ClosingDay: time.Saturday,
		},
		Finance:    finance,
		Attendance: att,
		Store:      st,
		Clock:      clk,
		Schedule: api.Schedule{
			PayrollDay:              time.Saturday,
			PayrollTime:             clock.TimeOfDay{Hour: 18},
			AttendanceRetentionDays: 90,
		},
	}

	scheduler.RunPayroll()

	// Cycle closed
	assert.Empty(t, finance.AdvancesForCycle())

	// Payout audit persisted: 3 full days * 500 - 300 = 1200
	payouts := st.Payouts()
	require.Len(t, payouts, 2, "one payout per active person")
	var alice, carol bool
	for _, p := range payouts {
		switch p.PersonID {
		case "emp-1":
			alice = true
			assert.True(t, p.GrossPay.Equal(decimal.NewFromInt(1500)))
			assert.True(t, p.NetPay.Equal(decimal.NewFromInt(1200)))
		case "adm-1":
			carol = true
			assert.True(t, p.GrossPay.IsZero())
		}
	}
	assert.True(t, alice && carol)

	// Delivery: payslip to each person, summary to the admin
	require.NotEmpty(t, pusher.textsFor("emp-1"))
	assert.Contains(t, pusher.textsFor("emp-1")[0], "Net pay: 1200")
	adminTexts := pusher.textsFor("adm-1")
	require.NotEmpty(t, adminTexts)
	assert.Contains(t, adminTexts[len(adminTexts)-1], "Weekly payroll")

	// Retention: the June 2025 entry is gone, this week's remain
	assert.False(t, att.HasEntryForDate("emp-1", clock.DateOf(old)))
	assert.True(t, att.HasEntryForDate("emp-1", clock.NewDate(2026, time.March, 2)))
}
