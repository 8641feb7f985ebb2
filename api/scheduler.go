/*
scheduler.go - Cron-driven triggers

PURPOSE:
  Registers the time-based behavior: check-in reminders, the daily report,
  transaction window announcements, and the weekly payroll run. All specs
  are evaluated in the configured business timezone.

DESIGN:
  - The payroll close mutates the ledgers, so it runs under the bot
    dispatcher's Exclusive and never interleaves with an inbound command.
  - Reminders, reports, and window notices only read the internally-locked
    ledgers; they push without holding the dispatcher lock so a slow
    delivery cannot stall command handling.
  - Payslip delivery happens after the lock is released; by then the cycle
    is already closed and persisted.

SEE ALSO:
  - notify: the message content and fan-out
  - payroll: the cycle close
*/
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Natts95/line-checkin-bot/bot"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/notify"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/store"
)

// Schedule collects the configured trigger times.
type Schedule struct {
	// ReminderTimes fire the check-in nudge; typically one early, one just
	// before the cutoff.
	ReminderTimes []clock.TimeOfDay

	// ReportTime fires the daily attendance report to admins.
	ReportTime clock.TimeOfDay

	// PayrollDay and PayrollTime fire the weekly cycle close.
	PayrollDay  time.Weekday
	PayrollTime clock.TimeOfDay

	// AttendanceRetentionDays prunes entries older than this after each
	// payroll run. Zero keeps everything.
	AttendanceRetentionDays int
}

// Scheduler owns the cron instance and the jobs it runs.
type Scheduler struct {
	Bot        *bot.Dispatcher
	Notify     *notify.Dispatcher
	Calculator *payroll.Calculator
	Finance    *payroll.CycleLedger
	Attendance Pruner
	Store      store.Store
	Clock      clock.Clock
	Schedule   Schedule

	cron *cron.Cron
}

// Pruner is the attendance surface the retention job needs.
type Pruner interface {
	PruneBefore(cutoff clock.Date) int
}

// Start registers all jobs and starts the cron loop.
func (s *Scheduler) Start(loc *time.Location) error {
	s.cron = cron.New(cron.WithLocation(loc))

	for i, at := range s.Schedule.ReminderTimes {
		label := "Reminder"
		if i == len(s.Schedule.ReminderTimes)-1 && len(s.Schedule.ReminderTimes) > 1 {
			label = "Last call"
		}
		if _, err := s.cron.AddFunc(dailySpec(at), func() {
			s.Notify.DailyReminder(context.Background(), label)
		}); err != nil {
			return fmt.Errorf("register reminder: %w", err)
		}
	}

	if _, err := s.cron.AddFunc(dailySpec(s.Schedule.ReportTime), func() {
		s.Notify.DailyReport(context.Background())
	}); err != nil {
		return fmt.Errorf("register daily report: %w", err)
	}

	for _, kind := range []payroll.Kind{payroll.KindAdvance, payroll.KindRepayment} {
		w := s.Finance.Window(kind)
		if _, err := s.cron.AddFunc(weeklySpec(w.Day, w.Start), func() {
			s.Notify.WindowNotice(context.Background(), kind, s.Finance.Window(kind), true)
		}); err != nil {
			return fmt.Errorf("register %s open notice: %w", kind, err)
		}
		if _, err := s.cron.AddFunc(weeklySpec(w.Day, w.End), func() {
			s.Notify.WindowNotice(context.Background(), kind, s.Finance.Window(kind), false)
		}); err != nil {
			return fmt.Errorf("register %s close notice: %w", kind, err)
		}
	}

	if _, err := s.cron.AddFunc(weeklySpec(s.Schedule.PayrollDay, s.Schedule.PayrollTime), s.RunPayroll); err != nil {
		return fmt.Errorf("register payroll run: %w", err)
	}

	s.cron.Start()
	log.Printf("[Scheduler] Started with %d jobs", len(s.cron.Entries()))
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		log.Println("[Scheduler] Stopped")
	}
}

// RunPayroll closes the cycle: compute payslips, persist payout records,
// clear the ledger, prune old attendance, then deliver. Exported so an
// operator can trigger it out of band.
func (s *Scheduler) RunPayroll() {
	ctx := context.Background()
	now := s.Clock.Now()

	var sum payroll.Summary
	s.Bot.Exclusive(func() {
		sum = s.Calculator.Run(now)

		for _, slip := range sum.Payslips {
			if err := s.Store.AppendPayout(ctx, store.NewPayoutRecord(slip, sum.RanAt)); err != nil {
				log.Printf("[Scheduler] payout append for %s failed: %v", slip.PersonID, err)
			}
		}

		if days := s.Schedule.AttendanceRetentionDays; days > 0 {
			cutoff := clock.DateOf(now).AddDays(-days)
			if n := s.Attendance.PruneBefore(cutoff); n > 0 {
				log.Printf("[Scheduler] pruned %d attendance entries before %s", n, cutoff)
			}
		}
	})

	log.Printf("[Scheduler] Payroll run for %s: %d payslips, total net %s",
		sum.Period, len(sum.Payslips), sum.TotalNet)

	// Cycle is closed; delivery failures cannot corrupt it.
	s.Notify.DeliverPayslips(ctx, sum)
}

// dailySpec renders "every day at HH:MM" in cron syntax.
func dailySpec(at clock.TimeOfDay) string {
	return fmt.Sprintf("%d %d * * *", at.Minute, at.Hour)
}

// weeklySpec renders "every <weekday> at HH:MM" in cron syntax.
func weeklySpec(day time.Weekday, at clock.TimeOfDay) string {
	return fmt.Sprintf("%d %d * * %d", at.Minute, at.Hour, int(day))
}
