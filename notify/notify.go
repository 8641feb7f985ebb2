/*
Package notify decides when to notify and what to say.

PURPOSE:
  The dispatcher walks the roster and the ledgers to produce unsolicited
  push messages: check-in reminders, the daily attendance report for admins,
  transaction window announcements, and the weekly payslips. Actual delivery
  is an external capability behind the Pusher interface.

DELIVERY SEMANTICS:
  Fire-and-forget with bounded fan-out. Failures are captured per recipient
  and logged; one failing recipient never blocks the rest, and a scheduled
  trigger never aborts its loop because one push bounced.

SEE ALSO:
  - line: the production Pusher
  - api/scheduler.go: the cron hooks that invoke this package
*/
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
)

// Pusher delivers one unsolicited text message to one recipient.
type Pusher interface {
	Push(ctx context.Context, to string, text string) error
}

// Roster is the directory surface the dispatcher needs.
type Roster interface {
	Active() []roster.Person
	Admins() []roster.Person
}

// Attendance is the ledger surface the dispatcher needs.
type Attendance interface {
	HasEntryForDate(personID string, date clock.Date) bool
	EntriesForDate(date clock.Date) []attendance.Entry
}

// Dispatcher computes and sends push notifications.
type Dispatcher struct {
	Pusher     Pusher
	Roster     Roster
	Attendance Attendance
	Clock      clock.Clock

	// RestDay suppresses reminders and the daily report.
	RestDay time.Weekday

	// Concurrency bounds the push fan-out. Zero means a sane default.
	Concurrency int

	// AdvanceKeyword and RepayKeyword are the configured command words,
	// quoted in the window announcements.
	AdvanceKeyword string
	RepayKeyword   string
}

const dateLayout = "Monday 2 January 2006"

// =============================================================================
// REMINDERS
// =============================================================================

// DailyReminder nudges every active person who has no entry for today.
// label distinguishes the first reminder from the last call.
func (d *Dispatcher) DailyReminder(ctx context.Context, label string) {
	now := d.Clock.Now()
	if now.Weekday() == d.RestDay {
		return
	}
	today := clock.DateOf(now)

	var targets []target
	for _, p := range d.Roster.Active() {
		if d.Attendance.HasEntryForDate(p.ID, today) {
			continue
		}
		text := fmt.Sprintf("%s\n%s\n%s, don't forget to check in!",
			label, today.Format(dateLayout), p.Name)
		targets = append(targets, target{to: p.ID, text: text})
	}

	d.send(ctx, "reminder", targets)
}

// =============================================================================
// DAILY REPORT
// =============================================================================

// DailyReport pushes the checked/not-checked summary to every admin.
func (d *Dispatcher) DailyReport(ctx context.Context) {
	now := d.Clock.Now()
	if now.Weekday() == d.RestDay {
		return
	}
	today := clock.DateOf(now)

	var checked, missing []string
	for _, p := range d.Roster.Active() {
		if d.Attendance.HasEntryForDate(p.ID, today) {
			checked = append(checked, "- "+p.Name)
		} else {
			missing = append(missing, "- "+p.Name)
		}
	}

	text := fmt.Sprintf("Daily attendance report\n%s\n\nChecked in (%d)\n%s\n\nNot checked in (%d)\n%s",
		today.Format(dateLayout),
		len(checked), orDash(checked),
		len(missing), orDash(missing))

	d.sendToAdmins(ctx, "daily report", text)
}

// =============================================================================
// WINDOW ANNOUNCEMENTS
// =============================================================================

// WindowNotice announces a transaction window opening or closing to all
// active persons.
func (d *Dispatcher) WindowNotice(ctx context.Context, kind payroll.Kind, window payroll.Window, open bool) {
	noun := "cash advance"
	if kind == payroll.KindRepayment {
		noun = "debt repayment"
	}

	var text string
	if open {
		text = fmt.Sprintf("The %s window is now open (until %s). Send \"%s <amount>\" to request.",
			noun, window.End, d.keywordFor(kind))
	} else {
		text = fmt.Sprintf("The %s window is now closed. Next window: %s.", noun, window)
	}

	var targets []target
	for _, p := range d.Roster.Active() {
		targets = append(targets, target{to: p.ID, text: text})
	}
	d.send(ctx, "window notice", targets)
}

func (d *Dispatcher) keywordFor(kind payroll.Kind) string {
	if kind == payroll.KindRepayment {
		return d.RepayKeyword
	}
	return d.AdvanceKeyword
}

// =============================================================================
// PAYSLIPS
// =============================================================================

// DeliverPayslips pushes one payslip per person and one aggregate report to
// the admins. Delivery failures are logged and do not abort the loop; the
// cycle is already closed by the time this runs.
func (d *Dispatcher) DeliverPayslips(ctx context.Context, sum payroll.Summary) {
	var targets []target
	for _, slip := range sum.Payslips {
		targets = append(targets, target{to: slip.PersonID, text: formatPayslip(slip)})
	}
	d.send(ctx, "payslip", targets)

	d.sendToAdmins(ctx, "payroll report", formatSummary(sum))
}

func formatPayslip(slip payroll.Payslip) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payslip %s\n", slip.Period)
	fmt.Fprintf(&b, "%s\n", slip.Name)
	fmt.Fprintf(&b, "Work units: %s\n", slip.WorkUnits)
	fmt.Fprintf(&b, "Gross pay: %s\n", slip.GrossPay)
	if slip.Advance.IsPositive() {
		fmt.Fprintf(&b, "Advance taken: -%s\n", slip.Advance)
	}
	if slip.Repaid.IsPositive() {
		fmt.Fprintf(&b, "Debt repaid: -%s\n", slip.Repaid)
	}
	fmt.Fprintf(&b, "Net pay: %s\n", slip.NetPay)
	fmt.Fprintf(&b, "Remaining debt: %s", slip.RemainingDebt)
	return b.String()
}

func formatSummary(sum payroll.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly payroll %s\n", sum.Period)
	for _, slip := range sum.Payslips {
		fmt.Fprintf(&b, "- %s: %s units, net %s, debt %s\n",
			slip.Name, slip.WorkUnits, slip.NetPay, slip.RemainingDebt)
	}
	fmt.Fprintf(&b, "Total gross: %s\nTotal net: %s", sum.TotalGross, sum.TotalNet)
	return b.String()
}

// =============================================================================
// DELIVERY
// =============================================================================

func (d *Dispatcher) sendToAdmins(ctx context.Context, what, text string) {
	var targets []target
	for _, a := range d.Roster.Admins() {
		targets = append(targets, target{to: a.ID, text: text})
	}
	d.send(ctx, what, targets)
}

func (d *Dispatcher) send(ctx context.Context, what string, targets []target) {
	errs := fanOut(ctx, d.Concurrency, targets, d.Pusher.Push)
	for _, e := range errs {
		log.Printf("[Notify] %s to %s failed: %v", what, e.To, e.Err)
	}
}

func orDash(lines []string) string {
	if len(lines) == 0 {
		return "-"
	}
	return strings.Join(lines, "\n")
}
