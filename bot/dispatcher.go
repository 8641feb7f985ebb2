package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/payroll"
	"github.com/Natts95/line-checkin-bot/roster"
	"github.com/Natts95/line-checkin-bot/store"
)

const dateLayout = "Monday 2 January 2006"

// Dispatcher processes inbound commands one at a time. Scheduled triggers
// share the same mutex via Exclusive, so a payroll run never interleaves
// with a command touching the same ledgers.
type Dispatcher struct {
	mu sync.Mutex

	Roster     *roster.Directory
	Attendance *attendance.Ledger
	Finance    *payroll.CycleLedger
	Store      store.Store
	Clock      clock.Clock

	AdvanceKeyword string
	RepayKeyword   string
}

// Exclusive runs fn while holding the dispatch mutex. Scheduled hooks
// (reminders, reports, payroll) go through here.
func (d *Dispatcher) Exclusive(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Handle processes one command and returns the reply.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) Reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.autoRegister(ctx, cmd)

	parsed, err := parseCommand(cmd.Text, d.AdvanceKeyword, d.RepayKeyword)
	var shapeErr *parseError
	if errors.As(err, &shapeErr) {
		return textReply(shapeErr.reply)
	}

	switch parsed.kind {
	case cmdWhoami:
		return d.handleWhoami(cmd)
	case cmdCheckin:
		return d.handleCheckin(cmd)
	case cmdWork:
		return d.handleWork(ctx, cmd, parsed.workType)
	case cmdAdvance:
		return d.handleAdvance(ctx, cmd, parsed.amount)
	case cmdRepayment:
		return d.handleRepayment(ctx, cmd, parsed.amount)
	case cmdAddEmployee:
		return d.handleAddPerson(ctx, cmd, parsed, roster.RoleEmployee)
	case cmdAddAdmin:
		return d.handleAddPerson(ctx, cmd, parsed, roster.RoleAdmin)
	case cmdRemoveEmployee:
		return d.handleRemoveEmployee(ctx, cmd, parsed.targetID)
	case cmdRemoveAdmin:
		return d.handleRemoveAdmin(ctx, cmd, parsed.targetID)
	case cmdSetRate:
		return d.handleSetRate(ctx, cmd, parsed)
	case cmdSetDebt:
		return d.handleSetDebt(ctx, cmd, parsed)
	case cmdOverride:
		return d.handleOverride(ctx, cmd, parsed)
	}

	return textReply(fmt.Sprintf(
		"I didn't understand that. Try \"checkin\", \"whoami\", \"%s <amount>\" or \"%s <amount>\".",
		d.AdvanceKeyword, d.RepayKeyword))
}

// autoRegister upserts first-contact senders as active employees, and keeps
// display names fresh for known ones. A deactivated person is NOT silently
// re-activated by talking to the bot; that takes an admin.
func (d *Dispatcher) autoRegister(ctx context.Context, cmd Command) {
	if _, known := d.Roster.Find(cmd.PersonID); known {
		d.Roster.RefreshName(cmd.PersonID, cmd.DisplayName)
		return
	}

	p := d.Roster.RegisterOrUpdate(roster.Upsert{
		ID:     cmd.PersonID,
		Name:   cmd.DisplayName,
		Role:   roster.RoleEmployee,
		Active: true,
	})
	d.appendRoster(ctx, p, cmd)
}

// =============================================================================
// EMPLOYEE COMMANDS
// =============================================================================

func (d *Dispatcher) handleWhoami(cmd Command) Reply {
	p, ok := d.Roster.Find(cmd.PersonID)
	if !ok {
		return textReply("You are not registered.")
	}
	role := string(p.Role)
	if d.Roster.IsAdmin(p.ID) {
		role = "admin"
	}
	return textReply(fmt.Sprintf("%s (%s)\nuserId:\n%s", p.Name, role, p.ID))
}

func (d *Dispatcher) handleCheckin(cmd Command) Reply {
	if dec := d.Attendance.CanCheckIn(cmd.PersonID, cmd.Now); !dec.Allowed {
		return d.rejectionReply(cmd, dec.Reason)
	}

	title := fmt.Sprintf("%s\nWhat kind of day are you working today?",
		clock.DateOf(cmd.Now).Format(dateLayout))
	return Reply{Menu: &Menu{
		Title: title,
		Options: []MenuOption{
			{Label: "Full day", Text: "work:full"},
			{Label: "Half day (morning)", Text: "work:half-morning"},
			{Label: "Half day (afternoon)", Text: "work:half-afternoon"},
			{Label: "Day off", Text: "work:off"},
		},
	}}
}

func (d *Dispatcher) handleWork(ctx context.Context, cmd Command, wt attendance.WorkType) Reply {
	// The menu may be tapped long after "checkin" passed: re-run the gates.
	if dec := d.Attendance.CanCheckIn(cmd.PersonID, cmd.Now); !dec.Allowed {
		return d.rejectionReply(cmd, dec.Reason)
	}

	today := clock.DateOf(cmd.Now)
	entry, err := d.Attendance.RecordEntry(cmd.PersonID, today, wt, cmd.Now)
	if errors.Is(err, attendance.ErrDuplicateEntry) {
		return d.rejectionReply(cmd, attendance.ReasonAlreadyRecorded)
	}
	if err != nil {
		log.Printf("[Bot] record entry for %s failed: %v", cmd.PersonID, err)
		return textReply("Something went wrong recording your check-in. Please try again.")
	}

	confirmation := fmt.Sprintf("Recorded!\n%s\n%s (%s)",
		today.Format(dateLayout), cmd.DisplayName, wt.Label())

	// Check-in is the user-visible save path: the entry stands either way,
	// but the sender is told when the durable write failed.
	if err := d.Store.AppendAttendance(ctx, store.NewAttendanceRecord(entry)); err != nil {
		log.Printf("[Bot] attendance append failed for %s: %v", cmd.PersonID, err)
		return textReply(confirmation + "\n(Warning: saving to the sheet failed; an admin has been notified.)")
	}
	return textReply(confirmation)
}

func (d *Dispatcher) handleAdvance(ctx context.Context, cmd Command, amount decimal.Decimal) Reply {
	if r := d.requireActive(cmd.PersonID); r != nil {
		return *r
	}

	tx, err := d.Finance.RecordAdvance(cmd.PersonID, amount, cmd.Now)
	if err != nil {
		return d.financeErrorReply(err, payroll.KindAdvance)
	}

	d.appendTransaction(ctx, tx)
	return textReply(fmt.Sprintf(
		"Cash advance for this week set to %s. (Sending again before the window closes replaces it.)", amount))
}

func (d *Dispatcher) handleRepayment(ctx context.Context, cmd Command, amount decimal.Decimal) Reply {
	if r := d.requireActive(cmd.PersonID); r != nil {
		return *r
	}

	tx, err := d.Finance.RecordRepayment(cmd.PersonID, amount, cmd.Now)
	if err != nil {
		return d.financeErrorReply(err, payroll.KindRepayment)
	}

	d.appendTransaction(ctx, tx)
	// The repayment applied to the debt eagerly; log the new balance too.
	if p, ok := d.Roster.Find(cmd.PersonID); ok {
		d.appendRoster(ctx, p, cmd)
		return textReply(fmt.Sprintf(
			"Repayment of %s recorded. Remaining debt: %s.", amount, p.TotalDebt))
	}
	return textReply(fmt.Sprintf("Repayment of %s recorded.", amount))
}

// =============================================================================
// ADMIN COMMANDS
// =============================================================================

func (d *Dispatcher) handleAddPerson(ctx context.Context, cmd Command, parsed parsedCommand, role roster.Role) Reply {
	if r := d.requireAdmin(cmd.PersonID); r != nil {
		return *r
	}

	p := d.Roster.RegisterOrUpdate(roster.Upsert{
		ID:     parsed.targetID,
		Name:   parsed.name,
		Role:   role,
		Active: true,
	})
	d.appendRoster(ctx, p, cmd)
	return textReply(fmt.Sprintf("Added %s %s (%s).", role, p.Name, p.ID))
}

func (d *Dispatcher) handleRemoveEmployee(ctx context.Context, cmd Command, targetID string) Reply {
	if r := d.requireAdmin(cmd.PersonID); r != nil {
		return *r
	}

	p, ok := d.Roster.Find(targetID)
	if !ok {
		return textReply(fmt.Sprintf("No person with id %s.", targetID))
	}
	d.Roster.Deactivate(targetID)
	p.Active = false
	d.appendRoster(ctx, p, cmd)
	return textReply(fmt.Sprintf("Deactivated %s (%s). History is kept.", p.Name, p.ID))
}

func (d *Dispatcher) handleRemoveAdmin(ctx context.Context, cmd Command, targetID string) Reply {
	if r := d.requireAdmin(cmd.PersonID); r != nil {
		return *r
	}

	p, ok := d.Roster.Find(targetID)
	if !ok || (p.Role != roster.RoleAdmin && p.Role != roster.RoleSuperAdmin) {
		return textReply(fmt.Sprintf("No admin with id %s.", targetID))
	}
	p = d.Roster.RegisterOrUpdate(roster.Upsert{
		ID:     p.ID,
		Name:   p.Name,
		Role:   roster.RoleEmployee,
		Active: p.Active,
	})
	d.appendRoster(ctx, p, cmd)
	return textReply(fmt.Sprintf("%s (%s) is now a regular employee.", p.Name, p.ID))
}

func (d *Dispatcher) handleSetRate(ctx context.Context, cmd Command, parsed parsedCommand) Reply {
	if r := d.requireAdmin(cmd.PersonID); r != nil {
		return *r
	}

	p, ok := d.Roster.Find(parsed.targetID)
	if !ok {
		return textReply(fmt.Sprintf("No person with id %s.", parsed.targetID))
	}
	rate := parsed.amount
	p = d.Roster.RegisterOrUpdate(roster.Upsert{
		ID:        p.ID,
		Name:      p.Name,
		Role:      p.Role,
		Active:    p.Active,
		DailyRate: &rate,
	})
	d.appendRoster(ctx, p, cmd)
	return textReply(fmt.Sprintf("Daily rate for %s set to %s.", p.Name, p.DailyRate))
}

func (d *Dispatcher) handleSetDebt(ctx context.Context, cmd Command, parsed parsedCommand) Reply {
	if r := d.requireAdmin(cmd.PersonID); r != nil {
		return *r
	}

	p, ok := d.Roster.Find(parsed.targetID)
	if !ok {
		return textReply(fmt.Sprintf("No person with id %s.", parsed.targetID))
	}
	debt := parsed.amount
	p = d.Roster.RegisterOrUpdate(roster.Upsert{
		ID:        p.ID,
		Name:      p.Name,
		Role:      p.Role,
		Active:    p.Active,
		TotalDebt: &debt,
	})
	d.appendRoster(ctx, p, cmd)
	return textReply(fmt.Sprintf("Debt for %s set to %s.", p.Name, p.TotalDebt))
}

func (d *Dispatcher) handleOverride(ctx context.Context, cmd Command, parsed parsedCommand) Reply {
	if r := d.requireAdmin(cmd.PersonID); r != nil {
		return *r
	}

	target, ok := d.Roster.Find(parsed.targetID)
	if !ok {
		return textReply(fmt.Sprintf("No person with id %s.", parsed.targetID))
	}

	today := clock.DateOf(cmd.Now)
	entry, err := d.Attendance.OverrideEntry(parsed.targetID, today, parsed.workType, cmd.PersonID, cmd.Now)
	if err != nil {
		// requireAdmin already passed, so this is unexpected.
		log.Printf("[Bot] override for %s failed: %v", parsed.targetID, err)
		return textReply("Override failed.")
	}

	if err := d.Store.AppendAttendance(ctx, store.NewAttendanceRecord(entry)); err != nil {
		log.Printf("[Bot] attendance append failed for %s: %v", parsed.targetID, err)
	}
	return textReply(fmt.Sprintf("Today's entry for %s replaced with %s.", target.Name, parsed.workType.Label()))
}

// =============================================================================
// SHARED CHECKS AND REPLIES
// =============================================================================

// requireActive rejects senders who are unknown or deactivated. Admins pass.
func (d *Dispatcher) requireActive(personID string) *Reply {
	if d.Roster.IsAdmin(personID) {
		return nil
	}
	p, ok := d.Roster.Find(personID)
	if !ok || !p.Active {
		r := textReply("You are not registered as an active employee. Ask an admin to add you.")
		return &r
	}
	return nil
}

func (d *Dispatcher) requireAdmin(personID string) *Reply {
	if d.Roster.IsAdmin(personID) {
		return nil
	}
	r := textReply("Only admins can do that.")
	return &r
}

func (d *Dispatcher) rejectionReply(cmd Command, reason attendance.Reason) Reply {
	switch reason {
	case attendance.ReasonNotRegistered:
		return textReply("You are not registered as an active employee. Ask an admin to add you.")
	case attendance.ReasonRestDay:
		return textReply("Today is the rest day - no check-in needed.")
	case attendance.ReasonPastCutoff:
		return textReply(fmt.Sprintf("%s Check-in is closed for today (after the cutoff).", cmd.DisplayName))
	case attendance.ReasonAlreadyRecorded:
		return textReply(fmt.Sprintf("%s, you already checked in today.", cmd.DisplayName))
	}
	return textReply("Check-in is not possible right now.")
}

func (d *Dispatcher) financeErrorReply(err error, kind payroll.Kind) Reply {
	var exceeds *payroll.ExceedsDebtError
	switch {
	case errors.Is(err, payroll.ErrOutsideWindow):
		return textReply(fmt.Sprintf("That only works during the window: %s.", d.Finance.Window(kind)))
	case errors.Is(err, payroll.ErrInvalidAmount):
		return textReply("The amount must be a positive whole number.")
	case errors.As(err, &exceeds):
		return textReply(fmt.Sprintf("You can repay at most %s (your current debt).", exceeds.CurrentDebt))
	}
	log.Printf("[Bot] finance operation failed: %v", err)
	return textReply("Something went wrong. Please try again.")
}

// =============================================================================
// DURABLE WRITES
// =============================================================================
// Append failures on these paths are logged, not surfaced: the in-memory
// mutation stands and the store catches up from later records.

func (d *Dispatcher) appendRoster(ctx context.Context, p roster.Person, cmd Command) {
	if err := d.Store.AppendRoster(ctx, store.NewRosterRecord(p, cmd.Now)); err != nil {
		log.Printf("[Bot] roster append failed for %s: %v", p.ID, err)
	}
}

func (d *Dispatcher) appendTransaction(ctx context.Context, tx payroll.Transaction) {
	if err := d.Store.AppendTransaction(ctx, store.NewTransactionRecord(tx)); err != nil {
		log.Printf("[Bot] transaction append failed for %s: %v", tx.PersonID, err)
	}
}
