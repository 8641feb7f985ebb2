package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Natts95/line-checkin-bot/attendance"
	"github.com/Natts95/line-checkin-bot/clock"
	"github.com/Natts95/line-checkin-bot/roster"
)

// =============================================================================
// PAYROLL CALCULATOR - Closes a pay cycle into payslips
// =============================================================================

// Payslip is the per-person result of a cycle close.
//
// NetPay is a reporting value: it may be negative when advances exceed
// earnings, unless the floor-at-zero option is on. RemainingDebt is the
// directory's current balance, already net of this cycle's eager repayment.
type Payslip struct {
	PersonID      string
	Name          string
	Period        Period
	WorkUnits     decimal.Decimal
	GrossPay      decimal.Decimal
	Advance       decimal.Decimal
	Repaid        decimal.Decimal
	NetPay        decimal.Decimal
	RemainingDebt decimal.Decimal
}

// Summary aggregates a whole run for the admin report.
type Summary struct {
	Period     Period
	RanAt      time.Time
	Payslips   []Payslip
	TotalGross decimal.Decimal
	TotalNet   decimal.Decimal
}

// Roster is the directory surface the calculator needs.
type Roster interface {
	Active() []roster.Person
}

// Attendance is the ledger surface the calculator needs.
type Attendance interface {
	EntriesInRange(personID string, from, to clock.Date) []attendance.Entry
}

// Calculator owns no persistent state: a run is a pure read-aggregate pass
// over the roster, the attendance ledger and the cycle ledger, followed by
// the cycle reset.
type Calculator struct {
	Roster     Roster
	Attendance Attendance
	Ledger     *CycleLedger

	// ClosingDay anchors the cycle period computation.
	ClosingDay time.Weekday

	// FloorNetPayAtZero clamps negative net pay in the payslip when set.
	// Default off: the shortfall is worth seeing.
	FloorNetPayAtZero bool
}

// Run closes the cycle containing `now`: computes one payslip per active
// person, then clears the cycle's transaction ledger. Attendance history is
// left in place.
func (c *Calculator) Run(now time.Time) Summary {
	period := CurrentPeriod(now, c.ClosingDay)
	advances := c.Ledger.AdvancesForCycle()
	repayments := c.Ledger.RepaymentsForCycle()

	sum := Summary{
		Period:     period,
		RanAt:      now,
		TotalGross: decimal.Zero,
		TotalNet:   decimal.Zero,
	}

	for _, p := range c.Roster.Active() {
		slip := c.payslipFor(p, period, advances[p.ID], repayments[p.ID])
		sum.Payslips = append(sum.Payslips, slip)
		sum.TotalGross = sum.TotalGross.Add(slip.GrossPay)
		sum.TotalNet = sum.TotalNet.Add(slip.NetPay)
	}

	c.Ledger.Reset()
	return sum
}

func (c *Calculator) payslipFor(p roster.Person, period Period, advance, repaid decimal.Decimal) Payslip {
	units := decimal.Zero
	for _, e := range c.Attendance.EntriesInRange(p.ID, period.Start, period.End) {
		units = units.Add(e.Type.Units())
	}

	gross := units.Mul(p.DailyRate)
	net := gross.Sub(advance).Sub(repaid)
	if c.FloorNetPayAtZero && net.IsNegative() {
		net = decimal.Zero
	}

	return Payslip{
		PersonID:      p.ID,
		Name:          p.Name,
		Period:        period,
		WorkUnits:     units,
		GrossPay:      gross,
		Advance:       advance,
		Repaid:        repaid,
		NetPay:        net,
		RemainingDebt: p.TotalDebt,
	}
}
