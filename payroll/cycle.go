package payroll

import (
	"time"

	"github.com/Natts95/line-checkin-bot/clock"
)

// =============================================================================
// PAY CYCLE - The weekly span between consecutive payroll runs
// =============================================================================

// Period is an inclusive date range [Start, End]. A pay cycle ends on the
// configured closing weekday and covers the seven days up to and including
// it: (previous close, close].
type Period struct {
	Start clock.Date
	End   clock.Date
}

func (p Period) Contains(d clock.Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p Period) String() string {
	return p.Start.String() + ".." + p.End.String()
}

// CurrentPeriod returns the pay cycle containing `now`. On the closing day
// itself the cycle ends today, which is what the payroll run wants.
func CurrentPeriod(now time.Time, closingDay time.Weekday) Period {
	today := clock.DateOf(now)
	sinceClose := (int(now.Weekday()) - int(closingDay) + 7) % 7
	if sinceClose == 0 {
		return Period{Start: today.AddDays(-6), End: today}
	}
	lastClose := today.AddDays(-sinceClose)
	return Period{Start: lastClose.AddDays(1), End: lastClose.AddDays(7)}
}
