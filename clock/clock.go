/*
Package clock supplies the current time in the bot's fixed timezone and the
small calendar vocabulary the rest of the system speaks.

PURPOSE:
  Every rule in this system is a pure function of "what time is it in the
  shop's timezone": the daily cutoff, the weekly rest day, the transaction
  windows, the pay cycle boundaries. Centralizing the clock behind an
  interface keeps all of that testable with a fixed time.

KEY CONCEPTS:
  - Clock: source of "now", always already in the configured location
  - Date: a calendar day with no time-of-day attached (ledger key)
  - TimeOfDay: wall-clock hour:minute, used for cutoffs and windows

SEE ALSO:
  - attendance: cutoff and rest-day checks against this clock
  - payroll: transaction windows and pay cycle periods
*/
package clock

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Clock supplies the current time in the system's timezone.
type Clock interface {
	Now() time.Time
}

// =============================================================================
// SYSTEM CLOCK - Wall clock pinned to a location
// =============================================================================

type System struct {
	loc *time.Location
}

// NewSystem creates a clock pinned to the named timezone (e.g. "Asia/Bangkok").
func NewSystem(tz string) (*System, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return &System{loc: loc}, nil
}

// NewSystemFrom pins the clock to an already-loaded location.
func NewSystemFrom(loc *time.Location) *System { return &System{loc: loc} }

func (s *System) Now() time.Time          { return time.Now().In(s.loc) }
func (s *System) Location() *time.Location { return s.loc }

// =============================================================================
// FIXED CLOCK - Controllable clock for tests
// =============================================================================

// Fixed is a clock frozen at a settable instant.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// =============================================================================
// DATE - Calendar day without time-of-day
// =============================================================================

// Date identifies one calendar day in the system timezone.
// Used as the attendance ledger key: at most one entry per (person, Date).
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf extracts the calendar day from an instant.
// The instant must already be in the system timezone.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// Format renders the date with a time.Format layout (date verbs only).
func (d Date) Format(layout string) string { return d.time().Format(layout) }
func (d Date) AddDays(n int) Date    { return DateOf(d.time().AddDate(0, 0, n)) }
func (d Date) Before(o Date) bool    { return d.time().Before(o.time()) }
func (d Date) After(o Date) bool     { return d.time().After(o.time()) }
func (d Date) Equal(o Date) bool     { return d == o }
func (d Date) IsZero() bool          { return d == Date{} }

// =============================================================================
// TIME OF DAY - Wall-clock hour:minute
// =============================================================================

type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour). The whole string must be the
// time; trailing text is rejected rather than silently dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) Before(o TimeOfDay) bool { return t.Minutes() < o.Minutes() }

// TimeOfDayOf extracts the wall-clock time from an instant.
func TimeOfDayOf(at time.Time) TimeOfDay {
	return TimeOfDay{Hour: at.Hour(), Minute: at.Minute()}
}

// AtOrAfter reports whether the instant's wall-clock time is >= t.
func (t TimeOfDay) AtOrAfter(at time.Time) bool {
	return TimeOfDayOf(at).Minutes() >= t.Minutes()
}

// =============================================================================
// WEEKDAYS
// =============================================================================

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses an English weekday name, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return wd, nil
}
