package appointment

import (
	"fmt"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	clockLayout     = "15:04"
	clockLayoutLong = "15:04:05"
)

// Timeline converts business-local calendar input into absolute instants.
// All user-entered dates and clock times are interpreted in one fixed zone;
// the clock source is injectable so tests can pin "now".
type Timeline struct {
	loc *time.Location
	now func() time.Time
}

func NewTimeline(loc *time.Location, now func() time.Time) *Timeline {
	if now == nil {
		now = time.Now
	}
	return &Timeline{loc: loc, now: now}
}

// Now is the single clock source for past-date and past-time checks.
func (t *Timeline) Now() time.Time {
	return t.now()
}

// ParseDate converts a YYYY-MM-DD string into the UTC instant of that day's
// business-local midnight.
func (t *Timeline) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, t.loc)
	if err != nil {
		return time.Time{}, validationf(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
	}
	return d.UTC(), nil
}

// parseClock accepts strict 24-hour HH:mm or HH:mm:ss.
func parseClock(s string) (hour, min, sec int, err error) {
	c, err := time.Parse(clockLayoutLong, s)
	if err != nil {
		c, err = time.Parse(clockLayout, s)
	}
	if err != nil {
		return 0, 0, 0, validationf(fmt.Sprintf("invalid time %q, want HH:mm or HH:mm:ss", s))
	}
	return c.Hour(), c.Minute(), c.Second(), nil
}

// ToAbsolute interprets (date, clock) in the business zone and returns the
// corresponding UTC instant.
func (t *Timeline) ToAbsolute(date, clock string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, date, t.loc)
	if err != nil {
		return time.Time{}, validationf(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date))
	}
	h, m, s, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, t.loc).UTC(), nil
}

// At places a clock string on an already-normalized day instant.
func (t *Timeline) At(day time.Time, clock string) (time.Time, error) {
	h, m, s, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	local := day.In(t.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, s, 0, t.loc).UTC(), nil
}

// Rebase keeps an instant's business-local time of day but moves it onto
// another day. Used when an update changes the date but not the clock times.
func (t *Timeline) Rebase(day, instant time.Time) time.Time {
	d := day.In(t.loc)
	c := instant.In(t.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, t.loc).UTC()
}

// BusinessMidnight truncates an instant to its business-local calendar day,
// re-expressed in UTC. Comparing midnights compares dates without
// time-of-day or zone-boundary surprises.
func (t *Timeline) BusinessMidnight(at time.Time) time.Time {
	local := at.In(t.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.loc).UTC()
}

// NextDay returns the business-local midnight following the given day
// instant, in UTC. Adding calendar days in the zone keeps DST shifts out of
// range arithmetic.
func (t *Timeline) NextDay(day time.Time) time.Time {
	local := day.In(t.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, t.loc).UTC()
}

// FormatLocalDate renders an instant's business-local calendar day.
func (t *Timeline) FormatLocalDate(at time.Time) string {
	return at.In(t.loc).Format(dateLayout)
}

// FormatLocalClock renders an instant's business-local wall clock.
func (t *Timeline) FormatLocalClock(at time.Time) string {
	return at.In(t.loc).Format(clockLayout)
}
