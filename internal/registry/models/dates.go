package models

import "time"

var (
	// StartOfTime precedes every registry event.
	StartOfTime = time.Unix(0, 0).UTC()
	// EndOfTime marks open-ended intervals (live domains, open recurrences).
	// It stays within RFC 3339 range so JSON payloads round-trip.
	EndOfTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// LeapSafeAddYears adds years to t the way registration terms are computed:
// February 29 becomes February 28 of the target year instead of rolling into
// March, keeping renewals on the same calendar month.
func LeapSafeAddYears(t time.Time, years int) time.Time {
	if years == 0 {
		return t
	}
	day := t.Day()
	if t.Month() == time.February && day == 29 {
		day = 28
	}
	return time.Date(t.Year()+years, t.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Date is a UTC calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a yyyy-mm-dd date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}
