package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a validated calendar year-month. Bills key on its "YYYY-MM"
// string form, which sorts lexicographically in chronological order.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses and validates a "YYYY-MM" string. Malformed input is
// rejected here so month arithmetic downstream never sees garbage.
func ParseMonth(s string) (Month, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1970 || year > 9999 {
		return Month{}, fmt.Errorf("invalid month %q: bad year", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("invalid month %q: bad month", s)
	}
	return Month{Year: year, Month: time.Month(m)}, nil
}

// MonthOf returns the calendar month containing t (in UTC).
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// String renders the month as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Prev returns the preceding calendar month.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Before reports whether m is chronologically earlier than other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// DueDate returns midnight UTC on the given calendar day of this month.
// Day is assumed to be a valid day for every month (1..28, enforced at
// config load).
func (m Month) DueDate(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}
