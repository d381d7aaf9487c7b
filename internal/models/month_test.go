package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMonth_Valid(t *testing.T) {
	m, err := ParseMonth("2025-07")
	assert.NoError(t, err)
	assert.Equal(t, 2025, m.Year)
	assert.Equal(t, time.July, m.Month)
	assert.Equal(t, "2025-07", m.String())
}

func TestParseMonth_Invalid(t *testing.T) {
	cases := []string{
		"",
		"2025",
		"2025-7",    // month must be two digits
		"25-07",     // year must be four digits
		"2025-13",   // no thirteenth month
		"2025-00",   // months start at 1
		"abcd-ef",   // not numeric
		"2025-07-01", // a full date is not a month
		"1969-12",   // before epoch floor
	}
	for _, c := range cases {
		_, err := ParseMonth(c)
		assert.Error(t, err, "expected %q to be rejected", c)
	}
}

func TestMonth_PrevNext(t *testing.T) {
	jan := Month{Year: 2025, Month: time.January}
	assert.Equal(t, Month{Year: 2024, Month: time.December}, jan.Prev())
	assert.Equal(t, Month{Year: 2025, Month: time.February}, jan.Next())

	dec := Month{Year: 2025, Month: time.December}
	assert.Equal(t, Month{Year: 2026, Month: time.January}, dec.Next())
	assert.Equal(t, Month{Year: 2025, Month: time.November}, dec.Prev())
}

func TestMonth_Before(t *testing.T) {
	a := Month{Year: 2025, Month: time.March}
	b := Month{Year: 2025, Month: time.April}
	c := Month{Year: 2026, Month: time.January}
	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
}

func TestMonth_StringSortsChronologically(t *testing.T) {
	// The bills collection compares month strings with $lt, so the string
	// form must sort in calendar order.
	assert.Less(t, Month{Year: 2025, Month: time.September}.String(), Month{Year: 2025, Month: time.October}.String())
	assert.Less(t, Month{Year: 2025, Month: time.December}.String(), Month{Year: 2026, Month: time.January}.String())
}

func TestMonth_DueDate(t *testing.T) {
	m := Month{Year: 2025, Month: time.July}
	due := m.DueDate(25)
	assert.Equal(t, time.Date(2025, time.July, 25, 0, 0, 0, 0, time.UTC), due)
}

func TestMonthOf(t *testing.T) {
	ts := time.Date(2025, time.March, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, Month{Year: 2025, Month: time.March}, MonthOf(ts))
}
