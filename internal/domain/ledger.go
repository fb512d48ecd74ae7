package domain

import (
	"fmt"
	"time"
)

// DayKeyLayout is the ledger's calendar-date key format, UTC.
const DayKeyLayout = "2006-01-02"

// DayKey returns the ledger key for the UTC calendar date of t.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// ParseDayKey parses a YYYY-MM-DD ledger key back into a UTC date.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.Parse(DayKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day key %q: %w", key, err)
	}
	return t, nil
}

// WeekKey returns a grouping key for the ISO week containing t.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey returns a grouping key for the calendar month containing t.
func MonthKey(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%04d-%02d", u.Year(), u.Month())
}

// DailyLedger is one user's sparse mapping from day key to coins
// earned that day. Values accumulate via increments, never overwrites.
type DailyLedger map[string]int64
