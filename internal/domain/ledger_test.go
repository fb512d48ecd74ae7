package domain

import (
	"testing"
	"time"
)

func TestDayKeyUsesUTC(t *testing.T) {
	// 23:30 in UTC+3 is 20:30 UTC, same calendar day.
	loc := time.FixedZone("UTC+3", 3*60*60)
	early := time.Date(2026, 3, 10, 23, 30, 0, 0, loc)
	if got := DayKey(early); got != "2026-03-10" {
		t.Errorf("DayKey = %q, want 2026-03-10", got)
	}

	// 01:30 in UTC+3 is still the previous UTC day.
	late := time.Date(2026, 3, 11, 1, 30, 0, 0, loc)
	if got := DayKey(late); got != "2026-03-10" {
		t.Errorf("DayKey = %q, want 2026-03-10", got)
	}
}

func TestParseDayKeyRoundTrip(t *testing.T) {
	day := time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC)
	parsed, err := ParseDayKey(DayKey(day))
	if err != nil {
		t.Fatalf("ParseDayKey: %v", err)
	}
	if DayKey(parsed) != "2026-03-10" {
		t.Errorf("round trip = %q, want 2026-03-10", DayKey(parsed))
	}

	if _, err := ParseDayKey("not-a-date"); err == nil {
		t.Error("ParseDayKey accepted garbage")
	}
}

func TestWeekKeyCrossesYearBoundary(t *testing.T) {
	// 2024-12-30 is the Monday of ISO week 1 of 2025.
	monday := time.Date(2024, 12, 30, 10, 0, 0, 0, time.UTC)
	if got := WeekKey(monday); got != "2025-W01" {
		t.Errorf("WeekKey = %q, want 2025-W01", got)
	}

	midYear := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := WeekKey(midYear); got != "2026-W11" {
		t.Errorf("WeekKey = %q, want 2026-W11", got)
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)); got != "2026-03" {
		t.Errorf("MonthKey = %q, want 2026-03", got)
	}
}

func TestParseWindow(t *testing.T) {
	for _, valid := range []string{"all_time", "daily", "weekly", "monthly"} {
		if _, err := ParseWindow(valid); err != nil {
			t.Errorf("ParseWindow(%q) = %v, want nil", valid, err)
		}
	}
	if _, err := ParseWindow("hourly"); err == nil {
		t.Error("ParseWindow accepted unknown window")
	}
}
