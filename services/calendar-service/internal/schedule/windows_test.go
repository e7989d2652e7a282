package schedule

import (
	"testing"
	"time"

	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

func TestWindowsForDateWeekly(t *testing.T) {
	s := storage.Schedule{
		TimeZone: "America/New_York",
		Windows: []storage.ScheduleWindow{
			{Weekday: 1, StartMinute: 540, EndMinute: 1020}, // Mon 09:00-17:00
			{Weekday: 2, StartMinute: 600, EndMinute: 720},  // Tue 10:00-12:00
		},
	}

	// 2026-06-01 is a Monday; EDT is UTC-4.
	windows, err := WindowsForDate(s, nil, "2026-06-01")
	if err != nil {
		t.Fatalf("WindowsForDate failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	wantStart := time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 6, 1, 21, 0, 0, 0, time.UTC)
	if !windows[0].Start.Equal(wantStart) || !windows[0].End.Equal(wantEnd) {
		t.Fatalf("window = [%v, %v], want [%v, %v]", windows[0].Start, windows[0].End, wantStart, wantEnd)
	}
}

func TestWindowsForDateAcrossDST(t *testing.T) {
	s := storage.Schedule{
		TimeZone: "America/New_York",
		Windows: []storage.ScheduleWindow{
			{Weekday: 1, StartMinute: 540, EndMinute: 1020},
		},
	}

	// 2026-01-05 is a Monday in EST (UTC-5); the same wall-clock window
	// lands one hour later in UTC than it does in June.
	windows, err := WindowsForDate(s, nil, "2026-01-05")
	if err != nil {
		t.Fatalf("WindowsForDate failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	wantStart := time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC)
	if !windows[0].Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", windows[0].Start, wantStart)
	}
}

func TestWindowsForDateOverrideReplacesWeekly(t *testing.T) {
	s := storage.Schedule{
		TimeZone: "UTC",
		Windows: []storage.ScheduleWindow{
			{Weekday: 1, StartMinute: 540, EndMinute: 1020},
		},
	}
	overrides := []storage.DateOverride{
		{Day: "2026-06-01", StartMinute: 780, EndMinute: 840}, // 13:00-14:00 only
	}

	windows, err := WindowsForDate(s, overrides, "2026-06-01")
	if err != nil {
		t.Fatalf("WindowsForDate failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	wantStart := time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	if !windows[0].Start.Equal(wantStart) || !windows[0].End.Equal(wantEnd) {
		t.Fatalf("window = [%v, %v], want [%v, %v]", windows[0].Start, windows[0].End, wantStart, wantEnd)
	}
}

func TestWindowsForDateUnavailableOverrideClosesDay(t *testing.T) {
	s := storage.Schedule{
		TimeZone: "UTC",
		Windows: []storage.ScheduleWindow{
			{Weekday: 1, StartMinute: 540, EndMinute: 1020},
		},
	}
	overrides := []storage.DateOverride{
		{Day: "2026-06-01", Unavailable: true},
	}

	windows, err := WindowsForDate(s, overrides, "2026-06-01")
	if err != nil {
		t.Fatalf("WindowsForDate failed: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("got %d windows, want 0 for a closed day", len(windows))
	}
}

func TestWindowsForDateEmptyWeekend(t *testing.T) {
	s := storage.Schedule{
		TimeZone: "UTC",
		Windows: []storage.ScheduleWindow{
			{Weekday: 1, StartMinute: 540, EndMinute: 1020},
		},
	}

	// 2026-06-07 is a Sunday.
	windows, err := WindowsForDate(s, nil, "2026-06-07")
	if err != nil {
		t.Fatalf("WindowsForDate failed: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("got %d windows, want 0", len(windows))
	}
}

func TestWindowsForDateRejectsBadTimeZone(t *testing.T) {
	s := storage.Schedule{TimeZone: "Not/AZone"}
	if _, err := WindowsForDate(s, nil, "2026-06-01"); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}
