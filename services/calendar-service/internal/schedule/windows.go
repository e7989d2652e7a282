// Package schedule resolves a user's configured availability into concrete
// UTC windows for a calendar date.
package schedule

import (
	"time"

	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

type Window struct {
	Start time.Time
	End   time.Time
}

// WindowsForDate converts the weekly schedule, with any date overrides
// applied, into UTC windows for one local date. Minutes are interpreted as
// wall-clock offsets, so a 09:00 window stays 09:00 local across DST shifts.
func WindowsForDate(s storage.Schedule, overrides []storage.DateOverride, date string) ([]Window, error) {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, err
	}
	dayLocal, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, err
	}

	if len(overrides) > 0 {
		var out []Window
		for _, o := range overrides {
			if o.Unavailable {
				continue
			}
			if w, ok := minuteWindow(dayLocal, loc, o.StartMinute, o.EndMinute); ok {
				out = append(out, w)
			}
		}
		return out, nil
	}

	weekday := int(dayLocal.Weekday())
	var out []Window
	for _, w := range s.Windows {
		if w.Weekday != weekday {
			continue
		}
		if win, ok := minuteWindow(dayLocal, loc, w.StartMinute, w.EndMinute); ok {
			out = append(out, win)
		}
	}
	return out, nil
}

func minuteWindow(day time.Time, loc *time.Location, startMinute, endMinute int) (Window, bool) {
	if endMinute <= startMinute {
		return Window{}, false
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), startMinute/60, startMinute%60, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), endMinute/60, endMinute%60, 0, 0, loc)
	if !end.After(start) {
		return Window{}, false
	}
	return Window{Start: start.UTC(), End: end.UTC()}, true
}
