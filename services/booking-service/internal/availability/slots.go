package availability

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
	// EventTypeID tags busy intervals with the booking's event type so
	// seated slots can tell seat-sharing bookings from foreign ones. Left
	// empty for availability windows.
	EventTypeID string
}

// Config describes how slots are carved out of an availability window.
type Config struct {
	EventTypeID   string
	Duration      time.Duration
	Step          time.Duration
	BeforeBuffer  time.Duration
	AfterBuffer   time.Duration
	MinimumNotice time.Duration
	// Seats is how many live bookings may share one slot. Zero means one.
	Seats int
}

// Slots returns slot start times within [windowStart, windowEnd) where a
// booking of cfg.Duration would leave its buffers clear of the busy intervals.
// Seats only share with bookings of the same event type at the exact same
// slot; any other overlapping booking blocks the slot outright.
//
// All times are expected to be in the same location (timezone).
func Slots(windowStart, windowEnd time.Time, cfg Config, busy []Interval, now time.Time) []time.Time {
	if cfg.Duration <= 0 || cfg.Step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(cfg.Duration).After(windowEnd) {
		return nil
	}

	seats := cfg.Seats
	if seats < 1 {
		seats = 1
	}
	earliest := now.Add(cfg.MinimumNotice)

	var slots []time.Time
	for t := windowStart; !t.Add(cfg.Duration).After(windowEnd); t = t.Add(cfg.Step) {
		if t.Before(earliest) {
			continue
		}
		// Buffers extend the slot's footprint: the before-buffer must be
		// clear ahead of the start and the after-buffer behind the end.
		start := t.Add(-cfg.BeforeBuffer)
		end := t.Add(cfg.Duration).Add(cfg.AfterBuffer)
		taken, blocked := occupancy(t, t.Add(cfg.Duration), start, end, cfg, busy)
		if !blocked && taken < seats {
			slots = append(slots, t)
		}
	}
	return slots
}

// Fits reports whether [start, end) lies entirely inside one of the windows.
func Fits(start, end time.Time, windows []Interval) bool {
	for _, w := range windows {
		if !start.Before(w.Start) && !end.After(w.End) {
			return true
		}
	}
	return false
}

// occupancy counts busy intervals sharing the exact slot for the same event
// type. Any other interval overlapping the buffered footprint blocks the
// slot: the organizer is in that meeting regardless of seat capacity.
func occupancy(slotStart, slotEnd, footStart, footEnd time.Time, cfg Config, busy []Interval) (int, bool) {
	taken := 0
	for _, b := range busy {
		// Half-open intervals: [footStart,footEnd) overlaps [b.Start,b.End) iff footStart < b.End && b.Start < footEnd.
		if !footStart.Before(b.End) || !b.Start.Before(footEnd) {
			continue
		}
		if cfg.Seats > 1 && b.EventTypeID == cfg.EventTypeID && b.Start.Equal(slotStart) && b.End.Equal(slotEnd) {
			taken++
			continue
		}
		return 0, true
	}
	return taken, false
}
