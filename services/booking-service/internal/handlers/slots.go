package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/qclickin/platform/services/booking-service/internal/availability"
	"github.com/qclickin/platform/services/booking-service/internal/scheduling"
)

const slotCacheTTL = 30 * time.Second

// Slots lists open slot start times for an event type on one date.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	eventTypeID := r.URL.Query().Get("event_type_id")
	date := r.URL.Query().Get("date")
	if eventTypeID == "" || date == "" {
		http.Error(w, "event_type_id and date are required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	cacheKey := "slots:" + eventTypeID + ":" + date
	if h.cache != nil {
		if body, ok := h.cache.Get(r.Context(), cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
			return
		}
	}

	if h.provider == nil {
		http.Error(w, "availability is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	cfg, err := h.provider.GetAvailabilityConfig(r.Context(), eventTypeID, date)
	if err != nil {
		if errors.Is(err, scheduling.ErrEventTypeNotFound) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("availability lookup failed", "err", err, "event_type_id", eventTypeID)
		http.Error(w, "availability is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	slotCfg := availability.Config{
		EventTypeID:   eventTypeID,
		Duration:      time.Duration(cfg.DurationMinutes) * time.Minute,
		Step:          time.Duration(cfg.SlotStepMinutes) * time.Minute,
		BeforeBuffer:  time.Duration(cfg.BeforeBufferMinutes) * time.Minute,
		AfterBuffer:   time.Duration(cfg.AfterBufferMinutes) * time.Minute,
		MinimumNotice: time.Duration(cfg.MinimumNoticeMinutes) * time.Minute,
		Seats:         cfg.SeatsPerTimeSlot,
	}
	if slotCfg.Step <= 0 {
		slotCfg.Step = slotCfg.Duration
	}

	slots := make([]string, 0)
	if len(cfg.WindowsUTC) > 0 {
		busyStart, busyEnd := minMaxWindows(cfg.WindowsUTC)
		pad := slotCfg.Duration + slotCfg.BeforeBuffer + slotCfg.AfterBuffer
		busy, err := h.repo.ListBusyIntervals(r.Context(), cfg.OwnerUserID, busyStart.Add(-pad), busyEnd.Add(pad))
		if err != nil {
			http.Error(w, "failed to load booked intervals", http.StatusInternalServerError)
			return
		}
		intervals := make([]availability.Interval, 0, len(busy))
		for _, b := range busy {
			intervals = append(intervals, availability.Interval{Start: b.Start, End: b.End, EventTypeID: b.EventTypeID})
		}

		now := time.Now().UTC()
		for _, win := range cfg.WindowsUTC {
			for _, t := range availability.Slots(win.StartUTC, win.EndUTC, slotCfg, intervals, now) {
				slots = append(slots, t.Format(time.RFC3339))
			}
		}
	}

	resp := map[string]any{
		"event_type_id":    eventTypeID,
		"date":             date,
		"time_zone":        cfg.Timezone,
		"duration_minutes": cfg.DurationMinutes,
		"slots":            slots,
	}
	if h.cache != nil {
		if body, err := encodeJSON(resp); err == nil {
			h.cache.Set(r.Context(), cacheKey, body, slotCacheTTL)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func minMaxWindows(windows []scheduling.AvailabilityWindow) (time.Time, time.Time) {
	start, end := windows[0].StartUTC, windows[0].EndUTC
	for _, w := range windows[1:] {
		if w.StartUTC.Before(start) {
			start = w.StartUTC
		}
		if w.EndUTC.After(end) {
			end = w.EndUTC
		}
	}
	return start, end
}
