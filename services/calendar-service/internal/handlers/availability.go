package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/qclickin/platform/services/calendar-service/internal/schedule"
	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

type availabilityWindow struct {
	StartUTC string `json:"start_utc"`
	EndUTC   string `json:"end_utc"`
}

type availabilityConfigResponse struct {
	EventTypeID          string               `json:"event_type_id"`
	OwnerUserID          string               `json:"owner_user_id"`
	TimeZone             string               `json:"time_zone"`
	DurationMinutes      int                  `json:"duration_minutes"`
	SlotStepMinutes      int                  `json:"slot_step_minutes"`
	MinimumNoticeMinutes int                  `json:"minimum_booking_notice_minutes"`
	BeforeBufferMinutes  int                  `json:"before_buffer_minutes"`
	AfterBufferMinutes   int                  `json:"after_buffer_minutes"`
	SeatsPerTimeSlot     int                  `json:"seats_per_time_slot"`
	RequiresConfirmation bool                 `json:"requires_confirmation"`
	PriceCents           int                  `json:"price_cents"`
	Currency             string               `json:"currency"`
	WindowsUTC           []availabilityWindow `json:"windows_utc"`
}

// availabilityStore is the slice of the repository the config lookup needs.
type availabilityStore interface {
	GetEventType(ctx context.Context, id string) (storage.EventType, error)
	GetProfileByUserID(ctx context.Context, userID string) (storage.OrganizerProfile, error)
	GetOrCreateSchedule(ctx context.Context, userID string, defaultTimeZone string) (storage.Schedule, error)
	OverridesForDay(ctx context.Context, userID string, day time.Time) ([]storage.DateOverride, error)
}

// AvailabilityConfig resolves an event type's bookable windows for one date.
// It is an internal endpoint; booking-service calls it when computing slots.
func (h *Handler) AvailabilityConfig(w http.ResponseWriter, r *http.Request) {
	availabilityConfig(w, r, h.repo)
}

func availabilityConfig(w http.ResponseWriter, r *http.Request, store availabilityStore) {
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

	et, err := store.GetEventType(r.Context(), eventTypeID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load event type", http.StatusInternalServerError)
		return
	}
	// Hidden event types are not bookable, so they have no availability.
	if et.Hidden {
		http.Error(w, "event type not found", http.StatusNotFound)
		return
	}

	defaultTZ := "UTC"
	if profile, err := store.GetProfileByUserID(r.Context(), et.OwnerUserID); err == nil && profile.TimeZone != "" {
		defaultTZ = profile.TimeZone
	}

	sched, err := store.GetOrCreateSchedule(r.Context(), et.OwnerUserID, defaultTZ)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}

	loc, err := time.LoadLocation(sched.TimeZone)
	if err != nil {
		loc = time.UTC
		sched.TimeZone = "UTC"
	}
	dayLocal, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	overrides, err := store.OverridesForDay(r.Context(), et.OwnerUserID, dayLocal)
	if err != nil {
		http.Error(w, "failed to load overrides", http.StatusInternalServerError)
		return
	}

	windows, err := schedule.WindowsForDate(sched, overrides, date)
	if err != nil {
		http.Error(w, "failed to resolve availability", http.StatusInternalServerError)
		return
	}

	seats := 1
	if et.SeatsPerTimeSlot != nil && *et.SeatsPerTimeSlot > 1 {
		seats = *et.SeatsPerTimeSlot
	}
	resp := availabilityConfigResponse{
		EventTypeID:          et.ID,
		OwnerUserID:          et.OwnerUserID,
		TimeZone:             sched.TimeZone,
		DurationMinutes:      et.LengthMinutes,
		SlotStepMinutes:      et.LengthMinutes,
		MinimumNoticeMinutes: et.MinimumNoticeMinutes,
		BeforeBufferMinutes:  et.BeforeBufferMinutes,
		AfterBufferMinutes:   et.AfterBufferMinutes,
		SeatsPerTimeSlot:     seats,
		RequiresConfirmation: et.RequiresConfirmation,
		PriceCents:           et.PriceCents,
		Currency:             et.Currency,
		WindowsUTC:           make([]availabilityWindow, 0, len(windows)),
	}
	for _, win := range windows {
		resp.WindowsUTC = append(resp.WindowsUTC, availabilityWindow{
			StartUTC: win.Start.Format(time.RFC3339),
			EndUTC:   win.End.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
