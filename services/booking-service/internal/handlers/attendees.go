package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/qclickin/platform/services/booking-service/internal/storage"
)

type attendeeDetail struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	TimeZone    string `json:"time_zone"`
	Locale      string `json:"locale"`
	PhoneNumber string `json:"phone_number,omitempty"`
	NoShow      bool   `json:"no_show"`
}

// Attendees lists a booking's attendees with their ids. Organizer only.
func (h *BookingHandler) Attendees(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	booking, err := h.repo.GetByUID(r.Context(), r.PathValue("uid"))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}
	if booking.OrganizerUserID != userID {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}

	attendees, err := h.repo.ListAttendees(r.Context(), booking.ID)
	if err != nil {
		http.Error(w, "failed to list attendees", http.StatusInternalServerError)
		return
	}
	views := make([]attendeeDetail, 0, len(attendees))
	for _, a := range attendees {
		views = append(views, attendeeDetail{
			ID:          a.ID,
			Email:       a.Email,
			Name:        a.Name,
			TimeZone:    a.TimeZone,
			Locale:      a.Locale,
			PhoneNumber: a.PhoneNumber,
			NoShow:      a.NoShow,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendees": views})
}

type attendeeUpdateRequest struct {
	Email       *string `json:"email"`
	Name        *string `json:"name"`
	TimeZone    *string `json:"time_zone"`
	Locale      *string `json:"locale"`
	PhoneNumber *string `json:"phone_number"`
	NoShow      *bool   `json:"no_show"`
}

// toUpdate normalizes the request into a storage update. At least one field
// must be present, and provided email/name must not be blank.
func (req attendeeUpdateRequest) toUpdate() (storage.AttendeeUpdate, error) {
	var upd storage.AttendeeUpdate
	empty := true
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			return upd, errors.New("email must be a valid address")
		}
		upd.Email = &email
		empty = false
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return upd, errors.New("name must not be empty")
		}
		upd.Name = &name
		empty = false
	}
	if req.TimeZone != nil {
		tz := strings.TrimSpace(*req.TimeZone)
		if tz == "" {
			return upd, errors.New("time_zone must not be empty")
		}
		upd.TimeZone = &tz
		empty = false
	}
	if req.Locale != nil {
		locale := strings.TrimSpace(*req.Locale)
		if locale == "" {
			return upd, errors.New("locale must not be empty")
		}
		upd.Locale = &locale
		empty = false
	}
	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		upd.PhoneNumber = &phone
		empty = false
	}
	if req.NoShow != nil {
		upd.NoShow = req.NoShow
		empty = false
	}
	if empty {
		return upd, errors.New("no fields to update")
	}
	return upd, nil
}

// UpdateAttendee applies partial changes to one attendee. Organizer only.
func (h *BookingHandler) UpdateAttendee(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	attendeeID, err := strconv.ParseInt(r.PathValue("attendeeID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid attendee id", http.StatusBadRequest)
		return
	}

	var req attendeeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	booking, err := h.repo.GetByUID(r.Context(), r.PathValue("uid"))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}
	if booking.OrganizerUserID != userID {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}

	attendee, err := h.repo.UpdateAttendee(r.Context(), booking.ID, attendeeID, upd)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "attendee not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update attendee", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, attendeeDetail{
		ID:          attendee.ID,
		Email:       attendee.Email,
		Name:        attendee.Name,
		TimeZone:    attendee.TimeZone,
		Locale:      attendee.Locale,
		PhoneNumber: attendee.PhoneNumber,
		NoShow:      attendee.NoShow,
	})
}

// EventTypeStats breaks the caller's bookings down per event type.
func (h *BookingHandler) EventTypeStats(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	from, to, errMsg := statsRange(r)
	if errMsg != "" {
		http.Error(w, errMsg, http.StatusBadRequest)
		return
	}

	stats, err := h.repo.StatsByEventType(r.Context(), userID, from, to)
	if err != nil {
		http.Error(w, "failed to aggregate bookings", http.StatusInternalServerError)
		return
	}

	type eventTypeStatsView struct {
		EventTypeID string `json:"event_type_id"`
		Total       int    `json:"total"`
		Pending     int    `json:"pending"`
		Accepted    int    `json:"accepted"`
		Rejected    int    `json:"rejected"`
		Cancelled   int    `json:"cancelled"`
		NoShows     int    `json:"no_shows"`
	}
	views := make([]eventTypeStatsView, 0, len(stats))
	for _, s := range stats {
		views = append(views, eventTypeStatsView(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
		"event_types": views,
	})
}
