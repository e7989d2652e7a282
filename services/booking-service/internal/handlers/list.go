package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/qclickin/platform/services/booking-service/internal/model"
	"github.com/qclickin/platform/services/booking-service/internal/storage"
)

// List returns the caller's bookings, newest start first.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", model.StatusPending, model.StatusAccepted, model.StatusRejected, model.StatusCancelled:
	default:
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	bookings, err := h.repo.ListByOrganizer(r.Context(), userID, status, limit)
	if err != nil {
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	views := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, bookingView(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": views})
}

// Get returns one booking with its attendees. Organizer only.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, bookingView(booking))
}

// MarkNoShow flags or clears an attendee's no-show after the meeting.
func (h *BookingHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Email  string `json:"email"`
		NoShow bool   `json:"no_show"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
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

	if err := h.repo.SetAttendeeNoShow(r.Context(), booking.ID, req.Email, req.NoShow); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "attendee not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update attendee", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats aggregates the caller's bookings by status over a date range.
func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request) {
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

	stats, err := h.repo.StatsForOrganizer(r.Context(), userID, from, to)
	if err != nil {
		http.Error(w, "failed to aggregate bookings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":      from.Format("2006-01-02"),
		"to":        to.Format("2006-01-02"),
		"total":     stats.Total,
		"pending":   stats.Pending,
		"accepted":  stats.Accepted,
		"rejected":  stats.Rejected,
		"cancelled": stats.Cancelled,
		"no_shows":  stats.NoShows,
	})
}

// statsRange reads the from/to query parameters, defaulting to one month
// back and one month ahead. The returned string is a client-facing error.
func statsRange(r *http.Request) (time.Time, time.Time, string) {
	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 1, 0)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, "from must be YYYY-MM-DD"
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, "to must be YYYY-MM-DD"
		}
		to = parsed
	}
	if !to.After(from) {
		return from, to, "to must be after from"
	}
	return from, to, ""
}
