package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

type windowPayload struct {
	Weekday     int `json:"weekday"`
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

type schedulePayload struct {
	TimeZone string          `json:"time_zone"`
	Windows  []windowPayload `json:"windows"`
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	s, err := h.repo.GetOrCreateSchedule(r.Context(), userID, r.Header.Get("X-User-Time-Zone"))
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}

	out := schedulePayload{TimeZone: s.TimeZone, Windows: make([]windowPayload, 0, len(s.Windows))}
	for _, win := range s.Windows {
		out.Windows = append(out.Windows, windowPayload(win))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	var req schedulePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.TimeZone == "" {
		req.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(req.TimeZone); err != nil {
		http.Error(w, "invalid time_zone", http.StatusBadRequest)
		return
	}

	windows := make([]storage.ScheduleWindow, 0, len(req.Windows))
	for _, win := range req.Windows {
		if win.Weekday < 0 || win.Weekday > 6 {
			http.Error(w, "weekday must be 0 (Sunday) through 6", http.StatusBadRequest)
			return
		}
		if win.StartMinute < 0 || win.EndMinute > 1440 || win.EndMinute <= win.StartMinute {
			http.Error(w, "window minutes must satisfy 0 <= start < end <= 1440", http.StatusBadRequest)
			return
		}
		windows = append(windows, storage.ScheduleWindow(win))
	}

	if err := h.repo.ReplaceSchedule(r.Context(), userID, req.TimeZone, windows); err != nil {
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type overridePayload struct {
	Day         string `json:"day"`
	Unavailable bool   `json:"unavailable"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = time.Now().UTC().Format("2006-01-02")
	}
	if to == "" {
		to = time.Now().UTC().AddDate(0, 3, 0).Format("2006-01-02")
	}
	for _, day := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			http.Error(w, "from and to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	overrides, err := h.repo.ListOverrides(r.Context(), userID, from, to)
	if err != nil {
		http.Error(w, "failed to list overrides", http.StatusInternalServerError)
		return
	}

	out := make([]overridePayload, 0, len(overrides))
	for _, o := range overrides {
		out = append(out, overridePayload(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) SetOverrides(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	var req struct {
		Day       string            `json:"day"`
		Overrides []overridePayload `json:"overrides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", req.Day); err != nil {
		http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	overrides := make([]storage.DateOverride, 0, len(req.Overrides))
	for _, o := range req.Overrides {
		if !o.Unavailable && (o.StartMinute < 0 || o.EndMinute > 1440 || o.EndMinute <= o.StartMinute) {
			http.Error(w, "override minutes must satisfy 0 <= start < end <= 1440", http.StatusBadRequest)
			return
		}
		o.Day = req.Day
		overrides = append(overrides, storage.DateOverride(o))
	}

	if err := h.repo.ReplaceOverrides(r.Context(), userID, req.Day, overrides); err != nil {
		http.Error(w, "failed to save overrides", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteOverridesForDay(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	day := r.PathValue("day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteOverrides(r.Context(), userID, day); err != nil {
		http.Error(w, "failed to delete overrides", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
