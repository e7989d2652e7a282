package handlers

import (
	"net/http"
	"strings"

	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

type publicProfileResponse struct {
	UserID     string              `json:"user_id"`
	Username   string              `json:"username"`
	Name       string              `json:"name"`
	Bio        string              `json:"bio"`
	Avatar     string              `json:"avatar"`
	Theme      string              `json:"theme"`
	BrandColor string              `json:"brand_color"`
	TimeZone   string              `json:"time_zone"`
	EventTypes []eventTypeResponse `json:"event_types"`
}

// PublicProfile is the unauthenticated booking page payload: the organizer's
// profile plus their visible event types.
func (h *Handler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(r.PathValue("username"))
	profile, err := h.repo.GetProfileByUsername(r.Context(), username)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	eventTypes, err := h.repo.ListEventTypes(r.Context(), profile.UserID, false, 100)
	if err != nil {
		http.Error(w, "failed to list event types", http.StatusInternalServerError)
		return
	}

	resp := publicProfileResponse{
		UserID:     profile.UserID,
		Username:   profile.Username,
		Name:       profile.Name,
		Bio:        profile.Bio,
		Avatar:     profile.Avatar,
		Theme:      profile.Theme,
		BrandColor: profile.BrandColor,
		TimeZone:   profile.TimeZone,
		EventTypes: make([]eventTypeResponse, 0, len(eventTypes)),
	}
	for _, et := range eventTypes {
		resp.EventTypes = append(resp.EventTypes, eventTypeView(et))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) PublicEventType(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(r.PathValue("username"))
	profile, err := h.repo.GetProfileByUsername(r.Context(), username)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	et, err := h.repo.GetEventTypeBySlug(r.Context(), profile.UserID, r.PathValue("slug"))
	if err != nil || et.Hidden {
		if err != nil && !storage.IsNotFound(err) {
			http.Error(w, "failed to load event type", http.StatusInternalServerError)
			return
		}
		http.Error(w, "event type not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, eventTypeView(et))
}
