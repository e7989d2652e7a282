package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

type Handler struct {
	repo *storage.Repository
}

func New(repo *storage.Repository) *Handler {
	return &Handler{repo: repo}
}

// Gateway verifies the JWT and forwards identity in these headers.
func userIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type eventTypeRequest struct {
	Title                *string          `json:"title"`
	Slug                 *string          `json:"slug"`
	Description          *string          `json:"description"`
	Position             *int             `json:"position"`
	LengthMinutes        *int             `json:"length_minutes"`
	Hidden               *bool            `json:"hidden"`
	RequiresConfirmation *bool            `json:"requires_confirmation"`
	DisableGuests        *bool            `json:"disable_guests"`
	MinimumNoticeMinutes *int             `json:"minimum_booking_notice_minutes"`
	BeforeBufferMinutes  *int             `json:"before_buffer_minutes"`
	AfterBufferMinutes   *int             `json:"after_buffer_minutes"`
	SeatsPerTimeSlot     *int             `json:"seats_per_time_slot"`
	SchedulingType       *string          `json:"scheduling_type"`
	PeriodType           *string          `json:"period_type"`
	Locations            json.RawMessage  `json:"locations"`
	Metadata             json.RawMessage  `json:"metadata"`
	PriceCents           *int             `json:"price_cents"`
	Currency             *string          `json:"currency"`
}

type eventTypeResponse struct {
	ID                   string          `json:"id"`
	OwnerUserID          string          `json:"owner_user_id"`
	TeamID               *string         `json:"team_id,omitempty"`
	OrganizationID       *string         `json:"organization_id,omitempty"`
	Title                string          `json:"title"`
	Slug                 string          `json:"slug"`
	Description          string          `json:"description"`
	Position             int             `json:"position"`
	LengthMinutes        int             `json:"length_minutes"`
	Hidden               bool            `json:"hidden"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	DisableGuests        bool            `json:"disable_guests"`
	MinimumNoticeMinutes int             `json:"minimum_booking_notice_minutes"`
	BeforeBufferMinutes  int             `json:"before_buffer_minutes"`
	AfterBufferMinutes   int             `json:"after_buffer_minutes"`
	SeatsPerTimeSlot     *int            `json:"seats_per_time_slot,omitempty"`
	SchedulingType       string          `json:"scheduling_type,omitempty"`
	PeriodType           string          `json:"period_type"`
	Locations            json.RawMessage `json:"locations"`
	Metadata             json.RawMessage `json:"metadata"`
	PriceCents           int             `json:"price_cents"`
	Currency             string          `json:"currency"`
	CreatedAt            string          `json:"created_at"`
}

func eventTypeView(et storage.EventType) eventTypeResponse {
	return eventTypeResponse{
		ID:                   et.ID,
		OwnerUserID:          et.OwnerUserID,
		TeamID:               et.TeamID,
		OrganizationID:       et.OrganizationID,
		Title:                et.Title,
		Slug:                 et.Slug,
		Description:          et.Description,
		Position:             et.Position,
		LengthMinutes:        et.LengthMinutes,
		Hidden:               et.Hidden,
		RequiresConfirmation: et.RequiresConfirmation,
		DisableGuests:        et.DisableGuests,
		MinimumNoticeMinutes: et.MinimumNoticeMinutes,
		BeforeBufferMinutes:  et.BeforeBufferMinutes,
		AfterBufferMinutes:   et.AfterBufferMinutes,
		SeatsPerTimeSlot:     et.SeatsPerTimeSlot,
		SchedulingType:       et.SchedulingType,
		PeriodType:           et.PeriodType,
		Locations:            et.Locations,
		Metadata:             et.Metadata,
		PriceCents:           et.PriceCents,
		Currency:             et.Currency,
		CreatedAt:            et.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) CreateEventType(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	var req eventTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if req.Slug == nil || !slugPattern.MatchString(*req.Slug) {
		http.Error(w, "slug must be lowercase letters, digits and hyphens", http.StatusBadRequest)
		return
	}
	if req.LengthMinutes == nil || *req.LengthMinutes <= 0 || *req.LengthMinutes > 24*60 {
		http.Error(w, "length_minutes must be between 1 and 1440", http.StatusBadRequest)
		return
	}
	if req.SeatsPerTimeSlot != nil && *req.SeatsPerTimeSlot < 1 {
		http.Error(w, "seats_per_time_slot must be at least 1", http.StatusBadRequest)
		return
	}

	et := storage.EventType{
		OwnerUserID:          userID,
		Title:                strings.TrimSpace(*req.Title),
		Slug:                 *req.Slug,
		LengthMinutes:        *req.LengthMinutes,
		MinimumNoticeMinutes: 120,
		PeriodType:           "UNLIMITED",
		Currency:             "usd",
		Locations:            req.Locations,
		Metadata:             req.Metadata,
		SeatsPerTimeSlot:     req.SeatsPerTimeSlot,
	}
	if req.Description != nil {
		et.Description = *req.Description
	}
	if req.Position != nil {
		et.Position = *req.Position
	}
	if req.Hidden != nil {
		et.Hidden = *req.Hidden
	}
	if req.RequiresConfirmation != nil {
		et.RequiresConfirmation = *req.RequiresConfirmation
	}
	if req.DisableGuests != nil {
		et.DisableGuests = *req.DisableGuests
	}
	if req.MinimumNoticeMinutes != nil && *req.MinimumNoticeMinutes >= 0 {
		et.MinimumNoticeMinutes = *req.MinimumNoticeMinutes
	}
	if req.BeforeBufferMinutes != nil && *req.BeforeBufferMinutes >= 0 {
		et.BeforeBufferMinutes = *req.BeforeBufferMinutes
	}
	if req.AfterBufferMinutes != nil && *req.AfterBufferMinutes >= 0 {
		et.AfterBufferMinutes = *req.AfterBufferMinutes
	}
	if req.SchedulingType != nil {
		et.SchedulingType = *req.SchedulingType
	}
	if req.PeriodType != nil {
		et.PeriodType = *req.PeriodType
	}
	if req.PriceCents != nil && *req.PriceCents >= 0 {
		et.PriceCents = *req.PriceCents
	}
	if req.Currency != nil {
		et.Currency = strings.ToLower(*req.Currency)
	}

	created, err := h.repo.CreateEventType(r.Context(), et)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			http.Error(w, "slug already in use", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create event type", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, eventTypeView(created))
}

func (h *Handler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	eventTypes, err := h.repo.ListEventTypes(r.Context(), userID, true, 100)
	if err != nil {
		http.Error(w, "failed to list event types", http.StatusInternalServerError)
		return
	}

	out := make([]eventTypeResponse, 0, len(eventTypes))
	for _, et := range eventTypes {
		out = append(out, eventTypeView(et))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetEventType(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	et, err := h.repo.GetEventType(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load event type", http.StatusInternalServerError)
		return
	}
	if et.OwnerUserID != userID {
		http.Error(w, "event type not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, eventTypeView(et))
}

func (h *Handler) UpdateEventType(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	var req eventTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Slug != nil && !slugPattern.MatchString(*req.Slug) {
		http.Error(w, "slug must be lowercase letters, digits and hyphens", http.StatusBadRequest)
		return
	}
	if req.LengthMinutes != nil && (*req.LengthMinutes <= 0 || *req.LengthMinutes > 24*60) {
		http.Error(w, "length_minutes must be between 1 and 1440", http.StatusBadRequest)
		return
	}

	et, err := h.repo.UpdateEventType(r.Context(), userID, r.PathValue("id"), storage.EventTypeUpdate{
		Title:                req.Title,
		Slug:                 req.Slug,
		Description:          req.Description,
		Position:             req.Position,
		LengthMinutes:        req.LengthMinutes,
		Hidden:               req.Hidden,
		RequiresConfirmation: req.RequiresConfirmation,
		DisableGuests:        req.DisableGuests,
		MinimumNoticeMinutes: req.MinimumNoticeMinutes,
		BeforeBufferMinutes:  req.BeforeBufferMinutes,
		AfterBufferMinutes:   req.AfterBufferMinutes,
		SeatsPerTimeSlot:     req.SeatsPerTimeSlot,
		SchedulingType:       req.SchedulingType,
		PeriodType:           req.PeriodType,
		Locations:            req.Locations,
		Metadata:             req.Metadata,
		PriceCents:           req.PriceCents,
		Currency:             req.Currency,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			http.Error(w, "slug already in use", http.StatusConflict)
			return
		}
		http.Error(w, "failed to update event type", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, eventTypeView(et))
}

func (h *Handler) DeleteEventType(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	if err := h.repo.DeleteEventType(r.Context(), userID, r.PathValue("id")); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete event type", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
