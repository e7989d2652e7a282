package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qclickin/platform/services/booking-service/internal/model"
	"github.com/qclickin/platform/services/booking-service/internal/scheduling"
	"github.com/qclickin/platform/services/booking-service/internal/storage"
)

// Confirm accepts a pending booking. Organizer only.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.StatusPending, model.StatusAccepted, "booking.confirmed.v1", "")
}

// Reject declines a pending booking. Organizer only.
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	h.transition(w, r, model.StatusPending, model.StatusRejected, "booking.rejected.v1", strings.TrimSpace(req.Reason))
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, fromStatus, toStatus, eventType, reason string) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	uid := r.PathValue("uid")

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	booking, err := h.repo.GetForUpdate(r.Context(), tx, uid)
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
	if booking.Status == toStatus {
		writeJSON(w, http.StatusOK, bookingView(booking))
		return
	}
	if booking.Status != fromStatus {
		http.Error(w, "booking is not pending", http.StatusConflict)
		return
	}

	if toStatus == model.StatusRejected {
		if _, err := h.repo.Cancel(r.Context(), tx, uid, toStatus, reason); err != nil {
			http.Error(w, "failed to update booking", http.StatusInternalServerError)
			return
		}
		booking.CancelReason = reason
	} else if err := h.repo.UpdateStatus(r.Context(), tx, uid, toStatus); err != nil {
		http.Error(w, "failed to update booking", http.StatusInternalServerError)
		return
	}
	booking.Status = toStatus
	booking.Attendees, err = h.repo.ListAttendees(r.Context(), booking.ID)
	if err != nil {
		http.Error(w, "failed to load attendees", http.StatusInternalServerError)
		return
	}

	if err := h.insertBookingEvent(r.Context(), tx, eventType, booking, 0, ""); err != nil {
		http.Error(w, "failed to record booking event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bookingView(booking))
}

// Cancel cancels a live booking. Re-cancelling is idempotent.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	uid := r.PathValue("uid")
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	booking, err := h.repo.GetForUpdate(r.Context(), tx, uid)
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
	if booking.Status == model.StatusCancelled {
		writeJSON(w, http.StatusOK, bookingView(booking))
		return
	}
	if !booking.Live() {
		http.Error(w, "booking cannot be cancelled", http.StatusConflict)
		return
	}

	reason := strings.TrimSpace(req.Reason)
	cancelledAt, err := h.repo.Cancel(r.Context(), tx, uid, model.StatusCancelled, reason)
	if err != nil {
		http.Error(w, "failed to cancel booking", http.StatusInternalServerError)
		return
	}
	booking.Status = model.StatusCancelled
	booking.CancelReason = reason
	booking.CancelledAt = &cancelledAt
	booking.Attendees, err = h.repo.ListAttendees(r.Context(), booking.ID)
	if err != nil {
		http.Error(w, "failed to load attendees", http.StatusInternalServerError)
		return
	}

	if err := h.insertBookingEvent(r.Context(), tx, "booking.cancelled.v1", booking, 0, ""); err != nil {
		http.Error(w, "failed to record booking event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bookingView(booking))
}

// Reschedule cancels the booking and creates a replacement at the new start.
// The replacement points back at the original through rescheduled_from_uid.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	uid := r.PathValue("uid")
	var req struct {
		Start  string `json:"start"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		http.Error(w, "start must be RFC3339", http.StatusBadRequest)
		return
	}
	start = start.UTC()

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	old, err := h.repo.GetForUpdate(r.Context(), tx, uid)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}
	if old.OrganizerUserID != userID {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}
	if !old.Live() {
		http.Error(w, "booking cannot be rescheduled", http.StatusConflict)
		return
	}

	cfg, err := h.resolveConfigForStart(r.Context(), old.EventTypeID, start)
	if err != nil {
		if errors.Is(err, scheduling.ErrEventTypeNotFound) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("availability lookup failed", "err", err, "event_type_id", old.EventTypeID)
		http.Error(w, "availability is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	end := start.Add(time.Duration(cfg.DurationMinutes) * time.Minute)
	if outside := h.checkBookable(start, end, cfg, time.Now().UTC()); outside != "" {
		http.Error(w, outside, http.StatusUnprocessableEntity)
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "rescheduled"
	}
	if _, err := h.repo.Cancel(r.Context(), tx, uid, model.StatusCancelled, reason); err != nil {
		http.Error(w, "failed to cancel original booking", http.StatusInternalServerError)
		return
	}

	// The original is cancelled inside this tx, so it no longer counts
	// against the new slot. A conflict rolls everything back.
	seats := old.SeatsPerTimeSlot
	if seats < 1 {
		seats = 1
	}
	bufStart, bufEnd := bufferedFootprint(start, end, cfg)
	occ, err := h.repo.SlotOccupancy(r.Context(), tx, old.OrganizerUserID, old.EventTypeID, start, end, bufStart, bufEnd)
	if err != nil {
		http.Error(w, "failed to check capacity", http.StatusInternalServerError)
		return
	}
	if msg := slotConflictMessage(occ, seats); msg != "" {
		http.Error(w, msg, http.StatusConflict)
		return
	}

	attendees, err := h.repo.ListAttendees(r.Context(), old.ID)
	if err != nil {
		http.Error(w, "failed to load attendees", http.StatusInternalServerError)
		return
	}
	for i := range attendees {
		attendees[i].ID = 0
		attendees[i].BookingID = ""
		attendees[i].NoShow = false
	}

	status := model.StatusAccepted
	if cfg.RequiresConfirmation {
		status = model.StatusPending
	}
	replacement := model.Booking{
		UID:                uuid.NewString(),
		EventTypeID:        old.EventTypeID,
		OrganizerUserID:    old.OrganizerUserID,
		Title:              old.Title,
		Description:        old.Description,
		StartTime:          start,
		EndTime:            end,
		Location:           old.Location,
		Status:             status,
		RescheduledFromUID: old.UID,
		SeatsPerTimeSlot:   old.SeatsPerTimeSlot,
		Metadata:           old.Metadata,
		Responses:          old.Responses,
		Attendees:          attendees,
	}
	if err := h.repo.Create(r.Context(), tx, &replacement); err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "the requested slot is no longer available", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create replacement booking", http.StatusInternalServerError)
		return
	}

	if err := h.insertBookingEvent(r.Context(), tx, "booking.rescheduled.v1", replacement, cfg.PriceCents, cfg.Currency); err != nil {
		http.Error(w, "failed to record booking event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "the requested slot is no longer available", http.StatusConflict)
			return
		}
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, bookingView(replacement))
}
