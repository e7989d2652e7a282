package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/qclickin/platform/libs/outbox"
	"github.com/qclickin/platform/services/booking-service/internal/availability"
	"github.com/qclickin/platform/services/booking-service/internal/model"
	"github.com/qclickin/platform/services/booking-service/internal/scheduling"
	"github.com/qclickin/platform/services/booking-service/internal/storage"
)

type BookingHandler struct {
	repo     *storage.BookingRepository
	outbox   *outbox.Repository
	logger   *slog.Logger
	provider scheduling.Provider
	cache    SlotCache
}

func NewBookingHandler(repo *storage.BookingRepository, outboxRepo *outbox.Repository, logger *slog.Logger, provider scheduling.Provider, cache SlotCache) *BookingHandler {
	return &BookingHandler{repo: repo, outbox: outboxRepo, logger: logger, provider: provider, cache: cache}
}

type attendeeRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	TimeZone    string `json:"time_zone"`
	Locale      string `json:"locale"`
	PhoneNumber string `json:"phone_number"`
}

type createBookingRequest struct {
	EventTypeID string          `json:"event_type_id"`
	Start       string          `json:"start"`
	Attendee    attendeeRequest `json:"attendee"`
	Guests      []string        `json:"guests"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Metadata    json.RawMessage `json:"metadata"`
	Responses   json.RawMessage `json:"responses"`
}

// Create books a slot. Public endpoint: anyone holding the event type id can
// book, the exclusion constraint and in-transaction checks keep it honest.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.EventTypeID = strings.TrimSpace(req.EventTypeID)
	req.Attendee.Email = strings.ToLower(strings.TrimSpace(req.Attendee.Email))
	req.Attendee.Name = strings.TrimSpace(req.Attendee.Name)
	if req.EventTypeID == "" || req.Start == "" {
		http.Error(w, "event_type_id and start are required", http.StatusBadRequest)
		return
	}
	if req.Attendee.Email == "" || req.Attendee.Name == "" {
		http.Error(w, "attendee name and email are required", http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(req.Attendee.Email); err != nil {
		http.Error(w, "attendee email is invalid", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		http.Error(w, "start must be RFC3339", http.StatusBadRequest)
		return
	}
	start = start.UTC()

	cfg, err := h.resolveConfigForStart(r.Context(), req.EventTypeID, start)
	if err != nil {
		if errors.Is(err, scheduling.ErrEventTypeNotFound) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("availability lookup failed", "err", err, "event_type_id", req.EventTypeID)
		http.Error(w, "availability is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	end := start.Add(time.Duration(cfg.DurationMinutes) * time.Minute)

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" {
		rec, replay, err := h.repo.LockIdempotencyKey(r.Context(), tx, req.EventTypeID, idemKey)
		if err != nil {
			http.Error(w, "failed to claim idempotency key", http.StatusInternalServerError)
			return
		}
		if replay {
			if rec.StatusCode == 0 {
				// A concurrent request holds the key and has not finished.
				http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	if outside := h.checkBookable(start, end, cfg, time.Now().UTC()); outside != "" {
		h.finalizeIdempotencyError(r.Context(), tx, req.EventTypeID, idemKey, http.StatusUnprocessableEntity, outside)
		http.Error(w, outside, http.StatusUnprocessableEntity)
		return
	}

	seats := cfg.SeatsPerTimeSlot
	if seats < 1 {
		seats = 1
	}
	bufStart, bufEnd := bufferedFootprint(start, end, cfg)
	occ, err := h.repo.SlotOccupancy(r.Context(), tx, cfg.OwnerUserID, req.EventTypeID, start, end, bufStart, bufEnd)
	if err != nil {
		http.Error(w, "failed to check capacity", http.StatusInternalServerError)
		return
	}
	if msg := slotConflictMessage(occ, seats); msg != "" {
		h.finalizeIdempotencyError(r.Context(), tx, req.EventTypeID, idemKey, http.StatusConflict, msg)
		http.Error(w, msg, http.StatusConflict)
		return
	}

	status := model.StatusAccepted
	if cfg.RequiresConfirmation {
		status = model.StatusPending
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Attendee.Name
	}
	booking := model.Booking{
		UID:              uuid.NewString(),
		EventTypeID:      req.EventTypeID,
		OrganizerUserID:  cfg.OwnerUserID,
		Title:            title,
		Description:      strings.TrimSpace(req.Description),
		StartTime:        start,
		EndTime:          end,
		Location:         strings.TrimSpace(req.Location),
		Status:           status,
		SeatsPerTimeSlot: seats,
		Metadata:         req.Metadata,
		Responses:        req.Responses,
		Attendees:        buildAttendees(req, cfg.Timezone),
	}

	if err := h.repo.Create(r.Context(), tx, &booking); err != nil {
		if storage.IsConflict(err) {
			msg := "the requested slot is no longer available"
			h.finalizeIdempotencyError(r.Context(), tx, req.EventTypeID, idemKey, http.StatusConflict, msg)
			http.Error(w, msg, http.StatusConflict)
			return
		}
		h.logger.Error("booking insert failed", "err", err)
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
		return
	}

	if err := h.insertBookingEvent(r.Context(), tx, "booking.created.v1", booking, cfg.PriceCents, cfg.Currency); err != nil {
		http.Error(w, "failed to record booking event", http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(bookingView(booking))
	if err != nil {
		http.Error(w, "failed to encode booking", http.StatusInternalServerError)
		return
	}
	if idemKey != "" {
		if err := h.repo.FinalizeIdempotency(r.Context(), tx, req.EventTypeID, idemKey, booking.UID, http.StatusCreated, body); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Commit(r.Context()); err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "the requested slot is no longer available", http.StatusConflict)
			return
		}
		http.Error(w, "failed to commit booking", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

// resolveConfigForStart fetches the availability config for the calendar day
// the start falls on in the organizer's timezone. The first fetch uses the
// UTC date; if the organizer's local date differs, it refetches.
func (h *BookingHandler) resolveConfigForStart(ctx context.Context, eventTypeID string, start time.Time) (scheduling.AvailabilityConfig, error) {
	if h.provider == nil {
		return scheduling.AvailabilityConfig{}, errors.New("scheduling provider is not configured")
	}
	utcDate := start.UTC().Format("2006-01-02")
	cfg, err := h.provider.GetAvailabilityConfig(ctx, eventTypeID, utcDate)
	if err != nil {
		return scheduling.AvailabilityConfig{}, err
	}
	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		if localDate := start.In(loc).Format("2006-01-02"); localDate != utcDate {
			return h.provider.GetAvailabilityConfig(ctx, eventTypeID, localDate)
		}
	}
	return cfg, nil
}

// checkBookable returns an empty string when [start, end) is bookable, or a
// client-facing reason when it is not.
func (h *BookingHandler) checkBookable(start, end time.Time, cfg scheduling.AvailabilityConfig, now time.Time) string {
	if cfg.DurationMinutes <= 0 {
		return "event type has no duration configured"
	}
	notice := time.Duration(cfg.MinimumNoticeMinutes) * time.Minute
	if start.Before(now.Add(notice)) {
		return "start is inside the minimum booking notice"
	}
	windows := windowsFromConfig(cfg)
	if !availability.Fits(start, end, windows) {
		return "requested time is outside the organizer's availability"
	}
	return ""
}

// bufferedFootprint widens [start, end) by the event type's buffers. Other
// bookings overlapping the footprint make the slot unavailable.
func bufferedFootprint(start, end time.Time, cfg scheduling.AvailabilityConfig) (time.Time, time.Time) {
	before := time.Duration(cfg.BeforeBufferMinutes) * time.Minute
	after := time.Duration(cfg.AfterBufferMinutes) * time.Minute
	return start.Add(-before), end.Add(after)
}

// slotConflictMessage maps in-transaction occupancy counts to a 409 reason.
// Bookings of other event types or other times block outright; same-slot
// bookings of the same event type consume seats.
func slotConflictMessage(occ storage.SlotOccupancy, seats int) string {
	if occ.Conflicts > 0 {
		return "the requested slot is no longer available"
	}
	if occ.SameSlot >= seats {
		if seats > 1 {
			return "all seats for this slot are taken"
		}
		return "the requested slot is no longer available"
	}
	return ""
}

func windowsFromConfig(cfg scheduling.AvailabilityConfig) []availability.Interval {
	windows := make([]availability.Interval, 0, len(cfg.WindowsUTC))
	for _, w := range cfg.WindowsUTC {
		windows = append(windows, availability.Interval{Start: w.StartUTC, End: w.EndUTC})
	}
	return windows
}

func buildAttendees(req createBookingRequest, defaultTZ string) []model.Attendee {
	tz := strings.TrimSpace(req.Attendee.TimeZone)
	if tz == "" {
		tz = defaultTZ
	}
	if tz == "" {
		tz = "UTC"
	}
	locale := strings.TrimSpace(req.Attendee.Locale)
	if locale == "" {
		locale = "en"
	}
	attendees := []model.Attendee{{
		Email:       req.Attendee.Email,
		Name:        req.Attendee.Name,
		TimeZone:    tz,
		Locale:      locale,
		PhoneNumber: strings.TrimSpace(req.Attendee.PhoneNumber),
	}}
	for _, guest := range uniqueEmails(req.Guests, req.Attendee.Email) {
		attendees = append(attendees, model.Attendee{
			Email:    guest,
			Name:     guest,
			TimeZone: tz,
			Locale:   locale,
		})
	}
	return attendees
}

func uniqueEmails(raw []string, exclude string) []string {
	seen := map[string]bool{exclude: true}
	var out []string
	for _, g := range raw {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		if _, err := mail.ParseAddress(g); err != nil {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}

// finalizeIdempotencyError stores a failed outcome under the key in its own
// transaction so retries replay the same error after this tx rolls back.
func (h *BookingHandler) finalizeIdempotencyError(ctx context.Context, tx pgx.Tx, eventTypeID, key string, statusCode int, message string) {
	if key == "" {
		return
	}
	_ = tx.Rollback(ctx)
	errTx, err := h.repo.Begin(ctx)
	if err != nil {
		return
	}
	defer func() { _ = errTx.Rollback(ctx) }()
	if _, _, err := h.repo.LockIdempotencyKey(ctx, errTx, eventTypeID, key); err != nil {
		return
	}
	body, _ := json.Marshal(map[string]string{"error": message})
	if err := h.repo.FinalizeIdempotency(ctx, errTx, eventTypeID, key, "", statusCode, body); err != nil {
		return
	}
	_ = errTx.Commit(ctx)
}

type bookingEventPayload struct {
	UID                string         `json:"uid"`
	EventTypeID        string         `json:"event_type_id"`
	OrganizerUserID    string         `json:"organizer_user_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	Location           string         `json:"location,omitempty"`
	Status             string         `json:"status"`
	PriceCents         int            `json:"price_cents,omitempty"`
	Currency           string         `json:"currency,omitempty"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	RescheduledFromUID string         `json:"rescheduled_from_uid,omitempty"`
	Attendees          []attendeeInfo `json:"attendees"`
}

type attendeeInfo struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	TimeZone string `json:"time_zone"`
	Locale   string `json:"locale"`
}

func (h *BookingHandler) insertBookingEvent(ctx context.Context, tx pgx.Tx, eventType string, b model.Booking, priceCents int, currency string) error {
	payload := bookingEventPayload{
		UID:                b.UID,
		EventTypeID:        b.EventTypeID,
		OrganizerUserID:    b.OrganizerUserID,
		Title:              b.Title,
		Description:        b.Description,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		Location:           b.Location,
		Status:             b.Status,
		PriceCents:         priceCents,
		Currency:           currency,
		CancellationReason: b.CancelReason,
		RescheduledFromUID: b.RescheduledFromUID,
	}
	for _, a := range b.Attendees {
		payload.Attendees = append(payload.Attendees, attendeeInfo{
			Email:    a.Email,
			Name:     a.Name,
			TimeZone: a.TimeZone,
			Locale:   a.Locale,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	return h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.UID,
		EventType:     eventType,
		Payload:       body,
	})
}

type bookingResponse struct {
	UID                string          `json:"uid"`
	EventTypeID        string          `json:"event_type_id"`
	OrganizerUserID    string          `json:"organizer_user_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Start              string          `json:"start"`
	End                string          `json:"end"`
	Location           string          `json:"location"`
	Status             string          `json:"status"`
	Paid               bool            `json:"paid"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	RescheduledFromUID string          `json:"rescheduled_from_uid,omitempty"`
	SeatsPerTimeSlot   int             `json:"seats_per_time_slot"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	Responses          json.RawMessage `json:"responses,omitempty"`
	CreatedAt          string          `json:"created_at"`
	CancelledAt        string          `json:"cancelled_at,omitempty"`
	Attendees          []attendeeView  `json:"attendees,omitempty"`
}

type attendeeView struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	TimeZone    string `json:"time_zone"`
	Locale      string `json:"locale"`
	PhoneNumber string `json:"phone_number,omitempty"`
	NoShow      bool   `json:"no_show"`
}

func bookingView(b model.Booking) bookingResponse {
	resp := bookingResponse{
		UID:                b.UID,
		EventTypeID:        b.EventTypeID,
		OrganizerUserID:    b.OrganizerUserID,
		Title:              b.Title,
		Description:        b.Description,
		Start:              b.StartTime.UTC().Format(time.RFC3339),
		End:                b.EndTime.UTC().Format(time.RFC3339),
		Location:           b.Location,
		Status:             b.Status,
		Paid:               b.Paid,
		CancellationReason: b.CancelReason,
		RescheduledFromUID: b.RescheduledFromUID,
		SeatsPerTimeSlot:   b.SeatsPerTimeSlot,
		Metadata:           b.Metadata,
		Responses:          b.Responses,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	for _, a := range b.Attendees {
		resp.Attendees = append(resp.Attendees, attendeeView{
			Email:       a.Email,
			Name:        a.Name,
			TimeZone:    a.TimeZone,
			Locale:      a.Locale,
			PhoneNumber: a.PhoneNumber,
			NoShow:      a.NoShow,
		})
	}
	return resp
}

func userIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
