package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/qclickin/platform/libs/outbox"
	"github.com/qclickin/platform/services/billing-service/internal/storage"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

type Handler struct {
	repo                   *storage.Repository
	outboxRepo             *outbox.Repository
	logger                 *slog.Logger
	stripeSecretKey        string
	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
}

type Config struct {
	StripeSecretKey               string
	StripeWebhookSecret           string
	StripeWebhookToleranceSeconds int
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg Config) *Handler {
	tolSeconds := cfg.StripeWebhookToleranceSeconds
	if tolSeconds <= 0 {
		tolSeconds = 300
	}
	return &Handler{
		repo:                   repo,
		outboxRepo:             outboxRepo,
		logger:                 logger,
		stripeSecretKey:        strings.TrimSpace(cfg.StripeSecretKey),
		stripeWebhookSecret:    strings.TrimSpace(cfg.StripeWebhookSecret),
		stripeWebhookTolerance: time.Duration(tolSeconds) * time.Second,
	}
}

type paymentIntentRequest struct {
	BookingUID string `json:"booking_uid"`
}

// CreatePaymentIntent opens a Stripe payment for a billable booking and
// returns the client secret the booking page needs to collect payment.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if h.stripeSecretKey == "" {
		http.Error(w, "stripe is not configured (STRIPE_SECRET_KEY missing)", http.StatusNotImplemented)
		return
	}

	var req paymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	bookingUID := strings.TrimSpace(req.BookingUID)
	if bookingUID == "" {
		http.Error(w, "booking_uid is required", http.StatusBadRequest)
		return
	}

	billable, err := h.repo.GetBillableBooking(r.Context(), bookingUID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "no payment is due for this booking", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		// Deterministic fallback so retries reuse the same intent.
		idemKey = "pi:" + bookingUID
	}

	stripe.Key = h.stripeSecretKey
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(billable.AmountCents),
		Currency: stripe.String(strings.ToLower(billable.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.IdempotencyKey = stripe.String(idemKey)
	params.AddMetadata("booking_uid", bookingUID)
	if billable.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(billable.CustomerEmail)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		h.logger.Error("stripe payment intent create failed", "err", err, "booking_uid", bookingUID)
		http.Error(w, "failed to create payment intent", http.StatusBadGateway)
		return
	}

	payment := storage.Payment{
		BookingUID:            bookingUID,
		OrganizerUserID:       billable.OrganizerUserID,
		StripePaymentIntentID: pi.ID,
		AmountCents:           billable.AmountCents,
		Currency:              billable.Currency,
		Status:                string(pi.Status),
	}
	if err := h.repo.UpsertPayment(r.Context(), &payment); err != nil {
		h.logger.Error("failed to persist payment", "err", err, "payment_intent_id", pi.ID)
		http.Error(w, "failed to persist payment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"payment_intent_id": pi.ID,
		"client_secret":     pi.ClientSecret,
		"amount_cents":      billable.AmountCents,
		"currency":          billable.Currency,
		"status":            string(pi.Status),
	})
}

type paymentResponse struct {
	ID                    string `json:"id"`
	BookingUID            string `json:"booking_uid"`
	StripePaymentIntentID string `json:"stripe_payment_intent_id"`
	AmountCents           int64  `json:"amount_cents"`
	Currency              string `json:"currency"`
	Status                string `json:"status"`
	CreatedAt             string `json:"created_at"`
}

// ListPayments returns the payment attempts recorded for one of the
// caller's bookings. The gateway fills X-User-Id after verifying the JWT.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	bookingUID := strings.TrimSpace(r.URL.Query().Get("booking_uid"))
	if bookingUID == "" {
		http.Error(w, "booking_uid is required", http.StatusBadRequest)
		return
	}
	payments, err := h.repo.ListPaymentsForBooking(r.Context(), bookingUID, userID)
	if err != nil {
		http.Error(w, "failed to list payments", http.StatusInternalServerError)
		return
	}
	views := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		views = append(views, paymentResponse{
			ID:                    p.ID,
			BookingUID:            p.BookingUID,
			StripePaymentIntentID: p.StripePaymentIntentID,
			AmountCents:           p.AmountCents,
			Currency:              p.Currency,
			Status:                p.Status,
			CreatedAt:             p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": views})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
