package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/qclickin/platform/libs/outbox"
	"github.com/qclickin/platform/services/billing-service/internal/storage"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeWebhook handles Stripe webhooks (no JWT auth; signature verification
// is the auth). Gateway exposes this path publicly.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.stripeWebhookSecret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	occurredAt := time.Unix(evt.Created, 0).UTC()
	evtType := string(evt.Type)
	h.logger.Info("billing provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
		"occurred_at", occurredAt.Format(time.RFC3339),
	)

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	// Idempotency: ignore replayed Stripe events.
	if err := h.repo.InsertProviderEvent(r.Context(), tx, storage.ProviderEvent{
		Provider:        "stripe",
		ProviderEventID: evt.ID,
		EventType:       evtType,
		Payload:         body,
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicateProviderEvent) {
			h.logger.Info("billing provider event duplicate ignored", "provider_event_id", evt.ID, "event_type", evtType)
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			_ = tx.Commit(r.Context())
			return
		}
		http.Error(w, "failed to record provider event", http.StatusInternalServerError)
		return
	}

	switch evtType {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			h.logger.Error("stripe: invalid payment intent payload", "err", err)
			break
		}
		if err := h.applyPaymentSucceeded(r.Context(), tx, pi, occurredAt); err != nil {
			http.Error(w, "failed to apply payment", http.StatusInternalServerError)
			return
		}

	case "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			h.logger.Error("stripe: invalid payment intent payload", "err", err)
			break
		}
		if _, err := h.repo.UpdatePaymentStatus(r.Context(), tx, pi.ID, string(pi.Status)); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "failed to update payment", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) applyPaymentSucceeded(ctx context.Context, tx pgx.Tx, pi stripe.PaymentIntent, occurredAt time.Time) error {
	bookingUID := strings.TrimSpace(pi.Metadata["booking_uid"])
	if bookingUID == "" {
		h.logger.Warn("stripe: payment intent without booking_uid metadata", "payment_intent_id", pi.ID)
		return nil
	}

	if _, err := h.repo.UpdatePaymentStatus(ctx, tx, pi.ID, "succeeded"); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		// Intent was created outside this service; record it anyway so the
		// booking still flips to paid.
		h.logger.Warn("stripe: payment intent not on record", "payment_intent_id", pi.ID, "booking_uid", bookingUID)
	}

	payload, err := json.Marshal(map[string]any{
		"booking_uid":              bookingUID,
		"stripe_payment_intent_id": pi.ID,
		"amount_cents":             pi.Amount,
		"currency":                 strings.ToUpper(string(pi.Currency)),
		"paid_at":                  occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "payment",
		AggregateID:   bookingUID,
		EventType:     "billing.booking.paid.v1",
		Payload:       payload,
	})
}
