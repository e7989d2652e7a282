package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	otelx "github.com/qclickin/platform/libs/otel"
)

type Delivery struct {
	ID          int64
	WebhookID   string
	URL         string
	Secret      string
	EventID     string
	EventType   string
	Payload     json.RawMessage
	Status      string
	Attempts    int
	MaxAttempts int
	StatusCode  int
	LastError   string
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// EnqueueForEvent fans the event out to every active webhook of the user
// that subscribes to the event type. Replays are absorbed by the
// (webhook_id, event_id) uniqueness.
func (r *Repository) EnqueueForEvent(ctx context.Context, userID, eventID, eventType string, payload []byte) (int, error) {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO webhook_deliveries (webhook_id, event_id, event_type, payload, traceparent, tracestate)
		SELECT id, $2, $3, $4, $5, $6
		FROM webhooks
		WHERE user_id = $1 AND active AND $3 = ANY(events)
		ON CONFLICT (webhook_id, event_id) DO NOTHING
	`, userID, eventID, eventType, payload, traceparent, tracestate)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// EnqueueDirect queues one delivery for a single webhook regardless of its
// event subscriptions. Used for test pings.
func (r *Repository) EnqueueDirect(ctx context.Context, webhookID, eventID, eventType string, payload []byte) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO webhook_deliveries (webhook_id, event_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (webhook_id, event_id) DO NOTHING
	`, webhookID, eventID, eventType, payload, traceparent, tracestate)
	return err
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Delivery, error) {
	rows, err := tx.Query(ctx, `
		SELECT d.id, d.webhook_id, w.url, w.secret, d.event_id, d.event_type, d.payload,
			d.status, d.attempts, d.max_attempts, d.status_code, d.last_error,
			d.traceparent, d.tracestate, d.created_at, d.delivered_at
		FROM webhook_deliveries d
		JOIN webhooks w ON w.id = d.webhook_id
		WHERE d.status = 'pending' AND d.next_attempt_at <= now() AND w.active
		ORDER BY d.next_attempt_at
		LIMIT $1
		FOR UPDATE OF d SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.URL, &d.Secret, &d.EventID, &d.EventType, &d.Payload,
			&d.Status, &d.Attempts, &d.MaxAttempts, &d.StatusCode, &d.LastError,
			&d.Traceparent, &d.Tracestate, &d.CreatedAt, &d.DeliveredAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func (r *Repository) MarkDelivered(ctx context.Context, tx pgx.Tx, id int64, attempts, statusCode int) error {
	_, err := tx.Exec(ctx, `
		UPDATE webhook_deliveries
		SET status = 'delivered',
			attempts = $2,
			status_code = $3,
			last_error = '',
			delivered_at = now()
		WHERE id = $1
	`, id, attempts, statusCode)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts, maxAttempts, statusCode int, nextAttemptAt time.Time, reason string) error {
	status := "pending"
	if attempts >= maxAttempts {
		status = "failed"
	}
	_, err := tx.Exec(ctx, `
		UPDATE webhook_deliveries
		SET status = $2,
			attempts = $3,
			status_code = $4,
			next_attempt_at = $5,
			last_error = $6
		WHERE id = $1
	`, id, status, attempts, statusCode, nextAttemptAt, reason)
	return err
}

func (r *Repository) ListDeliveries(ctx context.Context, webhookID string, limit int) ([]Delivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.webhook_id, '', '', d.event_id, d.event_type, d.payload,
			d.status, d.attempts, d.max_attempts, d.status_code, d.last_error,
			d.traceparent, d.tracestate, d.created_at, d.delivered_at
		FROM webhook_deliveries d
		WHERE d.webhook_id = $1
		ORDER BY d.id DESC
		LIMIT $2
	`, webhookID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.URL, &d.Secret, &d.EventID, &d.EventType, &d.Payload,
			&d.Status, &d.Attempts, &d.MaxAttempts, &d.StatusCode, &d.LastError,
			&d.Traceparent, &d.Tracestate, &d.CreatedAt, &d.DeliveredAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
