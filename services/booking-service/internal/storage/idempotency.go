package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

type IdempotencyRecord struct {
	EventTypeID     string
	IdempotencyKey  string
	BookingUID      string
	StatusCode      int
	ResponsePayload []byte
}

// LockIdempotencyKey claims the (event type, key) pair for this transaction.
// The bool result is true when a prior request already holds the key, in
// which case the stored response should be replayed.
func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, eventTypeID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, eventTypeID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (event_type_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (event_type_id, idempotency_key) DO NOTHING
	`, eventTypeID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, eventTypeID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, eventTypeID, key, bookingUID string, statusCode int, response []byte) error {
	var uid *string
	if bookingUID != "" {
		uid = &bookingUID
	}
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET booking_uid = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE event_type_id = $1 AND idempotency_key = $2
	`, eventTypeID, key, uid, statusCode, response)
	return err
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, eventTypeID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT event_type_id::text,
			idempotency_key,
			COALESCE(booking_uid::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE event_type_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, eventTypeID, key).Scan(
		&rec.EventTypeID,
		&rec.IdempotencyKey,
		&rec.BookingUID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
