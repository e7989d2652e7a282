package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qclickin/platform/libs/db"
)

var ErrDuplicateProviderEvent = errors.New("duplicate provider event")

type BillableBooking struct {
	BookingUID      string
	EventTypeID     string
	OrganizerUserID string
	AmountCents     int64
	Currency        string
	CustomerEmail   string
	CreatedAt       time.Time
}

type Payment struct {
	ID                    string
	BookingUID            string
	OrganizerUserID       string
	StripePaymentIntentID string
	AmountCents           int64
	Currency              string
	Status                string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type ProviderEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) UpsertBillableBooking(ctx context.Context, b BillableBooking) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO billable_bookings (booking_uid, event_type_id, organizer_user_id, amount_cents, currency, customer_email)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (booking_uid) DO UPDATE
		SET organizer_user_id = EXCLUDED.organizer_user_id,
			amount_cents = EXCLUDED.amount_cents,
			currency = EXCLUDED.currency,
			customer_email = EXCLUDED.customer_email
	`, b.BookingUID, b.EventTypeID, b.OrganizerUserID, b.AmountCents, b.Currency, b.CustomerEmail)
	return err
}

func (r *Repository) GetBillableBooking(ctx context.Context, bookingUID string) (BillableBooking, error) {
	var b BillableBooking
	err := r.pool.QueryRow(ctx, `
		SELECT booking_uid, event_type_id, organizer_user_id, amount_cents, currency, customer_email, created_at
		FROM billable_bookings
		WHERE booking_uid = $1
	`, bookingUID).Scan(&b.BookingUID, &b.EventTypeID, &b.OrganizerUserID, &b.AmountCents, &b.Currency, &b.CustomerEmail, &b.CreatedAt)
	return b, err
}

func (r *Repository) DeleteBillableBooking(ctx context.Context, bookingUID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM billable_bookings WHERE booking_uid = $1
	`, bookingUID)
	return err
}

// InsertProviderEvent records a provider event id for idempotency. Replays
// return ErrDuplicateProviderEvent.
func (r *Repository) InsertProviderEvent(ctx context.Context, tx pgx.Tx, evt ProviderEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, evt.Provider, evt.ProviderEventID, evt.EventType, evt.Payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateProviderEvent
		}
		return err
	}
	return nil
}

func (r *Repository) UpsertPayment(ctx context.Context, p *Payment) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payments (booking_uid, organizer_user_id, stripe_payment_intent_id, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stripe_payment_intent_id) DO UPDATE
		SET status = EXCLUDED.status,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`, p.BookingUID, p.OrganizerUserID, p.StripePaymentIntentID, p.AmountCents, p.Currency, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// UpdatePaymentStatus flips a payment's status and returns the booking it
// belongs to.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, tx pgx.Tx, stripePaymentIntentID, status string) (string, error) {
	var bookingUID string
	err := tx.QueryRow(ctx, `
		UPDATE payments
		SET status = $2,
			updated_at = now()
		WHERE stripe_payment_intent_id = $1
		RETURNING booking_uid
	`, stripePaymentIntentID, status).Scan(&bookingUID)
	return bookingUID, err
}

// ListPaymentsForBooking returns the booking's payments, restricted to the
// organizer that owns it.
func (r *Repository) ListPaymentsForBooking(ctx context.Context, bookingUID, organizerUserID string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_uid, organizer_user_id, stripe_payment_intent_id, amount_cents, currency, status, created_at, updated_at
		FROM payments
		WHERE booking_uid = $1
			AND organizer_user_id = $2
		ORDER BY created_at DESC
	`, bookingUID, organizerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BookingUID, &p.OrganizerUserID, &p.StripePaymentIntentID, &p.AmountCents, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
