package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/qclickin/platform/libs/db"
)

type Notification struct {
	BookingUID string
	Channel    string
	Recipient  string
	Payload    map[string]any
	Status     string
}

type OrganizerContact struct {
	UserID   string
	Email    string
	Name     string
	TimeZone string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (booking_uid, channel, recipient, payload, status)
		VALUES ($1, $2, $3, $4, $5)
	`, n.BookingUID, n.Channel, n.Recipient, payload, n.Status)
	return err
}

func (r *Repository) UpsertContact(ctx context.Context, c OrganizerContact) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organizer_contacts (user_id, email, name, time_zone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email,
			name = EXCLUDED.name,
			time_zone = EXCLUDED.time_zone,
			updated_at = now()
	`, c.UserID, c.Email, c.Name, c.TimeZone)
	return err
}

func (r *Repository) DeleteContact(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM organizer_contacts WHERE user_id = $1
	`, userID)
	return err
}

func (r *Repository) GetContact(ctx context.Context, userID string) (OrganizerContact, error) {
	var c OrganizerContact
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, email, name, time_zone
		FROM organizer_contacts
		WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.Email, &c.Name, &c.TimeZone)
	return c, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
