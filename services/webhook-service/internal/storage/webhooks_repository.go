package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/qclickin/platform/libs/db"
)

type Webhook struct {
	ID        string
	UserID    string
	URL       string
	Secret    string
	Events    []string
	Active    bool
	CreatedAt time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, wh *Webhook) error {
	wh.ID = uuid.NewString()
	return r.pool.QueryRow(ctx, `
		INSERT INTO webhooks (id, user_id, url, secret, events, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, wh.ID, wh.UserID, wh.URL, wh.Secret, wh.Events, wh.Active).Scan(&wh.CreatedAt)
}

func (r *Repository) Get(ctx context.Context, id, userID string) (Webhook, error) {
	var wh Webhook
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, url, secret, events, active, created_at
		FROM webhooks
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&wh.ID, &wh.UserID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active, &wh.CreatedAt)
	return wh, err
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Webhook, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, url, secret, events, active, created_at
		FROM webhooks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []Webhook
	for rows.Next() {
		var wh Webhook
		if err := rows.Scan(&wh.ID, &wh.UserID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active, &wh.CreatedAt); err != nil {
			return nil, err
		}
		hooks = append(hooks, wh)
	}
	return hooks, rows.Err()
}

type WebhookUpdate struct {
	URL    *string
	Secret *string
	Events []string
	Active *bool
}

func (r *Repository) Update(ctx context.Context, id, userID string, upd WebhookUpdate) (Webhook, error) {
	var wh Webhook
	err := r.pool.QueryRow(ctx, `
		UPDATE webhooks
		SET url = COALESCE($3, url),
			secret = COALESCE($4, secret),
			events = COALESCE($5, events),
			active = COALESCE($6, active)
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, url, secret, events, active, created_at
	`, id, userID, upd.URL, upd.Secret, upd.Events, upd.Active).
		Scan(&wh.ID, &wh.UserID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active, &wh.CreatedAt)
	return wh, err
}

func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM webhooks WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
