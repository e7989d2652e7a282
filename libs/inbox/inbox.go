// Package inbox deduplicates consumed events: the first insert of an event_id
// wins, replays are ignored.
package inbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qclickin/platform/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Seen reports whether the event id was already recorded.
func (r *Repository) Seen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM inbox_events WHERE event_id = $1)
	`, eventID).Scan(&seen)
	return seen, err
}

// Record returns true when the event is new, false when it was seen before.
// Handlers stay idempotent: between Seen and Record a concurrent consumer
// may process the same event, and the unique index absorbs the replay here.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}

	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}

	return false, err
}
