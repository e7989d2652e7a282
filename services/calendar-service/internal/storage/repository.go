// Package storage holds the calendar data: event types, availability
// schedules, teams, organizations, and the organizer profile read model.
package storage

import (
	"github.com/jackc/pgx/v5"
	"github.com/qclickin/platform/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}
