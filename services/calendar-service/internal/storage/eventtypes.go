package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EventType struct {
	ID                    string
	OwnerUserID           string
	TeamID                *string
	OrganizationID        *string
	Title                 string
	Slug                  string
	Description           string
	Position              int
	LengthMinutes         int
	Hidden                bool
	RequiresConfirmation  bool
	DisableGuests         bool
	MinimumNoticeMinutes  int
	BeforeBufferMinutes   int
	AfterBufferMinutes    int
	SeatsPerTimeSlot      *int
	SchedulingType        string
	PeriodType            string
	Locations             json.RawMessage
	Metadata              json.RawMessage
	PriceCents            int
	Currency              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

const eventTypeColumns = `
	id, owner_user_id, team_id, organization_id, title, slug, description,
	position, length_minutes, hidden, requires_confirmation, disable_guests,
	minimum_booking_notice_minutes, before_buffer_minutes, after_buffer_minutes,
	seats_per_time_slot, scheduling_type, period_type, locations, metadata,
	price_cents, currency, created_at, updated_at
`

func scanEventType(row pgx.Row) (EventType, error) {
	var et EventType
	err := row.Scan(
		&et.ID, &et.OwnerUserID, &et.TeamID, &et.OrganizationID, &et.Title,
		&et.Slug, &et.Description, &et.Position, &et.LengthMinutes, &et.Hidden,
		&et.RequiresConfirmation, &et.DisableGuests, &et.MinimumNoticeMinutes,
		&et.BeforeBufferMinutes, &et.AfterBufferMinutes, &et.SeatsPerTimeSlot,
		&et.SchedulingType, &et.PeriodType, &et.Locations, &et.Metadata,
		&et.PriceCents, &et.Currency, &et.CreatedAt, &et.UpdatedAt,
	)
	return et, err
}

func (r *Repository) CreateEventType(ctx context.Context, et EventType) (EventType, error) {
	if et.ID == "" {
		et.ID = uuid.NewString()
	}
	if len(et.Locations) == 0 {
		et.Locations = json.RawMessage(`[]`)
	}
	if len(et.Metadata) == 0 {
		et.Metadata = json.RawMessage(`{}`)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO event_types (
			id, owner_user_id, team_id, organization_id, title, slug, description,
			position, length_minutes, hidden, requires_confirmation, disable_guests,
			minimum_booking_notice_minutes, before_buffer_minutes, after_buffer_minutes,
			seats_per_time_slot, scheduling_type, period_type, locations, metadata,
			price_cents, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING `+eventTypeColumns+`
	`, et.ID, et.OwnerUserID, et.TeamID, et.OrganizationID, et.Title, et.Slug,
		et.Description, et.Position, et.LengthMinutes, et.Hidden,
		et.RequiresConfirmation, et.DisableGuests, et.MinimumNoticeMinutes,
		et.BeforeBufferMinutes, et.AfterBufferMinutes, et.SeatsPerTimeSlot,
		et.SchedulingType, et.PeriodType, et.Locations, et.Metadata,
		et.PriceCents, et.Currency)
	return scanEventType(row)
}

func (r *Repository) GetEventType(ctx context.Context, id string) (EventType, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE id = $1`, id)
	return scanEventType(row)
}

func (r *Repository) GetEventTypeBySlug(ctx context.Context, ownerUserID string, slug string) (EventType, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+eventTypeColumns+` FROM event_types
		WHERE owner_user_id = $1 AND slug = $2
	`, ownerUserID, slug)
	return scanEventType(row)
}

func (r *Repository) ListEventTypes(ctx context.Context, ownerUserID string, includeHidden bool, limit int) ([]EventType, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventTypeColumns+` FROM event_types
		WHERE owner_user_id = $1 AND ($2 OR NOT hidden)
		ORDER BY position ASC, created_at ASC
		LIMIT $3
	`, ownerUserID, includeHidden, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventType
	for rows.Next() {
		et, err := scanEventType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// EventTypeUpdate carries mutable fields. Nil means leave unchanged.
type EventTypeUpdate struct {
	Title                *string
	Slug                 *string
	Description          *string
	Position             *int
	LengthMinutes        *int
	Hidden               *bool
	RequiresConfirmation *bool
	DisableGuests        *bool
	MinimumNoticeMinutes *int
	BeforeBufferMinutes  *int
	AfterBufferMinutes   *int
	SeatsPerTimeSlot     *int
	SchedulingType       *string
	PeriodType           *string
	Locations            json.RawMessage
	Metadata             json.RawMessage
	PriceCents           *int
	Currency             *string
}

func (r *Repository) UpdateEventType(ctx context.Context, ownerUserID string, id string, upd EventTypeUpdate) (EventType, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE event_types SET
			title                          = COALESCE($3, title),
			slug                           = COALESCE($4, slug),
			description                    = COALESCE($5, description),
			position                       = COALESCE($6, position),
			length_minutes                 = COALESCE($7, length_minutes),
			hidden                         = COALESCE($8, hidden),
			requires_confirmation          = COALESCE($9, requires_confirmation),
			disable_guests                 = COALESCE($10, disable_guests),
			minimum_booking_notice_minutes = COALESCE($11, minimum_booking_notice_minutes),
			before_buffer_minutes          = COALESCE($12, before_buffer_minutes),
			after_buffer_minutes           = COALESCE($13, after_buffer_minutes),
			seats_per_time_slot            = COALESCE($14, seats_per_time_slot),
			scheduling_type                = COALESCE($15, scheduling_type),
			period_type                    = COALESCE($16, period_type),
			locations                      = COALESCE($17, locations),
			metadata                       = COALESCE($18, metadata),
			price_cents                    = COALESCE($19, price_cents),
			currency                       = COALESCE($20, currency),
			updated_at                     = now()
		WHERE id = $1 AND owner_user_id = $2
		RETURNING `+eventTypeColumns+`
	`, id, ownerUserID, upd.Title, upd.Slug, upd.Description, upd.Position,
		upd.LengthMinutes, upd.Hidden, upd.RequiresConfirmation, upd.DisableGuests,
		upd.MinimumNoticeMinutes, upd.BeforeBufferMinutes, upd.AfterBufferMinutes,
		upd.SeatsPerTimeSlot, upd.SchedulingType, upd.PeriodType, upd.Locations,
		upd.Metadata, upd.PriceCents, upd.Currency)
	return scanEventType(row)
}

func (r *Repository) DeleteEventType(ctx context.Context, ownerUserID string, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM event_types WHERE id = $1 AND owner_user_id = $2
	`, id, ownerUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
