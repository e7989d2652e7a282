package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qclickin/platform/libs/db"
	"github.com/qclickin/platform/services/booking-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const bookingColumns = `id, uid, event_type_id, organizer_user_id, title, description,
	start_time, end_time, location, status, paid, cancellation_reason,
	COALESCE(rescheduled_from_uid::text, ''), seats_per_time_slot, metadata, responses,
	created_at, cancelled_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.UID,
		&b.EventTypeID,
		&b.OrganizerUserID,
		&b.Title,
		&b.Description,
		&b.StartTime,
		&b.EndTime,
		&b.Location,
		&b.Status,
		&b.Paid,
		&b.CancelReason,
		&b.RescheduledFromUID,
		&b.SeatsPerTimeSlot,
		&b.Metadata,
		&b.Responses,
		&b.CreatedAt,
		&b.CancelledAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	var rescheduledFrom *string
	if b.RescheduledFromUID != "" {
		rescheduledFrom = &b.RescheduledFromUID
	}
	metadata := b.Metadata
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}
	responses := b.Responses
	if len(responses) == 0 {
		responses = []byte(`{}`)
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings
			(uid, event_type_id, organizer_user_id, title, description, start_time, end_time,
			location, status, rescheduled_from_uid, seats_per_time_slot, metadata, responses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`, b.UID, b.EventTypeID, b.OrganizerUserID, b.Title, b.Description, b.StartTime, b.EndTime,
		b.Location, b.Status, rescheduledFrom, b.SeatsPerTimeSlot, metadata, responses).
		Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return err
	}

	for i := range b.Attendees {
		a := &b.Attendees[i]
		a.BookingID = b.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO attendees (booking_id, email, name, time_zone, locale, phone_number)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, b.ID, a.Email, a.Name, a.TimeZone, a.Locale, a.PhoneNumber).Scan(&a.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *BookingRepository) GetByUID(ctx context.Context, uid string) (model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE uid = $1
	`, uid))
	if err != nil {
		return model.Booking{}, err
	}
	b.Attendees, err = r.ListAttendees(ctx, b.ID)
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// GetForUpdate locks the booking row for the rest of the transaction.
func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, uid string) (model.Booking, error) {
	return scanBooking(tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE uid = $1
		FOR UPDATE
	`, uid))
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, uid, status string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings SET status = $2 WHERE uid = $1
	`, uid, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, uid, status, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE uid = $1
		RETURNING cancelled_at
	`, uid, status, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

func (r *BookingRepository) MarkPaid(ctx context.Context, uid string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE bookings SET paid = true WHERE uid = $1
	`, uid)
	return err
}

// SlotOccupancy splits the organizer's live bookings that intersect the
// buffered footprint [bufStart, bufEnd) into two buckets: SameSlot holds
// bookings of the same event type at exactly [start, end) and can share
// seats, Conflicts holds everything else. The exclusion constraint only
// guards single-seat bookings, so handlers call this inside the create
// transaction.
type SlotOccupancy struct {
	Conflicts int
	SameSlot  int
}

func (r *BookingRepository) SlotOccupancy(ctx context.Context, tx pgx.Tx, organizerUserID, eventTypeID string, start, end, bufStart, bufEnd time.Time) (SlotOccupancy, error) {
	var occ SlotOccupancy
	err := tx.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE NOT (event_type_id = $2 AND start_time = $3 AND end_time = $4)),
			count(*) FILTER (WHERE event_type_id = $2 AND start_time = $3 AND end_time = $4)
		FROM bookings
		WHERE organizer_user_id = $1
			AND status IN ('PENDING', 'ACCEPTED')
			AND start_time < $6
			AND end_time > $5
	`, organizerUserID, eventTypeID, start, end, bufStart, bufEnd).Scan(&occ.Conflicts, &occ.SameSlot)
	return occ, err
}

type BusyInterval struct {
	Start       time.Time
	End         time.Time
	EventTypeID string
}

func (r *BookingRepository) ListBusyIntervals(ctx context.Context, organizerUserID string, start, end time.Time) ([]BusyInterval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time, event_type_id
		FROM bookings
		WHERE organizer_user_id = $1
			AND status IN ('PENDING', 'ACCEPTED')
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, organizerUserID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var busy []BusyInterval
	for rows.Next() {
		var iv BusyInterval
		if err := rows.Scan(&iv.Start, &iv.End, &iv.EventTypeID); err != nil {
			return nil, err
		}
		busy = append(busy, iv)
	}
	return busy, rows.Err()
}

func (r *BookingRepository) ListByOrganizer(ctx context.Context, organizerUserID, status string, limit int) ([]model.Booking, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE organizer_user_id = $1
			AND ($2 = '' OR status = $2)
		ORDER BY start_time DESC
		LIMIT $3
	`, organizerUserID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *BookingRepository) ListAttendees(ctx context.Context, bookingID string) ([]model.Attendee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, email, name, time_zone, locale, phone_number, no_show
		FROM attendees
		WHERE booking_id = $1
		ORDER BY id ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attendees []model.Attendee
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.ID, &a.BookingID, &a.Email, &a.Name, &a.TimeZone, &a.Locale, &a.PhoneNumber, &a.NoShow); err != nil {
			return nil, err
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}

func (r *BookingRepository) SetAttendeeNoShow(ctx context.Context, bookingID, email string, noShow bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE attendees SET no_show = $3 WHERE booking_id = $1 AND email = $2
	`, bookingID, email, noShow)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AttendeeUpdate carries partial attendee changes; nil fields keep the
// stored value.
type AttendeeUpdate struct {
	Email       *string
	Name        *string
	TimeZone    *string
	Locale      *string
	PhoneNumber *string
	NoShow      *bool
}

func (r *BookingRepository) UpdateAttendee(ctx context.Context, bookingID string, attendeeID int64, upd AttendeeUpdate) (model.Attendee, error) {
	var a model.Attendee
	err := r.pool.QueryRow(ctx, `
		UPDATE attendees SET
			email = COALESCE($3, email),
			name = COALESCE($4, name),
			time_zone = COALESCE($5, time_zone),
			locale = COALESCE($6, locale),
			phone_number = COALESCE($7, phone_number),
			no_show = COALESCE($8, no_show)
		WHERE booking_id = $1 AND id = $2
		RETURNING id, booking_id, email, name, time_zone, locale, phone_number, no_show
	`, bookingID, attendeeID,
		upd.Email, upd.Name, upd.TimeZone, upd.Locale, upd.PhoneNumber, upd.NoShow,
	).Scan(&a.ID, &a.BookingID, &a.Email, &a.Name, &a.TimeZone, &a.Locale, &a.PhoneNumber, &a.NoShow)
	return a, err
}

type BookingStats struct {
	Total     int
	Pending   int
	Accepted  int
	Rejected  int
	Cancelled int
	NoShows   int
}

func (r *BookingRepository) StatsForOrganizer(ctx context.Context, organizerUserID string, from, to time.Time) (BookingStats, error) {
	var s BookingStats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'PENDING'),
			count(*) FILTER (WHERE status = 'ACCEPTED'),
			count(*) FILTER (WHERE status = 'REJECTED'),
			count(*) FILTER (WHERE status = 'CANCELLED'),
			(SELECT count(*) FROM attendees a
				JOIN bookings b2 ON b2.id = a.booking_id
				WHERE b2.organizer_user_id = $1
					AND b2.start_time >= $2 AND b2.start_time < $3
					AND a.no_show)
		FROM bookings
		WHERE organizer_user_id = $1
			AND start_time >= $2 AND start_time < $3
	`, organizerUserID, from, to).Scan(&s.Total, &s.Pending, &s.Accepted, &s.Rejected, &s.Cancelled, &s.NoShows)
	return s, err
}

type EventTypeStats struct {
	EventTypeID string
	Total       int
	Pending     int
	Accepted    int
	Rejected    int
	Cancelled   int
	NoShows     int
}

// StatsByEventType breaks the organizer's bookings down per event type,
// busiest first.
func (r *BookingRepository) StatsByEventType(ctx context.Context, organizerUserID string, from, to time.Time) ([]EventTypeStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_type_id,
			count(*),
			count(*) FILTER (WHERE status = 'PENDING'),
			count(*) FILTER (WHERE status = 'ACCEPTED'),
			count(*) FILTER (WHERE status = 'REJECTED'),
			count(*) FILTER (WHERE status = 'CANCELLED'),
			(SELECT count(*) FROM attendees a
				JOIN bookings b2 ON b2.id = a.booking_id
				WHERE b2.organizer_user_id = $1
					AND b2.event_type_id = bookings.event_type_id
					AND b2.start_time >= $2 AND b2.start_time < $3
					AND a.no_show)
		FROM bookings
		WHERE organizer_user_id = $1
			AND start_time >= $2 AND start_time < $3
		GROUP BY event_type_id
		ORDER BY count(*) DESC, event_type_id ASC
	`, organizerUserID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []EventTypeStats
	for rows.Next() {
		var s EventTypeStats
		if err := rows.Scan(&s.EventTypeID, &s.Total, &s.Pending, &s.Accepted, &s.Rejected, &s.Cancelled, &s.NoShows); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
