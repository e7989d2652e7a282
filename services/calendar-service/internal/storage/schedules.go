package storage

import (
	"context"
	"time"
)

type Schedule struct {
	UserID    string
	TimeZone  string
	Windows   []ScheduleWindow
	Overrides []DateOverride
}

// ScheduleWindow is a weekly recurring window, minute-of-day in the
// schedule's time zone. Weekday follows time.Weekday (0 = Sunday).
type ScheduleWindow struct {
	Weekday     int
	StartMinute int
	EndMinute   int
}

// DateOverride replaces the weekly windows for one calendar date.
// Unavailable with no window means the whole day is closed.
type DateOverride struct {
	Day         string
	Unavailable bool
	StartMinute int
	EndMinute   int
}

// GetOrCreateSchedule seeds a default Mon-Fri 09:00-17:00 schedule for users
// who have not configured availability yet.
func (r *Repository) GetOrCreateSchedule(ctx context.Context, userID string, defaultTimeZone string) (Schedule, error) {
	if defaultTimeZone == "" {
		defaultTimeZone = "UTC"
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO schedules (user_id, time_zone)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, defaultTimeZone)
	if err != nil {
		return Schedule{}, err
	}
	if tag.RowsAffected() > 0 {
		for wd := 1; wd <= 5; wd++ {
			if _, err := r.pool.Exec(ctx, `
				INSERT INTO schedule_windows (user_id, weekday, start_minute, end_minute)
				VALUES ($1, $2, 540, 1020)
			`, userID, wd); err != nil {
				return Schedule{}, err
			}
		}
	}
	return r.GetSchedule(ctx, userID)
}

func (r *Repository) GetSchedule(ctx context.Context, userID string) (Schedule, error) {
	s := Schedule{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT time_zone FROM schedules WHERE user_id = $1
	`, userID).Scan(&s.TimeZone)
	if err != nil {
		return Schedule{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM schedule_windows
		WHERE user_id = $1
		ORDER BY weekday, start_minute
	`, userID)
	if err != nil {
		return Schedule{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var w ScheduleWindow
		if err := rows.Scan(&w.Weekday, &w.StartMinute, &w.EndMinute); err != nil {
			return Schedule{}, err
		}
		s.Windows = append(s.Windows, w)
	}
	if rows.Err() != nil {
		return Schedule{}, rows.Err()
	}
	return s, nil
}

// ReplaceSchedule swaps the full weekly schedule in one transaction.
func (r *Repository) ReplaceSchedule(ctx context.Context, userID string, timeZone string, windows []ScheduleWindow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO schedules (user_id, time_zone)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET time_zone = EXCLUDED.time_zone, updated_at = now()
	`, userID, timeZone)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM schedule_windows WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, w := range windows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO schedule_windows (user_id, weekday, start_minute, end_minute)
			VALUES ($1, $2, $3, $4)
		`, userID, w.Weekday, w.StartMinute, w.EndMinute); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListOverrides(ctx context.Context, userID string, from, to string) ([]DateOverride, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day::text, unavailable, start_minute, end_minute
		FROM schedule_overrides
		WHERE user_id = $1 AND day >= $2::date AND day <= $3::date
		ORDER BY day, start_minute
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DateOverride
	for rows.Next() {
		var o DateOverride
		if err := rows.Scan(&o.Day, &o.Unavailable, &o.StartMinute, &o.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ReplaceOverrides swaps all overrides for a single date.
func (r *Repository) ReplaceOverrides(ctx context.Context, userID string, day string, overrides []DateOverride) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO schedules (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM schedule_overrides WHERE user_id = $1 AND day = $2::date
	`, userID, day); err != nil {
		return err
	}
	for _, o := range overrides {
		if _, err := tx.Exec(ctx, `
			INSERT INTO schedule_overrides (user_id, day, unavailable, start_minute, end_minute)
			VALUES ($1, $2::date, $3, $4, $5)
		`, userID, day, o.Unavailable, o.StartMinute, o.EndMinute); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) DeleteOverrides(ctx context.Context, userID string, day string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM schedule_overrides WHERE user_id = $1 AND day = $2::date
	`, userID, day)
	return err
}

// OverridesForDay returns the overrides that apply to one local date.
func (r *Repository) OverridesForDay(ctx context.Context, userID string, day time.Time) ([]DateOverride, error) {
	return r.ListOverrides(ctx, userID, day.Format("2006-01-02"), day.Format("2006-01-02"))
}
