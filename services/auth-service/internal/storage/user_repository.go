package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/qclickin/platform/libs/db"
)

type User struct {
	ID                  string
	Email               string
	Username            string
	Name                string
	Bio                 string
	Avatar              string
	TimeZone            string
	WeekStart           string
	Locale              string
	Theme               string
	Role                string
	Plan                string
	BrandColor          string
	DarkBrandColor      string
	HideBranding        bool
	CompletedOnboarding bool
	CreatedAt           time.Time
}

// ProfileUpdate carries the mutable profile fields. Nil means leave unchanged.
type ProfileUpdate struct {
	Username            *string
	Name                *string
	Bio                 *string
	Avatar              *string
	TimeZone            *string
	WeekStart           *string
	Locale              *string
	Theme               *string
	BrandColor          *string
	DarkBrandColor      *string
	HideBranding        *bool
	CompletedOnboarding *bool
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	id, email, COALESCE(username, ''), name, bio, avatar, time_zone, week_start,
	locale, theme, role, plan, brand_color, dark_brand_color, hide_branding,
	completed_onboarding, created_at
`

func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user User, passwordHash string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, username, name, time_zone, role, plan)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
	`, user.ID, user.Email, user.Username, user.Name, user.TimeZone, user.Role, user.Plan)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO user_passwords (user_id, password_hash)
		VALUES ($1, $2)
	`, user.ID, passwordHash)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `WHERE email = $1`, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.Name, &u.Bio, &u.Avatar, &u.TimeZone,
		&u.WeekStart, &u.Locale, &u.Theme, &u.Role, &u.Plan, &u.BrandColor,
		&u.DarkBrandColor, &u.HideBranding, &u.CompletedOnboarding, &u.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *UserRepository) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT password_hash FROM user_passwords WHERE user_id = $1
	`, userID).Scan(&hash)
	return hash, err
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, userID string, hash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_passwords SET password_hash = $2, updated_at = now()
		WHERE user_id = $1
	`, userID, hash)
	return err
}

func (r *UserRepository) UpdateProfileTx(ctx context.Context, tx pgx.Tx, userID string, upd ProfileUpdate) (User, error) {
	_, err := tx.Exec(ctx, `
		UPDATE users SET
			username             = COALESCE(NULLIF($2, ''), username),
			name                 = COALESCE($3, name),
			bio                  = COALESCE($4, bio),
			avatar               = COALESCE($5, avatar),
			time_zone            = COALESCE($6, time_zone),
			week_start           = COALESCE($7, week_start),
			locale               = COALESCE($8, locale),
			theme                = COALESCE($9, theme),
			brand_color          = COALESCE($10, brand_color),
			dark_brand_color     = COALESCE($11, dark_brand_color),
			hide_branding        = COALESCE($12, hide_branding),
			completed_onboarding = COALESCE($13, completed_onboarding),
			updated_at           = now()
		WHERE id = $1
	`, userID,
		deref(upd.Username), upd.Name, upd.Bio, upd.Avatar, upd.TimeZone,
		upd.WeekStart, upd.Locale, upd.Theme, upd.BrandColor, upd.DarkBrandColor,
		upd.HideBranding, upd.CompletedOnboarding)
	if err != nil {
		return User{}, err
	}

	var u User
	err = tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID).Scan(
		&u.ID, &u.Email, &u.Username, &u.Name, &u.Bio, &u.Avatar, &u.TimeZone,
		&u.WeekStart, &u.Locale, &u.Theme, &u.Role, &u.Plan, &u.BrandColor,
		&u.DarkBrandColor, &u.HideBranding, &u.CompletedOnboarding, &u.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *UserRepository) DeleteTx(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	return err
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
