package storage

import "context"

// OrganizerProfile is a read model fed from auth user events, so public
// pages resolve usernames without calling auth-service.
type OrganizerProfile struct {
	UserID     string
	Username   string
	Name       string
	Bio        string
	Avatar     string
	Theme      string
	BrandColor string
	TimeZone   string
}

func (r *Repository) UpsertProfile(ctx context.Context, p OrganizerProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organizer_profiles (user_id, username, name, bio, avatar, theme, brand_color, time_zone)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET username    = EXCLUDED.username,
			name        = EXCLUDED.name,
			bio         = EXCLUDED.bio,
			avatar      = EXCLUDED.avatar,
			theme       = EXCLUDED.theme,
			brand_color = EXCLUDED.brand_color,
			time_zone   = EXCLUDED.time_zone,
			updated_at  = now()
	`, p.UserID, p.Username, p.Name, p.Bio, p.Avatar, p.Theme, p.BrandColor, p.TimeZone)
	return err
}

func (r *Repository) DeleteProfile(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM organizer_profiles WHERE user_id = $1`, userID)
	return err
}

func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (OrganizerProfile, error) {
	var p OrganizerProfile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, COALESCE(username, ''), name, bio, avatar, theme, brand_color, time_zone
		FROM organizer_profiles
		WHERE username = $1
	`, username).Scan(&p.UserID, &p.Username, &p.Name, &p.Bio, &p.Avatar, &p.Theme, &p.BrandColor, &p.TimeZone)
	return p, err
}

func (r *Repository) GetProfileByUserID(ctx context.Context, userID string) (OrganizerProfile, error) {
	var p OrganizerProfile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, COALESCE(username, ''), name, bio, avatar, theme, brand_color, time_zone
		FROM organizer_profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Username, &p.Name, &p.Bio, &p.Avatar, &p.Theme, &p.BrandColor, &p.TimeZone)
	return p, err
}
