package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Team struct {
	ID           string
	Name         string
	Slug         string
	Logo         string
	Bio          string
	HideBranding bool
	Metadata     json.RawMessage
	CreatedAt    time.Time
}

type Membership struct {
	ID       int64
	TeamID   string
	UserID   string
	Role     string
	Accepted bool
}

type Organization struct {
	ID        string
	Name      string
	Slug      string
	Metadata  json.RawMessage
	CreatedAt time.Time
}

// CreateTeam creates the team and makes the creator its owner in one
// transaction.
func (r *Repository) CreateTeam(ctx context.Context, creatorUserID string, name string, slug string) (Team, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Team{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	team := Team{ID: uuid.NewString()}
	err = tx.QueryRow(ctx, `
		INSERT INTO teams (id, name, slug)
		VALUES ($1, $2, $3)
		RETURNING id, name, slug, logo, bio, hide_branding, metadata, created_at
	`, team.ID, name, slug).Scan(&team.ID, &team.Name, &team.Slug, &team.Logo,
		&team.Bio, &team.HideBranding, &team.Metadata, &team.CreatedAt)
	if err != nil {
		return Team{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (team_id, user_id, role, accepted)
		VALUES ($1, $2, 'OWNER', true)
	`, team.ID, creatorUserID)
	if err != nil {
		return Team{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Team{}, err
	}
	return team, nil
}

func (r *Repository) GetTeam(ctx context.Context, id string) (Team, error) {
	var t Team
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, logo, bio, hide_branding, metadata, created_at
		FROM teams WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Logo, &t.Bio, &t.HideBranding, &t.Metadata, &t.CreatedAt)
	return t, err
}

func (r *Repository) ListTeamsForUser(ctx context.Context, userID string) ([]Team, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.slug, t.logo, t.bio, t.hide_branding, t.metadata, t.created_at
		FROM teams t
		JOIN memberships m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Logo, &t.Bio, &t.HideBranding, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) DeleteTeam(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) MemberRole(ctx context.Context, teamID string, userID string) (string, error) {
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT role FROM memberships WHERE team_id = $1 AND user_id = $2
	`, teamID, userID).Scan(&role)
	return role, err
}

func (r *Repository) AddMember(ctx context.Context, teamID string, userID string, role string) (Membership, error) {
	var m Membership
	err := r.pool.QueryRow(ctx, `
		INSERT INTO memberships (team_id, user_id, role, accepted)
		VALUES ($1, $2, $3, false)
		RETURNING id, team_id, user_id, role, accepted
	`, teamID, userID, role).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.Accepted)
	return m, err
}

func (r *Repository) AcceptMembership(ctx context.Context, teamID string, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE memberships SET accepted = true
		WHERE team_id = $1 AND user_id = $2
	`, teamID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) ListMembers(ctx context.Context, teamID string) ([]Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, team_id, user_id, role, accepted
		FROM memberships
		WHERE team_id = $1
		ORDER BY id
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.Accepted); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) UpdateMemberRole(ctx context.Context, teamID string, userID string, role string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE memberships SET role = $3
		WHERE team_id = $1 AND user_id = $2
	`, teamID, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) RemoveMember(ctx context.Context, teamID string, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM memberships WHERE team_id = $1 AND user_id = $2
	`, teamID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) CreateOrganization(ctx context.Context, name string, slug string) (Organization, error) {
	var o Organization
	err := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (id, name, slug)
		VALUES ($1, $2, $3)
		RETURNING id, name, slug, metadata, created_at
	`, uuid.NewString(), name, slug).Scan(&o.ID, &o.Name, &o.Slug, &o.Metadata, &o.CreatedAt)
	return o, err
}

func (r *Repository) GetOrganization(ctx context.Context, id string) (Organization, error) {
	var o Organization
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, metadata, created_at
		FROM organizations WHERE id = $1
	`, id).Scan(&o.ID, &o.Name, &o.Slug, &o.Metadata, &o.CreatedAt)
	return o, err
}

func (r *Repository) ListOrganizations(ctx context.Context, limit int) ([]Organization, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, slug, metadata, created_at
		FROM organizations
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.Metadata, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) DeleteOrganization(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
