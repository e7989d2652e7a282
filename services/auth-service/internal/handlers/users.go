package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qclickin/platform/services/auth-service/internal/storage"
)

type userResponse struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Username            string `json:"username,omitempty"`
	Name                string `json:"name"`
	Bio                 string `json:"bio"`
	Avatar              string `json:"avatar"`
	TimeZone            string `json:"time_zone"`
	WeekStart           string `json:"week_start"`
	Locale              string `json:"locale"`
	Theme               string `json:"theme"`
	Role                string `json:"role"`
	Plan                string `json:"plan"`
	BrandColor          string `json:"brand_color"`
	DarkBrandColor      string `json:"dark_brand_color"`
	HideBranding        bool   `json:"hide_branding"`
	CompletedOnboarding bool   `json:"completed_onboarding"`
	CreatedAt           string `json:"created_at"`
}

func userView(u storage.User) userResponse {
	return userResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Username:            u.Username,
		Name:                u.Name,
		Bio:                 u.Bio,
		Avatar:              u.Avatar,
		TimeZone:            u.TimeZone,
		WeekStart:           u.WeekStart,
		Locale:              u.Locale,
		Theme:               u.Theme,
		Role:                u.Role,
		Plan:                u.Plan,
		BrandColor:          u.BrandColor,
		DarkBrandColor:      u.DarkBrandColor,
		HideBranding:        u.HideBranding,
		CompletedOnboarding: u.CompletedOnboarding,
		CreatedAt:           u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type profileRequest struct {
	Username            *string `json:"username"`
	Name                *string `json:"name"`
	Bio                 *string `json:"bio"`
	Avatar              *string `json:"avatar"`
	TimeZone            *string `json:"time_zone"`
	WeekStart           *string `json:"week_start"`
	Locale              *string `json:"locale"`
	Theme               *string `json:"theme"`
	BrandColor          *string `json:"brand_color"`
	DarkBrandColor      *string `json:"dark_brand_color"`
	HideBranding        *bool   `json:"hide_branding"`
	CompletedOnboarding *bool   `json:"completed_onboarding"`
}

// Profile serves the authenticated user's account: GET reads it, PATCH
// updates mutable fields, DELETE removes the account and revokes sessions.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Me(w, r)
	case http.MethodPatch:
		h.updateProfile(w, r)
	case http.MethodDelete:
		h.deleteAccount(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AuthHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Username != nil {
		normalized := strings.ToLower(strings.TrimSpace(*req.Username))
		if normalized == "" {
			http.Error(w, "username cannot be empty", http.StatusBadRequest)
			return
		}
		req.Username = &normalized
	}
	if req.TimeZone != nil {
		if _, err := time.LoadLocation(*req.TimeZone); err != nil {
			http.Error(w, "invalid time_zone", http.StatusBadRequest)
			return
		}
	}
	if req.Theme != nil && *req.Theme != "light" && *req.Theme != "dark" {
		http.Error(w, "theme must be light or dark", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := h.users.UpdateProfileTx(ctx, tx, claims.Sub, storage.ProfileUpdate{
		Username:            req.Username,
		Name:                req.Name,
		Bio:                 req.Bio,
		Avatar:              req.Avatar,
		TimeZone:            req.TimeZone,
		WeekStart:           req.WeekStart,
		Locale:              req.Locale,
		Theme:               req.Theme,
		BrandColor:          req.BrandColor,
		DarkBrandColor:      req.DarkBrandColor,
		HideBranding:        req.HideBranding,
		CompletedOnboarding: req.CompletedOnboarding,
	})
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			http.Error(w, "username already taken", http.StatusConflict)
			return
		}
		if storage.IsNotFound(err) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}

	if err := h.insertUserEvent(ctx, tx, "auth.user.updated.v1", user); err != nil {
		http.Error(w, "failed to enqueue user event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit transaction", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, userView(user))
}

func (h *AuthHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := h.users.GetByID(ctx, claims.Sub)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to lookup user", http.StatusInternalServerError)
		return
	}

	if err := h.users.DeleteTx(ctx, tx, claims.Sub); err != nil {
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}
	if err := h.insertUserEvent(ctx, tx, "auth.user.deleted.v1", user); err != nil {
		http.Error(w, "failed to enqueue user event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit transaction", http.StatusInternalServerError)
		return
	}

	_ = h.refreshRepo.RevokeAllForUser(ctx, claims.Sub)
	if h.audit != nil {
		_ = h.audit.Record(ctx, "user.deleted", claims.Sub, map[string]any{"email": user.Email})
	}

	w.WriteHeader(http.StatusNoContent)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.bearerClaims(w, r)
	if !ok {
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(req.NewPassword)) < 8 {
		http.Error(w, "new password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := h.users.GetPasswordHash(r.Context(), claims.Sub)
	if err != nil {
		http.Error(w, "failed to lookup user", http.StatusInternalServerError)
		return
	}
	if err := verifyPassword(hash, req.CurrentPassword); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	newHash, err := hashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.users.SetPasswordHash(r.Context(), claims.Sub, newHash); err != nil {
		http.Error(w, "failed to update password", http.StatusInternalServerError)
		return
	}

	// Existing sessions do not survive a password change.
	_ = h.refreshRepo.RevokeAllForUser(r.Context(), claims.Sub)
	if h.audit != nil {
		_ = h.audit.Record(r.Context(), "user.password_changed", claims.Sub, nil)
	}

	w.WriteHeader(http.StatusNoContent)
}
