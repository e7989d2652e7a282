package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

type teamResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Logo         string          `json:"logo"`
	Bio          string          `json:"bio"`
	HideBranding bool            `json:"hide_branding"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    string          `json:"created_at"`
}

func teamView(t storage.Team) teamResponse {
	return teamResponse{
		ID:           t.ID,
		Name:         t.Name,
		Slug:         t.Slug,
		Logo:         t.Logo,
		Bio:          t.Bio,
		HideBranding: t.HideBranding,
		Metadata:     t.Metadata,
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || !slugPattern.MatchString(req.Slug) {
		http.Error(w, "name and a valid slug are required", http.StatusBadRequest)
		return
	}

	team, err := h.repo.CreateTeam(r.Context(), userID, req.Name, req.Slug)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			http.Error(w, "slug already in use", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create team", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, teamView(team))
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	teams, err := h.repo.ListTeamsForUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list teams", http.StatusInternalServerError)
		return
	}

	out := make([]teamResponse, 0, len(teams))
	for _, t := range teams {
		out = append(out, teamView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	teamID := r.PathValue("id")
	if _, err := h.repo.MemberRole(r.Context(), teamID, userID); err != nil {
		http.Error(w, "team not found", http.StatusNotFound)
		return
	}

	team, err := h.repo.GetTeam(r.Context(), teamID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "team not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load team", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, teamView(team))
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	teamID := r.PathValue("id")
	role, err := h.repo.MemberRole(r.Context(), teamID, userID)
	if err != nil || role != "OWNER" {
		http.Error(w, "only the team owner can delete a team", http.StatusForbidden)
		return
	}

	if err := h.repo.DeleteTeam(r.Context(), teamID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "team not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete team", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	teamID := r.PathValue("id")
	if _, err := h.repo.MemberRole(r.Context(), teamID, userID); err != nil {
		http.Error(w, "team not found", http.StatusNotFound)
		return
	}

	members, err := h.repo.ListMembers(r.Context(), teamID)
	if err != nil {
		http.Error(w, "failed to list members", http.StatusInternalServerError)
		return
	}

	type memberResponse struct {
		UserID   string `json:"user_id"`
		Role     string `json:"role"`
		Accepted bool   `json:"accepted"`
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{UserID: m.UserID, Role: m.Role, Accepted: m.Accepted})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	teamID := r.PathValue("id")
	role, err := h.repo.MemberRole(r.Context(), teamID, userID)
	if err != nil || (role != "OWNER" && role != "ADMIN") {
		http.Error(w, "only team admins can invite members", http.StatusForbidden)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	switch req.Role {
	case "":
		req.Role = "MEMBER"
	case "MEMBER", "ADMIN":
	default:
		http.Error(w, "role must be MEMBER or ADMIN", http.StatusBadRequest)
		return
	}

	m, err := h.repo.AddMember(r.Context(), teamID, req.UserID, req.Role)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			http.Error(w, "already a member", http.StatusConflict)
			return
		}
		http.Error(w, "failed to add member", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":  m.UserID,
		"role":     m.Role,
		"accepted": m.Accepted,
	})
}

func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	if err := h.repo.AcceptMembership(r.Context(), r.PathValue("id"), userID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invite not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to accept invite", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	teamID := r.PathValue("id")
	target := r.PathValue("userID")
	role, err := h.repo.MemberRole(r.Context(), teamID, userID)
	if err != nil || role != "OWNER" {
		http.Error(w, "only the team owner can change roles", http.StatusForbidden)
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	switch req.Role {
	case "MEMBER", "ADMIN":
	default:
		http.Error(w, "role must be MEMBER or ADMIN", http.StatusBadRequest)
		return
	}
	// The owner role is not transferable through this endpoint.
	if target == userID {
		http.Error(w, "cannot change own role", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateMemberRole(r.Context(), teamID, target, req.Role); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update member", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": target,
		"role":    req.Role,
	})
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	teamID := r.PathValue("id")
	target := r.PathValue("userID")

	// Members may leave on their own; removing others needs admin rights.
	if target != userID {
		role, err := h.repo.MemberRole(r.Context(), teamID, userID)
		if err != nil || (role != "OWNER" && role != "ADMIN") {
			http.Error(w, "only team admins can remove members", http.StatusForbidden)
			return
		}
	}

	if err := h.repo.RemoveMember(r.Context(), teamID, target); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to remove member", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Role") != "ADMIN" {
		http.Error(w, "admin role required", http.StatusForbidden)
		return
	}

	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || !slugPattern.MatchString(req.Slug) {
		http.Error(w, "name and a valid slug are required", http.StatusBadRequest)
		return
	}

	org, err := h.repo.CreateOrganization(r.Context(), req.Name, req.Slug)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			http.Error(w, "slug already in use", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create organization", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   org.ID,
		"name": org.Name,
		"slug": org.Slug,
	})
}

func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.repo.ListOrganizations(r.Context(), 100)
	if err != nil {
		http.Error(w, "failed to list organizations", http.StatusInternalServerError)
		return
	}

	type orgResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	out := make([]orgResponse, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, orgResponse{ID: o.ID, Name: o.Name, Slug: o.Slug})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Role") != "ADMIN" {
		http.Error(w, "admin role required", http.StatusForbidden)
		return
	}

	if err := h.repo.DeleteOrganization(r.Context(), r.PathValue("id")); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete organization", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
