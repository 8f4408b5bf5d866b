// ABOUTME: HTTP handlers for organization management: create, read, update,
// ABOUTME: member add/remove, and platform-level role assignment.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
)

// createOrgBody is the JSON request body for POST /api/v1/orgs.
type createOrgBody struct {
	Name string `json:"name"`
}

// orgResponseBody is the JSON response body for org read endpoints.
type orgResponseBody struct {
	OrgID     string `json:"org_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// updateOrgBody is the JSON request body for PATCH /api/v1/orgs/{org_id}.
type updateOrgBody struct {
	Name string `json:"name"`
}

// memberResponseBody is one entry of the member list response.
type memberResponseBody struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	JoinedAt    string `json:"joined_at"`
}

func orgToResponse(o *store.Organization) orgResponseBody {
	return orgResponseBody{
		OrgID:     o.ID.String(),
		Name:      o.Name,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
}

// createOrgHandler handles POST /api/v1/orgs. Admin only.
func (srv *Server) createOrgHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrgBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	org, err := srv.store.CreateOrg(r.Context(), req.Name)
	if err != nil {
		internalError(w, r, "create org", err)
		return
	}

	writeJSON(w, http.StatusCreated, orgToResponse(org))
}

// listOrgsHandler handles GET /api/v1/orgs.
// Admins see every org; everyone else sees only orgs they belong to.
func (srv *Server) listOrgsHandler(w http.ResponseWriter, r *http.Request) {
	req, _, ok, err := srv.requesterFrom(r)
	if err != nil {
		internalError(w, r, "list orgs: build requester", err)
		return
	}
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var orgs []store.Organization
	if req.Tier == access.TierAdmin {
		orgs, err = srv.store.ListOrgs(r.Context())
		if err != nil {
			internalError(w, r, "list orgs", err)
			return
		}
	} else {
		ids, err := srv.store.ListUserOrgIDs(r.Context(), req.UserID)
		if err != nil {
			internalError(w, r, "list orgs: memberships", err)
			return
		}
		for _, id := range ids {
			org, err := srv.store.GetOrgByID(r.Context(), id)
			if err != nil {
				internalError(w, r, "list orgs: get org", err)
				return
			}
			if org != nil {
				orgs = append(orgs, *org)
			}
		}
	}

	out := make([]orgResponseBody, 0, len(orgs))
	for i := range orgs {
		out = append(out, orgToResponse(&orgs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// getOrgHandler handles GET /api/v1/orgs/{org_id}.
// Org scoping enforced by RequireOrgManager middleware.
func (srv *Server) getOrgHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	org, err := srv.store.GetOrgByID(r.Context(), orgID)
	if err != nil {
		internalError(w, r, "get org", err)
		return
	}
	if org == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, orgToResponse(org))
}

// updateOrgHandler handles PATCH /api/v1/orgs/{org_id}. Admin only.
func (srv *Server) updateOrgHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req updateOrgBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	org, err := srv.store.UpdateOrg(r.Context(), orgID, req.Name)
	if err != nil {
		internalError(w, r, "update org", err)
		return
	}
	if org == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, orgToResponse(org))
}

// ── Members ───────────────────────────────────────────────────────────────────

// listMembersHandler handles GET /api/v1/orgs/{org_id}/members.
func (srv *Server) listMembersHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	members, err := srv.store.ListOrgMembers(r.Context(), orgID)
	if err != nil {
		internalError(w, r, "list org members", err)
		return
	}

	out := make([]memberResponseBody, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponseBody{
			UserID:      m.UserID.String(),
			Email:       m.Email,
			DisplayName: m.DisplayName,
			Role:        m.Role,
			JoinedAt:    m.JoinedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// addMemberHandler handles POST /api/v1/orgs/{org_id}/members/{user_id}. Admin only.
// Invitations are the normal path; direct adds are an admin escape hatch.
func (srv *Server) addMemberHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	user, err := srv.store.GetUserByID(r.Context(), userID)
	if err != nil {
		internalError(w, r, "add org member: get user", err)
		return
	}
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	if err := srv.store.AddOrgMember(r.Context(), orgID, userID); err != nil {
		internalError(w, r, "add org member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// removeMemberHandler handles DELETE /api/v1/orgs/{org_id}/members/{user_id}. Admin only.
func (srv *Server) removeMemberHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	if err := srv.store.RemoveOrgMember(r.Context(), orgID, userID); err != nil {
		internalError(w, r, "remove org member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ── Platform administration ───────────────────────────────────────────────────

// updateUserRoleBody is the JSON request body for PATCH /api/v1/admin/users/{user_id}/role.
type updateUserRoleBody struct {
	Role string `json:"role"`
}

// updateUserRoleHandler handles PATCH /api/v1/admin/users/{user_id}/role. Admin only.
// Role changes affect the user's tier platform-wide; demo_ variants are accepted.
func (srv *Server) updateUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	var req updateUserRoleBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if access.TierOf(req.Role) == access.TierNone {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	user, err := srv.store.UpdateUserRole(r.Context(), userID, req.Role)
	if err != nil {
		internalError(w, r, "update user role", err)
		return
	}
	if user == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	slog.InfoContext(r.Context(), "user role updated",
		"user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": user.ID.String(),
		"role":    user.Role,
	})
}
