// ABOUTME: HTTP handlers for org-scoped invitation management: create, list,
// ABOUTME: cancel. Acceptance lives on the auth surface (token is the credential).
package api

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/auth"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/worker"
)

// createInvitationBody is the JSON request body for POST /api/v1/orgs/{org_id}/invitations.
type createInvitationBody struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	ResidenceID string `json:"residence_id,omitempty"`
}

// invitationResponseBody is the JSON response body for invitation endpoints.
// The token is only returned at creation time.
type invitationResponseBody struct {
	InvitationID string  `json:"invitation_id"`
	OrgID        string  `json:"org_id"`
	ResidenceID  *string `json:"residence_id,omitempty"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	Token        string  `json:"token,omitempty"`
	ExpiresAt    string  `json:"expires_at"`
	AcceptedAt   *string `json:"accepted_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func invitationToResponse(inv *store.Invitation, includeToken bool) invitationResponseBody {
	out := invitationResponseBody{
		InvitationID: inv.ID.String(),
		OrgID:        inv.OrgID.String(),
		Email:        inv.Email,
		Role:         inv.Role,
		ExpiresAt:    inv.ExpiresAt.Format(time.RFC3339),
		CreatedAt:    inv.CreatedAt.Format(time.RFC3339),
	}
	if includeToken {
		out.Token = inv.Token
	}
	if inv.ResidenceID != nil {
		s := inv.ResidenceID.String()
		out.ResidenceID = &s
	}
	if inv.AcceptedAt != nil {
		s := inv.AcceptedAt.Format(time.RFC3339)
		out.AcceptedAt = &s
	}
	return out
}

// createInvitationHandler handles POST /api/v1/orgs/{org_id}/invitations.
// Generates a token, persists the invitation, and enqueues the email job.
func (srv *Server) createInvitationHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createInvitationBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}
	if access.TierOf(req.Role) == access.TierNone {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	// Managers cannot mint admin invitations.
	if access.TierOf(req.Role) == access.TierAdmin {
		caller, err := srv.store.GetUserByID(r.Context(), userID)
		if err != nil {
			internalError(w, r, "create invitation: get caller", err)
			return
		}
		if caller == nil || access.TierOf(caller.Role) != access.TierAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	var residenceID *uuid.UUID
	if req.ResidenceID != "" {
		id, err := uuid.Parse(req.ResidenceID)
		if err != nil {
			http.Error(w, "invalid residence_id", http.StatusBadRequest)
			return
		}
		// The residence must sit inside this org.
		res, err := srv.store.GetResidence(r.Context(), id)
		if err != nil {
			internalError(w, r, "create invitation: get residence", err)
			return
		}
		if res == nil {
			http.Error(w, "residence not found", http.StatusNotFound)
			return
		}
		building, err := srv.store.GetBuilding(r.Context(), res.BuildingID)
		if err != nil {
			internalError(w, r, "create invitation: get building", err)
			return
		}
		if building == nil || building.OrgID != orgID {
			http.Error(w, "residence not found", http.StatusNotFound)
			return
		}
		residenceID = &id
	}

	token, err := auth.NewInvitationToken()
	if err != nil {
		internalError(w, r, "create invitation: token", err)
		return
	}

	inv, err := srv.store.CreateInvitation(r.Context(), store.CreateInvitationParams{
		OrgID:       orgID,
		ResidenceID: residenceID,
		Email:       req.Email,
		Role:        req.Role,
		Token:       token,
		CreatedBy:   userID,
		ExpiresAt:   time.Now().Add(time.Duration(srv.cfg.InvitationTTLHours) * time.Hour),
	})
	if err != nil {
		internalError(w, r, "create invitation", err)
		return
	}

	payload, err := json.Marshal(worker.InvitationEmailPayload{InvitationID: inv.ID})
	if err != nil {
		internalError(w, r, "create invitation: marshal payload", err)
		return
	}
	if _, err := srv.store.EnqueueJob(r.Context(), worker.QueueInvitationEmail, 0, payload, nil, 5, nil); err != nil {
		internalError(w, r, "create invitation: enqueue email", err)
		return
	}

	writeJSON(w, http.StatusCreated, invitationToResponse(inv, true))
}

// listInvitationsHandler handles GET /api/v1/orgs/{org_id}/invitations.
// Tokens are not included — the creation response is the only place they appear.
func (srv *Server) listInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	invitations, err := srv.store.ListOrgInvitations(r.Context(), orgID)
	if err != nil {
		internalError(w, r, "list invitations", err)
		return
	}

	out := make([]invitationResponseBody, 0, len(invitations))
	for i := range invitations {
		out = append(out, invitationToResponse(&invitations[i], false))
	}
	writeJSON(w, http.StatusOK, out)
}

// cancelInvitationHandler handles DELETE /api/v1/orgs/{org_id}/invitations/{id}.
// Only unaccepted invitations can be cancelled.
func (srv *Server) cancelInvitationHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid invitation id", http.StatusBadRequest)
		return
	}

	cancelled, err := srv.store.CancelInvitation(r.Context(), orgID, id)
	if err != nil {
		internalError(w, r, "cancel invitation", err)
		return
	}
	if !cancelled {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
