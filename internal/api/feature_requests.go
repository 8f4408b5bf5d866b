// ABOUTME: HTTP handlers for the feature request board: submit, list,
// ABOUTME: admin triage, and owner/admin deletion.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
)

// createFeatureRequestBody is the JSON request body for POST /api/v1/feature-requests.
type createFeatureRequestBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// triageFeatureRequestBody is the JSON request body for PATCH /api/v1/feature-requests/{id}.
type triageFeatureRequestBody struct {
	Status    string  `json:"status"`
	AdminNote *string `json:"admin_note,omitempty"`
}

// featureRequestResponseBody is the JSON response body for feature request endpoints.
type featureRequestResponseBody struct {
	RequestID   string  `json:"request_id"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	AdminNote   *string `json:"admin_note,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func featureRequestToResponse(fr *store.FeatureRequest) featureRequestResponseBody {
	return featureRequestResponseBody{
		RequestID:   fr.ID.String(),
		UserID:      fr.UserID.String(),
		Title:       fr.Title,
		Description: fr.Description,
		Status:      fr.Status,
		AdminNote:   fr.AdminNote,
		CreatedAt:   fr.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   fr.UpdatedAt.Format(time.RFC3339),
	}
}

// createFeatureRequestHandler handles POST /api/v1/feature-requests.
// Any authenticated user may submit.
func (srv *Server) createFeatureRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createFeatureRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	fr, err := srv.store.CreateFeatureRequest(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		internalError(w, r, "create feature request", err)
		return
	}

	writeJSON(w, http.StatusCreated, featureRequestToResponse(fr))
}

// listFeatureRequestsHandler handles GET /api/v1/feature-requests.
// Admins see every request (optionally filtered by ?status=); everyone else
// sees only their own submissions.
func (srv *Server) listFeatureRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := srv.store.GetUserByID(r.Context(), userID)
	if err != nil || user == nil {
		internalError(w, r, "list feature requests: get user", err)
		return
	}

	var requests []store.FeatureRequest
	if access.TierOf(user.Role) == access.TierAdmin {
		status := r.URL.Query().Get("status")
		if status != "" && !store.ValidFeatureStatus(status) {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		requests, err = srv.store.ListFeatureRequests(r.Context(), status)
	} else {
		requests, err = srv.store.ListUserFeatureRequests(r.Context(), userID)
	}
	if err != nil {
		internalError(w, r, "list feature requests", err)
		return
	}

	out := make([]featureRequestResponseBody, 0, len(requests))
	for i := range requests {
		out = append(out, featureRequestToResponse(&requests[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// triageFeatureRequestHandler handles PATCH /api/v1/feature-requests/{id}. Admin only.
func (srv *Server) triageFeatureRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}

	var req triageFeatureRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !store.ValidFeatureStatus(req.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	fr, err := srv.store.TriageFeatureRequest(r.Context(), id, req.Status, req.AdminNote)
	if err != nil {
		internalError(w, r, "triage feature request", err)
		return
	}
	if fr == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, featureRequestToResponse(fr))
}

// deleteFeatureRequestHandler handles DELETE /api/v1/feature-requests/{id}.
// The submitter may delete their own request; admins may delete any.
func (srv *Server) deleteFeatureRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}

	owner := userID
	user, err := srv.store.GetUserByID(r.Context(), userID)
	if err != nil || user == nil {
		internalError(w, r, "delete feature request: get user", err)
		return
	}
	if access.TierOf(user.Role) == access.TierAdmin {
		fr, err := srv.store.GetFeatureRequest(r.Context(), id)
		if err != nil {
			internalError(w, r, "delete feature request: get", err)
			return
		}
		if fr == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		owner = fr.UserID
	}

	deleted, err := srv.store.DeleteFeatureRequest(r.Context(), id, owner)
	if err != nil {
		internalError(w, r, "delete feature request", err)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
