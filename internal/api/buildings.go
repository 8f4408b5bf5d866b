// ABOUTME: HTTP handlers for the property hierarchy: buildings, residences,
// ABOUTME: and residence member assignment. All org-scoped via RequireOrgManager.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
)

// buildingBody is the JSON request body for building create/update.
type buildingBody struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
}

// buildingResponseBody is the JSON response body for building read endpoints.
type buildingResponseBody struct {
	BuildingID string `json:"building_id"`
	OrgID      string `json:"org_id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	CreatedAt  string `json:"created_at"`
}

// residenceBody is the JSON request body for residence creation.
type residenceBody struct {
	UnitNumber string `json:"unit_number"`
	Floor      *int32 `json:"floor,omitempty"`
}

// residenceResponseBody is the JSON response body for residence read endpoints.
type residenceResponseBody struct {
	ResidenceID string `json:"residence_id"`
	BuildingID  string `json:"building_id"`
	UnitNumber  string `json:"unit_number"`
	Floor       *int32 `json:"floor,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func buildingToResponse(b *store.Building) buildingResponseBody {
	return buildingResponseBody{
		BuildingID: b.ID.String(),
		OrgID:      b.OrgID.String(),
		Name:       b.Name,
		Address:    b.Address,
		City:       b.City,
		Province:   b.Province,
		PostalCode: b.PostalCode,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

func residenceToResponse(res *store.Residence) residenceResponseBody {
	return residenceResponseBody{
		ResidenceID: res.ID.String(),
		BuildingID:  res.BuildingID.String(),
		UnitNumber:  res.UnitNumber,
		Floor:       res.Floor,
		CreatedAt:   res.CreatedAt.Format(time.RFC3339),
	}
}

// orgBuilding loads the building from the URL and verifies it belongs to the
// org the middleware authorized. Writes the error response itself; callers
// bail out when it returns nil.
func (srv *Server) orgBuilding(w http.ResponseWriter, r *http.Request) *store.Building {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil
	}
	buildingID, err := uuid.Parse(chi.URLParam(r, "building_id"))
	if err != nil {
		http.Error(w, "invalid building_id", http.StatusBadRequest)
		return nil
	}
	building, err := srv.store.GetBuilding(r.Context(), buildingID)
	if err != nil {
		internalError(w, r, "get building", err)
		return nil
	}
	// Cross-org building IDs read as nonexistent.
	if building == nil || building.OrgID != orgID {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}
	return building
}

// ── Buildings ─────────────────────────────────────────────────────────────────

// createBuildingHandler handles POST /api/v1/orgs/{org_id}/buildings.
func (srv *Server) createBuildingHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req buildingBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Address == "" {
		http.Error(w, "name and address are required", http.StatusBadRequest)
		return
	}

	building, err := srv.store.CreateBuilding(r.Context(), orgID, store.CreateBuildingParams{
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		Province:   req.Province,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		internalError(w, r, "create building", err)
		return
	}

	writeJSON(w, http.StatusCreated, buildingToResponse(building))
}

// listBuildingsHandler handles GET /api/v1/orgs/{org_id}/buildings.
func (srv *Server) listBuildingsHandler(w http.ResponseWriter, r *http.Request) {
	orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	buildings, err := srv.store.ListOrgBuildings(r.Context(), orgID)
	if err != nil {
		internalError(w, r, "list buildings", err)
		return
	}

	out := make([]buildingResponseBody, 0, len(buildings))
	for i := range buildings {
		out = append(out, buildingToResponse(&buildings[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// getBuildingHandler handles GET /api/v1/orgs/{org_id}/buildings/{building_id}.
func (srv *Server) getBuildingHandler(w http.ResponseWriter, r *http.Request) {
	building := srv.orgBuilding(w, r)
	if building == nil {
		return
	}
	writeJSON(w, http.StatusOK, buildingToResponse(building))
}

// updateBuildingHandler handles PATCH /api/v1/orgs/{org_id}/buildings/{building_id}.
func (srv *Server) updateBuildingHandler(w http.ResponseWriter, r *http.Request) {
	building := srv.orgBuilding(w, r)
	if building == nil {
		return
	}

	var req buildingBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// Absent fields keep their current values.
	if req.Name == "" {
		req.Name = building.Name
	}
	if req.Address == "" {
		req.Address = building.Address
	}
	if req.City == "" {
		req.City = building.City
	}
	if req.Province == "" {
		req.Province = building.Province
	}
	if req.PostalCode == "" {
		req.PostalCode = building.PostalCode
	}

	updated, err := srv.store.UpdateBuilding(r.Context(), building.OrgID, building.ID, store.CreateBuildingParams{
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		Province:   req.Province,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		internalError(w, r, "update building", err)
		return
	}
	if updated == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, buildingToResponse(updated))
}

// deleteBuildingHandler handles DELETE /api/v1/orgs/{org_id}/buildings/{building_id}.
// Residences, memberships, and attached documents cascade in the database.
func (srv *Server) deleteBuildingHandler(w http.ResponseWriter, r *http.Request) {
	building := srv.orgBuilding(w, r)
	if building == nil {
		return
	}

	deleted, err := srv.store.DeleteBuilding(r.Context(), building.OrgID, building.ID)
	if err != nil {
		internalError(w, r, "delete building", err)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ── Residences ────────────────────────────────────────────────────────────────

// createResidenceHandler handles POST .../buildings/{building_id}/residences.
func (srv *Server) createResidenceHandler(w http.ResponseWriter, r *http.Request) {
	building := srv.orgBuilding(w, r)
	if building == nil {
		return
	}

	var req residenceBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UnitNumber == "" {
		http.Error(w, "unit_number is required", http.StatusBadRequest)
		return
	}

	res, err := srv.store.CreateResidence(r.Context(), building.ID, req.UnitNumber, req.Floor)
	if err != nil {
		if pgErrCode(err) == "23505" {
			http.Error(w, "unit number already exists in this building", http.StatusConflict)
			return
		}
		internalError(w, r, "create residence", err)
		return
	}

	writeJSON(w, http.StatusCreated, residenceToResponse(res))
}

// listResidencesHandler handles GET .../buildings/{building_id}/residences.
func (srv *Server) listResidencesHandler(w http.ResponseWriter, r *http.Request) {
	building := srv.orgBuilding(w, r)
	if building == nil {
		return
	}

	residences, err := srv.store.ListBuildingResidences(r.Context(), building.ID)
	if err != nil {
		internalError(w, r, "list residences", err)
		return
	}

	out := make([]residenceResponseBody, 0, len(residences))
	for i := range residences {
		out = append(out, residenceToResponse(&residences[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// deleteResidenceHandler handles DELETE .../residences/{residence_id}.
func (srv *Server) deleteResidenceHandler(w http.ResponseWriter, r *http.Request) {
	building := srv.orgBuilding(w, r)
	if building == nil {
		return
	}
	residenceID, err := uuid.Parse(chi.URLParam(r, "residence_id"))
	if err != nil {
		http.Error(w, "invalid residence_id", http.StatusBadRequest)
		return
	}

	deleted, err := srv.store.DeleteResidence(r.Context(), building.ID, residenceID)
	if err != nil {
		internalError(w, r, "delete residence", err)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ── Residence members ─────────────────────────────────────────────────────────

// orgResidence resolves {residence_id} within the already-verified building.
func (srv *Server) orgResidence(w http.ResponseWriter, r *http.Request) *store.Residence {
	building := srv.orgBuilding(w, r)
	if building == nil {
		return nil
	}
	residenceID, err := uuid.Parse(chi.URLParam(r, "residence_id"))
	if err != nil {
		http.Error(w, "invalid residence_id", http.StatusBadRequest)
		return nil
	}
	res, err := srv.store.GetResidence(r.Context(), residenceID)
	if err != nil {
		internalError(w, r, "get residence", err)
		return nil
	}
	if res == nil || res.BuildingID != building.ID {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}
	return res
}

// listResidenceMembersHandler handles GET .../residences/{residence_id}/members.
func (srv *Server) listResidenceMembersHandler(w http.ResponseWriter, r *http.Request) {
	res := srv.orgResidence(w, r)
	if res == nil {
		return
	}

	members, err := srv.store.ListResidenceMembers(r.Context(), res.ID)
	if err != nil {
		internalError(w, r, "list residence members", err)
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

// addResidenceMemberHandler handles POST .../residences/{residence_id}/members/{user_id}.
// Also grants org membership so the resolver sees a consistent scope chain.
func (srv *Server) addResidenceMemberHandler(w http.ResponseWriter, r *http.Request) {
	res := srv.orgResidence(w, r)
	if res == nil {
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	user, err := srv.store.GetUserByID(r.Context(), userID)
	if err != nil {
		internalError(w, r, "add residence member: get user", err)
		return
	}
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	if err := srv.store.AddResidenceMember(r.Context(), res.ID, userID); err != nil {
		internalError(w, r, "add residence member", err)
		return
	}
	if orgID, ok := r.Context().Value(ctxOrgID).(uuid.UUID); ok {
		if err := srv.store.AddOrgMember(r.Context(), orgID, userID); err != nil {
			internalError(w, r, "add residence member: org membership", err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// removeResidenceMemberHandler handles DELETE .../residences/{residence_id}/members/{user_id}.
// Org membership is left intact; the user may belong to other residences.
func (srv *Server) removeResidenceMemberHandler(w http.ResponseWriter, r *http.Request) {
	res := srv.orgResidence(w, r)
	if res == nil {
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	if err := srv.store.RemoveResidenceMember(r.Context(), res.ID, userID); err != nil {
		internalError(w, r, "remove residence member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
