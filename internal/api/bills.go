// ABOUTME: HTTP handlers for bills: create, list, read, update, delete.
// ABOUTME: Same resolver gating as documents, plus status lifecycle rules.
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

// createBillBody is the JSON request body for POST /api/v1/bills.
type createBillBody struct {
	ResidenceID      string `json:"residence_id,omitempty"`
	BuildingID       string `json:"building_id,omitempty"`
	Title            string `json:"title"`
	AmountCents      int64  `json:"amount_cents"`
	DueDate          string `json:"due_date"` // YYYY-MM-DD
	VisibleToTenants bool   `json:"visible_to_tenants"`
}

// updateBillBody is the JSON request body for PATCH /api/v1/bills/{id}.
type updateBillBody struct {
	Title            *string `json:"title,omitempty"`
	AmountCents      *int64  `json:"amount_cents,omitempty"`
	DueDate          *string `json:"due_date,omitempty"`
	Status           *string `json:"status,omitempty"`
	VisibleToTenants *bool   `json:"visible_to_tenants,omitempty"`
}

// billResponseBody is the JSON response body for bill endpoints.
type billResponseBody struct {
	BillID           string  `json:"bill_id"`
	ResidenceID      *string `json:"residence_id,omitempty"`
	BuildingID       *string `json:"building_id,omitempty"`
	Title            string  `json:"title"`
	AmountCents      int64   `json:"amount_cents"`
	DueDate          string  `json:"due_date"`
	Status           string  `json:"status"`
	VisibleToTenants bool    `json:"visible_to_tenants"`
	CreatedBy        string  `json:"created_by"`
	CreatedAt        string  `json:"created_at"`
}

func billToResponse(b *store.Bill) billResponseBody {
	out := billResponseBody{
		BillID:           b.ID.String(),
		Title:            b.Title,
		AmountCents:      b.AmountCents,
		DueDate:          b.DueDate.Format("2006-01-02"),
		Status:           b.Status,
		VisibleToTenants: b.VisibleToTenants,
		CreatedBy:        b.CreatedBy.String(),
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
	if b.ResidenceID != nil {
		s := b.ResidenceID.String()
		out.ResidenceID = &s
	}
	if b.BuildingID != nil {
		s := b.BuildingID.String()
		out.BuildingID = &s
	}
	return out
}

func validBillStatus(s string) bool {
	switch s {
	case store.BillStatusUnpaid, store.BillStatusPaid, store.BillStatusOverdue:
		return true
	}
	return false
}

// createBillHandler handles POST /api/v1/bills.
func (srv *Server) createBillHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createBillBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if req.AmountCents <= 0 {
		http.Error(w, "amount_cents must be positive", http.StatusBadRequest)
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		http.Error(w, "due_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	residenceID, buildingID, err := parseScopeFields(req.ResidenceID, req.BuildingID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requester, dir, ok, err := srv.requesterFrom(r)
	if err != nil {
		internalError(w, r, "create bill: build requester", err)
		return
	}
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := srv.store.ExtendDirectory(r.Context(), dir, residenceID, buildingID); err != nil {
		internalError(w, r, "create bill: extend directory", err)
		return
	}

	resource := access.Resource{
		ResidenceID:      residenceID,
		BuildingID:       buildingID,
		VisibleToTenants: req.VisibleToTenants,
		UploadedBy:       userID,
	}
	if done := writeDecision(w, access.CanMutate(dir, resource, requester, access.OpCreate)); done {
		return
	}

	bill, err := srv.store.CreateBill(r.Context(), store.CreateBillParams{
		ResidenceID:      residenceID,
		BuildingID:       buildingID,
		Title:            req.Title,
		AmountCents:      req.AmountCents,
		DueDate:          dueDate,
		VisibleToTenants: req.VisibleToTenants,
		CreatedBy:        userID,
	})
	if err != nil {
		internalError(w, r, "create bill", err)
		return
	}

	writeJSON(w, http.StatusCreated, billToResponse(bill))
}

// listBillsHandler handles GET /api/v1/bills.
// Optional query params: residence_id, building_id, status, limit, offset.
func (srv *Server) listBillsHandler(w http.ResponseWriter, r *http.Request) {
	requester, _, ok, err := srv.requesterFrom(r)
	if err != nil {
		internalError(w, r, "list bills: build requester", err)
		return
	}
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var f store.BillFilter
	if v := r.URL.Query().Get("residence_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "invalid residence_id", http.StatusBadRequest)
			return
		}
		f.ResidenceID = &id
	}
	if v := r.URL.Query().Get("building_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "invalid building_id", http.StatusBadRequest)
			return
		}
		f.BuildingID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		if !validBillStatus(v) {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		f.Status = v
	}
	f.Limit, f.Offset = paginationFromQuery(r)

	bills, err := srv.store.ListBillsFor(r.Context(), requester, f)
	if err != nil {
		internalError(w, r, "list bills", err)
		return
	}

	out := make([]billResponseBody, 0, len(bills))
	for i := range bills {
		out = append(out, billToResponse(&bills[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// visibleBill loads {id} and checks CanView; invisible bills read as nonexistent.
func (srv *Server) visibleBill(w http.ResponseWriter, r *http.Request) (*store.Bill, access.Requester, access.DirectoryMap) {
	requester, dir, ok, err := srv.requesterFrom(r)
	if err != nil {
		internalError(w, r, "get bill: build requester", err)
		return nil, requester, dir
	}
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, requester, dir
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid bill id", http.StatusBadRequest)
		return nil, requester, dir
	}

	bill, err := srv.store.GetBill(r.Context(), id)
	if err != nil {
		internalError(w, r, "get bill", err)
		return nil, requester, dir
	}
	if bill == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, requester, dir
	}
	if err := srv.store.ExtendDirectory(r.Context(), dir, bill.ResidenceID, bill.BuildingID); err != nil {
		internalError(w, r, "get bill: extend directory", err)
		return nil, requester, dir
	}
	if !access.CanView(dir, bill.AccessResource(), requester) {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, requester, dir
	}
	return bill, requester, dir
}

// getBillHandler handles GET /api/v1/bills/{id}.
func (srv *Server) getBillHandler(w http.ResponseWriter, r *http.Request) {
	bill, _, _ := srv.visibleBill(w, r)
	if bill == nil {
		return
	}
	writeJSON(w, http.StatusOK, billToResponse(bill))
}

// updateBillHandler handles PATCH /api/v1/bills/{id}.
func (srv *Server) updateBillHandler(w http.ResponseWriter, r *http.Request) {
	bill, requester, dir := srv.visibleBill(w, r)
	if bill == nil {
		return
	}
	if done := writeDecision(w, access.CanMutate(dir, bill.AccessResource(), requester, access.OpEdit)); done {
		return
	}

	var req updateBillBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	params := store.UpdateBillParams{
		Title:            bill.Title,
		AmountCents:      bill.AmountCents,
		DueDate:          bill.DueDate,
		Status:           bill.Status,
		VisibleToTenants: bill.VisibleToTenants,
	}
	if req.Title != nil {
		if *req.Title == "" {
			http.Error(w, "title cannot be empty", http.StatusBadRequest)
			return
		}
		params.Title = *req.Title
	}
	if req.AmountCents != nil {
		if *req.AmountCents <= 0 {
			http.Error(w, "amount_cents must be positive", http.StatusBadRequest)
			return
		}
		params.AmountCents = *req.AmountCents
	}
	if req.DueDate != nil {
		d, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			http.Error(w, "due_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		params.DueDate = d
	}
	if req.Status != nil {
		if !validBillStatus(*req.Status) {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		params.Status = *req.Status
	}
	if req.VisibleToTenants != nil {
		params.VisibleToTenants = *req.VisibleToTenants
	}

	updated, err := srv.store.UpdateBill(r.Context(), bill.ID, params)
	if err != nil {
		internalError(w, r, "update bill", err)
		return
	}
	if updated == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, billToResponse(updated))
}

// deleteBillHandler handles DELETE /api/v1/bills/{id}.
func (srv *Server) deleteBillHandler(w http.ResponseWriter, r *http.Request) {
	bill, requester, dir := srv.visibleBill(w, r)
	if bill == nil {
		return
	}
	if done := writeDecision(w, access.CanMutate(dir, bill.AccessResource(), requester, access.OpDelete)); done {
		return
	}

	deleted, err := srv.store.DeleteBill(r.Context(), bill.ID)
	if err != nil {
		internalError(w, r, "delete bill", err)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
