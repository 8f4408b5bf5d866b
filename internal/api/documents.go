// ABOUTME: HTTP handlers for document upload, listing, download, and metadata
// ABOUTME: mutation. Every operation is gated by the visibility resolver.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/blob"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
)

// documentResponseBody is the JSON response body for document endpoints.
type documentResponseBody struct {
	DocumentID       string  `json:"document_id"`
	ResidenceID      *string `json:"residence_id,omitempty"`
	BuildingID       *string `json:"building_id,omitempty"`
	Title            string  `json:"title"`
	FileName         string  `json:"file_name"`
	ContentType      string  `json:"content_type"`
	SizeBytes        int64   `json:"size_bytes"`
	VisibleToTenants bool    `json:"visible_to_tenants"`
	UploadedBy       string  `json:"uploaded_by"`
	CreatedAt        string  `json:"created_at"`
}

// updateDocumentBody is the JSON request body for PATCH /api/v1/documents/{id}.
type updateDocumentBody struct {
	Title            *string `json:"title,omitempty"`
	VisibleToTenants *bool   `json:"visible_to_tenants,omitempty"`
}

func documentToResponse(d *store.Document) documentResponseBody {
	out := documentResponseBody{
		DocumentID:       d.ID.String(),
		Title:            d.Title,
		FileName:         d.FileName,
		ContentType:      d.ContentType,
		SizeBytes:        d.SizeBytes,
		VisibleToTenants: d.VisibleToTenants,
		UploadedBy:       d.UploadedBy.String(),
		CreatedAt:        d.CreatedAt.Format(time.RFC3339),
	}
	if d.ResidenceID != nil {
		s := d.ResidenceID.String()
		out.ResidenceID = &s
	}
	if d.BuildingID != nil {
		s := d.BuildingID.String()
		out.BuildingID = &s
	}
	return out
}

// parseScopeFields reads the residence_id / building_id form fields. Exactly
// one must be set.
func parseScopeFields(residence, building string) (*uuid.UUID, *uuid.UUID, error) {
	var residenceID, buildingID *uuid.UUID
	if residence != "" {
		id, err := uuid.Parse(residence)
		if err != nil {
			return nil, nil, errors.New("invalid residence_id")
		}
		residenceID = &id
	}
	if building != "" {
		id, err := uuid.Parse(building)
		if err != nil {
			return nil, nil, errors.New("invalid building_id")
		}
		buildingID = &id
	}
	if (residenceID == nil) == (buildingID == nil) {
		return nil, nil, errors.New("exactly one of residence_id or building_id is required")
	}
	return residenceID, buildingID, nil
}

// owningOrgFor resolves the org that owns the given scope through the
// directory. Returns false when the chain is broken (dangling scope).
func owningOrgFor(dir access.DirectoryMap, residenceID, buildingID *uuid.UUID) (uuid.UUID, bool) {
	bID := uuid.Nil
	if buildingID != nil {
		bID = *buildingID
	} else if residenceID != nil {
		b, ok := dir.BuildingForResidence(*residenceID)
		if !ok {
			return uuid.Nil, false
		}
		bID = b
	}
	return dir.OrganizationForBuilding(bID)
}

// uploadDocumentHandler handles POST /api/v1/documents.
// Multipart form: file (required), title, residence_id XOR building_id,
// visible_to_tenants. Size capped at DOCUMENT_MAX_SIZE_BYTES.
func (srv *Server) uploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, srv.cfg.DocumentMaxSizeBytes)
	// 4 MB in memory; larger parts spill to temp files.
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	residenceID, buildingID, err := parseScopeFields(
		r.FormValue("residence_id"), r.FormValue("building_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	visibleToTenants := r.FormValue("visible_to_tenants") == "true"

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	requester, dir, ok, err := srv.requesterFrom(r)
	if err != nil {
		internalError(w, r, "upload document: build requester", err)
		return
	}
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := srv.store.ExtendDirectory(r.Context(), dir, residenceID, buildingID); err != nil {
		internalError(w, r, "upload document: extend directory", err)
		return
	}

	resource := access.Resource{
		ResidenceID:      residenceID,
		BuildingID:       buildingID,
		VisibleToTenants: visibleToTenants,
		UploadedBy:       userID,
	}
	if done := writeDecision(w, access.CanMutate(dir, resource, requester, access.OpCreate)); done {
		return
	}

	orgID, ok := owningOrgFor(dir, residenceID, buildingID)
	if !ok {
		// Scope does not resolve to an org: the target does not exist.
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := blob.NewKey(orgID, header.Filename)
	size, err := srv.blobs.Put(r.Context(), key, file)
	if err != nil {
		internalError(w, r, "upload document: store blob", err)
		return
	}

	doc, err := srv.store.CreateDocument(r.Context(), store.CreateDocumentParams{
		ResidenceID:      residenceID,
		BuildingID:       buildingID,
		Title:            title,
		FileName:         header.Filename,
		ContentType:      contentType,
		SizeBytes:        size,
		BlobKey:          key,
		VisibleToTenants: visibleToTenants,
		UploadedBy:       userID,
	})
	if err != nil {
		// Roll back the orphaned blob; best effort.
		_ = srv.blobs.Delete(r.Context(), key)
		internalError(w, r, "upload document: create row", err)
		return
	}

	writeJSON(w, http.StatusCreated, documentToResponse(doc))
}

// listDocumentsHandler handles GET /api/v1/documents.
// Optional query params: residence_id, building_id, limit, offset.
func (srv *Server) listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	requester, _, ok, err := srv.requesterFrom(r)
	if err != nil {
		internalError(w, r, "list documents: build requester", err)
		return
	}
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter, err := documentFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	docs, err := srv.store.ListDocumentsFor(r.Context(), requester, filter)
	if err != nil {
		internalError(w, r, "list documents", err)
		return
	}

	out := make([]documentResponseBody, 0, len(docs))
	for i := range docs {
		out = append(out, documentToResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func documentFilterFromQuery(r *http.Request) (store.DocumentFilter, error) {
	var f store.DocumentFilter
	if v := r.URL.Query().Get("residence_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid residence_id")
		}
		f.ResidenceID = &id
	}
	if v := r.URL.Query().Get("building_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid building_id")
		}
		f.BuildingID = &id
	}
	f.Limit, f.Offset = paginationFromQuery(r)
	return f, nil
}

// paginationFromQuery parses limit/offset with sane bounds.
func paginationFromQuery(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// visibleDocument loads {id} and checks CanView. Invisible documents read as
// nonexistent: the 404 never confirms the row exists.
func (srv *Server) visibleDocument(w http.ResponseWriter, r *http.Request) (*store.Document, access.Requester, access.DirectoryMap) {
	requester, dir, ok, err := srv.requesterFrom(r)
	if err != nil {
		internalError(w, r, "get document: build requester", err)
		return nil, requester, dir
	}
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, requester, dir
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return nil, requester, dir
	}

	doc, err := srv.store.GetDocument(r.Context(), id)
	if err != nil {
		internalError(w, r, "get document", err)
		return nil, requester, dir
	}
	if doc == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, requester, dir
	}
	if err := srv.store.ExtendDirectory(r.Context(), dir, doc.ResidenceID, doc.BuildingID); err != nil {
		internalError(w, r, "get document: extend directory", err)
		return nil, requester, dir
	}
	if !access.CanView(dir, doc.AccessResource(), requester) {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, requester, dir
	}
	return doc, requester, dir
}

// getDocumentHandler handles GET /api/v1/documents/{id}.
func (srv *Server) getDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, _, _ := srv.visibleDocument(w, r)
	if doc == nil {
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// downloadDocumentHandler handles GET /api/v1/documents/{id}/download.
// Streams the blob with the original file name and content type.
func (srv *Server) downloadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, _, _ := srv.visibleDocument(w, r)
	if doc == nil {
		return
	}

	rc, err := srv.blobs.Get(r.Context(), doc.BlobKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// Metadata row exists but the blob is gone.
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		internalError(w, r, "download document", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		// Headers already sent; nothing to do but log.
		slog.ErrorContext(r.Context(), "download document: stream", "error", err)
	}
}

// updateDocumentHandler handles PATCH /api/v1/documents/{id}.
func (srv *Server) updateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, requester, dir := srv.visibleDocument(w, r)
	if doc == nil {
		return
	}
	if done := writeDecision(w, access.CanMutate(dir, doc.AccessResource(), requester, access.OpEdit)); done {
		return
	}

	var req updateDocumentBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	params := store.UpdateDocumentParams{
		Title:            doc.Title,
		VisibleToTenants: doc.VisibleToTenants,
	}
	if req.Title != nil {
		if *req.Title == "" {
			http.Error(w, "title cannot be empty", http.StatusBadRequest)
			return
		}
		params.Title = *req.Title
	}
	if req.VisibleToTenants != nil {
		params.VisibleToTenants = *req.VisibleToTenants
	}

	updated, err := srv.store.UpdateDocument(r.Context(), doc.ID, params)
	if err != nil {
		internalError(w, r, "update document", err)
		return
	}
	if updated == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(updated))
}

// deleteDocumentHandler handles DELETE /api/v1/documents/{id}.
// Deletes the metadata row first, then the blob; a failed blob delete leaves
// an orphan rather than a dangling row.
func (srv *Server) deleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, requester, dir := srv.visibleDocument(w, r)
	if doc == nil {
		return
	}
	if done := writeDecision(w, access.CanMutate(dir, doc.AccessResource(), requester, access.OpDelete)); done {
		return
	}

	deleted, err := srv.store.DeleteDocument(r.Context(), doc.ID)
	if err != nil {
		internalError(w, r, "delete document", err)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := srv.blobs.Delete(r.Context(), doc.BlobKey); err != nil {
		internalError(w, r, "delete document: remove blob", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
