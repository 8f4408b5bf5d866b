// ABOUTME: Store methods for documents: CRUD plus list queries whose SQL
// ABOUTME: visibility predicate mirrors the access resolver for the requester.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
)

// Document is a document metadata row. Content lives in blob storage under BlobKey.
type Document struct {
	ID               uuid.UUID
	ResidenceID      *uuid.UUID
	BuildingID       *uuid.UUID
	Title            string
	FileName         string
	ContentType      string
	SizeBytes        int64
	BlobKey          string
	VisibleToTenants bool
	UploadedBy       uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const documentColumns = `id, residence_id, building_id, title, file_name,
	content_type, size_bytes, blob_key, is_visible_to_tenants, uploaded_by,
	created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.ResidenceID, &d.BuildingID, &d.Title, &d.FileName,
		&d.ContentType, &d.SizeBytes, &d.BlobKey, &d.VisibleToTenants,
		&d.UploadedBy, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// AccessResource returns the document's scope-relevant shape for the resolver.
func (d *Document) AccessResource() access.Resource {
	return access.Resource{
		ResidenceID:      d.ResidenceID,
		BuildingID:       d.BuildingID,
		VisibleToTenants: d.VisibleToTenants,
		UploadedBy:       d.UploadedBy,
	}
}

// CreateDocumentParams holds the fields for creating a document.
type CreateDocumentParams struct {
	ResidenceID      *uuid.UUID
	BuildingID       *uuid.UUID
	Title            string
	FileName         string
	ContentType      string
	SizeBytes        int64
	BlobKey          string
	VisibleToTenants bool
	UploadedBy       uuid.UUID
}

// CreateDocument inserts a document metadata row.
func (s *Store) CreateDocument(ctx context.Context, p CreateDocumentParams) (*Document, error) {
	d, err := scanDocument(s.pool.QueryRow(ctx, `
		INSERT INTO documents (residence_id, building_id, title, file_name,
			content_type, size_bytes, blob_key, is_visible_to_tenants, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+documentColumns,
		p.ResidenceID, p.BuildingID, p.Title, p.FileName, p.ContentType,
		p.SizeBytes, p.BlobKey, p.VisibleToTenants, p.UploadedBy))
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return d, nil
}

// GetDocument returns the document, or (nil, nil) if not found.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// UpdateDocumentParams holds the mutable metadata fields.
type UpdateDocumentParams struct {
	Title            string
	VisibleToTenants bool
}

// UpdateDocument updates document metadata. Returns (nil, nil) if not found.
func (s *Store) UpdateDocument(ctx context.Context, id uuid.UUID, p UpdateDocumentParams) (*Document, error) {
	d, err := scanDocument(s.pool.QueryRow(ctx, `
		UPDATE documents
		SET title = $2, is_visible_to_tenants = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+documentColumns,
		id, p.Title, p.VisibleToTenants))
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return d, nil
}

// DeleteDocument removes a document row. Hard delete; the caller removes the
// blob afterwards.
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DocumentFilter narrows a document list query.
type DocumentFilter struct {
	ResidenceID *uuid.UUID
	BuildingID  *uuid.UUID
	Limit       int
	Offset      int
}

// ListDocumentsFor returns the documents visible to req, most recent first.
// The WHERE clause is the SQL mirror of access.CanView so that list endpoints
// never leak rows the per-resource predicate would deny.
func (s *Store) ListDocumentsFor(ctx context.Context, req access.Requester, f DocumentFilter) ([]Document, error) {
	q := sq.Select(
		"d.id", "d.residence_id", "d.building_id", "d.title", "d.file_name",
		"d.content_type", "d.size_bytes", "d.blob_key", "d.is_visible_to_tenants",
		"d.uploaded_by", "d.created_at", "d.updated_at").
		From("documents d").
		LeftJoin("residences r ON r.id = d.residence_id").
		LeftJoin("buildings b ON b.id = COALESCE(d.building_id, r.building_id)").
		OrderBy("d.created_at DESC", "d.id").
		PlaceholderFormat(sq.Dollar)

	if pred, ok := visibilityPredicate(req, "d"); ok {
		q = q.Where(pred)
	} else {
		return nil, nil // deny-all tier: empty result, no query
	}
	if f.ResidenceID != nil {
		q = q.Where(sq.Eq{"d.residence_id": *f.ResidenceID})
	}
	if f.BuildingID != nil {
		q = q.Where(sq.Eq{"d.building_id": *f.BuildingID})
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q = q.Limit(uint64(limit)).Offset(uint64(f.Offset)) //nolint:gosec // G115: bounded above

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build document list query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.ResidenceID, &d.BuildingID, &d.Title,
			&d.FileName, &d.ContentType, &d.SizeBytes, &d.BlobKey,
			&d.VisibleToTenants, &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// visibilityPredicate builds the squirrel WHERE clause matching CanView for
// the requester's tier. alias is the resource table alias; the query must join
// residences as r and buildings as b the way ListDocumentsFor does. ok is
// false when the tier sees nothing at all.
func visibilityPredicate(req access.Requester, alias string) (sq.Sqlizer, bool) {
	switch req.Tier {
	case access.TierAdmin:
		return sq.Expr("TRUE"), true
	case access.TierManager:
		orgs := setToSlice(req.Membership.OrganizationIDs)
		if len(orgs) == 0 {
			return nil, false
		}
		return sq.Eq{"b.org_id": orgs}, true
	case access.TierResident, access.TierTenant:
		residences := setToSlice(req.Membership.ResidenceIDs)
		buildings := setToSlice(req.Membership.BuildingIDs)
		if len(residences) == 0 && len(buildings) == 0 {
			return nil, false
		}
		scope := sq.Or{
			sq.Eq{alias + ".residence_id": residences},
			sq.Eq{alias + ".building_id": buildings},
		}
		if req.Tier == access.TierTenant {
			return sq.And{scope, sq.Eq{alias + ".is_visible_to_tenants": true}}, true
		}
		return scope, true
	default:
		return nil, false
	}
}

func setToSlice(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
