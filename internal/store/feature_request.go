// ABOUTME: Store methods for feature requests: users submit and follow their
// ABOUTME: own, admins triage the full queue.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Feature request statuses.
const (
	FeatureStatusSubmitted  = "submitted"
	FeatureStatusPlanned    = "planned"
	FeatureStatusInProgress = "in_progress"
	FeatureStatusDone       = "done"
	FeatureStatusDeclined   = "declined"
)

// ValidFeatureStatus reports whether s is a known triage status.
func ValidFeatureStatus(s string) bool {
	switch s {
	case FeatureStatusSubmitted, FeatureStatusPlanned, FeatureStatusInProgress,
		FeatureStatusDone, FeatureStatusDeclined:
		return true
	}
	return false
}

// FeatureRequest is a user-submitted product suggestion.
type FeatureRequest struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	Status      string
	AdminNote   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const featureRequestColumns = `id, user_id, title, description, status,
	admin_note, created_at, updated_at`

func scanFeatureRequest(row pgx.Row) (*FeatureRequest, error) {
	var fr FeatureRequest
	err := row.Scan(&fr.ID, &fr.UserID, &fr.Title, &fr.Description,
		&fr.Status, &fr.AdminNote, &fr.CreatedAt, &fr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// CreateFeatureRequest inserts a new request in the submitted status.
func (s *Store) CreateFeatureRequest(ctx context.Context, userID uuid.UUID, title, description string) (*FeatureRequest, error) {
	fr, err := scanFeatureRequest(s.pool.QueryRow(ctx, `
		INSERT INTO feature_requests (user_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING `+featureRequestColumns,
		userID, title, description))
	if err != nil {
		return nil, fmt.Errorf("create feature request: %w", err)
	}
	return fr, nil
}

// GetFeatureRequest returns the request, or (nil, nil) if not found.
func (s *Store) GetFeatureRequest(ctx context.Context, id uuid.UUID) (*FeatureRequest, error) {
	fr, err := scanFeatureRequest(s.pool.QueryRow(ctx,
		`SELECT `+featureRequestColumns+` FROM feature_requests WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get feature request: %w", err)
	}
	return fr, nil
}

// ListUserFeatureRequests returns one user's requests, newest first.
func (s *Store) ListUserFeatureRequests(ctx context.Context, userID uuid.UUID) ([]FeatureRequest, error) {
	return s.listFeatureRequests(ctx, `
		SELECT `+featureRequestColumns+`
		FROM feature_requests WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
}

// ListFeatureRequests returns the full queue for admin triage, optionally
// filtered by status.
func (s *Store) ListFeatureRequests(ctx context.Context, status string) ([]FeatureRequest, error) {
	if status != "" {
		return s.listFeatureRequests(ctx, `
			SELECT `+featureRequestColumns+`
			FROM feature_requests WHERE status = $1
			ORDER BY created_at DESC`, status)
	}
	return s.listFeatureRequests(ctx, `
		SELECT `+featureRequestColumns+`
		FROM feature_requests
		ORDER BY created_at DESC`)
}

func (s *Store) listFeatureRequests(ctx context.Context, query string, args ...any) ([]FeatureRequest, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feature requests: %w", err)
	}
	defer rows.Close()

	var out []FeatureRequest
	for rows.Next() {
		var fr FeatureRequest
		if err := rows.Scan(&fr.ID, &fr.UserID, &fr.Title, &fr.Description,
			&fr.Status, &fr.AdminNote, &fr.CreatedAt, &fr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan feature request: %w", err)
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

// TriageFeatureRequest sets status and admin note. Returns (nil, nil) if not found.
func (s *Store) TriageFeatureRequest(ctx context.Context, id uuid.UUID, status string, adminNote *string) (*FeatureRequest, error) {
	fr, err := scanFeatureRequest(s.pool.QueryRow(ctx, `
		UPDATE feature_requests
		SET status = $2, admin_note = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+featureRequestColumns,
		id, status, adminNote))
	if err != nil {
		return nil, fmt.Errorf("triage feature request: %w", err)
	}
	return fr, nil
}

// DeleteFeatureRequest removes a request, scoped to its submitter. Admins pass
// the row's own user ID to bypass the scoping.
func (s *Store) DeleteFeatureRequest(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM feature_requests WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete feature request: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
