// ABOUTME: Store methods for organizations and manager membership.
// ABOUTME: Manager scope — the org_members relation — feeds the access resolver.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Organization is an organization row.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrgMemberRow is one row of a ListOrgMembers result.
type OrgMemberRow struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
	Role        string
	JoinedAt    time.Time
}

// CreateOrg inserts a new organization row.
func (s *Store) CreateOrg(ctx context.Context, name string) (*Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx, `
		INSERT INTO organizations (name) VALUES ($1)
		RETURNING id, name, created_at, updated_at`, name).
		Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create org: %w", err)
	}
	return &o, nil
}

// GetOrgByID returns the org with the given ID, or (nil, nil) if not found.
func (s *Store) GetOrgByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get org by id: %w", err)
	}
	return &o, nil
}

// UpdateOrg updates the org name. Returns (nil, nil) if the org is not found.
func (s *Store) UpdateOrg(ctx context.Context, id uuid.UUID, name string) (*Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx, `
		UPDATE organizations SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, created_at, updated_at`, id, name).
		Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update org: %w", err)
	}
	return &o, nil
}

// AddOrgMember adds a user to an org's manager membership. Idempotent.
func (s *Store) AddOrgMember(ctx context.Context, orgID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO org_members (org_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, orgID, userID); err != nil {
		return fmt.Errorf("add org member: %w", err)
	}
	return nil
}

// RemoveOrgMember removes userID from orgID.
func (s *Store) RemoveOrgMember(ctx context.Context, orgID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM org_members WHERE org_id = $1 AND user_id = $2`,
		orgID, userID); err != nil {
		return fmt.Errorf("remove org member: %w", err)
	}
	return nil
}

// IsOrgMember reports whether userID belongs to orgID.
func (s *Store) IsOrgMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM org_members WHERE org_id = $1 AND user_id = $2)`,
		orgID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is org member: %w", err)
	}
	return exists, nil
}

// ListOrgMembers returns all members of an org with their global role,
// ordered by join time.
func (s *Store) ListOrgMembers(ctx context.Context, orgID uuid.UUID) ([]OrgMemberRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, u.display_name, u.role, m.created_at
		FROM org_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id = $1
		ORDER BY m.created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list org members: %w", err)
	}
	defer rows.Close()

	var out []OrgMemberRow
	for rows.Next() {
		var r OrgMemberRow
		if err := rows.Scan(&r.UserID, &r.Email, &r.DisplayName, &r.Role, &r.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan org member: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListUserOrgIDs returns the IDs of all orgs the user belongs to.
func (s *Store) ListUserOrgIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT org_id FROM org_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user org ids: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan org id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListOrgs returns every organization ordered by name. Admin surface only.
func (s *Store) ListOrgs(ctx context.Context) ([]Organization, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list orgs: %w", err)
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan org: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
