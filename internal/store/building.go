// ABOUTME: Store methods for buildings and residences — the property hierarchy
// ABOUTME: beneath an organization. Every residence belongs to exactly one building.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Building is a building row.
type Building struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	Name       string
	Address    string
	City       string
	Province   string
	PostalCode string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const buildingColumns = `id, org_id, name, address, city, province, postal_code,
	created_at, updated_at`

func scanBuilding(row pgx.Row) (*Building, error) {
	var b Building
	err := row.Scan(&b.ID, &b.OrgID, &b.Name, &b.Address, &b.City, &b.Province,
		&b.PostalCode, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBuildingParams holds the fields for creating a building.
type CreateBuildingParams struct {
	Name       string
	Address    string
	City       string
	Province   string
	PostalCode string
}

// CreateBuilding inserts a building under the given org.
func (s *Store) CreateBuilding(ctx context.Context, orgID uuid.UUID, p CreateBuildingParams) (*Building, error) {
	province := p.Province
	if province == "" {
		province = "QC"
	}
	b, err := scanBuilding(s.pool.QueryRow(ctx, `
		INSERT INTO buildings (org_id, name, address, city, province, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+buildingColumns,
		orgID, p.Name, p.Address, p.City, province, p.PostalCode))
	if err != nil {
		return nil, fmt.Errorf("create building: %w", err)
	}
	return b, nil
}

// GetBuilding returns the building, or (nil, nil) if not found.
func (s *Store) GetBuilding(ctx context.Context, id uuid.UUID) (*Building, error) {
	b, err := scanBuilding(s.pool.QueryRow(ctx,
		`SELECT `+buildingColumns+` FROM buildings WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get building: %w", err)
	}
	return b, nil
}

// UpdateBuilding updates the mutable building fields. Returns (nil, nil) if
// the building does not exist in the given org.
func (s *Store) UpdateBuilding(ctx context.Context, orgID, id uuid.UUID, p CreateBuildingParams) (*Building, error) {
	b, err := scanBuilding(s.pool.QueryRow(ctx, `
		UPDATE buildings
		SET name = $3, address = $4, city = $5, province = $6, postal_code = $7,
			updated_at = now()
		WHERE id = $2 AND org_id = $1
		RETURNING `+buildingColumns,
		orgID, id, p.Name, p.Address, p.City, p.Province, p.PostalCode))
	if err != nil {
		return nil, fmt.Errorf("update building: %w", err)
	}
	return b, nil
}

// DeleteBuilding removes a building (and, via cascade, its residences,
// memberships, and scoped resources). Hard delete.
func (s *Store) DeleteBuilding(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM buildings WHERE id = $2 AND org_id = $1`, orgID, id)
	if err != nil {
		return false, fmt.Errorf("delete building: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListOrgBuildings returns all buildings of an org ordered by name.
func (s *Store) ListOrgBuildings(ctx context.Context, orgID uuid.UUID) ([]Building, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+buildingColumns+` FROM buildings WHERE org_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list org buildings: %w", err)
	}
	defer rows.Close()

	var out []Building
	for rows.Next() {
		var b Building
		if err := rows.Scan(&b.ID, &b.OrgID, &b.Name, &b.Address, &b.City,
			&b.Province, &b.PostalCode, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
