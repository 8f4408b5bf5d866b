// ABOUTME: Store methods for residences and resident/tenant membership.
// ABOUTME: Residence membership rows are one input to the access resolver's index.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Residence is a residence (unit) row.
type Residence struct {
	ID         uuid.UUID
	BuildingID uuid.UUID
	UnitNumber string
	Floor      *int32
	CreatedAt  time.Time
}

// ResidenceMemberRow is one row of a ListResidenceMembers result.
type ResidenceMemberRow struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
	Role        string
	JoinedAt    time.Time
}

// CreateResidence inserts a residence under the given building.
func (s *Store) CreateResidence(ctx context.Context, buildingID uuid.UUID, unitNumber string, floor *int32) (*Residence, error) {
	var r Residence
	err := s.pool.QueryRow(ctx, `
		INSERT INTO residences (building_id, unit_number, floor)
		VALUES ($1, $2, $3)
		RETURNING id, building_id, unit_number, floor, created_at`,
		buildingID, unitNumber, floor).
		Scan(&r.ID, &r.BuildingID, &r.UnitNumber, &r.Floor, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create residence: %w", err)
	}
	return &r, nil
}

// GetResidence returns the residence, or (nil, nil) if not found.
func (s *Store) GetResidence(ctx context.Context, id uuid.UUID) (*Residence, error) {
	var r Residence
	err := s.pool.QueryRow(ctx, `
		SELECT id, building_id, unit_number, floor, created_at
		FROM residences WHERE id = $1`, id).
		Scan(&r.ID, &r.BuildingID, &r.UnitNumber, &r.Floor, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get residence: %w", err)
	}
	return &r, nil
}

// DeleteResidence removes a residence within a building. Hard delete.
func (s *Store) DeleteResidence(ctx context.Context, buildingID, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM residences WHERE id = $2 AND building_id = $1`, buildingID, id)
	if err != nil {
		return false, fmt.Errorf("delete residence: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListBuildingResidences returns all residences of a building ordered by unit number.
func (s *Store) ListBuildingResidences(ctx context.Context, buildingID uuid.UUID) ([]Residence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, building_id, unit_number, floor, created_at
		FROM residences WHERE building_id = $1
		ORDER BY unit_number`, buildingID)
	if err != nil {
		return nil, fmt.Errorf("list building residences: %w", err)
	}
	defer rows.Close()

	var out []Residence
	for rows.Next() {
		var r Residence
		if err := rows.Scan(&r.ID, &r.BuildingID, &r.UnitNumber, &r.Floor, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan residence: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddResidenceMember associates a user with a residence. Idempotent.
func (s *Store) AddResidenceMember(ctx context.Context, residenceID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO residence_members (residence_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, residenceID, userID); err != nil {
		return fmt.Errorf("add residence member: %w", err)
	}
	return nil
}

// RemoveResidenceMember removes a user from a residence.
func (s *Store) RemoveResidenceMember(ctx context.Context, residenceID, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM residence_members WHERE residence_id = $1 AND user_id = $2`,
		residenceID, userID); err != nil {
		return fmt.Errorf("remove residence member: %w", err)
	}
	return nil
}

// ListResidenceMembers returns all members of a residence with their global role.
func (s *Store) ListResidenceMembers(ctx context.Context, residenceID uuid.UUID) ([]ResidenceMemberRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, u.display_name, u.role, m.created_at
		FROM residence_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.residence_id = $1
		ORDER BY m.created_at`, residenceID)
	if err != nil {
		return nil, fmt.Errorf("list residence members: %w", err)
	}
	defer rows.Close()

	var out []ResidenceMemberRow
	for rows.Next() {
		var r ResidenceMemberRow
		if err := rows.Scan(&r.UserID, &r.Email, &r.DisplayName, &r.Role, &r.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan residence member: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
