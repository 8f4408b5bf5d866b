// ABOUTME: Bridge between persistence and the access resolver: membership rows
// ABOUTME: and residence→building→organization scope chains as pure snapshots.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
)

// ResidenceScope is one residence membership resolved through its parents.
type ResidenceScope struct {
	ResidenceID uuid.UUID
	BuildingID  uuid.UUID
	OrgID       uuid.UUID
}

// ListUserResidenceScopes returns, for each residence the user belongs to, the
// residence together with its building and organization. The joins guarantee
// only fully resolvable residences appear.
func (s *Store) ListUserResidenceScopes(ctx context.Context, userID uuid.UUID) ([]ResidenceScope, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rm.residence_id, r.building_id, b.org_id
		FROM residence_members rm
		JOIN residences r ON r.id = rm.residence_id
		JOIN buildings b ON b.id = r.building_id
		WHERE rm.user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user residence scopes: %w", err)
	}
	defer rows.Close()

	var out []ResidenceScope
	for rows.Next() {
		var r ResidenceScope
		if err := rows.Scan(&r.ResidenceID, &r.BuildingID, &r.OrgID); err != nil {
			return nil, fmt.Errorf("scan residence scope: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BuildRequester assembles the access.Requester for userID: global role tier
// plus the membership index, recomputed per request (no caching). An unknown
// userID yields a deny-all requester, never an error.
func (s *Store) BuildRequester(ctx context.Context, userID uuid.UUID) (access.Requester, access.DirectoryMap, error) {
	dir := access.DirectoryMap{
		ResidenceBuildings: make(map[uuid.UUID]uuid.UUID),
		BuildingOrgs:       make(map[uuid.UUID]uuid.UUID),
	}
	req := access.Requester{UserID: userID, Membership: access.NewMembership()}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return req, dir, err
	}
	if user == nil {
		return req, dir, nil // deny-by-default: TierNone, empty sets
	}
	req.Tier = access.TierOf(user.Role)

	scopes, err := s.ListUserResidenceScopes(ctx, userID)
	if err != nil {
		return req, dir, err
	}
	residenceIDs := make([]uuid.UUID, 0, len(scopes))
	for _, sc := range scopes {
		residenceIDs = append(residenceIDs, sc.ResidenceID)
		dir.ResidenceBuildings[sc.ResidenceID] = sc.BuildingID
		dir.BuildingOrgs[sc.BuildingID] = sc.OrgID
	}

	orgIDs, err := s.ListUserOrgIDs(ctx, userID)
	if err != nil {
		return req, dir, err
	}

	req.Membership = access.BuildMembership(dir, residenceIDs, orgIDs)
	return req, dir, nil
}

// ExtendDirectory augments dir with the scope chain of a single resource, so
// the resolver can walk residence→building→organization for resources outside
// the requester's own memberships. Dangling references add nothing, which the
// resolver reads as not found.
func (s *Store) ExtendDirectory(ctx context.Context, dir access.DirectoryMap, residenceID, buildingID *uuid.UUID) error {
	if residenceID != nil {
		var bID, oID uuid.UUID
		err := s.pool.QueryRow(ctx, `
			SELECT r.building_id, b.org_id
			FROM residences r
			JOIN buildings b ON b.id = r.building_id
			WHERE r.id = $1`, *residenceID).Scan(&bID, &oID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// dangling residence reference
		case err != nil:
			return fmt.Errorf("resolve residence scope: %w", err)
		default:
			dir.ResidenceBuildings[*residenceID] = bID
			dir.BuildingOrgs[bID] = oID
		}
	}
	if buildingID != nil {
		var oID uuid.UUID
		err := s.pool.QueryRow(ctx,
			`SELECT org_id FROM buildings WHERE id = $1`, *buildingID).Scan(&oID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// dangling building reference
		case err != nil:
			return fmt.Errorf("resolve building scope: %w", err)
		default:
			dir.BuildingOrgs[*buildingID] = oID
		}
	}
	return nil
}
