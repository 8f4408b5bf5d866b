// ABOUTME: Membership index — the set of residences, buildings, and organizations
// ABOUTME: a user belongs to, derived fresh per request from persistence rows.
package access

import "github.com/google/uuid"

// Directory resolves the residence → building → organization scope chain.
// Implementations are read-only snapshots; a false second return value marks a
// dangling reference, which the resolver treats as not found.
type Directory interface {
	BuildingForResidence(residenceID uuid.UUID) (uuid.UUID, bool)
	OrganizationForBuilding(buildingID uuid.UUID) (uuid.UUID, bool)
}

// DirectoryMap is a map-backed Directory. The API layer populates one per
// request from the store before invoking the resolver.
type DirectoryMap struct {
	// ResidenceBuildings maps residence ID to its parent building ID.
	ResidenceBuildings map[uuid.UUID]uuid.UUID
	// BuildingOrgs maps building ID to its owning organization ID.
	BuildingOrgs map[uuid.UUID]uuid.UUID
}

// BuildingForResidence implements Directory.
func (d DirectoryMap) BuildingForResidence(residenceID uuid.UUID) (uuid.UUID, bool) {
	b, ok := d.ResidenceBuildings[residenceID]
	return b, ok
}

// OrganizationForBuilding implements Directory.
func (d DirectoryMap) OrganizationForBuilding(buildingID uuid.UUID) (uuid.UUID, bool) {
	o, ok := d.BuildingOrgs[buildingID]
	return o, ok
}

// Membership is the per-user scope index: the residences the user lives in,
// the buildings those residences belong to, and the organizations the user
// manages. Empty sets deny everything, so an unknown user needs no special
// handling anywhere downstream.
type Membership struct {
	ResidenceIDs    map[uuid.UUID]struct{}
	BuildingIDs     map[uuid.UUID]struct{}
	OrganizationIDs map[uuid.UUID]struct{}
}

// NewMembership returns an empty Membership with all sets allocated.
func NewMembership() Membership {
	return Membership{
		ResidenceIDs:    make(map[uuid.UUID]struct{}),
		BuildingIDs:     make(map[uuid.UUID]struct{}),
		OrganizationIDs: make(map[uuid.UUID]struct{}),
	}
}

// BuildMembership derives a Membership from raw membership rows. Building IDs
// are computed by resolving each residence through dir; residences with a
// dangling building reference contribute no building (and therefore grant no
// building-level access).
func BuildMembership(dir Directory, residenceIDs, organizationIDs []uuid.UUID) Membership {
	m := NewMembership()
	for _, r := range residenceIDs {
		m.ResidenceIDs[r] = struct{}{}
		if b, ok := dir.BuildingForResidence(r); ok {
			m.BuildingIDs[b] = struct{}{}
		}
	}
	for _, o := range organizationIDs {
		m.OrganizationIDs[o] = struct{}{}
	}
	return m
}

// HasResidence reports whether residenceID is in the index.
func (m Membership) HasResidence(residenceID uuid.UUID) bool {
	_, ok := m.ResidenceIDs[residenceID]
	return ok
}

// HasBuilding reports whether buildingID is in the index.
func (m Membership) HasBuilding(buildingID uuid.UUID) bool {
	_, ok := m.BuildingIDs[buildingID]
	return ok
}

// HasOrganization reports whether organizationID is in the index.
func (m Membership) HasOrganization(organizationID uuid.UUID) bool {
	_, ok := m.OrganizationIDs[organizationID]
	return ok
}
