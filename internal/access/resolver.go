// Package access implements the resource visibility resolver: given a user's
// permission tier and membership index, it decides which residence- or
// building-scoped resources (documents, bills) the user may see and mutate.
//
// The resolver is pure. All persistence lookups happen before evaluation: the
// caller fetches the membership rows and the scope chain for the candidate
// resource, then calls CanView or CanMutate with a Directory snapshot. Denial
// is a normal return value, never an error, and evaluation has no hidden
// state — calling twice with identical inputs yields identical results.
package access

import "github.com/google/uuid"

// Operation is a mutating operation gated by CanMutate.
type Operation int

// Mutating operations. View access is checked separately via CanView.
const (
	OpCreate Operation = iota
	OpEdit
	OpDelete
)

// Reason distinguishes why a mutation was denied, so the HTTP layer can pick
// 404 vs 403 semantics.
type Reason string

const (
	// ReasonNotFound means the resource's scope chain does not resolve, or the
	// requester cannot see the resource at all. Surfaced as 404 so that denied
	// requesters cannot probe for existence.
	ReasonNotFound Reason = "not_found"
	// ReasonForbidden means the scope resolves and the resource is visible,
	// but the tier/ownership rule denies the operation. Surfaced as 403.
	ReasonForbidden Reason = "forbidden"
)

// Resource is the scope-relevant shape of a document, bill, or similarly
// scoped entity. Exactly one of ResidenceID and BuildingID is normally set; a
// resource with neither is malformed and denied for everyone below admin.
type Resource struct {
	ResidenceID      *uuid.UUID
	BuildingID       *uuid.UUID
	VisibleToTenants bool
	UploadedBy       uuid.UUID
}

// Requester identifies the user evaluating access.
type Requester struct {
	UserID     uuid.UUID
	Tier       Tier
	Membership Membership
}

// Decision is the outcome of an operation gate check.
type Decision struct {
	Allowed bool
	Reason  Reason // empty when Allowed
}

var (
	allowed  = Decision{Allowed: true}
	notFound = Decision{Reason: ReasonNotFound}
	denied   = Decision{Reason: ReasonForbidden}
)

// CanView reports whether req may view res. Rules are ordered; the first match
// wins:
//
//  1. admin — always.
//  2. manager — the resource's owning building's organization is one the
//     requester manages.
//  3. resident — the resource is attached to one of the requester's residences,
//     or attached at building level to one of their buildings.
//  4. tenant — same as resident, but the resource must also be flagged visible
//     to tenants.
//
// Everything else, including a resource whose scope chain dangles, is denied.
func CanView(dir Directory, res Resource, req Requester) bool {
	switch req.Tier {
	case TierAdmin:
		return true
	case TierManager:
		org, ok := owningOrganization(dir, res)
		return ok && req.Membership.HasOrganization(org)
	case TierResident:
		return residentScoped(res, req.Membership)
	case TierTenant:
		return res.VisibleToTenants && residentScoped(res, req.Membership)
	default:
		return false
	}
}

// CanMutate decides whether req may perform op on res, assuming res either
// exists (edit/delete) or describes the scope of a resource about to exist
// (create). View access is a precondition for mutation: a requester who
// cannot see the resource gets not_found rather than forbidden.
func CanMutate(dir Directory, res Resource, req Requester, op Operation) Decision {
	if req.Tier == TierAdmin {
		return allowed
	}
	if _, ok := owningOrganization(dir, res); !ok {
		return notFound
	}
	if !CanView(dir, res, req) {
		return notFound
	}

	switch req.Tier {
	case TierManager:
		// Visibility for a manager already proves org scope.
		return allowed
	case TierResident:
		if op == OpCreate {
			// Residents create only inside their own residence; building-level
			// resources are manager territory.
			if res.ResidenceID != nil && req.Membership.HasResidence(*res.ResidenceID) {
				return allowed
			}
			return denied
		}
		if res.UploadedBy == req.UserID {
			return allowed
		}
		return denied
	default:
		// Tenants (and anything below) are view-only.
		return denied
	}
}

// owningOrganization resolves res to its organization through the
// residence → building → organization chain. ok is false when the resource has
// no scope at all or any link in the chain dangles.
func owningOrganization(dir Directory, res Resource) (uuid.UUID, bool) {
	buildingID := uuid.Nil
	switch {
	case res.ResidenceID != nil:
		b, ok := dir.BuildingForResidence(*res.ResidenceID)
		if !ok {
			return uuid.Nil, false
		}
		buildingID = b
	case res.BuildingID != nil:
		buildingID = *res.BuildingID
	default:
		return uuid.Nil, false
	}
	return dir.OrganizationForBuilding(buildingID)
}

// residentScoped reports whether res falls inside m's residence or building
// scope. Dangling resource references simply fail to match the index.
func residentScoped(res Resource, m Membership) bool {
	if res.ResidenceID != nil && m.HasResidence(*res.ResidenceID) {
		return true
	}
	if res.BuildingID != nil && m.HasBuilding(*res.BuildingID) {
		return true
	}
	return false
}
