// ABOUTME: Permission tier type with ordered integer constants for access comparison.
// ABOUTME: TierOf maps concrete role strings (including demo variants) to a tier.
package access

// Tier represents a permission level. Higher integer values grant more access.
type Tier int

// Tier constants, ordered from least to most privileged. TierNone is the zero
// value and denies everything — unknown roles resolve to it.
const (
	TierNone     Tier = 0
	TierTenant   Tier = 1 // view-only, subject to the tenant-visibility flag
	TierResident Tier = 2 // view + create/edit/delete own resources in own residence
	TierManager  Tier = 3 // full control within owned organizations
	TierAdmin    Tier = 4 // unrestricted
)

// TierOf converts a role string from the database to a Tier. Demo roles behave
// identically to their base role for permission purposes. Unknown or empty
// values map to TierNone (deny-by-default).
func TierOf(role string) Tier {
	switch role {
	case "admin":
		return TierAdmin
	case "manager", "demo_manager":
		return TierManager
	case "resident", "demo_resident":
		return TierResident
	case "tenant", "demo_tenant":
		return TierTenant
	default:
		return TierNone
	}
}

// String returns the canonical role name for the tier.
func (t Tier) String() string {
	switch t {
	case TierAdmin:
		return "admin"
	case TierManager:
		return "manager"
	case TierResident:
		return "resident"
	case TierTenant:
		return "tenant"
	default:
		return "none"
	}
}
