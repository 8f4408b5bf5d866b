package access

import "testing"

func TestTierOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role string
		want Tier
	}{
		{"admin", TierAdmin},
		{"manager", TierManager},
		{"resident", TierResident},
		{"tenant", TierTenant},
		// Demo roles behave identically to their base role.
		{"demo_manager", TierManager},
		{"demo_resident", TierResident},
		{"demo_tenant", TierTenant},
		// Anything unrecognized denies.
		{"", TierNone},
		{"superuser", TierNone},
		{"Manager", TierNone},
	}
	for _, tc := range cases {
		if got := TierOf(tc.role); got != tc.want {
			t.Errorf("TierOf(%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestTierOrdering(t *testing.T) {
	t.Parallel()

	// The middleware compares tiers numerically; the ordering is load-bearing.
	if !(TierNone < TierTenant && TierTenant < TierResident &&
		TierResident < TierManager && TierManager < TierAdmin) {
		t.Error("tier constants are not strictly ordered")
	}
}
