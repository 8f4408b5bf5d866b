// ABOUTME: Shared fixtures for store integration tests — a small two-org
// ABOUTME: property tree with one user per role.
package store_test

import (
	"context"
	"testing"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/testutil"
)

// tree is the seeded fixture: org1 > building1 > (unit101, unit102), and an
// unrelated org2 > building2 > unit201 for cross-tenant checks.
type tree struct {
	org1, org2           *store.Organization
	building1, building2 *store.Building
	unit101, unit102     *store.Residence
	unit201              *store.Residence
	admin                *store.User // role admin, no memberships
	manager              *store.User // org1 member
	resident             *store.User // unit101 member
	tenant               *store.User // unit101 member, tenant role
	outsider             *store.User // resident with no memberships
}

func seedTree(t *testing.T, s *testutil.TestDB) *tree {
	t.Helper()
	ctx := context.Background()

	tr := &tree{}
	var err error
	if tr.org1, err = s.CreateOrg(ctx, "Org One"); err != nil {
		t.Fatalf("seed org1: %v", err)
	}
	if tr.org2, err = s.CreateOrg(ctx, "Org Two"); err != nil {
		t.Fatalf("seed org2: %v", err)
	}
	if tr.building1, err = s.CreateBuilding(ctx, tr.org1.ID, store.CreateBuildingParams{
		Name: "Le Plateau", Address: "100 rue Rachel", City: "Montréal", PostalCode: "H2J 2J2",
	}); err != nil {
		t.Fatalf("seed building1: %v", err)
	}
	if tr.building2, err = s.CreateBuilding(ctx, tr.org2.ID, store.CreateBuildingParams{
		Name: "Limoilou", Address: "200 3e Avenue", City: "Québec", PostalCode: "G1L 2M5",
	}); err != nil {
		t.Fatalf("seed building2: %v", err)
	}
	if tr.unit101, err = s.CreateResidence(ctx, tr.building1.ID, "101", nil); err != nil {
		t.Fatalf("seed unit101: %v", err)
	}
	if tr.unit102, err = s.CreateResidence(ctx, tr.building1.ID, "102", nil); err != nil {
		t.Fatalf("seed unit102: %v", err)
	}
	if tr.unit201, err = s.CreateResidence(ctx, tr.building2.ID, "201", nil); err != nil {
		t.Fatalf("seed unit201: %v", err)
	}

	tr.admin = mustUser(t, s, "admin@example.com", "admin")
	tr.manager = mustUser(t, s, "manager@example.com", "manager")
	tr.resident = mustUser(t, s, "resident@example.com", "resident")
	tr.tenant = mustUser(t, s, "tenant@example.com", "tenant")
	tr.outsider = mustUser(t, s, "outsider@example.com", "resident")

	if err := s.AddOrgMember(ctx, tr.org1.ID, tr.manager.ID); err != nil {
		t.Fatalf("seed manager membership: %v", err)
	}
	if err := s.AddResidenceMember(ctx, tr.unit101.ID, tr.resident.ID); err != nil {
		t.Fatalf("seed resident membership: %v", err)
	}
	if err := s.AddResidenceMember(ctx, tr.unit101.ID, tr.tenant.ID); err != nil {
		t.Fatalf("seed tenant membership: %v", err)
	}
	return tr
}

func mustUser(t *testing.T, s *testutil.TestDB, email, role string) *store.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, email, role, "x")
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}
