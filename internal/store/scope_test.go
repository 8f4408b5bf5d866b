// ABOUTME: Integration tests for store/scope.go — building requesters and
// ABOUTME: directory snapshots out of live membership rows.
package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/testutil"
)

func TestBuildRequester_Resident(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	req, dir, err := s.BuildRequester(ctx, tr.resident.ID)
	if err != nil {
		t.Fatalf("BuildRequester: %v", err)
	}
	if req.Tier != access.TierResident {
		t.Errorf("Tier = %v, want TierResident", req.Tier)
	}
	if !req.Membership.HasResidence(tr.unit101.ID) {
		t.Error("resident should hold unit101 membership")
	}
	if !req.Membership.HasBuilding(tr.building1.ID) {
		t.Error("resident should hold derived building1 membership")
	}
	if req.Membership.HasResidence(tr.unit201.ID) {
		t.Error("resident must not hold foreign residence membership")
	}

	// The snapshot directory resolves the resident's own chain.
	if b, ok := dir.BuildingForResidence(tr.unit101.ID); !ok || b != tr.building1.ID {
		t.Errorf("BuildingForResidence(unit101) = %v, %v", b, ok)
	}
	if o, ok := dir.OrganizationForBuilding(tr.building1.ID); !ok || o != tr.org1.ID {
		t.Errorf("OrganizationForBuilding(building1) = %v, %v", o, ok)
	}
}

func TestBuildRequester_Manager(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	req, _, err := s.BuildRequester(ctx, tr.manager.ID)
	if err != nil {
		t.Fatalf("BuildRequester: %v", err)
	}
	if req.Tier != access.TierManager {
		t.Errorf("Tier = %v, want TierManager", req.Tier)
	}
	if !req.Membership.HasOrganization(tr.org1.ID) {
		t.Error("manager should hold org1 membership")
	}
	if req.Membership.HasOrganization(tr.org2.ID) {
		t.Error("manager must not hold org2 membership")
	}
}

func TestBuildRequester_UnknownUser(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	req, _, err := s.BuildRequester(ctx, uuid.New())
	if err != nil {
		t.Fatalf("BuildRequester: %v", err)
	}
	if req.Tier != access.TierNone {
		t.Errorf("Tier for unknown user = %v, want TierNone", req.Tier)
	}
}

func TestExtendDirectory_ResolvesResourceChain(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	tr := seedTree(t, s)
	ctx := context.Background()

	// The resident's snapshot knows nothing about org2's tree until a
	// resource in that tree is looked at.
	_, dir, err := s.BuildRequester(ctx, tr.resident.ID)
	if err != nil {
		t.Fatalf("BuildRequester: %v", err)
	}
	if _, ok := dir.BuildingForResidence(tr.unit201.ID); ok {
		t.Fatal("snapshot should not contain foreign residence before ExtendDirectory")
	}

	if err := s.ExtendDirectory(ctx, dir, &tr.unit201.ID, nil); err != nil {
		t.Fatalf("ExtendDirectory: %v", err)
	}
	if b, ok := dir.BuildingForResidence(tr.unit201.ID); !ok || b != tr.building2.ID {
		t.Errorf("BuildingForResidence(unit201) = %v, %v after extend", b, ok)
	}
	if o, ok := dir.OrganizationForBuilding(tr.building2.ID); !ok || o != tr.org2.ID {
		t.Errorf("OrganizationForBuilding(building2) = %v, %v after extend", o, ok)
	}

	// Dangling references extend nothing and do not error.
	missing := uuid.New()
	if err := s.ExtendDirectory(ctx, dir, &missing, nil); err != nil {
		t.Fatalf("ExtendDirectory(dangling): %v", err)
	}
	if _, ok := dir.BuildingForResidence(missing); ok {
		t.Error("dangling residence must not appear in directory")
	}
}
