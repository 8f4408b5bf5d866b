// ABOUTME: Integration tests for document upload/download and bill endpoints,
// ABOUTME: exercising the resolver's tier and tenant-visibility gating over HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/testutil"
)

// propertyFixture is a seeded org/building/residence with an admin client and
// resident and tenant clients scoped to the residence.
type propertyFixture struct {
	admin       *http.Client
	resident    *http.Client
	tenant      *http.Client
	orgID       uuid.UUID
	buildingID  uuid.UUID
	residenceID uuid.UUID
}

func seedProperty(t *testing.T, ctx context.Context, ts *httptest.Server, db *testutil.TestDB) propertyFixture {
	t.Helper()
	admin, _ := setupAdmin(t, ctx, ts)
	orgID := createOrgVia(t, ctx, ts, admin, "Org A")

	building, err := db.CreateBuilding(ctx, orgID, store.CreateBuildingParams{
		Name:    "Le Plateau",
		Address: "123 rue Principale",
		City:    "Montréal",
	})
	if err != nil {
		t.Fatalf("create building: %v", err)
	}
	res, err := db.CreateResidence(ctx, building.ID, "101", nil)
	if err != nil {
		t.Fatalf("create residence: %v", err)
	}

	resident := newClient(t)
	residentID := registerAndLogin(t, ctx, ts, resident, "resident@example.com", "password123")
	if _, err := db.UpdateUserRole(ctx, residentID, "resident"); err != nil {
		t.Fatalf("set resident role: %v", err)
	}

	tenant := newClient(t)
	tenantID := registerAndLogin(t, ctx, ts, tenant, "tenant@example.com", "password123")

	for _, id := range []uuid.UUID{residentID, tenantID} {
		if err := db.AddOrgMember(ctx, orgID, id); err != nil {
			t.Fatalf("add org member: %v", err)
		}
		if err := db.AddResidenceMember(ctx, res.ID, id); err != nil {
			t.Fatalf("add residence member: %v", err)
		}
	}

	return propertyFixture{
		admin:       admin,
		resident:    resident,
		tenant:      tenant,
		orgID:       orgID,
		buildingID:  building.ID,
		residenceID: res.ID,
	}
}

func TestDocumentUploadAndDownload(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	fx := seedProperty(t, ctx, ts, db)

	resp := uploadDocument(t, ctx, fx.admin, ts.URL+"/api/v1/documents", map[string]string{
		"residence_id":       fx.residenceID.String(),
		"title":              "Bail 2026",
		"visible_to_tenants": "true",
	}, "bail-2026.pdf", "lease contents")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: got %d, want 201", resp.StatusCode)
	}
	var doc struct {
		DocumentID string `json:"document_id"`
		Title      string `json:"title"`
		SizeBytes  int64  `json:"size_bytes"`
	}
	decodeBody(t, resp, &doc)
	if doc.Title != "Bail 2026" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.SizeBytes != int64(len("lease contents")) {
		t.Errorf("size_bytes = %d", doc.SizeBytes)
	}

	// The tenant in the residence can download a tenant-visible document.
	resp = doJSON(t, ctx, fx.tenant, http.MethodGet,
		ts.URL+"/api/v1/documents/"+doc.DocumentID+"/download", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: got %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(body) != "lease contents" {
		t.Errorf("downloaded body = %q", body)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="bail-2026.pdf"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestDocumentHiddenFromTenants(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	fx := seedProperty(t, ctx, ts, db)

	resp := uploadDocument(t, ctx, fx.admin, ts.URL+"/api/v1/documents", map[string]string{
		"residence_id":       fx.residenceID.String(),
		"title":              "Notes internes",
		"visible_to_tenants": "false",
	}, "notes.txt", "private")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: got %d, want 201", resp.StatusCode)
	}
	var doc struct {
		DocumentID string `json:"document_id"`
	}
	decodeBody(t, resp, &doc)

	// Tenant: 404, never 403 — the document must read as nonexistent.
	resp = doJSON(t, ctx, fx.tenant, http.MethodGet, ts.URL+"/api/v1/documents/"+doc.DocumentID, "")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("tenant get hidden doc: got %d, want 404", resp.StatusCode)
	}

	// Tenant list excludes it.
	resp = doJSON(t, ctx, fx.tenant, http.MethodGet, ts.URL+"/api/v1/documents", "")
	var tenantList []struct{}
	decodeBody(t, resp, &tenantList)
	if len(tenantList) != 0 {
		t.Errorf("tenant saw %d hidden documents", len(tenantList))
	}

	// Resident in the same residence sees it regardless of the flag.
	resp = doJSON(t, ctx, fx.resident, http.MethodGet, ts.URL+"/api/v1/documents/"+doc.DocumentID, "")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Errorf("resident get hidden doc: got %d, want 200", resp.StatusCode)
	}
}

func TestResidentCannotDeleteManagerDocument(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	fx := seedProperty(t, ctx, ts, db)

	resp := uploadDocument(t, ctx, fx.admin, ts.URL+"/api/v1/documents", map[string]string{
		"residence_id":       fx.residenceID.String(),
		"title":              "Règlements",
		"visible_to_tenants": "true",
	}, "reglements.pdf", "rules")
	var doc struct {
		DocumentID string `json:"document_id"`
	}
	decodeBody(t, resp, &doc)

	// The resident can see it but cannot delete someone else's upload.
	resp = doJSON(t, ctx, fx.resident, http.MethodDelete, ts.URL+"/api/v1/documents/"+doc.DocumentID, "")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("resident delete: got %d, want 403", resp.StatusCode)
	}
}

func TestBillTenantVisibilityOverHTTP(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	fx := seedProperty(t, ctx, ts, db)

	resp := doJSON(t, ctx, fx.admin, http.MethodPost, ts.URL+"/api/v1/bills", fmt.Sprintf(
		`{"residence_id":%q,"title":"Frais de condo mars","amount_cents":125000,"due_date":"2026-03-01","visible_to_tenants":false}`,
		fx.residenceID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create bill: got %d, want 201", resp.StatusCode)
	}
	var bill struct {
		BillID string `json:"bill_id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &bill)
	if bill.Status != "unpaid" {
		t.Errorf("new bill status = %q, want unpaid", bill.Status)
	}

	// Hidden from the tenant; visible to the resident.
	resp = doJSON(t, ctx, fx.tenant, http.MethodGet, ts.URL+"/api/v1/bills/"+bill.BillID, "")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("tenant get hidden bill: got %d, want 404", resp.StatusCode)
	}
	resp = doJSON(t, ctx, fx.resident, http.MethodGet, ts.URL+"/api/v1/bills/"+bill.BillID, "")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Errorf("resident get hidden bill: got %d, want 200", resp.StatusCode)
	}

	// Manager-tier update: mark paid.
	resp = doJSON(t, ctx, fx.admin, http.MethodPatch, ts.URL+"/api/v1/bills/"+bill.BillID,
		`{"status":"paid"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch bill: got %d, want 200", resp.StatusCode)
	}
	decodeBody(t, resp, &bill)
	if bill.Status != "paid" {
		t.Errorf("patched status = %q, want paid", bill.Status)
	}

	// The tenant cannot mutate bills at all, even in a scope they can see.
	resp = doJSON(t, ctx, fx.tenant, http.MethodPost, ts.URL+"/api/v1/bills", fmt.Sprintf(
		`{"residence_id":%q,"title":"x","amount_cents":100,"due_date":"2026-04-01","visible_to_tenants":true}`,
		fx.residenceID))
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("tenant create bill: got %d, want 403", resp.StatusCode)
	}
}

func TestUploadRequiresExactlyOneScope(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	fx := seedProperty(t, ctx, ts, db)

	// Neither scope.
	resp := uploadDocument(t, ctx, fx.admin, ts.URL+"/api/v1/documents", map[string]string{
		"title": "orphan",
	}, "orphan.txt", "x")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("no scope upload: got %d, want 400", resp.StatusCode)
	}

	// Both scopes.
	resp = uploadDocument(t, ctx, fx.admin, ts.URL+"/api/v1/documents", map[string]string{
		"residence_id": fx.residenceID.String(),
		"building_id":  fx.buildingID.String(),
	}, "both.txt", "x")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("double scope upload: got %d, want 400", resp.StatusCode)
	}
}
