// ABOUTME: Integration tests for the feature request board handlers:
// ABOUTME: submission, per-user listing, admin triage, and deletion rules.
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/testutil"
)

func TestFeatureRequestBoard(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)

	admin, _ := setupAdmin(t, ctx, ts)
	user := newClient(t)
	registerAndLogin(t, ctx, ts, user, "user@example.com", "password123")

	// Submit.
	resp := doJSON(t, ctx, user, http.MethodPost, ts.URL+"/api/v1/feature-requests",
		`{"title":"Paiements prélevés automatiquement","description":"Prélever les frais de condo par virement"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: got %d, want 201", resp.StatusCode)
	}
	var fr struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	decodeBody(t, resp, &fr)
	if fr.Status != "submitted" {
		t.Errorf("new request status = %q, want submitted", fr.Status)
	}

	// The submitter sees their own request.
	resp = doJSON(t, ctx, user, http.MethodGet, ts.URL+"/api/v1/feature-requests", "")
	var mine []struct {
		RequestID string `json:"request_id"`
	}
	decodeBody(t, resp, &mine)
	if len(mine) != 1 || mine[0].RequestID != fr.RequestID {
		t.Errorf("own list = %+v", mine)
	}

	// Another user sees nothing.
	other := newClient(t)
	registerAndLogin(t, ctx, ts, other, "other@example.com", "password123")
	resp = doJSON(t, ctx, other, http.MethodGet, ts.URL+"/api/v1/feature-requests", "")
	var theirs []struct{}
	decodeBody(t, resp, &theirs)
	if len(theirs) != 0 {
		t.Errorf("other user saw %d foreign requests", len(theirs))
	}

	// Non-admin triage is rejected.
	resp = doJSON(t, ctx, user, http.MethodPatch, ts.URL+"/api/v1/feature-requests/"+fr.RequestID,
		`{"status":"planned"}`)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin triage: got %d, want 403", resp.StatusCode)
	}

	// Admin triage with note.
	resp = doJSON(t, ctx, admin, http.MethodPatch, ts.URL+"/api/v1/feature-requests/"+fr.RequestID,
		`{"status":"planned","admin_note":"Prévu pour T3"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin triage: got %d, want 200", resp.StatusCode)
	}
	var triaged struct {
		Status    string  `json:"status"`
		AdminNote *string `json:"admin_note"`
	}
	decodeBody(t, resp, &triaged)
	if triaged.Status != "planned" || triaged.AdminNote == nil || *triaged.AdminNote != "Prévu pour T3" {
		t.Errorf("triaged = %+v", triaged)
	}

	// Bogus status is rejected.
	resp = doJSON(t, ctx, admin, http.MethodPatch, ts.URL+"/api/v1/feature-requests/"+fr.RequestID,
		`{"status":"someday"}`)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid status: got %d, want 400", resp.StatusCode)
	}

	// A stranger cannot delete it; the owner can.
	resp = doJSON(t, ctx, other, http.MethodDelete, ts.URL+"/api/v1/feature-requests/"+fr.RequestID, "")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign delete: got %d, want 404", resp.StatusCode)
	}
	resp = doJSON(t, ctx, user, http.MethodDelete, ts.URL+"/api/v1/feature-requests/"+fr.RequestID, "")
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("owner delete: got %d, want 204", resp.StatusCode)
	}
}

func TestAdminSeesAllFeatureRequests(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)

	admin, _ := setupAdmin(t, ctx, ts)
	user := newClient(t)
	registerAndLogin(t, ctx, ts, user, "submitter@example.com", "password123")

	resp := doJSON(t, ctx, user, http.MethodPost, ts.URL+"/api/v1/feature-requests",
		`{"title":"Mode sombre","description":""}`)
	resp.Body.Close() //nolint:errcheck

	resp = doJSON(t, ctx, admin, http.MethodGet, ts.URL+"/api/v1/feature-requests", "")
	var all []struct {
		Title string `json:"title"`
	}
	decodeBody(t, resp, &all)
	if len(all) != 1 || all[0].Title != "Mode sombre" {
		t.Errorf("admin list = %+v", all)
	}

	// Status filter.
	resp = doJSON(t, ctx, admin, http.MethodGet, ts.URL+"/api/v1/feature-requests?status=done", "")
	var done []struct{}
	decodeBody(t, resp, &done)
	if len(done) != 0 {
		t.Errorf("status=done list = %d rows, want 0", len(done))
	}
}
