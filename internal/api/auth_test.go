// ABOUTME: Integration tests for auth HTTP handlers (register, login, refresh, me).
// ABOUTME: Uses real Postgres via testutil.NewTestDB and the full srv.Handler() stack.
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/testutil"
)

// cookieValue extracts the value of a named cookie from an HTTP response.
// Returns "" if not found.
func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	c := newClient(t)

	resp := doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/register",
		`{"email":"first@example.com","password":"password123","display_name":"First"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first registration: got %d, want 201", resp.StatusCode)
	}
	var first struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	decodeBody(t, resp, &first)
	if first.Role != "admin" {
		t.Errorf("first user role = %q, want admin", first.Role)
	}

	resp = doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/register",
		`{"email":"second@example.com","password":"password123"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("second registration: got %d, want 201", resp.StatusCode)
	}
	var second struct {
		Role string `json:"role"`
	}
	decodeBody(t, resp, &second)
	if second.Role != "tenant" {
		t.Errorf("second user role = %q, want tenant", second.Role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	c := newClient(t)

	body := `{"email":"dup@example.com","password":"password123"}`
	resp := doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/register", body)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first registration: got %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/register", body)
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate registration: got %d, want 409", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	c := newClient(t)

	registerAndLogin(t, ctx, ts, c, "wrongpw@example.com", "password123")

	resp := doJSON(t, ctx, newClient(t), http.MethodPost, ts.URL+"/api/v1/auth/login",
		`{"email":"wrongpw@example.com","password":"notthepassword"}`)
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password login: got %d, want 401", resp.StatusCode)
	}
}

func TestLoginSetsAuthCookies(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	c := newClient(t)

	resp := doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/register",
		`{"email":"cookies@example.com","password":"password123"}`)
	resp.Body.Close() //nolint:errcheck

	resp = doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/login",
		`{"email":"cookies@example.com","password":"password123"}`)
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: got %d, want 200", resp.StatusCode)
	}
	if cookieValue(resp, "access_token") == "" {
		t.Error("access_token cookie not set")
	}
	if cookieValue(resp, "refresh_token") == "" {
		t.Error("refresh_token cookie not set")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	c := newClient(t)

	registerAndLogin(t, ctx, ts, c, "refresh@example.com", "password123")

	resp := doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/refresh", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: got %d, want 200", resp.StatusCode)
	}
	newRefresh := cookieValue(resp, "refresh_token")
	if newRefresh == "" {
		t.Fatal("refresh did not set a new refresh_token cookie")
	}

	// The jar now carries the rotated token; a second refresh also works.
	resp2 := doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/refresh", "")
	resp2.Body.Close() //nolint:errcheck
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("second refresh: got %d, want 200", resp2.StatusCode)
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)

	resp := doJSON(t, ctx, newClient(t), http.MethodPost, ts.URL+"/api/v1/auth/refresh", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("refresh without cookie: got %d, want 401", resp.StatusCode)
	}
}

func TestMeReturnsProfile(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	c := newClient(t)

	userID := registerAndLogin(t, ctx, ts, c, "me@example.com", "password123")

	resp := doJSON(t, ctx, c, http.MethodGet, ts.URL+"/api/v1/auth/me", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: got %d, want 200", resp.StatusCode)
	}
	var me struct {
		UserID   string `json:"user_id"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Language string `json:"language"`
	}
	decodeBody(t, resp, &me)
	if me.UserID != userID.String() {
		t.Errorf("me user_id = %q, want %q", me.UserID, userID)
	}
	if me.Email != "me@example.com" {
		t.Errorf("me email = %q, want me@example.com", me.Email)
	}
	if me.Language != "fr" {
		t.Errorf("me language = %q, want fr (default)", me.Language)
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)

	resp := doJSON(t, ctx, newClient(t), http.MethodGet, ts.URL+"/api/v1/documents", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated list documents: got %d, want 401", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ts := newTestServer(t, db)

	resp, err := http.Get(ts.URL + "/healthz") //nolint:noctx
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: got %d, want 200", resp.StatusCode)
	}
}
