// ABOUTME: Shared helpers for API integration tests: test server construction,
// ABOUTME: cookie-jar clients, and register/login shortcuts.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/blob"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/config"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/testutil"
)

// newTestServer creates a full Server + httptest.Server backed by the test DB
// and a temp-dir blob store.
func newTestServer(t *testing.T, db *testutil.TestDB) *httptest.Server {
	t.Helper()
	cfg := &config.Config{ //nolint:exhaustruct // test: only relevant fields set
		JWTSecret:            "apitestsecret",
		Argon2MaxConcurrent:  5,
		DocumentMaxSizeBytes: 1 << 20,
		InvitationTTLHours:   168,
		ExternalURL:          "http://localhost:8080",
	}
	blobs, err := blob.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("blob.NewLocal: %v", err)
	}
	srv := NewServer(db.Store, cfg, blobs)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// newClient returns an HTTP client with a cookie jar so auth cookies persist
// across requests, mimicking a browser session.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// doJSON issues a JSON request with the given client and returns the response.
// Caller must close the body.
func doJSON(t *testing.T, ctx context.Context, c *http.Client, method, url, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

// decodeBody decodes the response body into v and closes it.
func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// registerAndLogin registers a user through the API and logs them in on the
// given client, returning the new user's ID.
func registerAndLogin(t *testing.T, ctx context.Context, ts *httptest.Server, c *http.Client, email, password string) uuid.UUID {
	t.Helper()
	resp := doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/register",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: got %d, want 201", email, resp.StatusCode)
	}
	var reg struct {
		UserID string `json:"user_id"`
	}
	decodeBody(t, resp, &reg)
	userID, err := uuid.Parse(reg.UserID)
	if err != nil {
		t.Fatalf("parse user_id: %v", err)
	}

	resp = doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/login",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: got %d, want 200", email, resp.StatusCode)
	}
	return userID
}

// uploadDocument posts a multipart document upload and returns the response.
// fields carries the non-file form fields; content is the file body.
func uploadDocument(t *testing.T, ctx context.Context, c *http.Client, url string, fields map[string]string, fileName, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file content: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("new upload request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	return resp
}
