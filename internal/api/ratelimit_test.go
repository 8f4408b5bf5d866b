// ABOUTME: Tests for the per-IP auth rate limiter: burst exhaustion returns
// ABOUTME: 429 with a Retry-After header.
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/testutil"
)

func TestAuthRateLimitExhaustion(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ts := newTestServer(t, db)
	c := newClient(t)

	// Burst is 10; the 11th rapid request must be limited. Malformed bodies
	// still count — the limiter runs before any handler.
	var got429 bool
	for i := 0; i < 11; i++ {
		resp := doJSON(t, ctx, c, http.MethodPost, ts.URL+"/api/v1/auth/login", `{}`)
		if resp.StatusCode == http.StatusTooManyRequests {
			if resp.Header.Get("Retry-After") == "" {
				t.Error("429 response missing Retry-After header")
			}
			got429 = true
			resp.Body.Close() //nolint:errcheck
			break
		}
		resp.Body.Close() //nolint:errcheck
	}
	if !got429 {
		t.Error("rate limiter never returned 429 after burst exhaustion")
	}

	// Non-auth routes are not subject to the auth limiter.
	resp := doJSON(t, ctx, c, http.MethodGet, ts.URL+"/healthz", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz after 429: got %d, want 200", resp.StatusCode)
	}
}
