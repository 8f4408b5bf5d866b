// ABOUTME: Tests for local blob storage — round trips, missing keys, and key
// ABOUTME: sanitization.
package blob_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/blob"
)

func TestLocalPutGetDelete(t *testing.T) {
	t.Parallel()
	l, err := blob.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	key := blob.NewKey(uuid.New(), "bail.pdf")
	n, err := l.Put(ctx, key, strings.NewReader("contents"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len("contents")) {
		t.Errorf("Put wrote %d bytes, want %d", n, len("contents"))
	}

	rc, err := l.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close() //nolint:errcheck
	if string(got) != "contents" {
		t.Errorf("Get = %q, want %q", got, "contents")
	}

	if err := l.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := l.Get(ctx, key); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	// Deleting again is a no-op.
	if err := l.Delete(ctx, key); err != nil {
		t.Errorf("Delete (again): %v", err)
	}
}

func TestLocalGet_Missing(t *testing.T) {
	t.Parallel()
	l, _ := blob.NewLocal(t.TempDir())
	if _, err := l.Get(context.Background(), "prod_org_x/missing"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()
	l, _ := blob.NewLocal(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"../escape", "/etc/passwd", "..", "a/../../b"} {
		if _, err := l.Put(ctx, key, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) should reject escaping key", key)
		}
	}
}

func TestNewKey_Shape(t *testing.T) {
	t.Parallel()
	orgID := uuid.New()

	key := blob.NewKey(orgID, "lease agreement.pdf")
	if !strings.HasPrefix(key, "prod_org_"+orgID.String()+"/") {
		t.Errorf("key %q missing org prefix", key)
	}
	if !strings.HasSuffix(key, "_lease agreement.pdf") {
		t.Errorf("key %q missing file name", key)
	}

	// Path components in uploaded names are stripped.
	key = blob.NewKey(orgID, "../../etc/passwd")
	if strings.Contains(key, "..") {
		t.Errorf("key %q retains traversal sequence", key)
	}
	if !strings.HasSuffix(key, "_passwd") {
		t.Errorf("key %q should keep base name only", key)
	}

	// Two uploads of the same name never collide.
	if blob.NewKey(orgID, "a.pdf") == blob.NewKey(orgID, "a.pdf") {
		t.Error("keys for identical names should differ")
	}
}
