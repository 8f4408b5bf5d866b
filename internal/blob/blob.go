// ABOUTME: Blob storage for document files. Keys are namespaced per
// ABOUTME: organization as prod_org_<orgID>/<uuid>_<filename>.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no blob exists under the given key.
var ErrNotFound = errors.New("blob not found")

// Storage stores and retrieves document blobs by key.
type Storage interface {
	// Put writes the blob and returns the number of bytes stored.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Get opens the blob for reading. Returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey builds a fresh storage key for a file uploaded under an organization.
// The per-upload UUID keeps same-named files from colliding.
func NewKey(orgID uuid.UUID, fileName string) string {
	return fmt.Sprintf("prod_org_%s/%s_%s", orgID, uuid.New(), sanitizeFileName(fileName))
}

// sanitizeFileName strips path separators and traversal sequences so a key
// never escapes its org prefix.
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "..", "")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	return name
}
