// ABOUTME: Opaque invitation token generation for org/residence invitations.
// ABOUTME: Tokens are URL-safe random strings stored verbatim (single use, short lived).
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewInvitationToken returns a 256-bit URL-safe random token.
func NewInvitationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
