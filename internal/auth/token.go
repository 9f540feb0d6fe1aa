package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// NewRawToken returns 32 bytes of cryptographically secure randomness in
// URL-safe encoding. Used for JWT IDs and for out-of-band reset/verification
// tokens.
func NewRawToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken digests a raw out-of-band token for storage. Only the digest is
// persisted; the raw value travels once, inside the emailed link.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
