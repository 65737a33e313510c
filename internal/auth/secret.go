package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SecretTokenBytes is the entropy of verification and reset tokens.
const SecretTokenBytes = 32

// SecretTokenLength is the hex-encoded length of a generated token.
const SecretTokenLength = SecretTokenBytes * 2

// GenerateSecretToken returns n random bytes as lower-case hex.
func GenerateSecretToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// TokenHasher computes the keyed digest stored in place of raw reset tokens.
type TokenHasher struct {
	key []byte
}

// NewTokenHasher creates a hasher keyed with key.
func NewTokenHasher(key string) *TokenHasher {
	return &TokenHasher{key: []byte(key)}
}

// Hash returns the hex HMAC-SHA256 of raw.
func (h *TokenHasher) Hash(raw string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches reports whether raw hashes to stored, in constant time.
func (h *TokenHasher) Matches(raw, stored string) bool {
	return hmac.Equal([]byte(h.Hash(raw)), []byte(stored))
}
