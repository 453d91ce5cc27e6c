package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint builds the cache key for a (message, response type) pair.
//
// The message is lowercased and trimmed so that cosmetic differences still hit,
// then hashed together with the type hint using SHA-256.
func Fingerprint(message, typeHint string) string {
	normalized := strings.ToLower(strings.TrimSpace(message)) + ":" + strings.TrimSpace(typeHint)

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// shortKey trims a fingerprint for log lines.
func shortKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8]
}
