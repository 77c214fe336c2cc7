package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the hex sha256 of a token string. Only the hash of a refresh token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
