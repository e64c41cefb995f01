package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a filesystem- and object-key-safe identifier for s,
// used to derive storage keys from URLs and run ids.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
