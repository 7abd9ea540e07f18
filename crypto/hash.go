package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the SHA-256 hash of data as a lowercase hex string.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Commitment returns sha256(seed), the value an RNG provider publishes before
// revealing seed.
func Commitment(seed string) [32]byte {
	return sha256.Sum256([]byte(seed))
}
