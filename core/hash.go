package core

import (
	"encoding/hex"
	"fmt"
)

// Hash is a 32-byte SHA-256 commitment. It encodes as lowercase hex in JSON.
type Hash [32]byte

// IsZero reports whether h is the all-zero hash (no commitment stored).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := HashFromHex(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashFromHex decodes a 64-char hex string.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}
