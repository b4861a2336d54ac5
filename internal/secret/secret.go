// Package secret generates and verifies the HTLC secret/secret-hash pair
// shared by the hbit and herc20 primitives.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Size is the length in bytes of both the secret and its hash.
const Size = 32

// Secret is the 32-byte preimage Alice reveals on redeem.
type Secret [Size]byte

// Hash is SHA256(Secret), the value both HTLCs are locked to.
type Hash [Size]byte

// Generate produces a new cryptographically random secret.
func Generate() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return Secret{}, fmt.Errorf("generate secret: %w", err)
	}
	return s, nil
}

// HashOf computes the secret hash for a secret.
func HashOf(s Secret) Hash {
	return Hash(sha256.Sum256(s[:]))
}

// Verify reports whether preimage hashes to want, in constant time.
func Verify(preimage Secret, want Hash) bool {
	got := HashOf(preimage)
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

func (s Secret) String() string { return hex.EncodeToString(s[:]) }
func (h Hash) String() string   { return hex.EncodeToString(h[:]) }

func (s Secret) Bytes() []byte { return s[:] }
func (h Hash) Bytes() []byte   { return h[:] }

// ParseSecret decodes a hex-encoded 32-byte secret.
func ParseSecret(s string) (Secret, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Secret{}, fmt.Errorf("parse secret: %w", err)
	}
	if len(b) != Size {
		return Secret{}, fmt.Errorf("parse secret: want %d bytes, got %d", Size, len(b))
	}
	var out Secret
	copy(out[:], b)
	return out, nil
}

// ParseHash decodes a hex-encoded 32-byte secret hash.
func ParseHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("parse secret hash: %w", err)
	}
	if len(b) != Size {
		return Hash{}, fmt.Errorf("parse secret hash: want %d bytes, got %d", Size, len(b))
	}
	var out Hash
	copy(out[:], b)
	return out, nil
}
