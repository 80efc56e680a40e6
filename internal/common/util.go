package common

import (
	"crypto/rand"
	"math/big"
	"time"
)

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics only if the platform CSPRNG is unavailable.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandDuration returns a uniformly distributed duration in [min, max].
// If max <= min, min is returned unchanged, which lets callers collapse
// pacing to a fixed (or zero) delay in tests.
func RandDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := int64(max - min)
	n, err := rand.Int(rand.Reader, big.NewInt(span+1))
	if err != nil {
		return min
	}
	return min + time.Duration(n.Int64())
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Useful for removing passwords and keys from memory after use. A nil slice
// is a no-op.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
