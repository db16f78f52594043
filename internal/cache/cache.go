package cache

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Cache maps a request fingerprint to a previously computed response.
// A missing or expired entry is a miss, never an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Clock is injectable so tests can move time forward.
type Clock func() time.Time

// Fingerprint derives a stable key: namespace + ":" + blake2b-256 over the NUL-joined parts.
func Fingerprint(namespace string, parts ...string) string {
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
