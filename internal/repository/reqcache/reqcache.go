// Package reqcache memoizes intent-extraction outputs and graph result
// sets by normalized query key. Entries are immutable JSON snapshots
// with per-entry TTL; the cache is ephemeral and never a system of
// record. Concurrent identical requests collapse into a single
// in-flight computation.
package reqcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrMiss signals an absent or expired entry.
var ErrMiss = errors.New("cache miss")

// Store is the backend contract. Get returns ErrMiss on absent keys;
// Put must be atomic per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close()
}

// IntentKey keys an extraction output by schema and normalized text.
func IntentKey(prefix, schemaID, normalizedText string) string {
	return prefix + "intent:" + schemaID + ":" + digest(normalizedText)
}

// ResultKey keys a result set by schema and compiled-query fingerprint.
func ResultKey(prefix, schemaID, fingerprint string) string {
	return prefix + "result:" + schemaID + ":" + digest(fingerprint)
}

func digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:16])
}
