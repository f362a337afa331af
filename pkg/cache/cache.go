// Package cache stores crop artifacts and previews between runs.
//
// All backends implement [Cache], a byte-oriented store with per-entry TTL:
//   - [FileCache]: one JSON file per entry under a directory, used by the CLI
//   - [RedisCache]: go-redis backed, for the HTTP service
//   - [S3Cache]: S3-compatible object storage (AWS, R2, MinIO), for the HTTP service
//   - [NullCache]: never stores anything (--no-cache)
//
// Keys are derived by a [Keyer] from the SHA-256 of the input document plus
// every option that affects the result, so a configuration change never
// returns stale cells or artifacts.
package cache

import (
	"context"
	"time"
)

// Default TTLs.
const (
	CropTTL     = 7 * 24 * time.Hour
	PreviewTTL  = 24 * time.Hour
	ArtifactTTL = time.Hour
)

// Cache is a key/value store for serialized results.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
