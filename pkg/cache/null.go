package cache

import (
	"context"
	"time"
)

// NullCache is the backend behind --no-cache. Every lookup misses, so
// each crop and preview is recomputed.
type NullCache struct{}

// NewNullCache returns a cache that never stores anything.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always reports a miss.
func (*NullCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the artifact.
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Delete is a no-op.
func (*NullCache) Delete(context.Context, string) error {
	return nil
}

// Close is a no-op; there is nothing to release.
func (*NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)
