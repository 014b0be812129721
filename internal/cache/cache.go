// Package cache provides read-through caching for hot list endpoints.
package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	// Get unmarshals the cached value into dst and reports whether the
	// key was present.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Noop is a Cache that stores nothing. Used when Redis is not configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string, dst interface{}) (bool, error) { return false, nil }

func (Noop) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (Noop) Delete(ctx context.Context, keys ...string) error { return nil }
