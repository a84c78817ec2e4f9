package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cache is the expiring key-value store the deduplicator runs against. The
// hot path only needs SetNX; the remaining operations exist for diagnostics
// and tests.
type Cache interface {
	// SetNX stores value under key with the given TTL only if the key does
	// not already exist. It reports whether the key was set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	MemoryStats(ctx context.Context) (MemoryStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned by Get and TTL when the key does not exist.
var ErrNotFound = errors.New("dedup: key not found")

// MemoryStats describes backend memory usage for diagnostics.
type MemoryStats struct {
	Used string
	Peak string
}

// CacheOptions selects and configures a cache backend.
type CacheOptions struct {
	Type     string // "redis", "bbolt", "none"
	Addr     string
	Password string
	DB       int
	BoltPath string
}

// NewCacheBuilder returns a constructor for the configured backend. The
// deduplicator calls it lazily so a down backend at startup does not block
// the pipeline.
func NewCacheBuilder(opts CacheOptions) (func(ctx context.Context) (Cache, error), error) {
	typ := strings.TrimSpace(strings.ToLower(opts.Type))

	switch typ {
	case "", "redis":
		if strings.TrimSpace(opts.Addr) == "" {
			return nil, fmt.Errorf("redis cache requires an address")
		}
		return func(ctx context.Context) (Cache, error) {
			return openRedis(ctx, opts)
		}, nil
	case "bbolt":
		if strings.TrimSpace(opts.BoltPath) == "" {
			return nil, fmt.Errorf("bbolt cache requires a path")
		}
		return func(context.Context) (Cache, error) {
			return openBolt(opts.BoltPath)
		}, nil
	case "none", "disabled":
		return func(context.Context) (Cache, error) {
			return noopCache{}, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type %q", opts.Type)
	}
}

// noopCache treats every slot as unseen. Used when deduplication is disabled.
type noopCache struct{}

func (noopCache) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}
func (noopCache) Get(context.Context, string) (string, error)        { return "", ErrNotFound }
func (noopCache) TTL(context.Context, string) (time.Duration, error) { return 0, ErrNotFound }
func (noopCache) Delete(context.Context, string) (bool, error)       { return false, nil }
func (noopCache) Keys(context.Context, string) ([]string, error)     { return nil, nil }
func (noopCache) MemoryStats(context.Context) (MemoryStats, error)   { return MemoryStats{}, nil }
func (noopCache) Ping(context.Context) error                         { return nil }
func (noopCache) Close() error                                       { return nil }
