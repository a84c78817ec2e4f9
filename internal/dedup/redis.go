package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSocketTimeout = 5 * time.Second

// redisCache backs the deduplicator with a shared Redis instance. SETNX with
// expiry gives the atomic check-and-mark the pipeline relies on, and Redis
// evicts expired keys itself.
type redisCache struct {
	client *redis.Client
}

func openRedis(ctx context.Context, opts CacheOptions) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  redisSocketTimeout,
		ReadTimeout:  redisSocketTimeout,
		WriteTimeout: redisSocketTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	return &redisCache{client: client}, nil
}

func (r *redisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (r *redisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// go-redis maps the RESP sentinels straight through: -2 means the key
	// does not exist, -1 means no expiry set.
	if ttl == time.Duration(-2) {
		return 0, ErrNotFound
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *redisCache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, key).Result()
	return n > 0, err
}

func (r *redisCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, prefix+"*", 500).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (r *redisCache) MemoryStats(ctx context.Context) (MemoryStats, error) {
	info, err := r.client.Info(ctx, "memory").Result()
	if err != nil {
		return MemoryStats{}, err
	}
	return parseMemoryInfo(info), nil
}

func (r *redisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

// parseMemoryInfo pulls the human-readable usage fields out of an INFO
// memory section.
func parseMemoryInfo(info string) MemoryStats {
	stats := MemoryStats{Used: "unknown", Peak: "unknown"}
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "used_memory_human:"); ok {
			stats.Used = v
		}
		if v, ok := strings.CutPrefix(line, "used_memory_peak_human:"); ok {
			stats.Peak = v
		}
	}
	return stats
}
