package dedup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newBoltCache(t *testing.T) Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dedupe.db")
	cache, err := openBolt(path)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestBoltSetNXIsFirstWriterWins(t *testing.T) {
	cache := newBoltCache(t)
	ctx := context.Background()

	set, err := cache.SetNX(ctx, "dedupe:slot:v1:2026-09-01:18:00:c1", "first", time.Hour)
	if err != nil || !set {
		t.Fatalf("first SetNX = (%v, %v), want set", set, err)
	}
	set, err = cache.SetNX(ctx, "dedupe:slot:v1:2026-09-01:18:00:c1", "second", time.Hour)
	if err != nil || set {
		t.Fatalf("second SetNX = (%v, %v), want not set", set, err)
	}

	value, err := cache.Get(ctx, "dedupe:slot:v1:2026-09-01:18:00:c1")
	if err != nil || value != "first" {
		t.Fatalf("Get = (%q, %v), want original value kept", value, err)
	}
}

func TestBoltExpiredEntryBehavesAsMissing(t *testing.T) {
	cache := newBoltCache(t)
	ctx := context.Background()

	if _, err := cache.SetNX(ctx, "k", "v", -time.Second); err != nil {
		t.Fatalf("SetNX: %v", err)
	}

	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired entry, got %v", err)
	}
	if _, err := cache.TTL(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound TTL for expired entry, got %v", err)
	}

	// An expired entry no longer blocks a new write.
	set, err := cache.SetNX(ctx, "k", "v2", time.Hour)
	if err != nil || !set {
		t.Fatalf("SetNX over expired = (%v, %v), want set", set, err)
	}
}

func TestBoltTTLReportsRemainingLifetime(t *testing.T) {
	cache := newBoltCache(t)
	ctx := context.Background()

	if _, err := cache.SetNX(ctx, "k", "v", 2*time.Hour); err != nil {
		t.Fatalf("SetNX: %v", err)
	}
	ttl, err := cache.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= time.Hour || ttl > 2*time.Hour {
		t.Fatalf("unexpected remaining ttl %v", ttl)
	}
}

func TestBoltKeysFiltersByPrefixAndExpiry(t *testing.T) {
	cache := newBoltCache(t)
	ctx := context.Background()

	cache.SetNX(ctx, KeyPrefix+"a", "v", time.Hour)
	cache.SetNX(ctx, KeyPrefix+"b", "v", -time.Second)
	cache.SetNX(ctx, "other:c", "v", time.Hour)

	keys, err := cache.Keys(ctx, KeyPrefix)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != KeyPrefix+"a" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestBoltDelete(t *testing.T) {
	cache := newBoltCache(t)
	ctx := context.Background()

	cache.SetNX(ctx, "k", "v", time.Hour)

	deleted, err := cache.Delete(ctx, "k")
	if err != nil || !deleted {
		t.Fatalf("Delete = (%v, %v), want deleted", deleted, err)
	}
	deleted, err = cache.Delete(ctx, "k")
	if err != nil || deleted {
		t.Fatalf("second Delete = (%v, %v), want no-op", deleted, err)
	}
}

func TestEncodeDecodeEntryRoundTrip(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := encodeEntry(expiry, "2026-08-30T12:00:00Z")

	got, payload, ok := decodeEntry(raw)
	if !ok {
		t.Fatalf("decodeEntry rejected valid entry")
	}
	if !got.Equal(expiry) || payload != "2026-08-30T12:00:00Z" {
		t.Fatalf("round trip mismatch: %v %q", got, payload)
	}

	if _, _, ok := decodeEntry([]byte("short")); ok {
		t.Fatalf("decodeEntry accepted truncated entry")
	}
}
