package dedup

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	slotBucket       = "dedupe"
	expiryValueBytes = 8

	boltCleanupInterval = 12 * time.Hour
)

// boltCache is an embedded Cache backend for single-process deployments and
// offline development. Values are stored as an 8-byte big-endian expiry
// timestamp followed by the payload; expired entries are lazily dropped on
// read and swept on a fixed cadence.
type boltCache struct {
	db          *bolt.DB
	cleanupMu   sync.Mutex
	lastCleanup atomic.Int64
}

func openBolt(path string) (Cache, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(slotBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	cache := &boltCache{db: db}
	cache.lastCleanup.Store(time.Now().Unix())
	return cache, nil
}

func (b *boltCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	var set bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		if bucket == nil {
			return fmt.Errorf("dedupe bucket missing")
		}

		existing := bucket.Get([]byte(key))
		if existing != nil {
			if expiry, _, ok := decodeEntry(existing); ok && expiry.After(now) {
				set = false
				return nil
			}
		}

		set = true
		return bucket.Put([]byte(key), encodeEntry(now.Add(ttl), value))
	})
	return set, err
}

func (b *boltCache) Get(_ context.Context, key string) (string, error) {
	var value string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		if bucket == nil {
			return fmt.Errorf("dedupe bucket missing")
		}

		raw := bucket.Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		expiry, payload, ok := decodeEntry(raw)
		if !ok || !expiry.After(time.Now()) {
			if err := bucket.Delete([]byte(key)); err != nil {
				return err
			}
			return ErrNotFound
		}
		value = payload
		return nil
	})
	return value, err
}

func (b *boltCache) TTL(_ context.Context, key string) (time.Duration, error) {
	var ttl time.Duration
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		if bucket == nil {
			return fmt.Errorf("dedupe bucket missing")
		}

		raw := bucket.Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		expiry, _, ok := decodeEntry(raw)
		if !ok {
			return ErrNotFound
		}
		remaining := time.Until(expiry)
		if remaining <= 0 {
			return ErrNotFound
		}
		ttl = remaining
		return nil
	})
	return ttl, err
}

func (b *boltCache) Delete(_ context.Context, key string) (bool, error) {
	var deleted bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		if bucket == nil {
			return fmt.Errorf("dedupe bucket missing")
		}
		if bucket.Get([]byte(key)) == nil {
			return nil
		}
		deleted = true
		return bucket.Delete([]byte(key))
	})
	return deleted, err
}

func (b *boltCache) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		if bucket == nil {
			return fmt.Errorf("dedupe bucket missing")
		}

		now := time.Now()
		cursor := bucket.Cursor()
		p := []byte(prefix)
		for k, v := cursor.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = cursor.Next() {
			if expiry, _, ok := decodeEntry(v); ok && expiry.After(now) {
				keys = append(keys, string(k))
			}
		}
		return nil
	})
	return keys, err
}

func (b *boltCache) MemoryStats(_ context.Context) (MemoryStats, error) {
	var size int64
	err := b.db.View(func(tx *bolt.Tx) error {
		size = tx.Size()
		return nil
	})
	if err != nil {
		return MemoryStats{}, err
	}
	used := fmt.Sprintf("%dB", size)
	return MemoryStats{Used: used, Peak: used}, nil
}

func (b *boltCache) Ping(context.Context) error { return nil }

func (b *boltCache) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// maybeCleanupExpired removes expired entries on a fixed cadence to keep the
// file from growing without bound.
func (b *boltCache) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < boltCleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < boltCleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		if bucket == nil {
			return fmt.Errorf("dedupe bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decodeEntry(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func encodeEntry(expiry time.Time, value string) []byte {
	buf := make([]byte, expiryValueBytes+len(value))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	copy(buf[expiryValueBytes:], value)
	return buf
}

func decodeEntry(raw []byte) (time.Time, string, bool) {
	if len(raw) < expiryValueBytes {
		return time.Time{}, "", false
	}
	unix := int64(binary.BigEndian.Uint64(raw))
	if unix <= 0 {
		return time.Time{}, "", false
	}
	return time.Unix(unix, 0), string(raw[expiryValueBytes:]), true
}
