package dedup

import (
	"context"
	"crypto/md5" //nolint:gosec // key shortening, not cryptography
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
)

const (
	// KeyPrefix namespaces every dedup key in the shared cache.
	KeyPrefix = "dedupe:slot:"
	// HashKeyPrefix marks keys whose tuple was too long to store literally.
	HashKeyPrefix = "dedupe:slot:hash:"

	// maxLiteralKeyLen is the longest joined tuple stored as a literal key.
	maxLiteralKeyLen = 200

	opTimeout = 5 * time.Second

	// DefaultTTL is how long a slot key blocks re-notification.
	DefaultTTL = 48 * time.Hour
)

// SlotKey derives the deterministic dedup key for a slot from its
// (venue, date, start time, court) tuple. Tuples longer than the literal
// limit are replaced by a fixed-width MD5 digest under a distinct prefix.
func SlotKey(slot domain.ScrapedSlot) string {
	suffix := strings.Join([]string{slot.VenueID, slot.Date, slot.StartTime, slot.CourtID}, ":")
	if len(suffix) > maxLiteralKeyLen {
		sum := md5.Sum([]byte(suffix)) //nolint:gosec
		return HashKeyPrefix + hex.EncodeToString(sum[:])
	}
	return KeyPrefix + suffix
}

// Duplicate pairs a suppressed slot with the cache key that matched it.
type Duplicate struct {
	Slot domain.ScrapedSlot
	Key  string
}

// Metrics is a snapshot of the deduplicator's counters with derived rates.
// All rates are 0.0 when no checks have run.
type Metrics struct {
	TotalChecks        int64   `json:"total_checks"`
	DuplicatesFound    int64   `json:"duplicates_found"`
	NewSlots           int64   `json:"new_slots"`
	CacheErrors        int64   `json:"cache_errors"`
	ConnectionFailures int64   `json:"connection_failures"`
	DuplicateRate      float64 `json:"duplicate_rate"`
	NewSlotRate        float64 `json:"new_slot_rate"`
	ErrorRate          float64 `json:"error_rate"`
}

// CacheStats describes the cache's dedup keyspace for diagnostics.
type CacheStats struct {
	KeyCount   int     `json:"dedupe_keys_count"`
	MemoryUsed string  `json:"memory_used"`
	MemoryPeak string  `json:"memory_peak"`
	TTLHours   float64 `json:"expiry_hours"`
}

// SlotInfo reports what the cache currently holds for one slot.
type SlotInfo struct {
	Key       string        `json:"key"`
	FirstSeen string        `json:"first_seen"`
	TTL       time.Duration `json:"ttl"`
	ExpiresAt *time.Time    `json:"expires_at"`
}

// Deduplicator answers "have I seen this exact slot recently?" with an
// atomic check-and-mark against an expiring key-value cache. The cache is
// connected lazily on first use; when it is unreachable the deduplicator
// fails open and treats every slot as new, so a degraded cache costs extra
// notifications rather than lost data.
type Deduplicator struct {
	connect func(ctx context.Context) (Cache, error)
	ttl     time.Duration
	log     logger.Logger

	mu    sync.Mutex
	cache Cache

	totalChecks        atomic.Int64
	duplicatesFound    atomic.Int64
	newSlots           atomic.Int64
	cacheErrors        atomic.Int64
	connectionFailures atomic.Int64
}

// New builds a deduplicator over the given cache constructor.
func New(connect func(ctx context.Context) (Cache, error), ttl time.Duration, log logger.Logger) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Deduplicator{
		connect: connect,
		ttl:     ttl,
		log:     log,
	}
}

// TTL returns the configured key lifetime.
func (d *Deduplicator) TTL() time.Duration { return d.ttl }

// ensureCache returns the connected cache, attempting one lazy connect when
// none is held. A failed connect is counted, not raised.
func (d *Deduplicator) ensureCache(ctx context.Context) Cache {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cache != nil {
		return d.cache
	}

	connectCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cache, err := d.connect(connectCtx)
	if err != nil {
		d.connectionFailures.Add(1)
		d.log.WarnObj("dedup cache unavailable, failing open", "dedup_connect_error", map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	d.cache = cache
	return cache
}

// Check performs the atomic check-and-mark for one slot. It returns whether
// the slot was already seen within the TTL window and the cache key used.
// When the cache is unreachable the slot is reported as not a duplicate and
// the failure is counted.
func (d *Deduplicator) Check(ctx context.Context, slot domain.ScrapedSlot) (bool, string) {
	d.totalChecks.Add(1)

	cache := d.ensureCache(ctx)
	if cache == nil {
		return false, ""
	}

	key := SlotKey(slot)

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set, err := cache.SetNX(opCtx, key, time.Now().Format(time.RFC3339), d.ttl)
	if err != nil {
		d.cacheErrors.Add(1)
		d.log.ErrorObj("dedup check failed, treating slot as new", "dedup_error", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		return false, ""
	}

	if set {
		d.newSlots.Add(1)
		return false, key
	}
	d.duplicatesFound.Add(1)
	return true, key
}

// CheckMany applies Check to each slot in order and partitions the input
// into unseen slots and duplicates. Slots do not interact: which partition
// a slot lands in depends only on its own prior-seen state.
func (d *Deduplicator) CheckMany(ctx context.Context, slots []domain.ScrapedSlot) ([]domain.ScrapedSlot, []Duplicate) {
	var (
		fresh []domain.ScrapedSlot
		dups  []Duplicate
	)
	for _, slot := range slots {
		isDup, key := d.Check(ctx, slot)
		if isDup {
			dups = append(dups, Duplicate{Slot: slot, Key: key})
		} else {
			fresh = append(fresh, slot)
		}
	}
	return fresh, dups
}

// Metrics returns a snapshot of the running counters with derived rates.
func (d *Deduplicator) Metrics() Metrics {
	m := Metrics{
		TotalChecks:        d.totalChecks.Load(),
		DuplicatesFound:    d.duplicatesFound.Load(),
		NewSlots:           d.newSlots.Load(),
		CacheErrors:        d.cacheErrors.Load(),
		ConnectionFailures: d.connectionFailures.Load(),
	}
	if m.TotalChecks > 0 {
		total := float64(m.TotalChecks)
		m.DuplicateRate = float64(m.DuplicatesFound) / total
		m.NewSlotRate = float64(m.NewSlots) / total
		m.ErrorRate = float64(m.CacheErrors) / total
	}
	return m
}

// ResetMetrics zeroes all counters.
func (d *Deduplicator) ResetMetrics() {
	d.totalChecks.Store(0)
	d.duplicatesFound.Store(0)
	d.newSlots.Store(0)
	d.cacheErrors.Store(0)
	d.connectionFailures.Store(0)
}

// SlotInfo reports the cache entry for a slot, or nil when it is not held.
// Diagnostics only; not part of the hot path.
func (d *Deduplicator) SlotInfo(ctx context.Context, slot domain.ScrapedSlot) (*SlotInfo, error) {
	cache := d.ensureCache(ctx)
	if cache == nil {
		return nil, fmt.Errorf("dedup cache unavailable")
	}

	key := SlotKey(slot)
	value, err := cache.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	info := &SlotInfo{Key: key, FirstSeen: value}
	if ttl, err := cache.TTL(ctx, key); err == nil && ttl > 0 {
		info.TTL = ttl
		expires := time.Now().Add(ttl)
		info.ExpiresAt = &expires
	}
	return info, nil
}

// Remove drops a slot from the cache so its next sighting counts as new.
func (d *Deduplicator) Remove(ctx context.Context, slot domain.ScrapedSlot) bool {
	cache := d.ensureCache(ctx)
	if cache == nil {
		return false
	}

	deleted, err := cache.Delete(ctx, SlotKey(slot))
	if err != nil {
		d.log.ErrorObj("dedup remove failed", "dedup_error", map[string]any{
			"error": err.Error(),
		})
		return false
	}
	return deleted
}

// Stats returns keyspace and memory diagnostics for the dedup prefix.
func (d *Deduplicator) Stats(ctx context.Context) (*CacheStats, error) {
	cache := d.ensureCache(ctx)
	if cache == nil {
		return nil, fmt.Errorf("dedup cache unavailable")
	}

	keys, err := cache.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("enumerate dedup keys: %w", err)
	}
	// Memory figures are best effort; some backends cannot report them.
	mem, err := cache.MemoryStats(ctx)
	if err != nil {
		mem = MemoryStats{Used: "unknown", Peak: "unknown"}
	}

	return &CacheStats{
		KeyCount:   len(keys),
		MemoryUsed: mem.Used,
		MemoryPeak: mem.Peak,
		TTLHours:   d.ttl.Hours(),
	}, nil
}

// CountExpired scans the dedup keyspace and reports entries that have
// already lapsed. The backing store evicts on its own; this is a monitoring
// aid.
func (d *Deduplicator) CountExpired(ctx context.Context) int {
	cache := d.ensureCache(ctx)
	if cache == nil {
		return 0
	}

	keys, err := cache.Keys(ctx, KeyPrefix)
	if err != nil {
		d.log.ErrorObj("dedup expiry scan failed", "dedup_error", map[string]any{
			"error": err.Error(),
		})
		return 0
	}

	expired := 0
	for _, key := range keys {
		if _, err := cache.TTL(ctx, key); errors.Is(err, ErrNotFound) {
			expired++
		}
	}
	return expired
}

// Close releases the cache connection if one was established.
func (d *Deduplicator) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cache == nil {
		return nil
	}
	err := d.cache.Close()
	d.cache = nil
	return err
}
