package cache

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// memEntry is the value stored in the hot tier. The creation time rides
// along so the hard expiry ceiling can be enforced on read.
type memEntry struct {
	data    []byte
	created time.Time
}

// MemoryConfig sizes the hot tier.
type MemoryConfig struct {
	// MaxBytes is the total byte budget; entries are costed by payload
	// length and evicted under pressure.
	MaxBytes int64

	// SlidingTTL is the per-entry expiration, reset on every read.
	SlidingTTL time.Duration

	// HardTTL is the absolute ceiling from creation, never extended. It
	// caps growth from entries read just often enough to never expire on
	// sliding terms alone.
	HardTTL time.Duration

	// ScanInterval is how often expired entries are proactively removed
	// rather than waiting for access-triggered eviction.
	ScanInterval time.Duration
}

// Memory is the in-process hot tier, backed by ristretto. Losing an entry
// here is never a correctness fault — the disk tier (when enabled) is
// authoritative.
type Memory struct {
	rc  *ristretto.Cache[string, memEntry]
	cfg MemoryConfig

	// Live entry count. ristretto's OnExit fires exactly once whenever a
	// stored value leaves (eviction, rejection, deletion or overwrite), so
	// pairing it with an increment per buffered Set keeps this accurate.
	count atomic.Int64

	nowFunc func() time.Time
}

// NewMemory creates the hot tier.
func NewMemory(cfg MemoryConfig) (*Memory, error) {
	m := &Memory{cfg: cfg, nowFunc: time.Now}

	counters := cfg.MaxBytes / 1024 * 10 // assume ≥1KB average payloads
	if counters < 1e4 {
		counters = 1e4
	}
	tick := int64(cfg.ScanInterval / time.Second)
	if tick < 1 {
		tick = 1
	}

	rc, err := ristretto.NewCache(&ristretto.Config[string, memEntry]{
		NumCounters:            counters,
		MaxCost:                cfg.MaxBytes,
		BufferItems:            64,
		Metrics:                true,
		TtlTickerDurationInSec: tick,
		OnExit:                 func(memEntry) { m.count.Add(-1) },
	})
	if err != nil {
		return nil, err
	}
	m.rc = rc
	return m, nil
}

// Get retrieves a value by key. A hit resets the sliding expiration; an
// entry past its hard ceiling is dropped and reported as a miss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := m.rc.Get(key)
	if !ok {
		return nil, false
	}

	age := m.nowFunc().Sub(e.created)
	if m.cfg.HardTTL > 0 && age >= m.cfg.HardTTL {
		m.rc.Del(key)
		return nil, false
	}

	// Slide the expiration by re-storing with a fresh TTL, capped so the
	// hard ceiling is never extended.
	m.store(key, e)

	return bytes.Clone(e.data), true
}

// Set stores a value under key. The write is synchronous: a following Get
// from the same flow observes it.
func (m *Memory) Set(_ context.Context, key string, val []byte) {
	m.store(key, memEntry{data: bytes.Clone(val), created: m.nowFunc()})
	m.rc.Wait()
}

// store writes the entry with the remaining TTL and keeps the live count in
// step with ristretto's exit callback.
func (m *Memory) store(key string, e memEntry) {
	ttl := m.cfg.SlidingTTL
	if m.cfg.HardTTL > 0 {
		if remaining := m.cfg.HardTTL - m.nowFunc().Sub(e.created); ttl == 0 || remaining < ttl {
			ttl = remaining
		}
	}
	if m.rc.SetWithTTL(key, e, int64(len(e.data)), ttl) {
		m.count.Add(1)
	}
}

// Delete removes an entry.
func (m *Memory) Delete(key string) {
	m.rc.Del(key)
}

// Len returns the current number of live entries, for observability.
func (m *Memory) Len() int {
	if n := m.count.Load(); n > 0 {
		return int(n)
	}
	return 0
}

// Clear evicts all entries.
func (m *Memory) Clear() {
	m.rc.Clear()
	m.count.Store(0)
}

// Close releases the tier's resources.
func (m *Memory) Close() {
	m.rc.Close()
}
