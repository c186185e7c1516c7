// Package cache implements the two-tier result cache: a byte-budgeted
// in-memory hot tier with sliding and hard expiration, backed by an
// unbounded on-disk tier that persists until explicitly cleared. The disk
// entry is authoritative; memory entries are derivable and may be lost at
// any time without a correctness fault.
package cache

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// Tier identifies which level served a lookup.
type Tier int

const (
	// TierNone means the value was not cached.
	TierNone Tier = iota

	// TierMemory is the hot in-process tier.
	TierMemory

	// TierDisk is the durable on-disk tier.
	TierDisk
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierDisk:
		return "disk"
	default:
		return "none"
	}
}

// call deduplicates concurrent loads for the same key.
type call struct {
	wg  sync.WaitGroup
	val []byte
	err error
}

type writeJob struct {
	key   string
	val   []byte
	flush chan struct{} // non-nil marks a flush barrier
}

// TieredConfig wires a Tiered cache.
type TieredConfig struct {
	Memory *Memory
	Disk   *Disk // nil disables the durable tier

	// Logger receives disk-writer failures. Nil means slog.Default().
	Logger *slog.Logger

	// WriteQueueSize bounds the pending disk writes. When the queue is
	// full further writes are dropped (and logged); caching stays
	// best-effort.
	WriteQueueSize int

	// OnWriteError is invoked for every failed or dropped disk write,
	// after logging. Optional; used to feed metrics.
	OnWriteError func(error)
}

// Tiered combines the memory and disk tiers. Reads check memory first, then
// disk; a disk hit is promoted into memory so subsequent lookups take the
// fast path. Writes install into memory synchronously and into disk through
// a background writer whose failures are logged, never surfaced.
type Tiered struct {
	mem  *Memory
	disk *Disk
	log  *slog.Logger

	onWriteError func(error)

	writeQ chan writeJob
	wg     sync.WaitGroup

	mu    sync.Mutex
	loads map[string]*call
}

// NewTiered creates the two-tier cache and starts its disk writer.
func NewTiered(cfg TieredConfig) *Tiered {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	qsize := cfg.WriteQueueSize
	if qsize < 1 {
		qsize = 128
	}

	t := &Tiered{
		mem:          cfg.Memory,
		disk:         cfg.Disk,
		log:          logger,
		onWriteError: cfg.OnWriteError,
		writeQ:       make(chan writeJob, qsize),
		loads:        make(map[string]*call),
	}

	t.wg.Add(1)
	go t.writer()

	return t
}

// writer drains the disk write queue. Failures are captured here and
// reported through the structured log and the error hook, keeping them
// observable without ever failing the request that produced the value.
func (t *Tiered) writer() {
	defer t.wg.Done()
	for job := range t.writeQ {
		if job.flush != nil {
			close(job.flush)
			continue
		}
		if t.disk == nil {
			continue
		}
		if err := t.disk.Set(job.key, job.val); err != nil {
			t.log.Warn("disk cache write failed", "key", job.key, "error", err)
			if t.onWriteError != nil {
				t.onWriteError(err)
			}
		}
	}
}

// Get checks memory, then disk. A disk hit is installed into memory before
// returning.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, Tier, bool) {
	if v, ok := t.mem.Get(ctx, key); ok {
		return v, TierMemory, true
	}
	if t.disk != nil {
		if v, ok := t.disk.Get(key); ok {
			t.mem.Set(ctx, key, v)
			return v, TierDisk, true
		}
	}
	return nil, TierNone, false
}

// Put installs the value into memory synchronously — a subsequent Get by
// the same flow always hits — and queues the disk write. A full queue drops
// the disk write rather than blocking the caller.
func (t *Tiered) Put(ctx context.Context, key string, val []byte) {
	t.mem.Set(ctx, key, val)
	if t.disk == nil {
		return
	}
	select {
	case t.writeQ <- writeJob{key: key, val: bytes.Clone(val)}:
	default:
		t.log.Warn("disk cache write queue full, dropping write", "key", key)
		if t.onWriteError != nil {
			t.onWriteError(errWriteQueueFull)
		}
	}
}

// GetOrLoad returns the cached value for key, loading it at most once for
// any set of concurrent callers with the same key. The returned tier is
// TierNone when the loader ran.
func (t *Tiered) GetOrLoad(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, Tier, error) {
	if v, tier, ok := t.Get(ctx, key); ok {
		return v, tier, nil
	}

	t.mu.Lock()
	if c, ok := t.loads[key]; ok {
		t.mu.Unlock()
		c.wg.Wait()
		if c.err != nil {
			return nil, TierNone, c.err
		}
		return bytes.Clone(c.val), TierNone, nil
	}

	c := &call{}
	c.wg.Add(1)
	t.loads[key] = c
	t.mu.Unlock()

	c.val, c.err = loader(ctx)
	if c.err == nil {
		t.Put(ctx, key, c.val)
	}
	c.wg.Done()

	t.mu.Lock()
	delete(t.loads, key)
	t.mu.Unlock()

	if c.err != nil {
		return nil, TierNone, c.err
	}
	return bytes.Clone(c.val), TierNone, nil
}

// Len returns the number of live memory entries.
func (t *Tiered) Len() int {
	return t.mem.Len()
}

// Clear evicts all memory entries and, when includeDisk is set, deletes the
// disk tier's files as well.
func (t *Tiered) Clear(includeDisk bool) error {
	t.mem.Clear()
	if includeDisk && t.disk != nil {
		t.Flush()
		return t.disk.Clear()
	}
	return nil
}

// Flush blocks until every disk write queued so far has been attempted.
// Intended for tests and shutdown.
func (t *Tiered) Flush() {
	done := make(chan struct{})
	t.writeQ <- writeJob{flush: done}
	<-done
}

// Close drains the writer and releases the memory tier.
func (t *Tiered) Close() {
	close(t.writeQ)
	t.wg.Wait()
	t.mem.Close()
}
