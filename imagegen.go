// Package imagegen is a bounded-concurrency, two-tier-cached client for an
// external content-generation API. It fronts every provider call with an
// admission gate sized to the provider's rate limits, retries transient
// failures with exponential backoff, and caches results in a byte-budgeted
// memory tier backed by a persistent disk tier so repeated inputs never
// regenerate.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/promptforge/imagegen/breaker"
	"github.com/promptforge/imagegen/cache"
	"github.com/promptforge/imagegen/gate"
	"github.com/promptforge/imagegen/metrics"
	"github.com/promptforge/imagegen/provider"
	"github.com/promptforge/imagegen/ratelimit"
	"github.com/promptforge/imagegen/retry"
	"github.com/promptforge/imagegen/sizing"
	"github.com/promptforge/imagegen/tracing"
)

// ErrRequestTimeout marks expiry of the overall per-request deadline,
// distinguishable from a provider-reported timeout via errors.Is.
var ErrRequestTimeout = errors.New("imagegen: request deadline exceeded")

// ErrAdmissionTimeout reports that no concurrency slot freed up within the
// configured admission wait.
var ErrAdmissionTimeout = gate.ErrAdmissionTimeout

// Request describes one generation. It is created per call and never
// mutated.
type Request struct {
	// Descriptor is the opaque content description.
	Descriptor string

	// Width and Height are the requested output dimensions; they are
	// normalized before key derivation unless smart sizing is disabled.
	Width  int
	Height int

	// Quality overrides the configured default when non-empty.
	Quality string

	// Cache marks the request eligible for the result cache.
	Cache bool

	// Priority orders pending work in a batch; higher runs first.
	Priority int
}

// Client mediates all calls to the generation provider. It owns the cache
// and the admission gate explicitly — construct one at startup, share it
// across callers, and Close it at shutdown.
type Client struct {
	cfg Config
	log *slog.Logger
	met *metrics.Set
	trc *tracing.Config

	prov    provider.Client
	cache   *cache.Tiered
	gate    *gate.Gate
	limiter *ratelimit.Limiter
	brk     *breaker.Breaker
	retry   retry.Config
}

// New wires a Client around the given provider.
func New(p provider.Client, opts ...Option) (*Client, error) {
	if p == nil {
		return nil, errors.New("imagegen: nil provider")
	}

	s := settings{cfg: DefaultConfig(), fileExtension: DefaultFileExtension}
	for _, o := range opts {
		o(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	c := &Client{
		cfg:     s.cfg,
		log:     s.logger,
		met:     s.metrics,
		trc:     s.tracing,
		prov:    p,
		limiter: s.limiter,
	}
	if s.breakerCfg != nil {
		c.brk = breaker.New(*s.breakerCfg)
	}

	mem, err := cache.NewMemory(cache.MemoryConfig{
		MaxBytes:     s.cfg.MemoryCacheBytes,
		SlidingTTL:   s.cfg.CacheExpiration,
		HardTTL:      s.cfg.CacheHardCeiling,
		ScanInterval: s.cfg.CacheScanInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: create memory cache: %w", err)
	}

	var disk *cache.Disk
	if s.cfg.EnableDiskCache {
		diskOpts := []cache.DiskOption{cache.WithExtension(s.fileExtension)}
		if s.zstdLevel > 0 {
			diskOpts = append(diskOpts, cache.WithCompression(s.zstdLevel))
		}
		disk, err = cache.NewDisk(s.cfg.DiskCachePath, diskOpts...)
		if err != nil {
			mem.Close()
			return nil, fmt.Errorf("imagegen: create disk cache: %w", err)
		}
	}

	c.cache = cache.NewTiered(cache.TieredConfig{
		Memory:         mem,
		Disk:           disk,
		Logger:         s.logger,
		WriteQueueSize: s.cfg.WriteQueueSize,
		OnWriteError: func(error) {
			if c.met != nil {
				c.met.DiskWriteFailures.Inc()
			}
		},
	})

	c.gate = gate.New(s.cfg.MaxParallelRequests, s.cfg.AdmissionWait)
	c.retry = retry.Config{
		MaxAttempts: s.cfg.MaxRetries + 1,
		BaseDelay:   s.cfg.RetryBaseDelay,
		MaxDelay:    s.cfg.RetryMaxDelay,
		Jitter:      s.cfg.RetryJitter,
		Retryable:   c.retryable,
		Logger:      s.logger,
	}

	return c, nil
}

// retryable classifies provider errors for the retry executor and counts
// each retry decision.
func (c *Client) retryable(err error) bool {
	if !provider.Transient(err) {
		return false
	}
	if c.met != nil {
		c.met.RetryAttempts.Inc()
	}
	return true
}

// Generate resolves a single request: cache lookup (when eligible), then a
// gated, retried provider call with write-through on success.
func (c *Client) Generate(ctx context.Context, req Request) (data []byte, err error) {
	w, h := req.Width, req.Height
	if c.cfg.EnableSmartSizing {
		w, h = sizing.Normalize(w, h)
	}
	key := DeriveKey(req.Descriptor, w, h)
	preq := c.providerRequest(req, w, h)

	ctx, span := tracing.Start(ctx, c.trc, "imagegen.Generate",
		attribute.Int("imagegen.width", w),
		attribute.Int("imagegen.height", h),
		attribute.Bool("imagegen.cache_eligible", req.Cache))
	defer func() { tracing.End(span, err) }()

	if !req.Cache {
		data, err = c.callProvider(ctx, preq)
		return data, err
	}

	var tier cache.Tier
	data, tier, err = c.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		return c.callProvider(ctx, preq)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("imagegen.cache_tier", tier.String()))
	c.recordTier(tier)
	return data, nil
}

// callProvider runs the admission → breaker → limiter → retry → provider
// pipeline under the overall per-request deadline.
func (c *Client) callProvider(ctx context.Context, preq provider.Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	if c.brk != nil && !c.brk.Allow() {
		c.log.Warn("circuit breaker open, rejecting provider call")
		return nil, breaker.ErrOpen
	}

	permit, err := c.gate.Acquire(ctx)
	if err != nil {
		if errors.Is(err, gate.ErrAdmissionTimeout) && c.met != nil {
			c.met.AdmissionTimeouts.Inc()
		}
		return nil, wrapDeadline(ctx, err)
	}
	defer permit.Release()

	if c.met != nil {
		c.met.InFlight.Inc()
		defer c.met.InFlight.Dec()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, wrapDeadline(ctx, err)
		}
	}

	data, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.prov.Generate(ctx, preq)
	})
	if err != nil {
		transient := provider.Transient(err)
		if c.brk != nil && transient {
			c.brk.OnFailure()
		}
		c.recordCall(outcomeLabel(transient))
		return nil, wrapDeadline(ctx, err)
	}

	if c.brk != nil {
		c.brk.OnSuccess()
	}
	c.recordCall("success")
	return data, nil
}

func (c *Client) providerRequest(req Request, w, h int) provider.Request {
	quality := req.Quality
	if quality == "" {
		quality = c.cfg.DefaultQuality
	}
	return provider.Request{
		Descriptor: req.Descriptor,
		Width:      w,
		Height:     h,
		Quality:    quality,
		Priority:   req.Priority,
	}
}

func (c *Client) recordTier(tier cache.Tier) {
	if c.met == nil {
		return
	}
	if tier == cache.TierNone {
		c.met.CacheMisses.Inc()
		return
	}
	c.met.CacheHits.WithLabelValues(tier.String()).Inc()
}

func (c *Client) recordCall(outcome string) {
	if c.met != nil {
		c.met.ProviderCalls.WithLabelValues(outcome).Inc()
	}
}

func outcomeLabel(transient bool) string {
	if transient {
		return "transient"
	}
	return "permanent"
}

// wrapDeadline maps expiry of the per-request deadline onto
// ErrRequestTimeout so callers can tell it apart from provider failures.
func wrapDeadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRequestTimeout, err)
	}
	return err
}

// CacheLen returns the number of live memory cache entries.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}

// ClearCache evicts all memory entries and, when includeDisk is set,
// deletes the disk tier's files.
func (c *Client) ClearCache(includeDisk bool) error {
	return c.cache.Clear(includeDisk)
}

// FlushCache blocks until all queued disk writes have been attempted.
func (c *Client) FlushCache() {
	c.cache.Flush()
}

// Close stops the cache's background writer and releases resources.
func (c *Client) Close() {
	c.cache.Close()
}
