package imagegen

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the client's tunable surface. Zero values are replaced by the
// defaults in DefaultConfig; construct via DefaultConfig or FromEnv and
// adjust fields as needed.
type Config struct {
	// MaxParallelRequests caps concurrent in-flight provider calls.
	MaxParallelRequests int `env:"IMAGEGEN_MAX_PARALLEL_REQUESTS"`

	// AdmissionWait bounds how long a request waits for a free slot before
	// failing with an admission timeout.
	AdmissionWait time.Duration `env:"IMAGEGEN_ADMISSION_WAIT"`

	// RequestTimeout is the overall per-request deadline covering
	// admission, retries and the provider call.
	RequestTimeout time.Duration `env:"IMAGEGEN_REQUEST_TIMEOUT"`

	// MemoryCacheBytes is the hot tier's byte budget.
	MemoryCacheBytes int64 `env:"IMAGEGEN_MEMORY_CACHE_BYTES"`

	// CacheExpiration is the sliding per-entry expiration, reset on read.
	CacheExpiration time.Duration `env:"IMAGEGEN_CACHE_EXPIRATION"`

	// CacheHardCeiling is the absolute entry lifetime, never extended.
	CacheHardCeiling time.Duration `env:"IMAGEGEN_CACHE_HARD_CEILING"`

	// CacheScanInterval is how often expired memory entries are swept.
	CacheScanInterval time.Duration `env:"IMAGEGEN_CACHE_SCAN_INTERVAL"`

	// EnableDiskCache toggles the durable tier.
	EnableDiskCache bool `env:"IMAGEGEN_ENABLE_DISK_CACHE"`

	// DiskCachePath is the durable tier's root directory, created on
	// startup if absent.
	DiskCachePath string `env:"IMAGEGEN_DISK_CACHE_PATH"`

	// DefaultQuality is passed through to the provider; it is part of the
	// descriptor as far as caching is concerned.
	DefaultQuality string `env:"IMAGEGEN_DEFAULT_QUALITY"`

	// EnableSmartSizing toggles dimension normalization before key
	// derivation and dispatch.
	EnableSmartSizing bool `env:"IMAGEGEN_ENABLE_SMART_SIZING"`

	// MaxRetries is the number of retries after the first attempt for
	// transient provider failures.
	MaxRetries int `env:"IMAGEGEN_MAX_RETRIES"`

	// RetryBaseDelay is the delay before the first retry; each further
	// retry doubles it.
	RetryBaseDelay time.Duration `env:"IMAGEGEN_RETRY_BASE_DELAY"`

	// RetryMaxDelay caps the backoff delay.
	RetryMaxDelay time.Duration `env:"IMAGEGEN_RETRY_MAX_DELAY"`

	// RetryJitter randomizes the backoff by ±fraction. Zero keeps the
	// deterministic 1s/2s/4s ladder.
	RetryJitter float64 `env:"IMAGEGEN_RETRY_JITTER"`

	// BatchGroupSize is how many requests share one provider batch call.
	BatchGroupSize int `env:"IMAGEGEN_BATCH_GROUP_SIZE"`

	// WriteQueueSize bounds pending background disk writes.
	WriteQueueSize int `env:"IMAGEGEN_WRITE_QUEUE_SIZE"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxParallelRequests: DefaultMaxParallelRequests,
		AdmissionWait:       DefaultAdmissionWait,
		RequestTimeout:      DefaultRequestTimeout,
		MemoryCacheBytes:    DefaultMemoryCacheBytes,
		CacheExpiration:     DefaultCacheExpiration,
		CacheHardCeiling:    DefaultCacheHardCeiling,
		CacheScanInterval:   DefaultCacheScanInterval,
		EnableDiskCache:     true,
		DiskCachePath:       DefaultDiskCachePath,
		DefaultQuality:      DefaultQuality,
		EnableSmartSizing:   true,
		MaxRetries:          DefaultMaxRetries,
		RetryBaseDelay:      DefaultRetryBaseDelay,
		RetryMaxDelay:       DefaultRetryMaxDelay,
		BatchGroupSize:      DefaultBatchGroupSize,
		WriteQueueSize:      DefaultWriteQueueSize,
	}
}

// FromEnv returns DefaultConfig overridden by any IMAGEGEN_* environment
// variables that are set.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
