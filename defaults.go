package imagegen

import "time"

// Defaults mirror the provider's documented limits and the operational
// values the client ships with.
const (
	DefaultMaxParallelRequests = 5
	DefaultAdmissionWait       = 10 * time.Second
	DefaultRequestTimeout      = 25 * time.Second

	DefaultMemoryCacheBytes  = 100 << 20 // 100MB
	DefaultCacheExpiration   = 60 * time.Minute
	DefaultCacheHardCeiling  = 24 * time.Hour
	DefaultCacheScanInterval = 10 * time.Minute
	DefaultDiskCachePath     = "Cache/Images"
	DefaultFileExtension     = ".png"

	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
	DefaultRetryMaxDelay  = 30 * time.Second

	DefaultBatchGroupSize = 4
	DefaultWriteQueueSize = 128
	DefaultQuality        = "standard"
)
