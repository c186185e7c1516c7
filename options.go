package imagegen

import (
	"log/slog"

	"github.com/promptforge/imagegen/breaker"
	"github.com/promptforge/imagegen/metrics"
	"github.com/promptforge/imagegen/ratelimit"
	"github.com/promptforge/imagegen/tracing"
)

// Option configures a Client.
type Option func(*settings)

// settings holds the internal configuration assembled via functional
// options before the Client is wired together.
type settings struct {
	cfg           Config
	logger        *slog.Logger
	metrics       *metrics.Set
	tracing       *tracing.Config
	limiter       *ratelimit.Limiter
	breakerCfg    *breaker.Config
	fileExtension string
	zstdLevel     int
}

// WithConfig replaces the entire configuration. Apply it before options
// that tweak individual fields.
func WithConfig(cfg Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithLogger sets the structured logger used for retries, breaker
// transitions and disk writer failures. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMetrics installs a Prometheus collector set. Without it the client
// runs uninstrumented.
func WithMetrics(m *metrics.Set) Option {
	return func(s *settings) { s.metrics = m }
}

// WithTracing enables OpenTelemetry spans around Generate and
// GenerateBatch.
func WithTracing(cfg tracing.Config) Option {
	return func(s *settings) { s.tracing = &cfg }
}

// WithRateLimit paces provider calls at rps with the given burst, on top of
// the concurrency bound.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) { s.limiter = ratelimit.NewLimiter(rps, burst) }
}

// WithBreaker guards the provider with a circuit breaker.
func WithBreaker(cfg breaker.Config) Option {
	return func(s *settings) { s.breakerCfg = &cfg }
}

// WithFileExtension sets the disk cache filename extension. Default ".png".
func WithFileExtension(ext string) Option {
	return func(s *settings) { s.fileExtension = ext }
}

// WithDiskCompression stores disk entries zstd-compressed at the given
// level instead of verbatim.
func WithDiskCompression(level int) Option {
	return func(s *settings) { s.zstdLevel = level }
}
