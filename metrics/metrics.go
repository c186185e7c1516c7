// Package metrics exposes Prometheus instrumentation for the generation
// client: cache effectiveness, provider call outcomes, retries, admission
// pressure and disk writer health.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the client's collectors. Create one per client (or share one
// registry across clients via NewWith).
type Set struct {
	CacheHits         *prometheus.CounterVec
	CacheMisses       prometheus.Counter
	ProviderCalls     *prometheus.CounterVec
	RetryAttempts     prometheus.Counter
	AdmissionTimeouts prometheus.Counter
	InFlight          prometheus.Gauge
	DiskWriteFailures prometheus.Counter

	reg *prometheus.Registry
}

// New creates a Set with its own registry.
func New() *Set {
	return NewWith(prometheus.NewRegistry())
}

// NewWith creates a Set registered on reg.
func NewWith(reg *prometheus.Registry) *Set {
	s := &Set{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagegen_cache_hits_total",
			Help: "Cache hits by tier.",
		}, []string{"tier"}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagegen_cache_misses_total",
			Help: "Lookups that fell through both cache tiers.",
		}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagegen_provider_calls_total",
			Help: "Completed provider calls by outcome.",
		}, []string{"outcome"}),
		RetryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagegen_retry_attempts_total",
			Help: "Retries performed after transient provider failures.",
		}),
		AdmissionTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagegen_admission_timeouts_total",
			Help: "Requests that found no free concurrency slot in time.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imagegen_inflight_requests",
			Help: "Provider calls currently holding an admission permit.",
		}),
		DiskWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagegen_disk_write_failures_total",
			Help: "Disk cache writes that failed or were dropped.",
		}),
		reg: reg,
	}

	reg.MustRegister(
		s.CacheHits,
		s.CacheMisses,
		s.ProviderCalls,
		s.RetryAttempts,
		s.AdmissionTimeouts,
		s.InFlight,
		s.DiskWriteFailures,
	)
	return s
}

// Handler returns an http.Handler serving the Set's registry, for wiring
// into operational tooling.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
}
