package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSet_CountersRegisterAndIncrement(t *testing.T) {
	s := New()

	s.CacheHits.WithLabelValues("memory").Inc()
	s.CacheHits.WithLabelValues("disk").Add(2)
	s.CacheMisses.Inc()
	s.ProviderCalls.WithLabelValues("success").Inc()
	s.InFlight.Inc()

	if got := testutil.ToFloat64(s.CacheHits.WithLabelValues("disk")); got != 2 {
		t.Fatalf("disk hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.CacheMisses); got != 1 {
		t.Fatalf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.InFlight); got != 1 {
		t.Fatalf("inflight = %v, want 1", got)
	}
}

func TestSet_HandlerServesMetrics(t *testing.T) {
	s := New()
	s.CacheMisses.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "imagegen_cache_misses_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
