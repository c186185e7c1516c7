package imagegen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/promptforge/imagegen/provider"
)

// fakeBatchProvider adds a grouped path on top of fakeProvider.
type fakeBatchProvider struct {
	fakeProvider

	mu         sync.Mutex
	batchCalls int
	groupSizes []int
	batchFn    func(reqs []provider.Request) ([][]byte, error)
}

func (f *fakeBatchProvider) GenerateBatch(ctx context.Context, reqs []provider.Request) ([][]byte, error) {
	f.mu.Lock()
	f.batchCalls++
	f.groupSizes = append(f.groupSizes, len(reqs))
	f.mu.Unlock()
	if f.batchFn != nil {
		return f.batchFn(reqs)
	}
	out := make([][]byte, len(reqs))
	for i, r := range reqs {
		out[i] = []byte("batch:" + r.Descriptor)
	}
	return out, nil
}

func (f *fakeBatchProvider) batchStats() (calls int, sizes []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchCalls, append([]int(nil), f.groupSizes...)
}

func batchRequests(n int) []Request {
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = Request{
			Descriptor: fmt.Sprintf("item-%d", i),
			Width:      256, Height: 256,
			Cache: true,
		}
	}
	return reqs
}

func TestGenerateBatchFailureIsolation(t *testing.T) {
	fp := &fakeProvider{fn: func(req provider.Request) ([]byte, error) {
		if req.Descriptor == "item-1" {
			return nil, &provider.Error{Kind: provider.KindPermanent, Status: 400, Msg: "rejected"}
		}
		return []byte("image:" + req.Descriptor), nil
	}}
	c := newTestClient(t, fp, testConfig())

	results := c.GenerateBatch(context.Background(), batchRequests(3))
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || string(results[0].Data) != "image:item-0" {
		t.Fatalf("result 0 = (%q, %v)", results[0].Data, results[0].Err)
	}
	if results[1].Err == nil {
		t.Fatal("result 1: expected error")
	}
	if results[1].Data != nil {
		t.Fatalf("result 1 carries data alongside error: %q", results[1].Data)
	}
	if results[2].Err != nil || string(results[2].Data) != "image:item-2" {
		t.Fatalf("result 2 = (%q, %v)", results[2].Data, results[2].Err)
	}
}

func TestGenerateBatchResolvesFromCacheFirst(t *testing.T) {
	fp := &fakeProvider{}
	c := newTestClient(t, fp, testConfig())

	reqs := batchRequests(3)
	if _, err := c.Generate(context.Background(), reqs[0]); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	results := c.GenerateBatch(context.Background(), reqs)
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d: %v", i, r.Err)
		}
	}
	// One warmup call plus the two uncached entries.
	if got := fp.callCount(); got != 3 {
		t.Fatalf("provider called %d times, want 3", got)
	}
}

func TestGenerateBatchUsesProviderGroups(t *testing.T) {
	cfg := testConfig()
	cfg.BatchGroupSize = 2
	fp := &fakeBatchProvider{}
	c := newTestClient(t, fp, cfg)

	results := c.GenerateBatch(context.Background(), batchRequests(5))
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d: %v", i, r.Err)
		}
		if want := fmt.Sprintf("batch:item-%d", i); string(r.Data) != want {
			t.Fatalf("result %d = %q, want %q", i, r.Data, want)
		}
	}

	calls, sizes := fp.batchStats()
	if calls != 3 {
		t.Fatalf("batch calls = %d, want 3", calls)
	}
	for i, want := range []int{2, 2, 1} {
		if sizes[i] != want {
			t.Fatalf("group sizes = %v, want [2 2 1]", sizes)
		}
	}
	if got := fp.callCount(); got != 0 {
		t.Fatalf("individual provider calls = %d, want 0", got)
	}

	// Batch results are written through to the cache.
	if _, err := c.Generate(context.Background(), batchRequests(5)[0]); err != nil {
		t.Fatalf("Generate after batch: %v", err)
	}
	if got := fp.callCount(); got != 0 {
		t.Fatalf("cached batch result regenerated, %d individual calls", got)
	}
}

func TestGenerateBatchGroupFailureFallsBackToIndividual(t *testing.T) {
	cfg := testConfig()
	cfg.BatchGroupSize = 2

	fp := &fakeBatchProvider{}
	fp.batchFn = func(reqs []provider.Request) ([][]byte, error) {
		calls, _ := fp.batchStats()
		if calls > 1 {
			return nil, &provider.Error{Kind: provider.KindTransientNetwork, Msg: "batch endpoint degraded"}
		}
		out := make([][]byte, len(reqs))
		for i, r := range reqs {
			out[i] = []byte("batch:" + r.Descriptor)
		}
		return out, nil
	}
	c := newTestClient(t, fp, cfg)

	results := c.GenerateBatch(context.Background(), batchRequests(5))
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d: %v", i, r.Err)
		}
		if len(r.Data) == 0 {
			t.Fatalf("result %d has no data", i)
		}
	}

	// First group succeeded, second failed, no further groups sent.
	calls, _ := fp.batchStats()
	if calls != 2 {
		t.Fatalf("batch calls = %d, want 2", calls)
	}
	// The failed group's two entries plus the never-sent fifth go individual.
	if got := fp.callCount(); got != 3 {
		t.Fatalf("individual provider calls = %d, want 3", got)
	}
}

func TestGenerateBatchSinglePendingSkipsGroupPath(t *testing.T) {
	fp := &fakeBatchProvider{}
	c := newTestClient(t, fp, testConfig())

	results := c.GenerateBatch(context.Background(), batchRequests(1))
	if results[0].Err != nil {
		t.Fatalf("result: %v", results[0].Err)
	}
	calls, _ := fp.batchStats()
	if calls != 0 {
		t.Fatalf("batch calls = %d, want 0", calls)
	}
	if got := fp.callCount(); got != 1 {
		t.Fatalf("individual provider calls = %d, want 1", got)
	}
}

func TestGenerateBatchCacheIneligibleSkipsWriteThrough(t *testing.T) {
	fp := &fakeProvider{}
	c := newTestClient(t, fp, testConfig())

	reqs := batchRequests(2)
	reqs[1].Cache = false
	results := c.GenerateBatch(context.Background(), reqs)
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d: %v", i, r.Err)
		}
	}
	if n := c.CacheLen(); n != 1 {
		t.Fatalf("cache holds %d entries, want 1", n)
	}
}

func TestGenerateBatchEmpty(t *testing.T) {
	fp := &fakeProvider{}
	c := newTestClient(t, fp, testConfig())

	results := c.GenerateBatch(context.Background(), nil)
	if len(results) != 0 {
		t.Fatalf("got %d results for empty batch", len(results))
	}
	if got := fp.callCount(); got != 0 {
		t.Fatalf("provider called %d times, want 0", got)
	}
}

func TestGenerateBatchTimeoutSurfacesPerEntry(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	cfg.RetryBaseDelay = 100 * time.Millisecond

	fp := &fakeProvider{fn: func(req provider.Request) ([]byte, error) {
		if req.Descriptor == "item-0" {
			return nil, &provider.Error{Kind: provider.KindTransientTimeout, Msg: "slow"}
		}
		return []byte("ok"), nil
	}}
	c := newTestClient(t, fp, cfg)

	results := c.GenerateBatch(context.Background(), batchRequests(2))
	if !errors.Is(results[0].Err, ErrRequestTimeout) {
		t.Fatalf("result 0 err = %v, want ErrRequestTimeout", results[0].Err)
	}
	if results[1].Err != nil {
		t.Fatalf("result 1: %v", results[1].Err)
	}
}
