package imagegen

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/promptforge/imagegen/cache"
	"github.com/promptforge/imagegen/provider"
	"github.com/promptforge/imagegen/sizing"
	"github.com/promptforge/imagegen/tracing"
)

// Result pairs one batch request with its outcome. Exactly one of Data and
// Err is set.
type Result struct {
	Request Request
	Data    []byte
	Err     error
}

// job is one still-unresolved batch entry carried between the passes.
type job struct {
	index int // position in the submitted slice
	key   string
	preq  provider.Request
}

// GenerateBatch resolves a set of requests in three passes: cache lookups,
// an optional grouped provider batch path, then priority-ordered individual
// dispatch. Results are positional; a failure in one entry never affects the
// others.
func (c *Client) GenerateBatch(ctx context.Context, reqs []Request) []Result {
	ctx, span := tracing.Start(ctx, c.trc, "imagegen.GenerateBatch",
		attribute.Int("imagegen.batch_size", len(reqs)))
	defer tracing.End(span, nil)

	results := make([]Result, len(reqs))
	var pending []job

	// Pass 1: resolve everything the cache already holds.
	for i, req := range reqs {
		results[i].Request = req
		w, h := req.Width, req.Height
		if c.cfg.EnableSmartSizing {
			w, h = sizing.Normalize(w, h)
		}
		j := job{index: i, key: DeriveKey(req.Descriptor, w, h), preq: c.providerRequest(req, w, h)}
		if req.Cache {
			if data, tier, ok := c.cache.Get(ctx, j.key); ok {
				c.recordTier(tier)
				results[i].Data = data
				continue
			}
			c.recordTier(cache.TierNone)
		}
		pending = append(pending, j)
	}
	if len(pending) == 0 {
		return results
	}
	span.SetAttributes(attribute.Int("imagegen.batch_pending", len(pending)))

	// Pass 2: grouped batch calls when the provider supports them. Only
	// worth a round trip when more than one request is left.
	if bc, ok := c.prov.(provider.BatchClient); ok && len(pending) > 1 {
		pending = c.runBatchGroups(ctx, bc, reqs, results, pending)
	}

	// Pass 3: individual dispatch. Sorted so higher-priority work reaches
	// the admission gate first; results are collected in completion order.
	sort.SliceStable(pending, func(a, b int) bool {
		ra, rb := reqs[pending[a].index], reqs[pending[b].index]
		if ra.Priority != rb.Priority {
			return ra.Priority > rb.Priority
		}
		if len(ra.Descriptor) != len(rb.Descriptor) {
			return len(ra.Descriptor) < len(rb.Descriptor)
		}
		return pending[a].index < pending[b].index
	})

	type outcome struct {
		index int
		data  []byte
		err   error
	}
	done := make(chan outcome, len(pending))
	for _, j := range pending {
		go func(j job) {
			data, err := c.resolveOne(ctx, reqs[j.index].Cache, j)
			done <- outcome{j.index, data, err}
		}(j)
	}
	for range pending {
		o := <-done
		results[o.index].Data, results[o.index].Err = o.data, o.err
	}
	return results
}

// resolveOne runs a single pending entry through the same pipeline as
// Generate, including cache write-through and load coalescing for eligible
// requests.
func (c *Client) resolveOne(ctx context.Context, cacheable bool, j job) ([]byte, error) {
	if !cacheable {
		return c.callProvider(ctx, j.preq)
	}
	data, _, err := c.cache.GetOrLoad(ctx, j.key, func(ctx context.Context) ([]byte, error) {
		return c.callProvider(ctx, j.preq)
	})
	return data, err
}

// runBatchGroups sends pending work to the provider in fixed-size groups.
// Any group failure abandons the batch path: the failed group and every
// unsent one are returned for individual dispatch.
func (c *Client) runBatchGroups(ctx context.Context, bc provider.BatchClient, reqs []Request, results []Result, pending []job) []job {
	size := c.cfg.BatchGroupSize
	if size < 1 {
		size = DefaultBatchGroupSize
	}
	for start := 0; start < len(pending); start += size {
		end := start + size
		if end > len(pending) {
			end = len(pending)
		}
		group := pending[start:end]
		datas, err := c.callBatch(ctx, bc, group)
		if err != nil {
			c.log.Warn("provider batch call failed, falling back to individual dispatch",
				"group_size", len(group), "error", err)
			return pending[start:]
		}
		for gi, j := range group {
			results[j.index].Data = datas[gi]
			if reqs[j.index].Cache {
				c.cache.Put(ctx, j.key, datas[gi])
			}
		}
	}
	return nil
}

// callBatch issues one grouped provider call under a single admission
// permit and the per-request deadline.
func (c *Client) callBatch(ctx context.Context, bc provider.BatchClient, group []job) ([][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	permit, err := c.gate.Acquire(ctx)
	if err != nil {
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

	preqs := make([]provider.Request, len(group))
	for i, j := range group {
		preqs[i] = j.preq
	}
	datas, err := bc.GenerateBatch(ctx, preqs)
	if err != nil {
		c.recordCall(outcomeLabel(provider.Transient(err)))
		return nil, wrapDeadline(ctx, err)
	}
	if len(datas) != len(group) {
		c.recordCall("permanent")
		return nil, fmt.Errorf("provider returned %d results for %d requests", len(datas), len(group))
	}
	c.recordCall("success")
	return datas, nil
}
