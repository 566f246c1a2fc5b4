package reqcache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// Flight combines the backend store with single-flight coordination:
// under concurrent identical requests only one computation runs per
// key, and its output is shared.
type Flight struct {
	store      Store
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
}

// NewFlight wraps a store. cacheTotal is a counter vec with labels
// "cache" and "result"; nil disables metrics.
func NewFlight(store Store, cacheTotal *prometheus.CounterVec) *Flight {
	return &Flight{store: store, cacheTotal: cacheTotal}
}

// Do returns the cached value for key, or runs compute once across all
// concurrent callers and caches its output for ttl.
//
// The computation runs detached from any single caller's context,
// bounded by computeTimeout: a caller that cancels stops waiting
// immediately, but does not abort the flight for its peers, and no
// partial state is ever cached. Failed computations are not cached.
func (f *Flight) Do(
	ctx context.Context, label, key string, ttl, computeTimeout time.Duration,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	if data, err := f.store.Get(ctx, key); err == nil {
		f.incCache(label, "hit")
		return data, nil
	}
	f.incCache(label, "miss")

	ch := f.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()

		data, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		// A failed cache write is not a failed computation.
		_ = f.store.Put(flightCtx, key, data, ttl)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *Flight) incCache(label, result string) {
	if f.cacheTotal != nil {
		f.cacheTotal.WithLabelValues(label, result).Inc()
	}
}

// Close releases the backend.
func (f *Flight) Close() { f.store.Close() }
