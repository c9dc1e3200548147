package resolve

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/observability"
)

// MetadataProvider retrieves registry metadata. Implementations must be
// safe for concurrent use; [npm.Client] is the production one.
type MetadataProvider interface {
	Packument(ctx context.Context, name npm.PackageName) (*npm.Packument, error)
}

type memoResult struct {
	p   *npm.Packument
	err error
}

// Memo caches packuments for the duration of one resolution. Each name is
// fetched at most once: concurrent requests share a single in-flight fetch,
// and results, errors included, are written once and never change.
//
// Fetches run under the memo's own context, so a caller that gives up
// waiting does not abort a fetch other callers are waiting on. [Memo.Close]
// cancels outstanding prefetches.
type Memo struct {
	provider MetadataProvider
	ctx      context.Context
	cancel   context.CancelFunc

	group   singleflight.Group
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	fetches atomic.Int64

	mu      sync.RWMutex
	results map[string]memoResult
	queued  map[string]bool
}

// NewMemo creates a memo whose fetches live as long as ctx or until Close.
// workers bounds the number of concurrent prefetches.
func NewMemo(ctx context.Context, provider MetadataProvider, workers int) *Memo {
	ctx, cancel := context.WithCancel(ctx)
	return &Memo{
		provider: provider,
		ctx:      ctx,
		cancel:   cancel,
		sem:      semaphore.NewWeighted(int64(max(workers, 1))),
		results:  map[string]memoResult{},
		queued:   map[string]bool{},
	}
}

// Get returns the packument for name, fetching it if needed. It returns
// early with ctx.Err() if ctx ends while waiting.
func (m *Memo) Get(ctx context.Context, name npm.PackageName) (*npm.Packument, error) {
	key := name.String()
	if r, ok := m.lookup(key); ok {
		return r.p, r.err
	}
	ch := m.group.DoChan(key, func() (any, error) {
		if r, ok := m.lookup(key); ok {
			return r, nil
		}
		start := time.Now()
		p, err := m.provider.Packument(m.ctx, name)
		m.fetches.Add(1)
		observability.Resolve().OnMetadataFetch(m.ctx, key, time.Since(start), err)
		r := memoResult{p: p, err: err}
		m.mu.Lock()
		if prev, ok := m.results[key]; ok {
			r = prev
		} else {
			m.results[key] = r
		}
		m.mu.Unlock()
		return r, nil
	})
	select {
	case res := <-ch:
		r := res.Val.(memoResult)
		return r.p, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Memo) lookup(key string) (memoResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[key]
	return r, ok
}

// Prefetch starts background fetches for names not yet requested. It never
// blocks and never reports errors; a later Get surfaces them.
func (m *Memo) Prefetch(names ...npm.PackageName) {
	for _, name := range names {
		key := name.String()
		m.mu.Lock()
		_, done := m.results[key]
		if done || m.queued[key] || m.ctx.Err() != nil {
			m.mu.Unlock()
			continue
		}
		m.queued[key] = true
		m.wg.Add(1)
		m.mu.Unlock()

		go func() {
			defer m.wg.Done()
			if err := m.sem.Acquire(m.ctx, 1); err != nil {
				return
			}
			defer m.sem.Release(1)
			_, _ = m.Get(m.ctx, name)
		}()
	}
}

// Fetches returns how many provider calls the memo has made.
func (m *Memo) Fetches() int64 { return m.fetches.Load() }

// Close cancels outstanding prefetches and waits for them to stop.
func (m *Memo) Close() {
	m.cancel()
	m.wg.Wait()
}
