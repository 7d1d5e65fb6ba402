package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Manager owns every cache entry for one application run.
//
// # Features
//
//   - Serves fresh entries without touching the network
//   - De-duplicates concurrent fetches of one key (single in-flight call)
//   - Retries failed fetches according to each query's RetryPolicy
//   - Prefix invalidation (mark stale + refetch observed entries) and exact removal
//   - Garbage-collects unobserved entries after their retention window
//   - Fans focus, reconnect and invalidation refetches out to observers with
//     bounded parallelism
//
// # Lifecycle
//
// Construct one Manager at startup, pass it to every consumer, and Close it
// on shutdown. Close stops timers and pollers, cancels background refetches
// and drops all entries. Tests construct their own Manager per case.
type Manager struct {
	defaults    Options
	logger      zerolog.Logger
	now         func() time.Time
	concurrency int

	mu        sync.Mutex
	store     *memoryStore
	observers map[string]map[listener]struct{}
	online    bool
	closed    bool

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock replaces time.Now for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithDefaults replaces the default query options.
func WithDefaults(o Options) Option {
	return func(m *Manager) { m.defaults = o }
}

// WithRefetchConcurrency bounds parallel background refetches.
func WithRefetchConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// DefaultOptions returns the options applied when a query sets nothing else:
// 5 minute staleness, 10 minute retention, three exponential retries.
func DefaultOptions() Options {
	return Options{
		StaleTime:          core.DefaultStaleTime,
		GCTime:             core.DefaultGCTime,
		Retry:              ExponentialRetry(core.QueryMaxRetries, core.QueryRetryDelay, core.QueryMaxRetryDelay),
		RefetchOnMount:     true,
		RefetchOnFocus:     true,
		RefetchOnReconnect: true,
	}
}

// NewManager creates an empty cache.
func NewManager(opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		defaults:    DefaultOptions(),
		logger:      zerolog.Nop(),
		now:         time.Now,
		concurrency: 4,
		store:       newMemoryStore(),
		observers:   make(map[string]map[listener]struct{}),
		online:      true,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "cache").Logger()
	return m
}

// Defaults returns the manager's default query options.
func (m *Manager) Defaults() Options {
	return m.defaults
}

// Close tears the cache down. It is safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	var ls []listener
	for _, set := range m.observers {
		for l := range set {
			ls = append(ls, l)
		}
	}
	m.mu.Unlock()

	for _, l := range ls {
		l.stop()
	}
	m.cancel()
	m.bg.Wait()

	m.mu.Lock()
	m.store.reset()
	m.observers = make(map[string]map[listener]struct{})
	m.mu.Unlock()
	m.logger.Debug().Msg("closed")
}

// FetchFunc loads the value for one key.
type FetchFunc func(ctx context.Context) (any, error)

// Query returns the cached value for key when it is fresh, and otherwise
// fetches it (sharing any fetch already in flight for the key).
func Query[T any](ctx context.Context, m *Manager, key Key, fn func(context.Context) (T, error), opts Options) (T, error) {
	var zero T
	if opts.Disabled {
		return zero, ErrDisabled
	}
	v, err := m.Fetch(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) }, opts)
	if err != nil {
		return zero, err
	}
	return cast[T](key, v)
}

func cast[T any](key Key, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: key %s holds %T, not %T", key, v, zero)
	}
	return t, nil
}

// Fetch is the untyped form of Query.
func (m *Manager) Fetch(ctx context.Context, key Key, fn FetchFunc, opts Options) (any, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("cache: manager closed")
	}
	e, created := m.store.getOrCreate(key)
	m.retain(e, opts)
	if !created && e.hasData && !m.isStale(e, opts.StaleTime) {
		v := e.data
		m.scheduleGC(e)
		m.mu.Unlock()
		m.logger.Debug().Stringer("key", key).Msg("hit")
		return v, nil
	}
	m.mu.Unlock()
	return m.fetchEntry(ctx, e, fn, opts)
}

// Refetch fetches key from the network even when the cached value is fresh.
func (m *Manager) Refetch(ctx context.Context, key Key, fn FetchFunc, opts Options) (any, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("cache: manager closed")
	}
	e, _ := m.store.getOrCreate(key)
	m.retain(e, opts)
	m.mu.Unlock()
	return m.fetchEntry(ctx, e, fn, opts)
}

// fetchEntry runs fn for e with de-duplication and retries. The caller's
// context bounds only its own wait: a shared fetch keeps running for the
// other waiters and is cancelled only by Close.
//
// Readers share a flight only within one entry generation. A fetch that
// settles after its entry was invalidated does not mark the entry fresh.
func (m *Manager) fetchEntry(ctx context.Context, e *entry, fn FetchFunc, opts Options) (any, error) {
	m.mu.Lock()
	gen := e.gen
	flight := e.flightKey()
	m.mu.Unlock()

	ch := m.group.DoChan(flight, func() (any, error) {
		m.markFetching(e)

		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		stop := context.AfterFunc(m.ctx, cancel)
		defer stop()
		defer cancel()

		m.logger.Debug().Stringer("key", e.key).Msg("fetch")
		v, err := runWithRetry(fctx, opts.Retry, fn, func(attempt int, err error) {
			m.logger.Debug().Stringer("key", e.key).Int("attempt", attempt).Err(err).Msg("fetch failed")
		})
		m.settle(e, gen, v, err)
		return v, err
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// retain records the entry's retention window. Callers hold m.mu.
func (m *Manager) retain(e *entry, opts Options) {
	gc := opts.GCTime
	if gc <= 0 {
		gc = m.defaults.GCTime
	}
	if gc > e.gcTime {
		e.gcTime = gc
	}
}

// isStale reports whether e needs a refetch. Callers hold m.mu.
func (m *Manager) isStale(e *entry, staleTime time.Duration) bool {
	if !e.hasData || e.invalidated {
		return true
	}
	return m.now().Sub(e.dataUpdatedAt) >= staleTime
}

func (m *Manager) markFetching(e *entry) {
	m.mu.Lock()
	e.flights++
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	ls := m.listenersLocked(e.key)
	m.mu.Unlock()
	notifyAll(ls)
}

// settle stores the outcome of a fetch started at generation gen and
// notifies observers. An outdated success only fills an empty entry and
// leaves it stale.
func (m *Manager) settle(e *entry, gen uint64, v any, err error) {
	m.mu.Lock()
	e.flights--
	current := e.gen == gen
	switch {
	case err == nil && current:
		e.data = v
		e.hasData = true
		e.err = nil
		e.invalidated = false
		e.failureCount = 0
		e.dataUpdatedAt = m.now()
	case err == nil:
		if !e.hasData {
			e.data = v
			e.hasData = true
			e.invalidated = true
		}
	case errors.Is(err, context.Canceled) && m.closed:
		// Torn down mid-flight; nothing to record.
	default:
		e.err = err
		e.errorUpdatedAt = m.now()
		e.failureCount++
	}
	m.scheduleGC(e)
	ls := m.listenersLocked(e.key)
	m.mu.Unlock()

	if err != nil {
		m.logger.Debug().Stringer("key", e.key).Err(err).Msg("fetch error")
	} else if !current {
		m.logger.Debug().Stringer("key", e.key).Msg("outdated fetch settled")
	}
	notifyAll(ls)
}

// scheduleGC arms the retention timer for an unobserved, idle entry.
// Callers hold m.mu.
func (m *Manager) scheduleGC(e *entry) {
	if m.closed || e.fetching() || len(m.observers[e.key.hash()]) > 0 {
		return
	}
	if e.gcTimer != nil {
		e.gcTimer.Stop()
	}
	e.gcTimer = time.AfterFunc(e.gcTime, func() { m.collect(e) })
}

// collect evicts e if it is still unused.
func (m *Manager) collect(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.fetching() || len(m.observers[e.key.hash()]) > 0 {
		return
	}
	if m.store.delete(e) {
		m.logger.Debug().Stringer("key", e.key).Msg("evicted")
	}
}

// Invalidate marks every entry under prefix stale. Observed, enabled
// entries are refetched in the background. It returns the number of
// entries marked.
func (m *Manager) Invalidate(prefix Key) int {
	m.mu.Lock()
	entries := m.store.match(prefix)
	var targets []listener
	for _, e := range entries {
		e.invalidated = true
		m.store.bump(e)
		for _, l := range m.listenersLocked(e.key) {
			if l.enabled() {
				targets = append(targets, l)
			}
		}
	}
	m.mu.Unlock()

	m.logger.Debug().Stringer("prefix", prefix).Int("entries", len(entries)).Msg("invalidate")
	m.refetchInBackground(targets)
	return len(entries)
}

// Remove deletes exactly key from the cache. A fetch already in flight for
// the key is detached: later reads start their own. Enabled observers of the
// key refetch in the background. It reports whether an entry existed.
func (m *Manager) Remove(key Key) bool {
	m.mu.Lock()
	e := m.store.get(key)
	if e == nil {
		m.mu.Unlock()
		return false
	}
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	m.store.bump(e)
	m.store.delete(e)
	ls := m.listenersLocked(key)
	m.mu.Unlock()

	m.logger.Debug().Stringer("key", key).Msg("remove")
	notifyAll(ls)
	m.refetchInBackground(enabledOnly(ls))
	return true
}

// RemovePrefix deletes every entry under prefix and returns how many were removed.
func (m *Manager) RemovePrefix(prefix Key) int {
	m.mu.Lock()
	entries := m.store.match(prefix)
	m.mu.Unlock()
	n := 0
	for _, e := range entries {
		if m.Remove(e.key) {
			n++
		}
	}
	return n
}

// GetData returns the cached value for key, fresh or not.
func (m *Manager) GetData(key Key) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.store.get(key)
	if e == nil || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// SetData stores v under key as freshly fetched data.
func (m *Manager) SetData(key Key, v any) {
	m.mu.Lock()
	e, _ := m.store.getOrCreate(key)
	m.retain(e, Options{})
	e.data = v
	e.hasData = true
	e.err = nil
	e.invalidated = false
	e.dataUpdatedAt = m.now()
	m.store.bump(e)
	m.scheduleGC(e)
	ls := m.listenersLocked(key)
	m.mu.Unlock()
	notifyAll(ls)
}

// State returns a snapshot of the entry for key.
func (m *Manager) State(key Key) (EntryState, bool) {
	return m.stateWithStaleTime(key, m.defaults.StaleTime)
}

func (m *Manager) stateWithStaleTime(key Key, staleTime time.Duration) (EntryState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.store.get(key)
	if e == nil {
		return EntryState{Key: key}, false
	}
	return m.snapshotLocked(e, staleTime), true
}

// peek returns the entry snapshot together with its raw data.
func (m *Manager) peek(key Key, staleTime time.Duration) (EntryState, any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.store.get(key)
	if e == nil {
		return EntryState{Key: key}, nil, false
	}
	return m.snapshotLocked(e, staleTime), e.data, true
}

func (m *Manager) snapshotLocked(e *entry, staleTime time.Duration) EntryState {
	return EntryState{
		Key:            e.key,
		HasData:        e.hasData,
		Err:            e.err,
		Fetching:       e.fetching(),
		Invalidated:    e.invalidated,
		Stale:          m.isStale(e, staleTime),
		DataUpdatedAt:  e.dataUpdatedAt,
		ErrorUpdatedAt: e.errorUpdatedAt,
		FailureCount:   e.failureCount,
		Observers:      len(m.observers[e.key.hash()]),
	}
}

// Keys lists every cached key.
func (m *Manager) Keys() []Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.keys()
}

// Len returns the number of cached entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.len()
}

// Clear drops every entry without closing the manager. Enabled observers
// refetch in the background.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.store.reset()
	var ls []listener
	for _, set := range m.observers {
		for l := range set {
			ls = append(ls, l)
		}
	}
	m.mu.Unlock()
	notifyAll(ls)
	m.refetchInBackground(enabledOnly(ls))
}
