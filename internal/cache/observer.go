package cache

import (
	"context"
	"sync"
	"time"
)

// Observer is a long-lived subscription to one key: the state machine behind
// a read hook. It moves through idle, loading, success, error and refetching
// as the manager fetches, invalidates and removes its entry, and reports
// every transition to its subscribers.
//
// Start mounts the observer (registering it for focus, reconnect, interval
// and invalidation refetches); Close, or the end of Start's context,
// unmounts it.
type Observer[T any] struct {
	m   *Manager
	key Key
	fn  func(context.Context) (T, error)

	mu      sync.Mutex
	opts    Options
	subs    map[int]func(Result[T])
	nextSub int
	mounted bool
	stopCh  chan struct{}
	unbind  func() bool
}

// NewObserver creates an unmounted observer for key.
func NewObserver[T any](m *Manager, key Key, fn func(context.Context) (T, error), opts Options) *Observer[T] {
	return &Observer[T]{
		m:    m,
		key:  append(Key(nil), key...),
		fn:   fn,
		opts: opts,
		subs: make(map[int]func(Result[T])),
	}
}

// Key returns the observed key.
func (o *Observer[T]) Key() Key {
	return o.key
}

// Options returns the observer's current options.
func (o *Observer[T]) Options() Options {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts
}

// Subscribe registers fn for every state change and returns a function that
// removes it. fn runs on the goroutine that caused the change.
func (o *Observer[T]) Subscribe(fn func(Result[T])) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Result returns the current state.
func (o *Observer[T]) Result() Result[T] {
	o.mu.Lock()
	opts := o.opts
	mounted := o.mounted
	o.mu.Unlock()

	var r Result[T]
	st, data, ok := o.m.peek(o.key, opts.StaleTime)
	if ok && st.HasData {
		if v, err := cast[T](o.key, data); err == nil {
			r.Data = v
			r.HasData = true
		}
		r.UpdatedAt = st.DataUpdatedAt
	}
	r.Err = st.Err
	r.IsFetching = st.Fetching
	r.IsStale = !ok || st.Stale
	r.FailureCount = st.FailureCount

	switch {
	case st.Fetching && r.HasData:
		r.Status = StatusRefetching
	case st.Fetching:
		r.Status = StatusLoading
	case st.Err != nil:
		r.Status = StatusError
	case r.HasData:
		r.Status = StatusSuccess
	case opts.Disabled || !mounted:
		r.Status = StatusIdle
	default:
		r.Status = StatusLoading
	}
	return r
}

// Start mounts the observer until ctx is done or Close is called. It
// fetches in the background when there is no data yet, or when the data is
// stale and RefetchOnMount is set. A fetch shared with other readers keeps
// running after the observer unmounts.
func (o *Observer[T]) Start(ctx context.Context) {
	o.mu.Lock()
	if o.mounted {
		o.mu.Unlock()
		return
	}
	o.mounted = true
	o.stopCh = make(chan struct{})
	o.unbind = context.AfterFunc(ctx, o.Close)
	stopCh := o.stopCh
	opts := o.opts
	o.mu.Unlock()

	if !o.m.register(o.key, o) {
		return
	}
	if opts.RefetchInterval > 0 {
		go o.poll(opts.RefetchInterval, stopCh)
	}
	o.notify()
	o.fetchOnMount()
}

func (o *Observer[T]) fetchOnMount() {
	opts := o.Options()
	if opts.Disabled {
		return
	}
	st, ok := o.m.stateWithStaleTime(o.key, opts.StaleTime)
	if !ok || !st.HasData || (opts.RefetchOnMount && st.Stale) {
		o.m.refetchInBackground([]listener{o})
	}
}

// Close unmounts the observer. The entry becomes eligible for GC once no
// other observer watches it.
func (o *Observer[T]) Close() {
	o.mu.Lock()
	if !o.mounted {
		o.mu.Unlock()
		return
	}
	o.mounted = false
	o.haltLocked()
	o.mu.Unlock()
	o.m.unregister(o.key, o)
}

// SetEnabled toggles the query. Enabling a mounted observer fetches if needed.
func (o *Observer[T]) SetEnabled(enabled bool) {
	o.mu.Lock()
	changed := o.opts.Disabled == enabled
	o.opts.Disabled = !enabled
	mounted := o.mounted
	o.mu.Unlock()

	if !changed {
		return
	}
	o.notify()
	if enabled && mounted {
		o.fetchOnMount()
	}
}

// Fetch returns fresh cached data or fetches it.
func (o *Observer[T]) Fetch(ctx context.Context) (T, error) {
	return Query(ctx, o.m, o.key, o.fn, o.Options())
}

// Refetch always goes to the network (sharing any in-flight fetch).
func (o *Observer[T]) Refetch(ctx context.Context) (T, error) {
	var zero T
	opts := o.Options()
	if opts.Disabled {
		return zero, ErrDisabled
	}
	v, err := o.m.Refetch(ctx, o.key, func(ctx context.Context) (any, error) { return o.fn(ctx) }, opts)
	if err != nil {
		return zero, err
	}
	return cast[T](o.key, v)
}

func (o *Observer[T]) poll(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if o.enabled() {
				o.m.refetchInBackground([]listener{o})
			}
		}
	}
}

// haltLocked stops the poller and detaches from Start's context.
// Callers hold o.mu.
func (o *Observer[T]) haltLocked() {
	if o.stopCh != nil {
		close(o.stopCh)
		o.stopCh = nil
	}
	if o.unbind != nil {
		o.unbind()
		o.unbind = nil
	}
}

// listener implementation

func (o *Observer[T]) notify() {
	r := o.Result()
	o.mu.Lock()
	subs := make([]func(Result[T]), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()
	for _, fn := range subs {
		fn(r)
	}
}

func (o *Observer[T]) enabled() bool {
	return !o.Options().Disabled
}

func (o *Observer[T]) wantsFocus() bool {
	return o.Options().RefetchOnFocus
}

func (o *Observer[T]) wantsReconnect() bool {
	return o.Options().RefetchOnReconnect
}

func (o *Observer[T]) staleTime() time.Duration {
	return o.Options().StaleTime
}

func (o *Observer[T]) refetch(ctx context.Context) {
	_, _ = o.Refetch(ctx)
}

func (o *Observer[T]) stop() {
	o.mu.Lock()
	o.mounted = false
	o.haltLocked()
	o.mu.Unlock()
}
