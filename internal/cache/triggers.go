package cache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// listener is the manager's view of an Observer.
type listener interface {
	notify()
	enabled() bool
	wantsFocus() bool
	wantsReconnect() bool
	staleTime() time.Duration
	refetch(ctx context.Context)
	stop()
}

func notifyAll(ls []listener) {
	for _, l := range ls {
		l.notify()
	}
}

func enabledOnly(ls []listener) []listener {
	var out []listener
	for _, l := range ls {
		if l.enabled() {
			out = append(out, l)
		}
	}
	return out
}

// listenersLocked returns the observers of key. Callers hold m.mu.
func (m *Manager) listenersLocked(key Key) []listener {
	set := m.observers[key.hash()]
	if len(set) == 0 {
		return nil
	}
	out := make([]listener, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	return out
}

// register attaches an observer to key and pins the entry against GC.
func (m *Manager) register(key Key, l listener) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	h := key.hash()
	set, ok := m.observers[h]
	if !ok {
		set = make(map[listener]struct{})
		m.observers[h] = set
	}
	set[l] = struct{}{}
	if e := m.store.get(key); e != nil && e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	return true
}

// unregister detaches an observer; the last one out starts the GC timer.
func (m *Manager) unregister(key Key, l listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := key.hash()
	set := m.observers[h]
	delete(set, l)
	if len(set) > 0 {
		return
	}
	delete(m.observers, h)
	if e := m.store.get(key); e != nil {
		m.scheduleGC(e)
	}
}

// Focus signals that the user is back. Observers that opted into focus
// refetching and hold stale data refetch in the background.
func (m *Manager) Focus() {
	m.logger.Debug().Msg("focus")
	m.refetchInBackground(m.staleListeners(func(l listener) bool { return l.wantsFocus() }))
}

// SetOnline records connectivity. Going from offline to online refetches
// stale observers that opted into reconnect refetching.
func (m *Manager) SetOnline(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	m.mu.Unlock()

	if was == online {
		return
	}
	m.logger.Debug().Bool("online", online).Msg("connectivity changed")
	if online {
		m.refetchInBackground(m.staleListeners(func(l listener) bool { return l.wantsReconnect() }))
	}
}

// IsOnline reports the last connectivity state given to SetOnline.
func (m *Manager) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// staleListeners picks one enabled, accepting observer per key whose entry
// is stale and not already fetching.
func (m *Manager) staleListeners(accept func(listener) bool) []listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []listener
	for h, set := range m.observers {
		e := m.store.entries[h]
		if e != nil && e.fetching() {
			continue
		}
		for l := range set {
			if !l.enabled() || !accept(l) {
				continue
			}
			if e == nil || m.isStale(e, l.staleTime()) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}

// refetchInBackground runs the observers' refetches with bounded parallelism.
func (m *Manager) refetchInBackground(ls []listener) {
	if len(ls) == 0 {
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.bg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.bg.Done()
		g, ctx := errgroup.WithContext(m.ctx)
		g.SetLimit(m.concurrency)
		for _, l := range ls {
			g.Go(func() error {
				l.refetch(ctx)
				return nil
			})
		}
		g.Wait()
	}()
}
