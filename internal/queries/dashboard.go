package queries

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
)

// DashboardResult merges the stats and recent-solutions states.
type DashboardResult struct {
	Stats  cache.Result[*api.DashboardStats]
	Recent cache.Result[[]api.Solution]

	// IsLoading is true while either part is loading its first value.
	IsLoading bool
	// IsError is true when either part failed; Err is the first failure,
	// stats before recent.
	IsError bool
	Err     error
}

// Dashboard combines the Stats and Recent hooks. Both parts fetch
// concurrently and independently.
type Dashboard struct {
	stats  *cache.Observer[*api.DashboardStats]
	recent *cache.Observer[[]api.Solution]

	mu      sync.Mutex
	subs    map[int]func(DashboardResult)
	nextSub int
	unsubs  []func()
}

// Dashboard creates the composite for the given recent-solutions limit.
func (c *Client) Dashboard(limit int) *Dashboard {
	d := &Dashboard{
		stats:  c.Stats(),
		recent: c.Recent(limit),
		subs:   make(map[int]func(DashboardResult)),
	}
	d.unsubs = []func(){
		d.stats.Subscribe(func(cache.Result[*api.DashboardStats]) { d.notify() }),
		d.recent.Subscribe(func(cache.Result[[]api.Solution]) { d.notify() }),
	}
	return d
}

// Result returns the merged state.
func (d *Dashboard) Result() DashboardResult {
	r := DashboardResult{Stats: d.stats.Result(), Recent: d.recent.Result()}
	r.IsLoading = r.Stats.IsLoading() || r.Recent.IsLoading()
	r.IsError = r.Stats.IsError() || r.Recent.IsError()
	switch {
	case r.Stats.IsError():
		r.Err = r.Stats.Err
	case r.Recent.IsError():
		r.Err = r.Recent.Err
	}
	return r
}

// Subscribe registers fn for changes of either part.
func (d *Dashboard) Subscribe(fn func(DashboardResult)) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

// Start mounts both parts until ctx is done or Close is called. The stats
// part then polls every minute.
func (d *Dashboard) Start(ctx context.Context) {
	d.stats.Start(ctx)
	d.recent.Start(ctx)
}

// Fetch loads both parts concurrently and returns the merged state together
// with the first error.
func (d *Dashboard) Fetch(ctx context.Context) (DashboardResult, error) {
	return d.run(ctx, false)
}

// Refetch reloads both parts from the network.
func (d *Dashboard) Refetch(ctx context.Context) (DashboardResult, error) {
	return d.run(ctx, true)
}

func (d *Dashboard) run(ctx context.Context, force bool) (DashboardResult, error) {
	// A plain group: one failing part must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if force {
			_, err = d.stats.Refetch(ctx)
		} else {
			_, err = d.stats.Fetch(ctx)
		}
		return err
	})
	g.Go(func() error {
		var err error
		if force {
			_, err = d.recent.Refetch(ctx)
		} else {
			_, err = d.recent.Fetch(ctx)
		}
		return err
	})
	waitErr := g.Wait()

	r := d.Result()
	if r.Err != nil {
		return r, r.Err
	}
	return r, waitErr
}

// Close unmounts both parts.
func (d *Dashboard) Close() {
	for _, u := range d.unsubs {
		u()
	}
	d.stats.Close()
	d.recent.Close()
}

func (d *Dashboard) notify() {
	r := d.Result()
	d.mu.Lock()
	subs := make([]func(DashboardResult), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()
	for _, fn := range subs {
		fn(r)
	}
}
