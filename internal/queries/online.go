package queries

import (
	"context"
	"time"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/core"
)

// CheckConnectivity pings the backend once and records the outcome on the
// cache. Only transport failures count as offline.
func (c *Client) CheckConnectivity(ctx context.Context) bool {
	err := c.api.Health(ctx)
	online := err == nil || api.KindOf(err) != api.KindNetwork
	if ctx.Err() != nil {
		return c.cache.IsOnline()
	}
	c.cache.SetOnline(online)
	return online
}

// MonitorConnectivity checks connectivity every interval until ctx is done.
// Coming back online refetches stale observers that opted in.
func (c *Client) MonitorConnectivity(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = core.HealthCheckPeriod
	}
	c.CheckConnectivity(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckConnectivity(ctx)
		}
	}
}
