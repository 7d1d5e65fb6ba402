// Package queries binds the DevDocs API to the query cache: key factories,
// per-resource cache options, read and write hooks, the dashboard composite,
// debounced search input and the connectivity monitor.
package queries

import (
	"github.com/rs/zerolog"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/colthorp/devdocs-cli-go/internal/history"
)

// Client exposes every hook over one cache and one API.
type Client struct {
	cache   *cache.Manager
	api     *api.DevDocsAPI
	history *history.Store
	logger  zerolog.Logger

	queryRetry    cache.RetryPolicy
	searchRetry   cache.RetryPolicy
	mutationRetry cache.RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithHistory records executed searches in h.
func WithHistory(h *history.Store) Option {
	return func(c *Client) { c.history = h }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetryPolicies overrides the read, search and write retry policies.
// The retryable filter is always the API's.
func WithRetryPolicies(query, search, mutation cache.RetryPolicy) Option {
	return func(c *Client) {
		c.queryRetry = query.WithRetryable(api.IsRetryable)
		c.searchRetry = search.WithRetryable(api.IsRetryable)
		c.mutationRetry = mutation.WithRetryable(api.IsRetryable)
	}
}

// NewClient creates a client.
func NewClient(m *cache.Manager, a *api.DevDocsAPI, opts ...Option) *Client {
	c := &Client{
		cache:         m,
		api:           a,
		logger:        zerolog.Nop(),
		queryRetry:    cache.ExponentialRetry(core.QueryMaxRetries, core.QueryRetryDelay, core.QueryMaxRetryDelay).WithRetryable(api.IsRetryable),
		searchRetry:   cache.FixedRetry(core.SearchMaxRetries, core.SearchRetryDelay).WithRetryable(api.IsRetryable),
		mutationRetry: cache.FixedRetry(core.MutationMaxRetries, core.MutationRetryDelay).WithRetryable(api.IsRetryable),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the underlying cache.
func (c *Client) Cache() *cache.Manager { return c.cache }

// API returns the underlying API.
func (c *Client) API() *api.DevDocsAPI { return c.api }

// History returns the search history store, which may be nil.
func (c *Client) History() *history.Store { return c.history }

func (c *Client) solutionsOptions() cache.Options {
	return cache.Options{
		StaleTime:          core.DefaultStaleTime,
		GCTime:             core.DefaultGCTime,
		Retry:              c.queryRetry,
		RefetchOnMount:     true,
		RefetchOnFocus:     true,
		RefetchOnReconnect: true,
	}
}

func (c *Client) detailOptions(id string) cache.Options {
	o := c.solutionsOptions()
	o.RefetchOnMount = false
	o.Disabled = id == ""
	return o
}

func (c *Client) searchOptions(enabled bool) cache.Options {
	return cache.Options{
		StaleTime: core.SearchStaleTime,
		GCTime:    core.SearchGCTime,
		Retry:     c.searchRetry,
		Disabled:  !enabled,
	}
}

func (c *Client) statsOptions() cache.Options {
	return cache.Options{
		StaleTime:          core.StatsStaleTime,
		GCTime:             core.StatsGCTime,
		Retry:              c.queryRetry,
		RefetchOnFocus:     true,
		RefetchOnReconnect: true,
		RefetchInterval:    core.StatsRefetchInterval,
	}
}

func (c *Client) recentOptions() cache.Options {
	return cache.Options{
		StaleTime:          core.RecentStaleTime,
		GCTime:             core.RecentGCTime,
		Retry:              c.queryRetry,
		RefetchOnFocus:     true,
		RefetchOnReconnect: true,
	}
}

func (c *Client) defaultOptions() cache.Options {
	o := c.solutionsOptions()
	o.RefetchOnMount = false
	return o
}
