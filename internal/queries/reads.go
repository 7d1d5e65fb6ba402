package queries

import (
	"context"
	"strings"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
	"github.com/colthorp/devdocs-cli-go/internal/core"
)

// Solutions observes one page of the solutions list.
func (c *Client) Solutions(params api.ListParams) *cache.Observer[[]api.Solution] {
	p := NormalizeListParams(params)
	return cache.NewObserver(c.cache, SolutionKeys.List(p), func(ctx context.Context) ([]api.Solution, error) {
		return c.api.ListSolutions(ctx, p)
	}, c.solutionsOptions())
}

// SolutionsPage observes the paginated envelope, for callers that need totals.
func (c *Client) SolutionsPage(params api.ListParams) *cache.Observer[*api.SolutionList] {
	p := NormalizeListParams(params)
	return cache.NewObserver(c.cache, SolutionKeys.Page(p), func(ctx context.Context) (*api.SolutionList, error) {
		return c.api.ListSolutionsPage(ctx, p)
	}, c.solutionsOptions())
}

// Solution observes one solution. An empty id yields a disabled observer.
func (c *Client) Solution(id string) *cache.Observer[*api.Solution] {
	id = strings.TrimSpace(id)
	return cache.NewObserver(c.cache, SolutionKeys.Detail(id), func(ctx context.Context) (*api.Solution, error) {
		return c.api.GetSolution(ctx, id)
	}, c.detailOptions(id))
}

// Search observes a semantic search. It stays disabled until the normalized
// query has at least three characters.
func (c *Client) Search(query string, limit int) *cache.Observer[[]api.SearchResult] {
	q := NormalizeQuery(query)
	limit = normalizeLimit(limit, core.DefaultSearchLimit)
	return cache.NewObserver(c.cache, SearchKeys.Query(q, limit), func(ctx context.Context) ([]api.SearchResult, error) {
		return c.api.Search(ctx, api.SearchRequest{Query: q, Limit: limit, MinSimilarity: core.DefaultMinSimilarity})
	}, c.searchOptions(SearchEnabled(q)))
}

// Suggestions observes title completions for a partial query.
func (c *Client) Suggestions(query string, limit int) *cache.Observer[[]api.Suggestion] {
	q := NormalizeQuery(query)
	limit = normalizeLimit(limit, 5)
	return cache.NewObserver(c.cache, SearchKeys.Suggestions(q, limit), func(ctx context.Context) ([]api.Suggestion, error) {
		return c.api.Suggestions(ctx, q, limit)
	}, c.searchOptions(SuggestionsEnabled(q)))
}

// Stats observes the dashboard counters, polling every minute while started.
func (c *Client) Stats() *cache.Observer[*api.DashboardStats] {
	return cache.NewObserver(c.cache, DashboardKeys.Stats(), c.api.DashboardStats, c.statsOptions())
}

// Recent observes the most recently created solutions.
func (c *Client) Recent(limit int) *cache.Observer[[]api.Solution] {
	limit = normalizeLimit(limit, core.DefaultRecentLimit)
	return cache.NewObserver(c.cache, DashboardKeys.Recent(limit), func(ctx context.Context) ([]api.Solution, error) {
		return c.api.RecentSolutions(ctx, limit)
	}, c.recentOptions())
}

// PopularTags observes the most used tags.
func (c *Client) PopularTags(limit int) *cache.Observer[[]api.PopularTag] {
	limit = normalizeLimit(limit, core.DefaultTagsLimit)
	return cache.NewObserver(c.cache, DashboardKeys.PopularTags(limit), func(ctx context.Context) ([]api.PopularTag, error) {
		return c.api.PopularTags(ctx, limit)
	}, c.defaultOptions())
}

// Bookmarks observes the current user's bookmarks.
func (c *Client) Bookmarks() *cache.Observer[[]api.Bookmark] {
	return cache.NewObserver(c.cache, BookmarkKeys.List(), c.api.Bookmarks, c.defaultOptions())
}

// Bookmarked observes whether one solution is bookmarked.
func (c *Client) Bookmarked(id string) *cache.Observer[bool] {
	id = strings.TrimSpace(id)
	opts := c.defaultOptions()
	opts.Disabled = id == ""
	return cache.NewObserver(c.cache, BookmarkKeys.Check(id), func(ctx context.Context) (bool, error) {
		return c.api.IsBookmarked(ctx, id)
	}, opts)
}

// Profile observes the signed-in user's profile.
func (c *Client) Profile() *cache.Observer[*api.UserProfile] {
	return cache.NewObserver(c.cache, ProfileKeys.Me(), c.api.Profile, c.defaultOptions())
}

// PublicProfile observes another user's public profile. An empty id yields a
// disabled observer.
func (c *Client) PublicProfile(id string) *cache.Observer[*api.PublicProfile] {
	id = strings.TrimSpace(id)
	opts := c.defaultOptions()
	opts.Disabled = id == ""
	return cache.NewObserver(c.cache, ProfileKeys.User(id), func(ctx context.Context) (*api.PublicProfile, error) {
		return c.api.PublicProfile(ctx, id)
	}, opts)
}

// AuthStatus observes whether the backend enforces authentication.
func (c *Client) AuthStatus() *cache.Observer[*api.AuthStatus] {
	return cache.NewObserver(c.cache, ProfileKeys.AuthStatus(), c.api.AuthStatus, c.defaultOptions())
}

// RunSearch fetches a search through the cache and records the query in the
// search history. Queries below the minimum length return cache.ErrDisabled
// without touching the network or the history.
func (c *Client) RunSearch(ctx context.Context, query string, limit int) ([]api.SearchResult, error) {
	results, err := c.Search(query, limit).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.recordSearch(query)
	return results, nil
}

func (c *Client) recordSearch(query string) {
	if c.history == nil {
		return
	}
	if err := c.history.Add(strings.TrimSpace(query)); err != nil {
		c.logger.Warn().Err(err).Msg("failed to record search")
	}
}
