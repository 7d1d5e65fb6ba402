package api

import (
	"context"
	"net/http"
)

// DashboardStats fetches the aggregate counters.
func (a *DevDocsAPI) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, "/api/dashboard/stats", nil, nil)
	if err != nil {
		return nil, err
	}
	stats := &DashboardStats{}
	if err := decodeInto(raw, stats); err != nil {
		return nil, err
	}
	if stats.LanguageBreakdown == nil {
		stats.LanguageBreakdown = []LanguageCount{}
	}
	return stats, nil
}

// RecentSolutions returns the most recently created solutions.
func (a *DevDocsAPI) RecentSolutions(ctx context.Context, limit int) ([]Solution, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, "/api/dashboard/recent", limitParams(limit), nil)
	if err != nil {
		return nil, err
	}
	return unwrapList[Solution](raw, "recent_solutions")
}

// PopularTags returns the most used tags.
func (a *DevDocsAPI) PopularTags(ctx context.Context, limit int) ([]PopularTag, error) {
	raw, err := a.transport.Request(ctx, http.MethodGet, "/api/dashboard/popular-tags", limitParams(limit), nil)
	if err != nil {
		return nil, err
	}
	return unwrapList[PopularTag](raw, "popular_tags")
}

// Health pings the backend's liveness endpoint.
func (a *DevDocsAPI) Health(ctx context.Context) error {
	_, err := a.transport.Request(ctx, http.MethodGet, "/api/health", nil, nil)
	return err
}
