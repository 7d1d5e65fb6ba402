package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/colthorp/devdocs-cli-go/internal/core"
)

// Search runs a semantic search. The backend may answer with a bare array
// or with a SearchResponse envelope; both are accepted.
func (a *DevDocsAPI) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = core.DefaultSearchLimit
	}
	if req.MinSimilarity <= 0 {
		req.MinSimilarity = core.DefaultMinSimilarity
	}

	raw, err := a.transport.Request(ctx, http.MethodPost, "/api/search", nil, req)
	if err != nil {
		return nil, err
	}
	if isJSONArray(raw) {
		results := []SearchResult{}
		if err := decodeInto(raw, &results); err != nil {
			return nil, err
		}
		return results, nil
	}
	return unwrapList[SearchResult](raw, "results")
}

// Suggestions returns title completions for a partial query.
func (a *DevDocsAPI) Suggestions(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	params := url.Values{"query": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	raw, err := a.transport.Request(ctx, http.MethodGet, "/api/search/suggestions", params, nil)
	if err != nil {
		return nil, err
	}
	return unwrapList[Suggestion](raw, "suggestions")
}
