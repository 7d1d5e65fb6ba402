package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
)

func TestListSolutionsUnwrapsEnvelope(t *testing.T) {
	transport := NewMockTransport()
	transport.On(http.MethodGet, "/api/solutions", map[string]interface{}{
		"solutions": []map[string]interface{}{
			{"id": "a", "title": "Binary Search", "language": "python", "tags": []string{"algorithm"},
				"created_at": "2025-01-02T10:00:00.123456", "updated_at": "2025-01-02T10:00:00Z"},
			{"id": "b", "title": "Quick Sort", "language": "go"},
		},
		"total":       2,
		"page":        1,
		"page_size":   20,
		"total_pages": 1,
	})

	a := NewDevDocsAPI(transport)
	got, err := a.ListSolutions(context.Background(), ListParams{Page: 1, Language: "python"})
	if err != nil {
		t.Fatalf("ListSolutions() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 solutions, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("Unexpected ids %q, %q", got[0].ID, got[1].ID)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("Expected naive timestamp to parse")
	}

	req := transport.Requests()[0]
	if req.Params.Get("page") != "1" || req.Params.Get("language") != "python" {
		t.Errorf("Unexpected query params %v", req.Params)
	}
	if req.Params.Has("tag") {
		t.Error("Expected zero-value filters to be omitted")
	}
}

func TestListSolutionsMissingFieldIsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{"missing field", map[string]interface{}{"total": 3}},
		{"null field", json.RawMessage(`{"solutions":null,"total":0}`)},
		{"no body", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewMockTransport()
			transport.On(http.MethodGet, "/api/solutions", tt.payload)

			got, err := NewDevDocsAPI(transport).ListSolutions(context.Background(), ListParams{})
			if err != nil {
				t.Fatalf("ListSolutions() error = %v", err)
			}
			if got == nil {
				t.Fatal("Expected empty slice, got nil")
			}
			if len(got) != 0 {
				t.Errorf("Expected 0 solutions, got %d", len(got))
			}
		})
	}
}

func TestListSolutionsPage(t *testing.T) {
	transport := NewMockTransport()
	transport.On(http.MethodGet, "/api/solutions", map[string]interface{}{
		"total": 41, "page": 3, "page_size": 20, "total_pages": 3,
	})
	page, err := NewDevDocsAPI(transport).ListSolutionsPage(context.Background(), ListParams{Page: 3})
	if err != nil {
		t.Fatalf("ListSolutionsPage() error = %v", err)
	}
	if page.Total != 41 || page.TotalPages != 3 {
		t.Errorf("Unexpected totals %+v", page)
	}
	if page.Solutions == nil {
		t.Error("Expected empty slice for missing solutions")
	}
}

func TestCreateAndUpdateSolution(t *testing.T) {
	transport := NewMockTransport()
	transport.OnFunc(http.MethodPost, "/api/solutions", func(_ url.Values, body json.RawMessage) (any, error) {
		var in SolutionInput
		if err := json.Unmarshal(body, &in); err != nil {
			return nil, err
		}
		return Solution{ID: "new-id", Title: in.Title, Tags: in.Tags}, nil
	})
	transport.OnFunc(http.MethodPut, "/api/solutions/new-id", func(_ url.Values, body json.RawMessage) (any, error) {
		var raw map[string]interface{}
		json.Unmarshal(body, &raw)
		if _, ok := raw["code"]; ok {
			t.Error("Expected unset patch fields to be omitted")
		}
		return Solution{ID: "new-id", Title: raw["title"].(string)}, nil
	})

	a := NewDevDocsAPI(transport)
	created, err := a.CreateSolution(context.Background(), SolutionInput{Title: "Binary Search", Tags: []string{"algorithm"}})
	if err != nil {
		t.Fatalf("CreateSolution() error = %v", err)
	}
	if created.ID != "new-id" {
		t.Errorf("Expected generated id, got %q", created.ID)
	}

	title := "Binary Search (iterative)"
	updated, err := a.UpdateSolution(context.Background(), "new-id", SolutionPatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateSolution() error = %v", err)
	}
	if updated.Title != title {
		t.Errorf("Expected %q, got %q", title, updated.Title)
	}
}

func TestDeleteSolution(t *testing.T) {
	transport := NewMockTransport()
	transport.On(http.MethodDelete, "/api/solutions/x", MessageResponse{Message: "Solution deleted"})
	transport.On(http.MethodDelete, "/api/solutions/y", nil)

	a := NewDevDocsAPI(transport)
	msg, err := a.DeleteSolution(context.Background(), "x", false)
	if err != nil || msg != "Solution deleted" {
		t.Errorf("Expected message, got %q (%v)", msg, err)
	}
	msg, err = a.DeleteSolution(context.Background(), "y", true)
	if err != nil || msg != "" {
		t.Errorf("Expected empty message on 204, got %q (%v)", msg, err)
	}
	if got := transport.Requests()[1].Params.Get("permanent"); got != "true" {
		t.Errorf("Expected permanent=true, got %q", got)
	}
}

func TestGetSolutionPassesErrorsThrough(t *testing.T) {
	transport := NewMockTransport()
	transport.OnError(http.MethodGet, "/api/solutions/missing", StatusError(404, `{"detail":"Solution not found"}`))

	_, err := NewDevDocsAPI(transport).GetSolution(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSearchAcceptsArrayAndEnvelope(t *testing.T) {
	results := []SearchResult{
		{Solution: Solution{ID: "1"}, Similarity: 0.92, Rank: 1},
		{Solution: Solution{ID: "2"}, Similarity: 0.41, Rank: 2},
	}

	tests := []struct {
		name    string
		payload any
		want    int
	}{
		{"array", results, 2},
		{"envelope", SearchResponse{Query: "sort", Results: results, TotalResults: 2}, 2},
		{"envelope without results", map[string]interface{}{"query": "sort"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewMockTransport()
			transport.On(http.MethodPost, "/api/search", tt.payload)

			got, err := NewDevDocsAPI(transport).Search(context.Background(), SearchRequest{Query: "sort"})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if got == nil || len(got) != tt.want {
				t.Fatalf("Expected %d results, got %v", tt.want, got)
			}
			if tt.want > 0 && (got[0].Rank != 1 || got[1].Similarity != 0.41) {
				t.Errorf("Expected backend order to be preserved, got %+v", got)
			}

			var body SearchRequest
			json.Unmarshal(transport.Requests()[0].Body, &body)
			if body.Limit != 10 || body.MinSimilarity != 0.3 {
				t.Errorf("Expected default limit/min_similarity, got %+v", body)
			}
		})
	}
}

func TestDashboardEndpoints(t *testing.T) {
	transport := NewMockTransport()
	transport.On(http.MethodGet, "/api/dashboard/stats", map[string]interface{}{
		"total_solutions": 4, "total_languages": 2, "unique_tags": 5, "most_recent_solution": nil,
	})
	transport.On(http.MethodGet, "/api/dashboard/recent", map[string]interface{}{
		"recent_solutions": []Solution{{ID: "r1"}},
	})
	transport.On(http.MethodGet, "/api/dashboard/popular-tags", map[string]interface{}{})

	a := NewDevDocsAPI(transport)
	ctx := context.Background()

	stats, err := a.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("DashboardStats() error = %v", err)
	}
	if stats.TotalSolutions != 4 || stats.MostRecentSolution != nil || stats.LanguageBreakdown == nil {
		t.Errorf("Unexpected stats %+v", stats)
	}

	recent, err := a.RecentSolutions(ctx, 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("Expected 1 recent solution, got %v (%v)", recent, err)
	}
	if got := transport.Requests()[1].Params.Get("limit"); got != "5" {
		t.Errorf("Expected limit=5, got %q", got)
	}

	tags, err := a.PopularTags(ctx, 0)
	if err != nil || tags == nil || len(tags) != 0 {
		t.Errorf("Expected empty tags, got %v (%v)", tags, err)
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	transport := NewMockTransport()
	err := NewDevDocsAPI(transport).Health(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if transport.RequestsTo(http.MethodGet, "/api/health") != 1 {
		t.Errorf("Expected 1 request to /api/health, got %d", transport.RequestsTo(http.MethodGet, "/api/health"))
	}
}
