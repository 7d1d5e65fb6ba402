package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
	"github.com/colthorp/devdocs-cli-go/internal/history"
	"github.com/colthorp/devdocs-cli-go/internal/queries"
)

const testID = "3f1c2d1e-0000-4000-8000-000000000001"

// --- helpers ---

func newTestQueries(t *testing.T) (*queries.Client, *api.MockTransport, *history.Store) {
	t.Helper()
	transport := api.NewMockTransport()
	m := cache.NewManager()
	t.Cleanup(m.Close)
	h := history.NewStore(history.NewMemoryBackend(), 0)
	q := queries.NewClient(m, api.NewDevDocsAPI(transport),
		queries.WithRetryPolicies(cache.NoRetry(), cache.NoRetry(), cache.NoRetry()),
		queries.WithHistory(h),
	)
	return q, transport, h
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func fixture(title string) api.Solution {
	return api.Solution{
		ID:          testID,
		Title:       title,
		Description: "Halves the search space every step.",
		Code:        "def bs(a, x): pass",
		Language:    "python",
		Tags:        []string{"algorithm"},
	}
}

// --- tests ---

func TestMCPTool_SearchRecordsHistory(t *testing.T) {
	q, transport, h := newTestQueries(t)
	transport.On(http.MethodPost, "/api/search", []api.SearchResult{
		{Solution: fixture("Binary Search"), Similarity: 0.92, Rank: 1},
	})

	result, err := mcpSearch(q)(context.Background(), makeCallToolRequest("search_solutions", map[string]interface{}{
		"query": "binary search",
		"limit": float64(3),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var results []api.SearchResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &results); err != nil {
		t.Fatalf("failed to parse results: %v", err)
	}
	if len(results) != 1 || results[0].Solution.Title != "Binary Search" {
		t.Errorf("Expected one Binary Search result, got %+v", results)
	}

	var req api.SearchRequest
	if err := json.Unmarshal(transport.Requests()[0].Body, &req); err != nil {
		t.Fatalf("failed to parse request body: %v", err)
	}
	if req.Limit != 3 {
		t.Errorf("Expected limit 3, got %d", req.Limit)
	}

	searches, _ := h.List()
	if len(searches) != 1 || searches[0] != "binary search" {
		t.Errorf("Expected history [binary search], got %v", searches)
	}
}

func TestMCPTool_SearchTooShort(t *testing.T) {
	q, transport, _ := newTestQueries(t)

	result, err := mcpSearch(q)(context.Background(), makeCallToolRequest("search_solutions", map[string]interface{}{
		"query": "go",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for short query")
	}
	if transport.RequestsMade() != 0 {
		t.Errorf("Expected no requests, got %d", transport.RequestsMade())
	}
}

func TestMCPTool_SearchMissingQuery(t *testing.T) {
	q, _, _ := newTestQueries(t)

	result, err := mcpSearch(q)(context.Background(), makeCallToolRequest("search_solutions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error when query is missing")
	}
}

func TestMCPTool_GetSolution(t *testing.T) {
	q, transport, _ := newTestQueries(t)
	transport.On(http.MethodGet, "/api/solutions/"+testID, fixture("Binary Search"))

	handler := mcpGetSolution(q)
	for i := 0; i < 2; i++ {
		result, err := handler(context.Background(), makeCallToolRequest("get_solution", map[string]interface{}{"id": testID}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", toolText(t, result))
		}
	}
	if n := transport.RequestsMade(); n != 1 {
		t.Errorf("Expected the second call to hit the cache, got %d requests", n)
	}
}

func TestMCPTool_GetSolutionNotFound(t *testing.T) {
	q, _, _ := newTestQueries(t)

	result, err := mcpGetSolution(q)(context.Background(), makeCallToolRequest("get_solution", map[string]interface{}{"id": testID}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(toolText(t, result), "not found") {
		t.Errorf("Expected not found message, got %q", toolText(t, result))
	}
}

func TestMCPTool_CreateSolutionValidates(t *testing.T) {
	q, transport, _ := newTestQueries(t)

	result, err := mcpCreateSolution(q)(context.Background(), makeCallToolRequest("create_solution", map[string]interface{}{
		"title":       "abc",
		"description": "Halves the search space every step.",
		"code":        "def bs(a, x): pass",
		"language":    "python",
		"tags":        []interface{}{"algorithm"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(toolText(t, result), "title") {
		t.Errorf("Expected title error, got %q", toolText(t, result))
	}
	if transport.RequestsMade() != 0 {
		t.Errorf("Expected no requests, got %d", transport.RequestsMade())
	}
}

func TestMCPTool_CreateSolution(t *testing.T) {
	q, transport, _ := newTestQueries(t)
	transport.On(http.MethodPost, "/api/solutions", fixture("Binary Search"))

	result, err := mcpCreateSolution(q)(context.Background(), makeCallToolRequest("create_solution", map[string]interface{}{
		"title":       "Binary Search",
		"description": "Halves the search space every step.",
		"code":        "def bs(a, x): pass",
		"language":    "Python",
		"tags":        []interface{}{" Algorithm "},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var in api.SolutionInput
	if err := json.Unmarshal(transport.Requests()[0].Body, &in); err != nil {
		t.Fatalf("failed to parse request body: %v", err)
	}
	if in.Language != "python" || len(in.Tags) != 1 || in.Tags[0] != "algorithm" {
		t.Errorf("Expected normalized language and tags, got %q %v", in.Language, in.Tags)
	}
}

func TestMCPTool_ListAndDashboard(t *testing.T) {
	q, transport, _ := newTestQueries(t)
	transport.On(http.MethodGet, "/api/solutions", api.SolutionList{
		Solutions: []api.Solution{fixture("Binary Search")}, Total: 1, Page: 1, PageSize: 20, TotalPages: 1,
	})
	transport.On(http.MethodGet, "/api/dashboard/stats", api.DashboardStats{TotalSolutions: 1})
	transport.On(http.MethodGet, "/api/dashboard/recent", map[string]interface{}{
		"recent_solutions": []api.Solution{fixture("Binary Search")},
	})

	ctx := context.Background()
	list, _ := mcpListSolutions(q)(ctx, makeCallToolRequest("list_solutions", map[string]interface{}{"language": "Python"}))
	var page api.SolutionList
	if err := json.Unmarshal([]byte(toolText(t, list)), &page); err != nil {
		t.Fatalf("failed to parse list: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("Expected total 1, got %d", page.Total)
	}
	if got := transport.Requests()[0].Params.Get("language"); got != "python" {
		t.Errorf("Expected language python, got %q", got)
	}

	stats, _ := mcpDashboardStats(q)(ctx, makeCallToolRequest("dashboard_stats", nil))
	if !strings.Contains(toolText(t, stats), `"total_solutions":1`) {
		t.Errorf("Unexpected stats: %s", toolText(t, stats))
	}

	recent, _ := mcpRecentSolutions(q)(ctx, makeCallToolRequest("recent_solutions", map[string]interface{}{"limit": float64(1)}))
	if recent.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, recent))
	}
}

func TestMCPResource_RecentSearches(t *testing.T) {
	q, _, h := newTestQueries(t)
	_ = h.Add("react hooks")
	_ = h.Add("binary search")

	contents, err := mcpResourceRecentSearches(q)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: recentSearchesURI},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.Text != `["binary search","react hooks"]` {
		t.Errorf("Unexpected searches: %s", tc.Text)
	}
}

func TestUserMessage(t *testing.T) {
	err := api.StatusError(http.StatusNotFound, `{"message":"Solution not found"}`)
	if got := userMessage(err); got != api.Message(api.KindNotFound)+" (Solution not found)" {
		t.Errorf("Unexpected message %q", got)
	}
	if got := userMessage(context.Canceled); got != "context canceled" {
		t.Errorf("Expected plain error text, got %q", got)
	}
}
