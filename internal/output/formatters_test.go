package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colthorp/devdocs-cli-go/internal/api"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	now = func() time.Time { return fixedNow }
}

func sample() api.Solution {
	return api.Solution{
		ID:          "abc",
		Title:       "Binary Search",
		Description: "Classic halving search.\nSecond line.",
		Code:        "def bs(a, x):\n    pass\n",
		Language:    "python",
		Tags:        []string{"algorithm", "search"},
		CreatedAt:   api.Timestamp{Time: fixedNow.Add(-2 * time.Hour)},
		UpdatedAt:   api.Timestamp{Time: fixedNow.Add(-2 * time.Hour)},
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]int{"total": 2}))

	var out map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	if out["total"] != 2 {
		t.Errorf("Expected total 2, got %d", out["total"])
	}
}

func TestPrintSolutions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSolutions(&buf, []api.Solution{sample()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[1], "Binary Search")
	assert.Contains(t, lines[1], "algorithm,search")
	assert.Contains(t, lines[1], "2 hours ago")

	buf.Reset()
	require.NoError(t, PrintSolutions(&buf, nil))
	assert.Equal(t, "No solutions found.\n", buf.String())
}

func TestPrintSolutionMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSolution(&buf, ptr(sample())))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Binary Search\n"))
	assert.Contains(t, out, "- tags: algorithm, search")
	assert.Contains(t, out, "```python\ndef bs(a, x):\n    pass\n```\n")
	assert.NotContains(t, out, "- updated:")
}

func TestPrintSearchResultsKeepsServerOrder(t *testing.T) {
	low := sample()
	low.Title = "Linear scan"
	results := []api.SearchResult{
		{Solution: sample(), Similarity: 0.5, Rank: 1},
		{Solution: low, Similarity: 0.9, Rank: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintSearchResults(&buf, "search", results))
	out := buf.String()
	assert.Less(t, strings.Index(out, "Binary Search"), strings.Index(out, "Linear scan"))
	assert.Contains(t, out, "50%")
	assert.Contains(t, out, "Classic halving search.")
	assert.NotContains(t, out, "Second line.")

	buf.Reset()
	require.NoError(t, PrintSearchResults(&buf, "nothing", nil))
	assert.Equal(t, "No results for \"nothing\".\n", buf.String())
}

func TestPrintStats(t *testing.T) {
	last := api.Timestamp{Time: fixedNow.Add(-3 * time.Minute)}
	st := &api.DashboardStats{
		TotalSolutions:     1200,
		TotalLanguages:     2,
		TotalSearches:      7,
		AverageSimilarity:  0.42,
		MostRecentSolution: &last,
		LanguageBreakdown:  []api.LanguageCount{{Language: "go", Count: 1000}, {Language: "python", Count: 200}},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintStats(&buf, st))
	out := buf.String()
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "42%")
	assert.Contains(t, out, "3 minutes ago")
	assert.Contains(t, out, "python")
}

func TestPrintSearchesAndEmptyStates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSearches(&buf, []string{"react hooks", "go"}))
	assert.Equal(t, "1. react hooks\n2. go\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintSearches(&buf, nil))
	assert.Equal(t, "No recent searches.\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintTags(&buf, nil))
	assert.Equal(t, "No tags yet.\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintBookmarks(&buf, nil))
	assert.Equal(t, "No bookmarks.\n", buf.String())
}

func ptr[T any](v T) *T { return &v }

func TestPrintProfileSkipsUnsetFields(t *testing.T) {
	p := &api.UserProfile{
		ID:             "u1",
		Email:          "ada@example.com",
		FullName:       "Ada Lovelace",
		GithubUsername: "ada",
		Theme:          "dark",
		Language:       "en",
		CreatedAt:      api.Timestamp{Time: fixedNow.Add(-48 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintProfile(&buf, p))
	out := buf.String()
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "2 days ago")
	assert.NotContains(t, out, "Twitter")
	assert.NotContains(t, out, "Last login")

	buf.Reset()
	require.NoError(t, PrintAuthStatus(&buf, &api.AuthStatus{SupabaseURL: "Not configured"}))
	assert.Equal(t, "Authentication disabled (supabase: Not configured)\n", buf.String())
}
