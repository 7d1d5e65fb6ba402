package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colthorp/devdocs-cli-go/internal/api"
)

func TestSearchKeyIgnoresCaseAndWhitespace(t *testing.T) {
	a := SearchKeys.Query("Foo ", 10)
	b := SearchKeys.Query("  foo", 0)
	if !a.Equal(b) {
		t.Errorf("Expected equal keys, got %s and %s", a, b)
	}
	assert.True(t, SearchKeys.Query("React   Hooks", 10).Equal(SearchKeys.Query("react hooks", 10)))
	assert.False(t, SearchKeys.Query("react", 10).Equal(SearchKeys.Query("react", 20)))
}

func TestListKeyNormalizesParams(t *testing.T) {
	a := SolutionKeys.List(api.ListParams{})
	b := SolutionKeys.List(api.ListParams{Page: 1, PageSize: 20})
	assert.True(t, a.Equal(b), "%s != %s", a, b)

	c := SolutionKeys.List(api.ListParams{Language: " Python ", Tag: "CLI"})
	d := SolutionKeys.List(api.ListParams{Language: "python", Tag: "cli"})
	assert.True(t, c.Equal(d), "%s != %s", c, d)

	assert.False(t, a.Equal(SolutionKeys.List(api.ListParams{Page: 2})))
	assert.True(t, SolutionKeys.List(api.ListParams{PageSize: 1000}).Equal(SolutionKeys.List(api.ListParams{PageSize: 100})))
}

func TestKeyHierarchy(t *testing.T) {
	list := SolutionKeys.List(api.ListParams{Language: "go"})
	assert.True(t, list.HasPrefix(SolutionKeys.Lists()))
	assert.True(t, list.HasPrefix(SolutionKeys.All()))
	assert.True(t, SolutionKeys.Page(api.ListParams{}).HasPrefix(SolutionKeys.Lists()))
	assert.False(t, SolutionKeys.Detail("1").HasPrefix(SolutionKeys.Lists()))
	assert.True(t, SolutionKeys.Detail(" 1 ").Equal(SolutionKeys.Detail("1")))

	assert.True(t, DashboardKeys.Stats().HasPrefix(DashboardKeys.All()))
	assert.True(t, DashboardKeys.Recent(0).Equal(DashboardKeys.Recent(5)))
	assert.False(t, SearchKeys.Query("x", 1).HasPrefix(SolutionKeys.All()))
	assert.True(t, BookmarkKeys.Check("a").HasPrefix(BookmarkKeys.All()))
	assert.False(t, SearchKeys.Suggestions("go", 5).Equal(SearchKeys.Query("go", 5)))

	assert.Equal(t, `["profile","me"]`, ProfileKeys.Me().String())
	assert.True(t, ProfileKeys.User(" u1 ").Equal(ProfileKeys.User("u1")))
	assert.True(t, ProfileKeys.AuthStatus().HasPrefix(ProfileKeys.All()))
}

func TestSearchGatingThresholds(t *testing.T) {
	assert.False(t, SearchEnabled(" ab "))
	assert.True(t, SearchEnabled("abc"))
	assert.True(t, SearchEnabled("日本語"))
	assert.False(t, SuggestionsEnabled("a"))
	assert.True(t, SuggestionsEnabled("ab"))
}
