package queries

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/colthorp/devdocs-cli-go/internal/validate"
)

// NormalizeQuery lower-cases q, trims it and collapses inner whitespace, so
// "Foo  Bar " and "foo bar" share one cache entry.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// SearchEnabled reports whether q is long enough to be sent to the backend.
func SearchEnabled(q string) bool {
	return utf8.RuneCountInString(NormalizeQuery(q)) >= core.MinSearchQueryLength
}

// SuggestionsEnabled reports whether q is long enough for title completion.
func SuggestionsEnabled(q string) bool {
	return utf8.RuneCountInString(NormalizeQuery(q)) >= core.MinSuggestionLength
}

// NormalizeListParams fills in pagination defaults and normalizes filters the
// way the backend compares them.
func NormalizeListParams(p api.ListParams) api.ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = core.DefaultPageSize
	}
	if p.PageSize > core.MaxPageSize {
		p.PageSize = core.MaxPageSize
	}
	p.Language = validate.NormalizeLanguage(p.Language)
	p.Tag = strings.ToLower(strings.TrimSpace(p.Tag))
	return p
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

type solutionKeys struct{}

// SolutionKeys builds keys for solutions:
//
//	["solutions"]
//	["solutions","list"]
//	["solutions","list","<params>"]
//	["solutions","detail","<id>"]
var SolutionKeys solutionKeys

func (solutionKeys) All() cache.Key { return cache.NewKey("solutions") }

// Lists is the prefix shared by every list query.
func (k solutionKeys) Lists() cache.Key { return k.All().Append("list") }

func (k solutionKeys) List(p api.ListParams) cache.Key {
	return k.Lists().Append(NormalizeListParams(p).Values().Encode())
}

// Page keys the paginated envelope for the same filters as List.
func (k solutionKeys) Page(p api.ListParams) cache.Key {
	return k.List(p).Append("page")
}

func (k solutionKeys) Details() cache.Key { return k.All().Append("detail") }

func (k solutionKeys) Detail(id string) cache.Key {
	return k.Details().Append(strings.TrimSpace(id))
}

type searchKeys struct{}

// SearchKeys builds keys for search and suggestions.
var SearchKeys searchKeys

func (searchKeys) All() cache.Key { return cache.NewKey("search") }

func (k searchKeys) Query(q string, limit int) cache.Key {
	return k.All().Append("query", NormalizeQuery(q), strconv.Itoa(normalizeLimit(limit, core.DefaultSearchLimit)))
}

func (k searchKeys) Suggestions(q string, limit int) cache.Key {
	return k.All().Append("suggestions", NormalizeQuery(q), strconv.Itoa(normalizeLimit(limit, 5)))
}

type dashboardKeys struct{}

// DashboardKeys builds keys for dashboard aggregates.
var DashboardKeys dashboardKeys

func (dashboardKeys) All() cache.Key { return cache.NewKey("dashboard") }

func (k dashboardKeys) Stats() cache.Key { return k.All().Append("stats") }

func (k dashboardKeys) Recent(limit int) cache.Key {
	return k.All().Append("recent", strconv.Itoa(normalizeLimit(limit, core.DefaultRecentLimit)))
}

func (k dashboardKeys) PopularTags(limit int) cache.Key {
	return k.All().Append("popular-tags", strconv.Itoa(normalizeLimit(limit, core.DefaultTagsLimit)))
}

type bookmarkKeys struct{}

// BookmarkKeys builds keys for the current user's bookmarks.
var BookmarkKeys bookmarkKeys

func (bookmarkKeys) All() cache.Key { return cache.NewKey("bookmarks") }

func (k bookmarkKeys) List() cache.Key { return k.All().Append("list") }

func (k bookmarkKeys) Check(id string) cache.Key {
	return k.All().Append("check", strings.TrimSpace(id))
}

type profileKeys struct{}

// ProfileKeys builds keys for user profiles and the backend's auth settings.
var ProfileKeys profileKeys

func (profileKeys) All() cache.Key { return cache.NewKey("profile") }

func (k profileKeys) Me() cache.Key { return k.All().Append("me") }

func (k profileKeys) User(id string) cache.Key {
	return k.All().Append("user", strings.TrimSpace(id))
}

func (k profileKeys) AuthStatus() cache.Key { return k.All().Append("auth-status") }
