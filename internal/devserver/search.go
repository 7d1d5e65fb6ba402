package devserver

import (
	"math"
	"sort"
	"strings"

	"github.com/colthorp/devdocs-cli-go/internal/api"
)

// similarity scores sol against the query tokens: the share of tokens found
// anywhere in the solution, or 1 when the whole phrase is in the title.
func similarity(sol api.Solution, phrase string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	if strings.Contains(strings.ToLower(sol.Title), phrase) {
		return 1
	}
	text := searchText(sol)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			hits++
		}
	}
	return math.Round(float64(hits)/float64(len(tokens))*1000) / 1000
}

// Search ranks live solutions by naive keyword similarity.
func (s *Store) Search(query string, limit int, minSimilarity float64) []api.SearchResult {
	phrase := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	tokens := strings.Fields(phrase)

	results := []api.SearchResult{}
	for _, sol := range s.list(filter{}) {
		sim := similarity(sol, phrase, tokens)
		if sim <= 0 || sim < minSimilarity {
			continue
		}
		results = append(results, api.SearchResult{Solution: sol, Similarity: sim})
	}
	// list is newest first; a stable sort keeps that order among ties.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	s.recordSearch(results)
	return results
}

// Suggestions returns distinct titles containing every token of query.
func (s *Store) Suggestions(query string, limit int) []api.Suggestion {
	tokens := strings.Fields(strings.ToLower(query))
	seen := map[string]struct{}{}
	out := []api.Suggestion{}
	for _, sol := range s.list(filter{}) {
		if len(out) == limit {
			break
		}
		title := strings.ToLower(sol.Title)
		match := true
		for _, tok := range tokens {
			if !strings.Contains(title, tok) {
				match = false
				break
			}
		}
		if _, dup := seen[sol.Title]; !match || dup {
			continue
		}
		seen[sol.Title] = struct{}{}
		out = append(out, api.Suggestion{Text: sol.Title, Type: "title"})
	}
	return out
}
