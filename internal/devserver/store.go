package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/colthorp/devdocs-cli-go/internal/api"
)

var (
	errSolutionNotFound = errors.New("Solution not found")
	errBookmarkNotFound = errors.New("Bookmark not found")
	errUserNotFound     = errors.New("User not found")
)

// Store is the in-memory state behind the dev server.
type Store struct {
	mu        sync.RWMutex
	solutions map[string]*api.Solution
	bookmarks map[string]api.Bookmark // by solution id
	userID    string
	profile   *api.UserProfile
	now       func() time.Time
	last      time.Time

	searches      int
	similaritySum float64
	similarityN   int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		solutions: make(map[string]*api.Solution),
		bookmarks: make(map[string]api.Bookmark),
		userID:    uuid.NewString(),
		now:       time.Now,
	}
}

// tick returns a strictly increasing timestamp so creation order is stable.
// Callers hold s.mu.
func (s *Store) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Create stores a validated input as a new solution.
func (s *Store) Create(in api.SolutionInput) api.Solution {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	sol := &api.Solution{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Code:        in.Code,
		Language:    in.Language,
		Tags:        append([]string(nil), in.Tags...),
		CreatedAt:   api.Timestamp{Time: now},
		UpdatedAt:   api.Timestamp{Time: now},
	}
	s.solutions[sol.ID] = sol
	return *sol
}

// Get returns a live (not archived) solution.
func (s *Store) Get(id string) (api.Solution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sol, ok := s.solutions[id]
	if !ok || sol.IsArchived {
		return api.Solution{}, errSolutionNotFound
	}
	return *sol, nil
}

// Update applies a validated patch to a live solution.
func (s *Store) Update(id string, p api.SolutionPatch) (api.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sol, ok := s.solutions[id]
	if !ok || sol.IsArchived {
		return api.Solution{}, errSolutionNotFound
	}
	if p.Title != nil {
		sol.Title = *p.Title
	}
	if p.Description != nil {
		sol.Description = *p.Description
	}
	if p.Code != nil {
		sol.Code = *p.Code
	}
	if p.Language != nil {
		sol.Language = *p.Language
	}
	if p.Tags != nil {
		sol.Tags = append([]string(nil), p.Tags...)
	}
	sol.UpdatedAt = api.Timestamp{Time: s.tick()}
	return *sol, nil
}

// Delete archives a live solution, or removes any solution when permanent.
func (s *Store) Delete(id string, permanent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sol, ok := s.solutions[id]
	if !ok {
		return errSolutionNotFound
	}
	if permanent {
		delete(s.solutions, id)
		delete(s.bookmarks, id)
		return nil
	}
	if sol.IsArchived {
		return errSolutionNotFound
	}
	sol.IsArchived = true
	return nil
}

// filter selects solutions for the list endpoint, newest first.
type filter struct {
	language        string
	tag             string
	includeArchived bool
}

func (s *Store) list(f filter) []api.Solution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Solution, 0, len(s.solutions))
	for _, sol := range s.solutions {
		if sol.IsArchived && !f.includeArchived {
			continue
		}
		if f.language != "" && sol.Language != f.language {
			continue
		}
		if f.tag != "" && !hasTag(sol.Tags, f.tag) {
			continue
		}
		out = append(out, *sol)
	}
	sortNewestFirst(out)
	return out
}

// List returns one page and the total number of matches.
func (s *Store) List(f filter, page, pageSize int) ([]api.Solution, int) {
	all := s.list(f)
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []api.Solution{}, len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all)
}

// Recent returns the newest live solutions.
func (s *Store) Recent(limit int) []api.Solution {
	all := s.list(filter{})
	if limit < len(all) {
		all = all[:limit]
	}
	return all
}

// Stats computes the dashboard aggregates over live solutions.
func (s *Store) Stats() api.DashboardStats {
	live := s.list(filter{})

	s.mu.RLock()
	stats := api.DashboardStats{
		TotalSolutions: len(live),
		TotalSearches:  s.searches,
	}
	if s.similarityN > 0 {
		stats.AverageSimilarity = s.similaritySum / float64(s.similarityN)
	}
	s.mu.RUnlock()

	langs := map[string]int{}
	tags := map[string]struct{}{}
	for i, sol := range live {
		if i == 0 {
			ts := sol.CreatedAt
			stats.MostRecentSolution = &ts
		}
		langs[sol.Language]++
		for _, t := range sol.Tags {
			tags[t] = struct{}{}
		}
	}
	stats.TotalLanguages = len(langs)
	stats.UniqueTags = len(tags)
	stats.LanguageBreakdown = make([]api.LanguageCount, 0, len(langs))
	for l, n := range langs {
		stats.LanguageBreakdown = append(stats.LanguageBreakdown, api.LanguageCount{Language: l, Count: n})
	}
	sort.Slice(stats.LanguageBreakdown, func(i, j int) bool {
		a, b := stats.LanguageBreakdown[i], stats.LanguageBreakdown[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Language < b.Language
	})
	return stats
}

// PopularTags counts tag usage over live solutions.
func (s *Store) PopularTags(limit int) []api.PopularTag {
	counts := map[string]int{}
	for _, sol := range s.list(filter{}) {
		for _, t := range sol.Tags {
			counts[t]++
		}
	}
	out := make([]api.PopularTag, 0, len(counts))
	for t, n := range counts {
		out = append(out, api.PopularTag{Tag: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *Store) recordSearch(results []api.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	for _, r := range results {
		s.similaritySum += r.Similarity
		s.similarityN++
	}
}

// ToggleBookmark adds or removes the bookmark on a solution.
func (s *Store) ToggleBookmark(solutionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.solutions[solutionID]; !ok {
		return false, errSolutionNotFound
	}
	if _, ok := s.bookmarks[solutionID]; ok {
		delete(s.bookmarks, solutionID)
		return false, nil
	}
	s.bookmarks[solutionID] = api.Bookmark{
		ID:         uuid.NewString(),
		UserID:     s.userID,
		SolutionID: solutionID,
		CreatedAt:  api.Timestamp{Time: s.tick()},
	}
	return true, nil
}

// Bookmarks lists bookmarks, newest first.
func (s *Store) Bookmarks() []api.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Bookmark, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt.Time) })
	return out
}

// IsBookmarked reports whether the solution is bookmarked.
func (s *Store) IsBookmarked(solutionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bookmarks[solutionID]
	return ok
}

// DeleteBookmark removes a bookmark.
func (s *Store) DeleteBookmark(solutionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookmarks[solutionID]; !ok {
		return errBookmarkNotFound
	}
	delete(s.bookmarks, solutionID)
	return nil
}

// Profile returns the local user's profile, creating it on first access.
func (s *Store) Profile() api.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.profileLocked()
}

// profileLocked returns the profile, creating it if needed. Callers hold s.mu.
func (s *Store) profileLocked() *api.UserProfile {
	if s.profile == nil {
		now := api.Timestamp{Time: s.tick()}
		s.profile = &api.UserProfile{
			ID:         s.userID,
			AuthID:     uuid.NewString(),
			Email:      "dev@localhost",
			Theme:      "dark",
			Language:   "en",
			CreatedAt:  now,
			UpdatedAt:  now,
			IsActive:   true,
			IsVerified: true,
		}
	}
	return s.profile
}

// UpdateProfile applies a validated patch to the local user's profile.
func (s *Store) UpdateProfile(p api.ProfilePatch) api.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	prof := s.profileLocked()
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&prof.FullName, p.FullName)
	set(&prof.Bio, p.Bio)
	set(&prof.GithubUsername, p.GithubUsername)
	set(&prof.TwitterUsername, p.TwitterUsername)
	set(&prof.WebsiteURL, p.WebsiteURL)
	set(&prof.AvatarURL, p.AvatarURL)
	set(&prof.Theme, p.Theme)
	set(&prof.Language, p.Language)
	prof.UpdatedAt = api.Timestamp{Time: s.tick()}
	return *prof
}

// PublicProfile returns the public view of a user. The local user is the
// only one the dev server knows.
func (s *Store) PublicProfile(userID string) (api.PublicProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID != s.userID {
		return api.PublicProfile{}, errUserNotFound
	}
	prof := s.profileLocked()
	return api.PublicProfile{
		ID:              prof.ID,
		FullName:        prof.FullName,
		AvatarURL:       prof.AvatarURL,
		Bio:             prof.Bio,
		GithubUsername:  prof.GithubUsername,
		TwitterUsername: prof.TwitterUsername,
		WebsiteURL:      prof.WebsiteURL,
		CreatedAt:       prof.CreatedAt,
	}, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sortNewestFirst(sols []api.Solution) {
	sort.SliceStable(sols, func(i, j int) bool {
		a, b := sols[i].CreatedAt.Time, sols[j].CreatedAt.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return sols[i].ID < sols[j].ID
	})
}

func searchText(sol api.Solution) string {
	return strings.ToLower(strings.Join([]string{sol.Title, sol.Description, sol.Code, sol.Language, strings.Join(sol.Tags, " ")}, " "))
}
