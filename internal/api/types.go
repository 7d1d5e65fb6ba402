// Package api provides the HTTP client and types for the DevDocs API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Transport is the interface for making API requests.
// Endpoints are absolute paths such as "/api/solutions". A nil payload with
// a nil error means the server answered without a body (HTTP 204).
type Transport interface {
	Request(ctx context.Context, method, endpoint string, params url.Values, body any) (json.RawMessage, error)
}

// Timestamp accepts both RFC 3339 and the zone-less ISO 8601 form the
// backend emits for naive datetimes (interpreted as UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		ts.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// Solution is a saved code snippet with its metadata.
type Solution struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	Tags        []string  `json:"tags"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
	IsArchived  bool      `json:"is_archived,omitempty"`
}

// SolutionInput is the body of a create request.
type SolutionInput struct {
	Title       string   `json:"title" validate:"required,min=5,max=200"`
	Description string   `json:"description" validate:"required,min=20,max=2000"`
	Code        string   `json:"code" validate:"required,min=10,max=5000"`
	Language    string   `json:"language" validate:"required,min=1,max=50"`
	Tags        []string `json:"tags" validate:"min=1,dive,required"`
}

// SolutionPatch is the body of an update request. Nil fields are left untouched.
type SolutionPatch struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=5,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,min=20,max=2000"`
	Code        *string  `json:"code,omitempty" validate:"omitempty,min=10,max=5000"`
	Language    *string  `json:"language,omitempty" validate:"omitempty,min=1,max=50"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,min=1,dive,required"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SolutionPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Code == nil && p.Language == nil && p.Tags == nil
}

// SolutionList is the envelope returned by GET /api/solutions.
type SolutionList struct {
	Solutions  []Solution `json:"solutions"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// ListParams filters and paginates the solutions list.
type ListParams struct {
	Page            int
	PageSize        int
	Language        string
	Tag             string
	IncludeArchived bool
}

// Values encodes the non-zero parameters as a query string.
func (p ListParams) Values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Language != "" {
		q.Set("language", p.Language)
	}
	if p.Tag != "" {
		q.Set("tag", p.Tag)
	}
	if p.IncludeArchived {
		q.Set("include_archived", "true")
	}
	return q
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query         string  `json:"query"`
	Limit         int     `json:"limit"`
	MinSimilarity float64 `json:"min_similarity"`
}

// SearchResult is one ranked match. Results arrive sorted by descending
// similarity and are never re-sorted client side.
type SearchResult struct {
	Solution   Solution `json:"solution"`
	Similarity float64  `json:"similarity"`
	Rank       int      `json:"rank"`
}

// SearchResponse is the envelope form of the search endpoint.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
	SearchTimeMS float64        `json:"search_time_ms"`
}

// Suggestion is a title completion for a partial query.
type Suggestion struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// LanguageCount is one row of the dashboard language breakdown.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// DashboardStats holds server-side aggregates.
type DashboardStats struct {
	TotalSolutions     int             `json:"total_solutions"`
	TotalLanguages     int             `json:"total_languages"`
	TotalSearches      int             `json:"total_searches"`
	AverageSimilarity  float64         `json:"average_similarity"`
	UniqueTags         int             `json:"unique_tags"`
	MostRecentSolution *Timestamp      `json:"most_recent_solution"`
	LanguageBreakdown  []LanguageCount `json:"language_breakdown"`
}

// PopularTag is a tag with its usage count.
type PopularTag struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Bookmark links the current user to a solution.
type Bookmark struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SolutionID string    `json:"solution_id"`
	CreatedAt  Timestamp `json:"created_at"`
}

// BookmarkToggle is returned by the toggle endpoint.
type BookmarkToggle struct {
	Bookmarked bool   `json:"bookmarked"`
	Message    string `json:"message"`
}

// MessageResponse is the generic `{message}` acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserProfile is the signed-in user's own profile.
type UserProfile struct {
	ID              string     `json:"id"`
	AuthID          string     `json:"auth_id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name,omitempty"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	GithubUsername  string     `json:"github_username,omitempty"`
	TwitterUsername string     `json:"twitter_username,omitempty"`
	WebsiteURL      string     `json:"website_url,omitempty"`
	Theme           string     `json:"theme"`
	Language        string     `json:"language"`
	CreatedAt       Timestamp  `json:"created_at"`
	UpdatedAt       Timestamp  `json:"updated_at"`
	LastLoginAt     *Timestamp `json:"last_login_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	IsVerified      bool       `json:"is_verified"`
}

// ProfilePatch is the body of PUT /api/auth/me. Nil fields are left untouched.
type ProfilePatch struct {
	FullName        *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	Bio             *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	GithubUsername  *string `json:"github_username,omitempty" validate:"omitempty,max=39"`
	TwitterUsername *string `json:"twitter_username,omitempty" validate:"omitempty,max=15"`
	WebsiteURL      *string `json:"website_url,omitempty" validate:"omitempty,http_url"`
	AvatarURL       *string `json:"avatar_url,omitempty" validate:"omitempty,http_url"`
	Theme           *string `json:"theme,omitempty" validate:"omitempty,oneof=dark light"`
	Language        *string `json:"language,omitempty" validate:"omitempty,min=2,max=10"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.FullName == nil && p.Bio == nil && p.GithubUsername == nil && p.TwitterUsername == nil &&
		p.WebsiteURL == nil && p.AvatarURL == nil && p.Theme == nil && p.Language == nil
}

// PublicProfile is what anyone may see about a user.
type PublicProfile struct {
	ID              string    `json:"id"`
	FullName        string    `json:"full_name,omitempty"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	GithubUsername  string    `json:"github_username,omitempty"`
	TwitterUsername string    `json:"twitter_username,omitempty"`
	WebsiteURL      string    `json:"website_url,omitempty"`
	CreatedAt       Timestamp `json:"created_at"`
}

// AuthStatus describes how the backend is configured to authenticate.
type AuthStatus struct {
	Enabled      bool   `json:"enabled"`
	SupabaseURL  string `json:"supabase_url"`
	JWTSecretSet bool   `json:"jwt_secret_set"`
}
