package queries

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/core"
)

// SearchOutcome is delivered once per executed search. Query is the text as
// typed; the backend receives its normalized form.
type SearchOutcome struct {
	Query   string
	Results []api.SearchResult
	Err     error
}

// SearchInput debounces keystrokes into searches. Only the last query typed
// within the debounce window runs, and only when it is long enough.
type SearchInput struct {
	c        *Client
	limit    int
	delay    time.Duration
	onResult func(SearchOutcome)

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	query string
	seq   int
	timer *time.Timer
}

// SearchInputOption configures a SearchInput.
type SearchInputOption func(*SearchInput)

// WithDebounce replaces the 300 ms debounce delay.
func WithDebounce(d time.Duration) SearchInputOption {
	return func(s *SearchInput) { s.delay = d }
}

// NewSearchInput creates an input whose results go to onResult. ctx bounds
// every search it runs.
func (c *Client) NewSearchInput(ctx context.Context, limit int, onResult func(SearchOutcome), opts ...SearchInputOption) *SearchInput {
	ctx, cancel := context.WithCancel(ctx)
	s := &SearchInput{
		c:        c,
		limit:    limit,
		delay:    core.SearchDebounce,
		onResult: onResult,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type replaces the current query and restarts the debounce timer.
func (s *SearchInput) Type(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(seq) })
}

// Query returns the text typed so far.
func (s *SearchInput) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Flush runs the pending query now instead of waiting for the timer.
func (s *SearchInput) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	seq := s.seq
	s.mu.Unlock()
	s.fire(seq)
}

// Close stops the timer and cancels any running search.
func (s *SearchInput) Close() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	s.mu.Unlock()
	s.cancel()
}

func (s *SearchInput) current(seq int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, seq == s.seq
}

func (s *SearchInput) fire(seq int) {
	query, ok := s.current(seq)
	if !ok || !SearchEnabled(query) {
		return
	}
	query = strings.TrimSpace(query)
	s.c.logger.Debug().Str("query", NormalizeQuery(query)).Msg("debounced search")

	results, err := s.c.RunSearch(s.ctx, query, s.limit)
	if _, still := s.current(seq); !still {
		return
	}
	if s.onResult != nil {
		s.onResult(SearchOutcome{Query: query, Results: results, Err: err})
	}
}
