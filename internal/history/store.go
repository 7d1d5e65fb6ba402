package history

import (
	"strings"
	"sync"

	"github.com/colthorp/devdocs-cli-go/internal/core"
)

// Store keeps the most recently used searches first, without case-insensitive
// duplicates, capped at a fixed length.
type Store struct {
	backend Backend
	limit   int
	mu      sync.Mutex
}

// NewStore wraps backend. A limit <= 0 selects the default of 5.
func NewStore(backend Backend, limit int) *Store {
	if limit <= 0 {
		limit = core.RecentSearchLimit
	}
	return &Store{backend: backend, limit: limit}
}

// Add records query as the most recent search. Blank queries are ignored.
func (s *Store) Add(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.backend.Load()
	if err != nil {
		return err
	}
	next := make([]string, 0, s.limit)
	next = append(next, query)
	for _, q := range current {
		if len(next) == s.limit {
			break
		}
		if strings.EqualFold(strings.TrimSpace(q), query) {
			continue
		}
		next = append(next, q)
	}
	return s.backend.Save(next)
}

// List returns the stored searches, most recent first.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	searches, err := s.backend.Load()
	if err != nil {
		return nil, err
	}
	if len(searches) > s.limit {
		searches = searches[:s.limit]
	}
	if searches == nil {
		searches = []string{}
	}
	return searches, nil
}

// Clear forgets every search.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Save([]string{})
}
