// Package history persists the user's most recent search queries between runs.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/colthorp/devdocs-cli-go/internal/core"
)

// FileName is the history file inside the data directory.
const FileName = "recent_searches.json"

// Backend loads and saves the raw search list.
type Backend interface {
	Load() ([]string, error)
	Save(searches []string) error
}

// filePayload is the on-disk format.
type filePayload struct {
	Searches  []string  `json:"searches"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FilesystemBackend stores the list as a JSON file: <dir>/recent_searches.json.
type FilesystemBackend struct {
	dir       string
	writeLock sync.Mutex
}

// NewFilesystemBackend creates a backend rooted at dir (the data root when empty).
func NewFilesystemBackend(dir string) *FilesystemBackend {
	if dir == "" {
		dir = core.DataRoot()
	}
	return &FilesystemBackend{dir: dir}
}

// Path returns the history file location.
func (b *FilesystemBackend) Path() string {
	return filepath.Join(b.dir, FileName)
}

// Load returns the stored searches. A missing file is an empty list; a corrupt
// file is removed and treated as empty.
func (b *FilesystemBackend) Load() ([]string, error) {
	path := b.Path()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read search history: %w", err)
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// Older files held a bare array.
		var legacy []string
		if err := json.Unmarshal(data, &legacy); err != nil {
			os.Remove(path)
			return nil, nil
		}
		return legacy, nil
	}
	return payload.Searches, nil
}

// Save persists the list atomically.
func (b *FilesystemBackend) Save(searches []string) error {
	if searches == nil {
		searches = []string{}
	}
	data, err := json.MarshalIndent(filePayload{Searches: searches, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}

	b.writeLock.Lock()
	defer b.writeLock.Unlock()

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	path := b.Path()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// MemoryBackend keeps the list in memory. Useful for tests.
type MemoryBackend struct {
	mu       sync.Mutex
	searches []string
	saves    int
}

// NewMemoryBackend creates a backend seeded with searches.
func NewMemoryBackend(searches ...string) *MemoryBackend {
	return &MemoryBackend{searches: append([]string(nil), searches...)}
}

func (b *MemoryBackend) Load() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.searches...), nil
}

func (b *MemoryBackend) Save(searches []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searches = append([]string(nil), searches...)
	b.saves++
	return nil
}

// Saves returns how many times Save was called.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
