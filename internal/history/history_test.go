package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreKeepsMostRecentFirst(t *testing.T) {
	s := NewStore(NewMemoryBackend(), 0)
	for _, q := range []string{"one", "two", "three"} {
		require.NoError(t, s.Add(q))
	}

	got, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two", "one"}, got)
}

func TestStoreCapsAtFive(t *testing.T) {
	s := NewStore(NewMemoryBackend(), 0)
	for _, q := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"} {
		require.NoError(t, s.Add(q))
	}

	got, _ := s.List()
	if len(got) != 5 {
		t.Fatalf("Expected 5 searches, got %d", len(got))
	}
	assert.Equal(t, "a7", got[0])
	assert.Equal(t, "a3", got[4])
}

func TestStoreDeduplicatesCaseInsensitively(t *testing.T) {
	s := NewStore(NewMemoryBackend("react hooks", "golang"), 0)

	require.NoError(t, s.Add("  React Hooks "))

	got, _ := s.List()
	assert.Equal(t, []string{"React Hooks", "golang"}, got)
}

func TestStoreIgnoresBlankQueries(t *testing.T) {
	backend := NewMemoryBackend()
	s := NewStore(backend, 0)

	require.NoError(t, s.Add("   "))
	assert.Equal(t, 0, backend.Saves())
}

func TestStoreClear(t *testing.T) {
	s := NewStore(NewMemoryBackend("x", "y"), 0)
	require.NoError(t, s.Clear())

	got, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestFilesystemBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend := NewFilesystemBackend(filepath.Join(dir, "nested"))

	got, err := backend.Load()
	require.NoError(t, err)
	assert.Empty(t, got)

	s := NewStore(backend, 0)
	require.NoError(t, s.Add("sql join"))
	require.NoError(t, s.Add("docker compose"))

	if _, err := os.Stat(backend.Path()); err != nil {
		t.Errorf("Expected file %s to exist", backend.Path())
	}
	if _, err := os.Stat(backend.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temp file to be renamed away")
	}

	reopened := NewStore(NewFilesystemBackend(filepath.Join(dir, "nested")), 0)
	list, err := reopened.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"docker compose", "sql join"}, list)
}

func TestFilesystemBackendCorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	backend := NewFilesystemBackend(dir)
	require.NoError(t, os.WriteFile(backend.Path(), []byte("{not json"), 0o644))

	got, err := backend.Load()
	require.NoError(t, err)
	assert.Empty(t, got)

	if _, err := os.Stat(backend.Path()); !os.IsNotExist(err) {
		t.Error("Expected corrupt file to be removed")
	}
}

func TestFilesystemBackendReadsLegacyArray(t *testing.T) {
	dir := t.TempDir()
	backend := NewFilesystemBackend(dir)
	require.NoError(t, os.WriteFile(backend.Path(), []byte(`["old query"]`), 0o644))

	got, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"old query"}, got)
}
