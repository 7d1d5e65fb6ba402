package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/colthorp/devdocs-cli-go/internal/devserver"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(devserver.New())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv(core.APIURLEnvVar, ts.URL)
	t.Setenv(core.SupabaseURLEnvVar, "https://example.supabase.co")
	t.Setenv(core.SupabaseAnonKeyEnvVar, "anon-key-for-tests")
	t.Setenv(core.DataDirEnvVar, dir)
	t.Setenv(core.ConfigFileEnvVar, filepath.Join(dir, "missing.yaml"))
	t.Setenv(core.LogLevelEnvVar, "disabled")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	raw, quiet, verbose = false, true, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRoundTrip(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "create", "--raw",
		"--title", "Binary Search",
		"--description", "Classic halving search over sorted input.",
		"--code", "def bs(a, x): pass",
		"--language", "Python",
		"--tags", "algorithm, search")
	require.NoError(t, err)

	var created api.Solution
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "python", created.Language)
	assert.Equal(t, []string{"algorithm", "search"}, created.Tags)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, created.ID)
	assert.Contains(t, out, "Page 1 of 1")

	out, err = run(t, "get", created.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Binary Search"))

	out, err = run(t, "search", "binary", "search")
	require.NoError(t, err)
	assert.Contains(t, out, "Binary Search")

	out, err = run(t, "searches")
	require.NoError(t, err)
	assert.Equal(t, "1. binary search\n", out)

	out, err = run(t, "delete", created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	_, err = run(t, "get", created.ID)
	require.Error(t, err)
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestSearchCommandRejectsShortQuery(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "search", "ab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 characters")
}

func TestCreateCommandReportsValidation(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "create", "--title", "abc", "--description", "short", "--code", "x", "--language", "go", "--tags", "")
	require.Error(t, err)
	msg := err.Error()
	for _, field := range []string{"code", "description", "tags", "title"} {
		assert.Contains(t, msg, field)
	}
}

func TestMissingConfigFails(t *testing.T) {
	setupEnv(t)
	t.Setenv(core.APIURLEnvVar, "")

	_, err := run(t, "list")
	require.ErrorIs(t, err, core.ErrMissingConfig)

	out, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "recent_searches.json")
}

func TestSearchesClear(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "search", "binary search")
	require.NoError(t, err)
	_, err = run(t, "searches", "--clear")
	require.NoError(t, err)
	// cobra keeps flag values between executions in one process.
	require.NoError(t, searchesCmd.Flags().Set("clear", "false"))

	out, err := run(t, "searches")
	require.NoError(t, err)
	assert.Equal(t, "No recent searches.\n", out)
}

func TestBookmarkCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "create", "--raw",
		"--title", "Debounce input",
		"--description", "Delay the request until typing stops.",
		"--code", "setTimeout(run, 300)",
		"--language", "javascript",
		"--tags", "react")
	require.NoError(t, err)
	var created api.Solution
	require.NoError(t, json.Unmarshal([]byte(out), &created))

	out, err = run(t, "bookmark", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bookmark added\n", out)

	out, err = run(t, "bookmark", "--check", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bookmarked\n", out)
	require.NoError(t, bookmarkCmd.Flags().Set("check", "false"))

	out, err = run(t, "unbookmark", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bookmark removed\n", out)

	out, err = run(t, "bookmarks")
	require.NoError(t, err)
	assert.Equal(t, "No bookmarks.\n", out)

	_, err = run(t, "unbookmark", created.ID)
	require.Error(t, err)
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestProfileCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "dev@localhost")

	out, err = run(t, "profile", "update", "--name", "Ada Lovelace", "--theme", "Light")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "light")

	out, err = run(t, "profile", "--raw")
	require.NoError(t, err)
	var me api.UserProfile
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	assert.Equal(t, "Ada Lovelace", me.FullName)

	out, err = run(t, "profile", "user", me.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")
	assert.NotContains(t, out, "dev@localhost")

	out, err = run(t, "profile", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Authentication disabled")
}
