// Package core provides shared constants and configuration for the DevDocs CLI.
package core

import (
	"os"
	"path/filepath"
	"time"
)

// Environment variables
const (
	APIURLEnvVar          = "DEVDOCS_API_URL"
	SupabaseURLEnvVar     = "SUPABASE_URL"
	SupabaseAnonKeyEnvVar = "SUPABASE_ANON_KEY"
	AccessTokenEnvVar     = "DEVDOCS_ACCESS_TOKEN"
	EnvironmentEnvVar     = "DEVDOCS_ENV"
	LogLevelEnvVar        = "DEVDOCS_LOG_LEVEL"
	TimeoutEnvVar         = "DEVDOCS_REQUEST_TIMEOUT"
	DataDirEnvVar         = "DEVDOCS_DATA_DIR"
	ConfigFileEnvVar      = "DEVDOCS_CONFIG"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// HTTP client
const (
	RequestTimeout     = 15 * time.Second
	RequestTimeHeader  = "X-Request-Time"
	RequestIDHeader    = "X-Request-ID"
	DevServerAddr      = "127.0.0.1:8000"
	HealthCheckPeriod  = 30 * time.Second
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultSearchLimit = 10
	DefaultRecentLimit = 5
	DefaultTagsLimit   = 20
)

// Search
const (
	DefaultMinSimilarity = 0.3
	MinSearchQueryLength = 3
	MinSuggestionLength  = 2
	SearchDebounce       = 300 * time.Millisecond
	RecentSearchLimit    = 5
)

// Query cache windows
const (
	DefaultStaleTime = 5 * time.Minute
	DefaultGCTime    = 10 * time.Minute

	SearchStaleTime = 1 * time.Minute
	SearchGCTime    = 5 * time.Minute

	StatsStaleTime       = 30 * time.Second
	StatsGCTime          = 5 * time.Minute
	StatsRefetchInterval = 60 * time.Second

	RecentStaleTime = 1 * time.Minute
	RecentGCTime    = 5 * time.Minute
)

// Retry policy
const (
	QueryMaxRetries    = 3
	QueryRetryDelay    = 1 * time.Second
	QueryMaxRetryDelay = 30 * time.Second

	SearchMaxRetries = 1
	SearchRetryDelay = 500 * time.Millisecond

	MutationMaxRetries = 1
	MutationRetryDelay = 1 * time.Second
)

// DataRoot returns the default directory for persisted client state.
func DataRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".devdocs")
}

// ConfigFilePath returns the YAML config file location.
func ConfigFilePath() string {
	if p := os.Getenv(ConfigFileEnvVar); p != "" {
		return p
	}
	return filepath.Join(DataRoot(), "config.yaml")
}

// Version is the current CLI version.
const Version = "0.3.0"
