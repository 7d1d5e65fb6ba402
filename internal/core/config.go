package core

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingConfig is wrapped by MissingConfigError when one or more required
// settings are absent.
var ErrMissingConfig = errors.New("missing required configuration")

// MissingConfigError lists the environment variables that must be set.
type MissingConfigError struct {
	Vars []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingConfig, strings.Join(e.Vars, ", "))
}

func (e *MissingConfigError) Unwrap() error { return ErrMissingConfig }

// Config holds every setting the CLI reads at startup.
type Config struct {
	APIBaseURL      string        `yaml:"api_url"`
	SupabaseURL     string        `yaml:"supabase_url"`
	SupabaseAnonKey string        `yaml:"supabase_anon_key"`
	AccessToken     string        `yaml:"access_token,omitempty"`
	Environment     string        `yaml:"environment"`
	LogLevel        string        `yaml:"log_level"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	DataDir         string        `yaml:"data_dir"`
}

// IsProduction reports whether the CLI runs against a production backend.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.SupabaseAnonKey = redact(c.SupabaseAnonKey)
	c.AccessToken = redact(c.AccessToken)
	return c
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// Load reads configuration from the default YAML file, a .env file in the
// working directory, and the process environment (highest precedence).
func Load() (Config, error) {
	return LoadFrom(ConfigFilePath(), ".env")
}

// LoadFrom is Load with explicit file locations. Either path may be empty or
// point at a file that does not exist.
func LoadFrom(configPath, dotenvPath string) (Config, error) {
	cfg := Config{
		Environment:    EnvDevelopment,
		LogLevel:       "info",
		RequestTimeout: RequestTimeout,
		DataDir:        DataRoot(),
	}

	if configPath != "" {
		if err := readConfigFile(configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			// godotenv never overrides variables already present in the environment.
			if err := godotenv.Load(dotenvPath); err != nil {
				return cfg, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
			}
		}
	}

	cfg.APIBaseURL = getenv(APIURLEnvVar, cfg.APIBaseURL)
	cfg.SupabaseURL = getenv(SupabaseURLEnvVar, cfg.SupabaseURL)
	cfg.SupabaseAnonKey = getenv(SupabaseAnonKeyEnvVar, cfg.SupabaseAnonKey)
	cfg.AccessToken = getenv(AccessTokenEnvVar, cfg.AccessToken)
	cfg.Environment = strings.ToLower(getenv(EnvironmentEnvVar, cfg.Environment))
	cfg.LogLevel = strings.ToLower(getenv(LogLevelEnvVar, cfg.LogLevel))
	cfg.RequestTimeout = getdur(TimeoutEnvVar, cfg.RequestTimeout)
	cfg.DataDir = getenv(DataDirEnvVar, cfg.DataDir)

	// --- normalization ---
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.SupabaseURL = strings.TrimSpace(cfg.SupabaseURL)
	cfg.SupabaseAnonKey = strings.TrimSpace(cfg.SupabaseAnonKey)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	var missing []string
	if cfg.APIBaseURL == "" {
		missing = append(missing, APIURLEnvVar)
	}
	if cfg.SupabaseURL == "" {
		missing = append(missing, SupabaseURLEnvVar)
	}
	if cfg.SupabaseAnonKey == "" {
		missing = append(missing, SupabaseAnonKeyEnvVar)
	}
	if len(missing) > 0 {
		return cfg, &MissingConfigError{Vars: missing}
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cfg, fmt.Errorf("%s must be an absolute http(s) URL, got %q", APIURLEnvVar, cfg.APIBaseURL)
	}
	switch cfg.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return cfg, fmt.Errorf("%s must be one of: development, production, test", EnvironmentEnvVar)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "disabled":
	default:
		return cfg, fmt.Errorf("%s must be one of: debug, info, warn, error, disabled", LogLevelEnvVar)
	}
	if cfg.RequestTimeout <= 0 {
		return cfg, fmt.Errorf("%s must be a positive duration", TimeoutEnvVar)
	}

	return cfg, nil
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// YAML renders the configuration in config file form.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
