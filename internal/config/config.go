package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reelsub/internal/language"
)

//go:embed sample_config.toml
var sampleConfig string

// Provider selects and configures the text-generation backend.
type Provider struct {
	Name           string `toml:"name"`
	BaseURL        string `toml:"base_url"`
	DefaultModel   string `toml:"default_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
}

// Translation contains chunking, pacing, and fallback settings.
type Translation struct {
	ChunkSize        int      `toml:"chunk_size"`
	PaceDelayMS      int      `toml:"pace_delay_ms"`
	MaxOutputTokens  int      `toml:"max_output_tokens"`
	Models           []string `toml:"models"`
	MaxCandidates    int      `toml:"max_candidates"`
	RateLimitRetries int      `toml:"rate_limit_retries"`
	RetryBaseMS      int      `toml:"retry_base_ms"`
	RetryMaxMS       int      `toml:"retry_max_ms"`
	StylesFile       string   `toml:"styles_file"`
	Languages        []string `toml:"languages"`

	pairs []language.Pair
}

// Server contains settings for the local HTTP service.
type Server struct {
	Bind               string `toml:"bind"`
	APIToken           string `toml:"api_token"`
	StateDir           string `toml:"state_dir"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
	RateLimitBurst     int    `toml:"rate_limit_burst"`
	MaxRequestBytes    int64  `toml:"max_request_bytes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Notifications configures optional ntfy alerts for server runs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	OnSuccess             bool   `toml:"on_success"`
}

// Config encapsulates all configuration values for reelsub.
//
// Configuration sections by subsystem:
//   - Provider: backend selection (gemini or openrouter) and connection settings
//   - Translation: chunk size, pacing, model candidates, styles, language pairs
//   - Server: HTTP bind address, bearer token, lock directory, throttling
//   - Logging: log format, level, and optional file
//   - Notifications: ntfy topic for run alerts
type Config struct {
	Provider      Provider      `toml:"provider"`
	Translation   Translation   `toml:"translation"`
	Server        Server        `toml:"server"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the service writes to.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Server.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Server.StateDir, err)
	}
	if c.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file used by the HTTP service.
func (c *Config) LockPath() string {
	return filepath.Join(c.Server.StateDir, "reelsub.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Pairs returns the parsed language pairs offered to users.
func (c *Config) Pairs() []language.Pair {
	if len(c.Translation.pairs) == 0 {
		return append([]language.Pair(nil), language.DefaultPairs...)
	}
	return append([]language.Pair(nil), c.Translation.pairs...)
}

// PaceDelay returns the delay between successive chunk calls.
func (c *Config) PaceDelay() time.Duration {
	return time.Duration(c.Translation.PaceDelayMS) * time.Millisecond
}

// RetryBackoff returns the base and maximum rate-limit backoff delays.
func (c *Config) RetryBackoff() (time.Duration, time.Duration) {
	return time.Duration(c.Translation.RetryBaseMS) * time.Millisecond,
		time.Duration(c.Translation.RetryMaxMS) * time.Millisecond
}

// CredentialEnvVars lists the environment variables consulted for the
// configured provider, in priority order.
func (c *Config) CredentialEnvVars() []string {
	if c.Provider.Name == ProviderOpenRouter {
		return []string{"OPENROUTER_API_KEY"}
	}
	return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
}

// EnvCredential returns the first non-empty credential from the environment.
func (c *Config) EnvCredential() string {
	for _, name := range c.CredentialEnvVars() {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}

// NtfyTimeout returns the notification request timeout.
func (c *Config) NtfyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}
