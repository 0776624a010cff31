package testsupport

import (
	"path/filepath"
	"testing"

	"reelsub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp state directory per
// test, no pacing, and tiny backoff delays.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.StateDir = filepath.Join(base, "state")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Translation.PaceDelayMS = 0
	cfgVal.Translation.RetryBaseMS = 1
	cfgVal.Translation.RetryMaxMS = 1
	cfgVal.Translation.Languages = []string{"en:my", "ko:my", "zh:my", "ko:en", "zh:en"}
	if err := cfgVal.Validate(); err != nil {
		t.Fatalf("default test config invalid: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithModels pins the candidate models so tests skip discovery.
func WithModels(models ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translation.Models = models
	}
}

// WithAPIToken requires a bearer token on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithChunkSize overrides the number of blocks per chunk.
func WithChunkSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translation.ChunkSize = size
	}
}

// WithRateLimit sets the per-client request budget of the HTTP API.
func WithRateLimit(perMinute, burst int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.RateLimitPerMinute = perMinute
		b.cfg.Server.RateLimitBurst = burst
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Server.StateDir)
}
