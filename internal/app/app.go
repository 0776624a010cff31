// Package app builds providers and pipelines from configuration. It is the
// shared wiring used by both the CLI and the HTTP daemon.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelsub/internal/config"
	"reelsub/internal/gateway"
	"reelsub/internal/logging"
	"reelsub/internal/metrics"
	"reelsub/internal/services"
	"reelsub/internal/services/gemini"
	"reelsub/internal/services/llm"
	"reelsub/internal/translation"
)

// ProviderFactory returns a translation.Factory for the configured backend.
func ProviderFactory(cfg *config.Config) (translation.Factory, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "app", "provider", "config is required", nil)
	}
	p := cfg.Provider
	switch strings.ToLower(strings.TrimSpace(p.Name)) {
	case config.ProviderGemini:
		return func(ctx context.Context, credential string) (gateway.Provider, error) {
			client, err := gemini.NewClient(ctx, gemini.Config{
				APIKey:         credential,
				BaseURL:        p.BaseURL,
				TimeoutSeconds: p.TimeoutSeconds,
			})
			if err != nil {
				return nil, err
			}
			return client, nil
		}, nil
	case config.ProviderOpenRouter:
		return func(_ context.Context, credential string) (gateway.Provider, error) {
			return llm.NewClient(llm.Config{
				APIKey:         credential,
				BaseURL:        p.BaseURL,
				Referer:        p.Referer,
				Title:          p.Title,
				TimeoutSeconds: p.TimeoutSeconds,
			}), nil
		}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "app", "provider",
			fmt.Sprintf("unsupported provider %q", p.Name), nil)
	}
}

// PipelineOptions maps the [translation] section onto pipeline options.
func PipelineOptions(cfg *config.Config) translation.Options {
	base, maxDelay := cfg.RetryBackoff()
	return translation.Options{
		ChunkSize:        cfg.Translation.ChunkSize,
		PaceDelay:        cfg.PaceDelay(),
		MaxOutputTokens:  cfg.Translation.MaxOutputTokens,
		Models:           append([]string(nil), cfg.Translation.Models...),
		MaxCandidates:    cfg.Translation.MaxCandidates,
		RateLimitRetries: cfg.Translation.RateLimitRetries,
		RetryBaseDelay:   base,
		RetryMaxDelay:    maxDelay,
		FallbackModel:    cfg.Provider.DefaultModel,
		Languages:        cfg.Pairs(),
	}
}

// NewPipeline builds a pipeline for cfg. A nil factory selects the
// configured provider.
func NewPipeline(cfg *config.Config, factory translation.Factory, logger *slog.Logger, recorder *metrics.Recorder) (*translation.Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "app", "pipeline", "config is required", nil)
	}
	if factory == nil {
		var err error
		if factory, err = ProviderFactory(cfg); err != nil {
			return nil, err
		}
	}
	presets, err := translation.LoadPresets(cfg.Translation.StylesFile)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return translation.New(factory, PipelineOptions(cfg),
		translation.WithLogger(logger),
		translation.WithPresets(presets),
		translation.WithMetrics(recorder),
	), nil
}
