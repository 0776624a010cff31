package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateProvider() error {
	switch c.Provider.Name {
	case ProviderGemini, ProviderOpenRouter:
	default:
		return fmt.Errorf("provider.name must be %q or %q, got %q", ProviderGemini, ProviderOpenRouter, c.Provider.Name)
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return errors.New("provider.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	t := c.Translation
	if t.ChunkSize < 1 {
		return errors.New("translation.chunk_size must be at least 1")
	}
	if t.PaceDelayMS < 0 {
		return errors.New("translation.pace_delay_ms must be non-negative")
	}
	if t.MaxOutputTokens < 1 {
		return errors.New("translation.max_output_tokens must be positive")
	}
	if t.MaxCandidates < 1 {
		return errors.New("translation.max_candidates must be at least 1")
	}
	if t.RateLimitRetries < 0 {
		return errors.New("translation.rate_limit_retries must be non-negative")
	}
	if t.RetryBaseMS < 0 || t.RetryMaxMS < 0 {
		return errors.New("translation retry delays must be non-negative")
	}
	if t.RetryMaxMS < t.RetryBaseMS {
		return errors.New("translation.retry_max_ms must be at least translation.retry_base_ms")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RateLimitPerMinute < 0 {
		return errors.New("server.rate_limit_per_minute must be non-negative")
	}
	if c.Server.RateLimitBurst < 0 {
		return errors.New("server.rate_limit_burst must be non-negative")
	}
	if c.Server.MaxRequestBytes < 1 {
		return errors.New("server.max_request_bytes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("notifications.request_timeout_seconds must be positive, got %d", c.Notifications.RequestTimeoutSeconds)
	}
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}
