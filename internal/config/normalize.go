package config

import (
	"fmt"
	"os"
	"strings"

	"reelsub/internal/language"
)

func (c *Config) normalize() error {
	c.normalizeProvider()
	if err := c.normalizeTranslation(); err != nil {
		return err
	}
	if err := c.normalizeServer(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizeProvider() {
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.Name == "" {
		c.Provider.Name = ProviderGemini
	}
	c.Provider.BaseURL = strings.TrimSpace(c.Provider.BaseURL)
	c.Provider.Referer = strings.TrimSpace(c.Provider.Referer)
	c.Provider.Title = strings.TrimSpace(c.Provider.Title)
	c.Provider.DefaultModel = strings.TrimSpace(c.Provider.DefaultModel)
	if c.Provider.Name == ProviderOpenRouter {
		if c.Provider.BaseURL == "" {
			c.Provider.BaseURL = defaultOpenRouterBaseURL
		}
		if c.Provider.DefaultModel == "" || c.Provider.DefaultModel == defaultGeminiModel {
			c.Provider.DefaultModel = defaultOpenRouterModel
		}
	}
	if c.Provider.DefaultModel == "" {
		c.Provider.DefaultModel = defaultGeminiModel
	}
	if c.Provider.TimeoutSeconds <= 0 {
		c.Provider.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeTranslation() error {
	if c.Translation.ChunkSize == 0 {
		c.Translation.ChunkSize = defaultChunkSize
	}
	if c.Translation.MaxOutputTokens == 0 {
		c.Translation.MaxOutputTokens = defaultMaxOutputTokens
	}
	if c.Translation.MaxCandidates == 0 {
		c.Translation.MaxCandidates = defaultMaxCandidates
	}
	if c.Translation.RetryBaseMS == 0 {
		c.Translation.RetryBaseMS = defaultRetryBaseMS
	}
	if c.Translation.RetryMaxMS == 0 {
		c.Translation.RetryMaxMS = defaultRetryMaxMS
	}
	models := make([]string, 0, len(c.Translation.Models))
	for _, model := range c.Translation.Models {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			models = append(models, trimmed)
		}
	}
	c.Translation.Models = models

	if strings.TrimSpace(c.Translation.StylesFile) != "" {
		var err error
		if c.Translation.StylesFile, err = expandPath(strings.TrimSpace(c.Translation.StylesFile)); err != nil {
			return fmt.Errorf("translation.styles_file: %w", err)
		}
	}

	pairs, err := language.ParsePairs(c.Translation.Languages)
	if err != nil {
		return fmt.Errorf("translation.languages: %w", err)
	}
	c.Translation.pairs = pairs
	c.Translation.Languages = make([]string, 0, len(pairs))
	for _, pair := range pairs {
		c.Translation.Languages = append(c.Translation.Languages, pair.String())
	}
	return nil
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultAPIBind
	}
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("REELSUB_API_TOKEN"); ok {
			c.Server.APIToken = value
		}
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if strings.TrimSpace(c.Server.StateDir) == "" {
		c.Server.StateDir = defaultStateDir
	}
	var err error
	if c.Server.StateDir, err = expandPath(c.Server.StateDir); err != nil {
		return fmt.Errorf("server.state_dir: %w", err)
	}
	if c.Server.MaxRequestBytes == 0 {
		c.Server.MaxRequestBytes = defaultMaxRequestBytes
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds == 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}
