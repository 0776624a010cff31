package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"reelsub/internal/app"
	"reelsub/internal/config"
	"reelsub/internal/logging"
	"reelsub/internal/services"
	"reelsub/internal/translation"
)

type commandContext struct {
	configFlag   *string
	envFileFlag  *string
	logLevelFlag *string

	// factory overrides the configured provider; tests set it.
	factory translation.Factory

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, envFileFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		envFileFlag:  envFileFlag,
		logLevelFlag: logLevelFlag,
	}
}

// loadEnvFile exports keys from the env file without overriding variables
// already set in the environment.
func (c *commandContext) loadEnvFile() error {
	path := strings.TrimSpace(flagValue(c.envFileFlag))
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(flagValue(c.configFlag)))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		if exists {
			c.configPath = path
		}
	})
	return c.config, c.configErr
}

func (c *commandContext) providerFactory(cfg *config.Config) (translation.Factory, error) {
	if c.factory != nil {
		return c.factory, nil
	}
	return app.ProviderFactory(cfg)
}

// credential resolves the API key: flag first, then the environment.
func (c *commandContext) credential(cfg *config.Config, flag string) (string, error) {
	if key := strings.TrimSpace(flag); key != "" {
		return key, nil
	}
	if key := cfg.EnvCredential(); key != "" {
		return key, nil
	}
	return "", services.Wrap(services.ErrCredentialInvalid, "cli", "credential",
		"no API key; pass --api-key or set "+strings.Join(cfg.CredentialEnvVars(), " or "), nil)
}

// logger writes to stderr so stdout stays clean for subtitle output.
func (c *commandContext) logger(cfg *config.Config, stderr io.Writer) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if override := strings.TrimSpace(flagValue(c.logLevelFlag)); override != "" {
		level = override
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: stderr,
		File:   cfg.Logging.File,
	})
}

func flagValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
