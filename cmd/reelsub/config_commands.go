package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsub/internal/config"
	"reelsub/internal/notifications"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigTestNotifyCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Export GEMINI_API_KEY (or OPENROUTER_API_KEY) before running reelsub; keys are never stored in the file.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			models := strings.Join(cfg.Translation.Models, ", ")
			if models == "" {
				models = "(discover)"
			}
			source := ctx.configPath
			if source == "" {
				source = "(defaults)"
			}
			rows := [][]string{
				{"config file", source},
				{"provider", cfg.Provider.Name},
				{"default model", cfg.Provider.DefaultModel},
				{"credential in env", yesNo(cfg.EnvCredential() != "")},
				{"chunk size", strconv.Itoa(cfg.Translation.ChunkSize)},
				{"pace delay", cfg.PaceDelay().String()},
				{"models", models},
				{"rate limit retries", strconv.Itoa(cfg.Translation.RateLimitRetries)},
				{"languages", strings.Join(cfg.Translation.Languages, ", ")},
				{"server bind", cfg.Server.Bind},
				{"api token", yesNo(cfg.Server.APIToken != "")},
				{"state dir", cfg.Server.StateDir},
				{"log", cfg.Logging.Format + "/" + cfg.Logging.Level},
				{"notifications", yesNo(cfg.Notifications.NtfyTopic != "")},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("Configuration", []string{"Setting", "Value"}, rows, nil))
			return nil
		},
	}
}

func newConfigTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Notifications.NtfyTopic == "" {
				fmt.Fprintln(out, renderStatusLine("Notify", statusWarn, "notifications.ntfy_topic is not set", false))
				return nil
			}
			if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return fmt.Errorf("test notification: %w", err)
			}
			fmt.Fprintln(out, renderStatusLine("Notify", statusOK, "sent to "+cfg.Notifications.NtfyTopic, false))
			return nil
		},
	}
}
