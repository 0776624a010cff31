package main

import (
	"github.com/spf13/cobra"

	"reelsub/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var development bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP translation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    flagValue(ctx.logLevelFlag),
				Development: development,
				Factory:     ctx.factory,
			})
		},
	}
	cmd.Flags().BoolVar(&development, "development", false, "Include source locations in log lines")
	return cmd
}
