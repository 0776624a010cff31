package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsub/internal/translation"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models the API key can use for translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			credential, err := ctx.credential(cfg, apiKey)
			if err != nil {
				return err
			}
			factory, err := ctx.providerFactory(cfg)
			if err != nil {
				return err
			}
			provider, err := factory(cmd.Context(), credential)
			if err != nil {
				return describeFailure(err)
			}
			models, err := provider.ListCapableModels(cmd.Context())
			if err != nil {
				return describeFailure(err)
			}
			models = translation.PreferFast(models)

			rows := make([][]string, 0, len(models))
			for i, model := range models {
				rows = append(rows, []string{strconv.Itoa(i + 1), model})
			}
			title := fmt.Sprintf("%s models", provider.Name())
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(title, []string{"#", "Model"}, rows, []columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (default from environment)")
	return cmd
}
