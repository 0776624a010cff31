package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsub/internal/translation"
)

func newStylesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List translation style presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			presets, err := translation.LoadPresets(cfg.Translation.StylesFile)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(presets))
			for _, preset := range presets.Sorted() {
				rows = append(rows, []string{
					string(preset.Style),
					preset.Label,
					strconv.FormatFloat(preset.Temperature, 'f', 2, 64),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("Styles", []string{"Style", "Label", "Temperature"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
}

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported language pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pairs := cfg.Pairs()
			rows := make([][]string, 0, len(pairs))
			for _, pair := range pairs {
				rows = append(rows, []string{pair.String(), pair.Label()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("Language pairs", []string{"Code", "Direction"}, rows, nil))
			return nil
		},
	}
}
