package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reelsub/internal/app"
	"reelsub/internal/fileutil"
	"reelsub/internal/language"
	"reelsub/internal/services"
	"reelsub/internal/subtitles"
	"reelsub/internal/translation"
)

type translateOptions struct {
	from      string
	to        string
	style     string
	models    []string
	chunkSize int
	out       string
	apiKey    string
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var opts translateOptions

	cmd := &cobra.Command{
		Use:   "translate [file|-]",
		Short: "Translate a subtitle file",
		Long: `Translate a subtitle file chunk by chunk.

The source is read from the given file, or from stdin when the argument is
"-" or omitted. The result is written to --out (".srt" is appended when
missing); "-" writes to stdout. Without --out, stdin input goes to stdout and
file input goes to translated_subtitle.srt next to the source.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runTranslate(cmd, ctx, input, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.from, "from", "f", "en", "Source language (code or English name)")
	cmd.Flags().StringVarP(&opts.to, "to", "t", "my", "Target language (code or English name)")
	cmd.Flags().StringVarP(&opts.style, "style", "s", string(translation.StyleCinematic), "Translation style: cinematic or literal")
	cmd.Flags().StringSliceVarP(&opts.models, "model", "m", nil, "Candidate model, in fallback order (repeatable)")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "Subtitle blocks per request (default from config)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file name, or - for stdout")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "API key (default from environment)")
	return cmd
}

func runTranslate(cmd *cobra.Command, ctx *commandContext, input string, opts translateOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	pair, err := language.NewPair(opts.from, opts.to)
	if err != nil {
		return services.Wrap(services.ErrValidation, "cli", "translate", err.Error(), nil)
	}
	style, err := translation.ParseStyle(opts.style)
	if err != nil {
		return services.Wrap(services.ErrValidation, "cli", "translate", err.Error(), nil)
	}
	credential, err := ctx.credential(cfg, opts.apiKey)
	if err != nil {
		return err
	}
	source, err := readSource(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}

	local := *cfg
	if opts.chunkSize > 0 {
		local.Translation.ChunkSize = opts.chunkSize
	}
	stderr := cmd.ErrOrStderr()
	logger, err := ctx.logger(&local, stderr)
	if err != nil {
		return err
	}
	factory, err := ctx.providerFactory(&local)
	if err != nil {
		return err
	}
	pipeline, err := app.NewPipeline(&local, factory, logger, nil)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	colorize := shouldColorize(stderr)
	fmt.Fprintln(stderr, renderStatusLine("Translate", statusInfo,
		fmt.Sprintf("%s, %s style, %d blocks", pair.Label(), style, subtitles.CountBlocks(source)), colorize))

	result, err := pipeline.Run(runCtx, translation.Request{
		SourceText:      source,
		Pair:            pair,
		Style:           style,
		ModelCandidates: opts.models,
		Credential:      credential,
	}, func(p translation.Progress) {
		fmt.Fprintln(stderr, renderStatusLine("Progress", statusInfo,
			fmt.Sprintf("%s chunk %d/%d (%s)", progressBar(p.Fraction, 20), p.Completed, p.Total, p.Model), colorize))
	})
	if err != nil {
		return describeFailure(err)
	}
	if result.Empty() {
		fmt.Fprintln(stderr, renderStatusLine("Translate", statusWarn, "the subtitle file is empty; nothing to translate", colorize))
		return nil
	}

	target := outputTarget(input, opts.out)
	if target == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), result.Document)
		return err
	}
	if err := fileutil.WriteFileAtomic(target, []byte(result.Document), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Fprintln(stderr, renderStatusLine("Saved", statusOK, target, colorize))
	return nil
}

func readSource(stdin io.Reader, input string) (string, error) {
	if input == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cli", "read source", "cannot read "+input, err)
	}
	return string(data), nil
}

// outputTarget resolves where the document goes; "-" means stdout.
func outputTarget(input, out string) string {
	out = strings.TrimSpace(out)
	switch {
	case out == "-":
		return "-"
	case out != "":
		name := subtitles.OutputName(out)
		if dir := filepath.Dir(out); dir != "." {
			return filepath.Join(dir, name)
		}
		return name
	case input == "-":
		return "-"
	default:
		return filepath.Join(filepath.Dir(input), subtitles.OutputName(""))
	}
}

// describeFailure turns a pipeline error into the message shown to the user:
// the provider's text, where it happened, and what to try next.
func describeFailure(err error) error {
	failure, chunk := translation.FailureOf(err)
	if failure == nil || errors.Is(err, services.ErrConfiguration) {
		return err
	}
	var b strings.Builder
	b.WriteString("translation failed")
	if chunk > 0 {
		fmt.Fprintf(&b, " at chunk %d", chunk)
	}
	fmt.Fprintf(&b, ": %s", failure.Kind)
	if failure.Model != "" {
		fmt.Fprintf(&b, " (model %s)", failure.Model)
	}
	if msg := strings.TrimSpace(failure.Message); msg != "" {
		fmt.Fprintf(&b, ": %s", msg)
	}
	if hint := services.Hint(failure); hint != "" {
		fmt.Fprintf(&b, "\nhint: %s", hint)
	}
	return &cliError{msg: b.String(), err: err}
}

type cliError struct {
	msg string
	err error
}

func (e *cliError) Error() string { return e.msg }

func (e *cliError) Unwrap() error { return e.err }
