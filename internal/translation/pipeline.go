package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelsub/internal/gateway"
	"reelsub/internal/language"
	"reelsub/internal/logging"
	"reelsub/internal/metrics"
	"reelsub/internal/services"
	"reelsub/internal/subtitles"
)

const (
	defaultPaceDelay      = time.Second
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	defaultMaxCandidates  = 3
	defaultRateRetries    = 2
	// DefaultFallbackModel is used when discovery fails for reasons other
	// than the credential.
	DefaultFallbackModel = "gemini-2.5-flash"
)

// Request is one translation job. It is treated as immutable.
type Request struct {
	SourceText      string
	Pair            language.Pair
	Style           Style
	ModelCandidates []string
	Credential      string
}

// ChunkResult records how one chunk was translated.
type ChunkResult struct {
	Index    int
	Model    string
	Text     string
	Attempts int
}

// Result is the assembled output of a successful run. A result with no
// chunks means the input held no blocks.
type Result struct {
	RunID    string
	Document string
	Chunks   []ChunkResult
	Models   []string
}

// Empty reports whether the input held nothing to translate.
func (r Result) Empty() bool {
	return len(r.Chunks) == 0
}

// Progress is reported after each successful chunk.
type Progress struct {
	RunID     string
	Completed int
	Total     int
	Fraction  float64
	Model     string
}

// ProgressFunc receives progress updates. It runs on the pipeline goroutine.
type ProgressFunc func(Progress)

// Factory builds a provider bound to one credential.
type Factory func(ctx context.Context, credential string) (gateway.Provider, error)

// Options tune a pipeline.
type Options struct {
	ChunkSize        int
	PaceDelay        time.Duration
	MaxOutputTokens  int
	Models           []string
	MaxCandidates    int
	RateLimitRetries int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	FallbackModel    string
	Languages        []language.Pair
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = subtitles.DefaultChunkSize
	}
	if o.PaceDelay < 0 {
		o.PaceDelay = 0
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = gateway.DefaultMaxOutputTokens
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = defaultMaxCandidates
	}
	if o.RateLimitRetries < 0 {
		o.RateLimitRetries = 0
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = defaultRetryBaseDelay
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = defaultRetryMaxDelay
	}
	if strings.TrimSpace(o.FallbackModel) == "" {
		o.FallbackModel = DefaultFallbackModel
	}
	return o
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{PaceDelay: defaultPaceDelay, RateLimitRetries: defaultRateRetries}.withDefaults()
}

// Pipeline runs translations sequentially. It holds no per-run state and may
// be reused across runs.
type Pipeline struct {
	factory Factory
	presets Presets
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Recorder
	sleeper func(time.Duration)
	newID   func() string
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPresets replaces the built-in style presets.
func WithPresets(presets Presets) Option {
	return func(p *Pipeline) {
		if len(presets) > 0 {
			p.presets = presets
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = recorder
	}
}

// WithSleeper overrides how pacing and backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Pipeline) {
		p.sleeper = sleeper
	}
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(newID func() string) Option {
	return func(p *Pipeline) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// New constructs a pipeline.
func New(factory Factory, opts Options, options ...Option) *Pipeline {
	p := &Pipeline{
		factory: factory,
		presets: DefaultPresets(),
		opts:    opts.withDefaults(),
		logger:  logging.NewNop(),
		newID:   uuid.NewString,
	}
	for _, option := range options {
		option(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "translation")
	return p
}

// Presets returns the presets in use.
func (p *Pipeline) Presets() Presets {
	return p.presets
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// run carries the mutable state of one Run call.
type run struct {
	id         string
	state      State
	candidates []string
	dropped    map[string]struct{}
	last       *gateway.Failure
	logger     *slog.Logger
}

func (r *run) transition(next State) {
	if r.state.Terminal() {
		return
	}
	r.logger.Debug("run state changed",
		logging.String("from", string(r.state)),
		logging.String("to", string(next)),
	)
	r.state = next
}

func (r *run) active() []string {
	out := make([]string, 0, len(r.candidates))
	for _, model := range r.candidates {
		if _, gone := r.dropped[model]; !gone {
			out = append(out, model)
		}
	}
	return out
}

// Run translates req. On failure the error wraps a *gateway.Failure (use
// FailureOf) and no partial document is returned.
func (p *Pipeline) Run(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	r := &run{
		id:      p.newID(),
		state:   StateIdle,
		dropped: make(map[string]struct{}),
	}
	ctx = services.WithRunID(ctx, r.id)
	r.logger = logging.WithContext(ctx, p.logger)
	result := Result{RunID: r.id}

	started := time.Now()
	p.metrics.RunStarted()
	status := "failed"
	defer func() {
		p.metrics.RunFinished(status, time.Since(started))
	}()

	r.transition(StateSegmenting)
	chunks := subtitles.Segment(req.SourceText, p.opts.ChunkSize)
	if len(chunks) == 0 {
		r.transition(StateDone)
		status = "empty"
		logging.WarnWithContext(r.logger, "nothing to translate", "empty_input",
			logging.String(logging.FieldErrorHint, "paste subtitle text before starting"),
			logging.String(logging.FieldImpact, "no provider calls were made"),
		)
		return result, nil
	}

	preset, err := p.validate(req)
	if err != nil {
		r.transition(StateFailed)
		return Result{}, err
	}

	provider, err := p.provider(ctx, req.Credential)
	if err != nil {
		r.transition(StateFailed)
		return Result{}, p.fail(r, gateway.AsFailure(err))
	}

	r.transition(StateSelectingModel)
	candidates, err := p.resolveCandidates(ctx, req.ModelCandidates, provider, r.logger)
	if err != nil {
		r.transition(StateFailed)
		return Result{}, p.fail(r, gateway.AsFailure(err))
	}
	r.candidates = candidates
	result.Models = append([]string(nil), candidates...)

	r.logger.Info("translation started",
		logging.String(logging.FieldEventType, "translation_started"),
		logging.String("provider", provider.Name()),
		logging.String("pair", req.Pair.String()),
		logging.String("style", string(preset.Style)),
		logging.Int("chunks", len(chunks)),
		logging.Int("blocks", subtitles.CountBlocks(req.SourceText)),
		logging.String("models", strings.Join(candidates, ",")),
	)

	r.transition(StateTranslating)
	sampler := logging.NewProgressSampler(4)
	texts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if i > 0 {
			if err := p.sleep(ctx, p.opts.PaceDelay); err != nil {
				r.transition(StateFailed)
				return Result{}, p.fail(r, gateway.Fail(gateway.KindCanceled, "", "canceled between chunks", err))
			}
		}
		chunkCtx := services.WithChunk(ctx, i+1)
		prompt := BuildPrompt(preset, req.Pair, i+1, len(chunks), chunk.Text())
		chunkResult, failure := p.translateChunk(chunkCtx, provider, r, preset, prompt)
		if failure != nil {
			r.transition(StateFailed)
			return Result{}, p.failChunk(r, i+1, len(chunks), failure)
		}
		chunkResult.Index = chunk.Index
		p.checkDrift(chunkCtx, r, chunk, chunkResult)
		texts = append(texts, chunkResult.Text)
		result.Chunks = append(result.Chunks, chunkResult)
		p.metrics.ChunkTranslated(chunkResult.Model)

		update := Progress{
			RunID:     r.id,
			Completed: i + 1,
			Total:     len(chunks),
			Fraction:  float64(i+1) / float64(len(chunks)),
			Model:     chunkResult.Model,
		}
		if sampler.Observe(update.Completed, update.Total, update.Model) {
			r.logger.Info("translation progress",
				logging.String(logging.FieldEventType, "translation_progress"),
				logging.Int("completed", update.Completed),
				logging.Int("total", update.Total),
				logging.Model(update.Model),
			)
		}
		if progress != nil {
			progress(update)
		}
	}

	result.Document = subtitles.Reassemble(texts)
	r.transition(StateDone)
	status = "success"
	r.logger.Info("translation finished",
		logging.String(logging.FieldEventType, "translation_finished"),
		logging.Int("chunks", len(result.Chunks)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (p *Pipeline) validate(req Request) (Preset, error) {
	if req.Pair.Source == "" || req.Pair.Target == "" {
		return Preset{}, gateway.Fail(gateway.KindInvalidRequest, "", "language pair is required", nil)
	}
	if len(p.opts.Languages) > 0 && !language.Allowed(req.Pair, p.opts.Languages) {
		return Preset{}, gateway.Fail(gateway.KindInvalidRequest, "",
			fmt.Sprintf("language pair %s is not supported", req.Pair.Label()), nil)
	}
	style := req.Style
	if style == "" {
		style = StyleCinematic
	}
	preset, ok := p.presets.Get(style)
	if !ok {
		return Preset{}, gateway.Fail(gateway.KindInvalidRequest, "", fmt.Sprintf("unknown style %q", req.Style), nil)
	}
	return preset, nil
}

func (p *Pipeline) provider(ctx context.Context, credential string) (gateway.Provider, error) {
	if p.factory == nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "build provider", "no provider configured", nil)
	}
	if strings.TrimSpace(credential) == "" {
		return nil, gateway.Fail(gateway.KindCredentialInvalid, "", "api key required", nil)
	}
	provider, err := p.factory(ctx, credential)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "build provider", "factory returned no provider", nil)
	}
	return provider, nil
}

// translateChunk walks the active candidates until one succeeds.
func (p *Pipeline) translateChunk(ctx context.Context, gw gateway.Gateway, r *run, preset Preset, prompt string) (ChunkResult, *gateway.Failure) {
	attempts := 0
	for _, model := range r.active() {
		modelCtx := services.WithModel(ctx, model)
		logger := logging.WithContext(modelCtx, p.logger)
		for retry := 0; ; retry++ {
			if err := ctx.Err(); err != nil {
				return ChunkResult{}, gateway.Fail(gateway.KindCanceled, model, "canceled before call", err)
			}
			attempts++
			outcome := gw.Generate(modelCtx, gateway.Params{
				Model:           model,
				Prompt:          prompt,
				Temperature:     preset.Temperature,
				MaxOutputTokens: p.opts.MaxOutputTokens,
			})
			if outcome.OK() {
				p.metrics.Attempt(model, "success")
				return ChunkResult{Model: model, Text: outcome.Text, Attempts: attempts}, nil
			}
			failure := outcome.Failure
			if failure.Model == "" {
				failure.Model = model
			}
			r.last = failure
			p.metrics.Attempt(model, string(failure.Kind))
			if services.Fatal(failure) {
				return ChunkResult{}, failure
			}
			if failure.Kind == gateway.KindRateLimited && retry < p.opts.RateLimitRetries {
				delay := p.backoffDelay(retry+1, failure.RetryAfter)
				logging.WarnWithContext(logger, "rate limited; backing off", "rate_limited",
					logging.Duration("delay", delay),
					logging.Int("retry", retry+1),
					logging.String("provider_message", failure.Message),
					logging.String(logging.FieldErrorHint, services.Hint(failure)),
					logging.String(logging.FieldImpact, "translation slows down"),
				)
				if err := p.sleep(ctx, delay); err != nil {
					return ChunkResult{}, gateway.Fail(gateway.KindCanceled, model, "canceled during backoff", err)
				}
				continue
			}
			if failure.Kind == gateway.KindModelUnavailable {
				r.dropped[model] = struct{}{}
			}
			logging.WarnWithContext(logger, "model failed; trying next candidate", "model_fallback",
				logging.String("kind", string(failure.Kind)),
				logging.String("provider_message", failure.Message),
				logging.String(logging.FieldErrorHint, services.Hint(failure)),
				logging.String(logging.FieldImpact, "chunk retried with the next candidate"),
			)
			break
		}
	}
	if r.last != nil {
		return ChunkResult{}, r.last
	}
	return ChunkResult{}, gateway.Fail(gateway.KindNoCapableModel, "", "no candidate models left to try", nil)
}

// backoffDelay grows exponentially from RetryBaseDelay. A provider-reported
// delay wins when longer. Both are capped by RetryMaxDelay.
func (p *Pipeline) backoffDelay(attempt int, reported time.Duration) time.Duration {
	delay := p.opts.RetryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > p.opts.RetryMaxDelay/2 {
			delay = p.opts.RetryMaxDelay
			break
		}
		delay *= 2
	}
	if reported > delay {
		delay = reported
	}
	if delay > p.opts.RetryMaxDelay {
		delay = p.opts.RetryMaxDelay
	}
	return delay
}

func (p *Pipeline) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) checkDrift(ctx context.Context, r *run, chunk subtitles.Chunk, result ChunkResult) {
	got := subtitles.CountBlocks(result.Text)
	if got == chunk.Len() {
		return
	}
	logging.WarnWithContext(logging.WithContext(services.WithModel(ctx, result.Model), p.logger),
		"translated chunk block count differs from source", "block_count_drift",
		logging.Int("source_blocks", chunk.Len()),
		logging.Int("translated_blocks", got),
		logging.String(logging.FieldErrorHint, "review the chunk for merged or split subtitles"),
		logging.String(logging.FieldImpact, "output kept as returned by the model"),
	)
}

func (p *Pipeline) fail(r *run, failure *gateway.Failure) *gateway.Failure {
	logging.ErrorWithContext(r.logger, "translation failed", "translation_failed",
		logging.String("kind", string(failure.Kind)),
		logging.String("model", failure.Model),
		logging.Error(failure),
		logging.String(logging.FieldErrorHint, services.Hint(failure)),
	)
	return failure
}

func (p *Pipeline) failChunk(r *run, part, total int, failure *gateway.Failure) error {
	p.fail(r, failure)
	return &ChunkError{Part: part, Total: total, Failure: failure}
}

// ChunkError reports which chunk exhausted its candidates.
type ChunkError struct {
	Part    int
	Total   int
	Failure *gateway.Failure
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d of %d: %v", e.Part, e.Total, e.Failure)
}

func (e *ChunkError) Unwrap() error {
	return e.Failure
}

// FailureOf extracts the classified failure and the 1-based chunk it hit
// (zero when the run failed before translating).
func FailureOf(err error) (*gateway.Failure, int) {
	var chunkErr *ChunkError
	if errors.As(err, &chunkErr) {
		return chunkErr.Failure, chunkErr.Part
	}
	return gateway.AsFailure(err), 0
}
