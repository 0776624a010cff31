package translation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"reelsub/internal/gateway"
	"reelsub/internal/language"
	"reelsub/internal/services"
	"reelsub/internal/subtitles"
	"reelsub/internal/testsupport"
)

var enToMy = language.Pair{Source: "en", Target: "my"}

type harness struct {
	fake        *testsupport.FakeProvider
	credentials []string
	sleeps      []time.Duration
	pipeline    *Pipeline
}

func newHarness(t *testing.T, fake *testsupport.FakeProvider, opts Options) *harness {
	t.Helper()
	h := &harness{fake: fake}
	h.pipeline = New(fake.Factory(&h.credentials), opts,
		WithSleeper(func(d time.Duration) { h.sleeps = append(h.sleeps, d) }),
		WithRunIDs(func() string { return "run-1" }),
	)
	return h
}

func request(text string, models ...string) Request {
	return Request{
		SourceText:      text,
		Pair:            enToMy,
		Style:           StyleCinematic,
		ModelCandidates: models,
		Credential:      "key",
	}
}

func transportFailure(model string) gateway.Outcome {
	return gateway.Failed(gateway.Fail(gateway.KindTransport, model, "connection reset", nil))
}

func TestRunChunksAndReassembles(t *testing.T) {
	fake := &testsupport.FakeProvider{}
	h := newHarness(t, fake, Options{ChunkSize: 60})
	source := testsupport.BuildSRT(130)

	var updates []Progress
	result, err := h.pipeline.Run(context.Background(), request(source, "m1"), func(p Progress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	calls := fake.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}
	wantSizes := []int{60, 60, 10}
	for i, call := range calls {
		if got := subtitles.CountBlocks(testsupport.ChunkText(call.Prompt)); got != wantSizes[i] {
			t.Fatalf("chunk %d: expected %d blocks, got %d", i, wantSizes[i], got)
		}
	}
	if result.Document != source {
		t.Fatal("expected echoed chunks to reassemble into the source document")
	}
	if result.RunID != "run-1" {
		t.Fatalf("unexpected run id %q", result.RunID)
	}
	if len(result.Chunks) != 3 || result.Chunks[2].Index != 2 || result.Chunks[0].Model != "m1" {
		t.Fatalf("unexpected chunk results %+v", result.Chunks)
	}
	if len(updates) != 3 {
		t.Fatalf("expected 3 progress updates, got %d", len(updates))
	}
	for i, update := range updates {
		if update.Completed != i+1 || update.Total != 3 {
			t.Fatalf("unexpected progress %+v", update)
		}
	}
	if updates[2].Fraction != 1 {
		t.Fatalf("expected final fraction 1, got %v", updates[2].Fraction)
	}
	if len(h.credentials) != 1 || h.credentials[0] != "key" {
		t.Fatalf("expected provider built once with the request credential, got %v", h.credentials)
	}
}

func TestRunJoinsChunkOutputsWithBlankLine(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			return gateway.Success(strings.Repeat("x", n))
		},
	}
	h := newHarness(t, fake, Options{ChunkSize: 1})
	result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(3), "m1"), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Document != "x\n\nxx\n\nxxx" {
		t.Fatalf("unexpected document %q", result.Document)
	}
}

func TestRunEmptyInputMakesNoCalls(t *testing.T) {
	fake := &testsupport.FakeProvider{}
	h := newHarness(t, fake, Options{})
	for _, text := range []string{"", "  \n\n \r\n\t "} {
		result, err := h.pipeline.Run(context.Background(), request(text), nil)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		if !result.Empty() || result.Document != "" {
			t.Fatalf("expected empty result, got %+v", result)
		}
	}
	if len(fake.Calls()) != 0 || fake.ListCalls() != 0 || len(h.credentials) != 0 {
		t.Fatal("expected no provider activity for empty input")
	}
}

func TestRunFallsBackToNextCandidate(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			if call.Model == "m1" {
				return transportFailure(call.Model)
			}
			return gateway.Success(testsupport.ChunkText(call.Prompt))
		},
	}
	h := newHarness(t, fake, Options{ChunkSize: 60})
	result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(70), "m1", "m2"), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var models []string
	for _, call := range fake.Calls() {
		models = append(models, call.Model)
	}
	if strings.Join(models, ",") != "m1,m2,m1,m2" {
		t.Fatalf("unexpected call order %v", models)
	}
	for _, chunk := range result.Chunks {
		if chunk.Model != "m2" || chunk.Attempts != 2 {
			t.Fatalf("unexpected chunk result %+v", chunk)
		}
	}
}

func TestRunAbortsWhenAllCandidatesFail(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			if n <= 2 {
				return gateway.Success(testsupport.ChunkText(call.Prompt))
			}
			if call.Model == "m1" {
				return transportFailure(call.Model)
			}
			return gateway.Failed(gateway.Fail(gateway.KindEmptyResponse, call.Model, "no candidates returned", nil))
		},
	}
	h := newHarness(t, fake, Options{ChunkSize: 1})
	var completed int
	result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(4), "m1", "m2"), func(p Progress) {
		completed = p.Completed
	})
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if result.Document != "" || len(result.Chunks) != 0 {
		t.Fatalf("expected no partial result, got %+v", result)
	}
	failure, chunk := FailureOf(err)
	if failure.Kind != gateway.KindEmptyResponse || failure.Model != "m2" {
		t.Fatalf("expected last failure to be reported, got %+v", failure)
	}
	if failure.Message != "no candidates returned" {
		t.Fatalf("expected provider message verbatim, got %q", failure.Message)
	}
	if chunk != 3 {
		t.Fatalf("expected failure on chunk 3, got %d", chunk)
	}
	if completed != 2 {
		t.Fatalf("expected 2 completed chunks before failure, got %d", completed)
	}
	if len(fake.Calls()) != 4 {
		t.Fatalf("expected no calls after the failing chunk, got %d", len(fake.Calls()))
	}
	if !errors.Is(err, services.ErrEmptyResponse) {
		t.Fatalf("expected error to match sentinel, got %v", err)
	}
}

func TestRunCredentialFailureAbortsImmediately(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			failure := gateway.Fail(gateway.KindCredentialInvalid, call.Model, "API key not valid", nil)
			failure.StatusCode = 400
			return gateway.Failed(failure)
		},
	}
	h := newHarness(t, fake, Options{ChunkSize: 1})
	_, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(3), "m1", "m2"), nil)
	if !errors.Is(err, services.ErrCredentialInvalid) {
		t.Fatalf("expected credential failure, got %v", err)
	}
	if len(fake.Calls()) != 1 {
		t.Fatalf("expected exactly one call, got %d", len(fake.Calls()))
	}
}

func TestRunMissingCredential(t *testing.T) {
	fake := &testsupport.FakeProvider{}
	h := newHarness(t, fake, Options{})
	req := request(testsupport.BuildSRT(2), "m1")
	req.Credential = "  "
	_, err := h.pipeline.Run(context.Background(), req, nil)
	if !errors.Is(err, services.ErrCredentialInvalid) {
		t.Fatalf("expected credential failure, got %v", err)
	}
	if len(h.credentials) != 0 || len(fake.Calls()) != 0 {
		t.Fatal("expected no provider activity without a credential")
	}
}

func TestRunRetriesRateLimitWithBackoff(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			switch n {
			case 1:
				return gateway.Failed(gateway.Fail(gateway.KindRateLimited, call.Model, "quota", nil))
			case 2:
				failure := gateway.Fail(gateway.KindRateLimited, call.Model, "quota", nil)
				failure.RetryAfter = 10 * time.Second
				return gateway.Failed(failure)
			default:
				return gateway.Success("ok")
			}
		},
	}
	h := newHarness(t, fake, Options{
		RateLimitRetries: 2,
		RetryBaseDelay:   time.Second,
		RetryMaxDelay:    4 * time.Second,
	})
	result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(1), "m1", "m2"), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for _, call := range fake.Calls() {
		if call.Model != "m1" {
			t.Fatalf("expected retries on the same model, got %s", call.Model)
		}
	}
	if result.Chunks[0].Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", result.Chunks[0].Attempts)
	}
	if len(h.sleeps) != 2 || h.sleeps[0] != time.Second || h.sleeps[1] != 4*time.Second {
		t.Fatalf("unexpected backoff sleeps %v", h.sleeps)
	}
}

func TestRunRateLimitFallsBackAfterRetries(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			if call.Model == "m1" {
				return gateway.Failed(gateway.Fail(gateway.KindRateLimited, call.Model, "quota", nil))
			}
			return gateway.Success("ok")
		},
	}
	h := newHarness(t, fake, Options{RateLimitRetries: 1, RetryBaseDelay: time.Millisecond})
	result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(1), "m1", "m2"), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var models []string
	for _, call := range fake.Calls() {
		models = append(models, call.Model)
	}
	if strings.Join(models, ",") != "m1,m1,m2" {
		t.Fatalf("unexpected call order %v", models)
	}
	if result.Chunks[0].Model != "m2" {
		t.Fatalf("expected m2 to translate the chunk, got %s", result.Chunks[0].Model)
	}
}

func TestRunRateLimitExhaustedReportsKind(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			return gateway.Failed(gateway.Fail(gateway.KindRateLimited, call.Model, "Resource has been exhausted", nil))
		},
	}
	h := newHarness(t, fake, Options{RetryBaseDelay: time.Millisecond})
	_, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(1), "m1"), nil)
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited failure, got %v", err)
	}
	if !strings.Contains(services.Hint(err), "reduce chunk size") {
		t.Fatalf("unexpected hint %q", services.Hint(err))
	}
}

func TestRunDropsUnavailableModel(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			if call.Model == "gone" {
				return gateway.Failed(gateway.Fail(gateway.KindModelUnavailable, call.Model, "models/gone is not found", nil))
			}
			return gateway.Success(testsupport.ChunkText(call.Prompt))
		},
	}
	h := newHarness(t, fake, Options{ChunkSize: 1})
	_, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(3), "gone", "ok"), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var models []string
	for _, call := range fake.Calls() {
		models = append(models, call.Model)
	}
	if strings.Join(models, ",") != "gone,ok,ok,ok" {
		t.Fatalf("expected unavailable model to be dropped, got %v", models)
	}
}

func TestRunFallsBackWhenModelForbidden(t *testing.T) {
	const denied = "Permission denied: model gemini-ultra is not permitted for this project"
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			if call.Model == "gemini-ultra" {
				kind := gateway.ClassifyStatus(http.StatusForbidden, denied)
				return gateway.Failed(gateway.Fail(kind, call.Model, denied, nil))
			}
			return gateway.Success("B:" + testsupport.ChunkText(call.Prompt))
		},
	}
	h := newHarness(t, fake, Options{ChunkSize: 60})
	input := testsupport.BuildSRT(2)
	result, err := h.pipeline.Run(context.Background(), request(input, "gemini-ultra", "gemini-2.5-flash"), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Document != "B:"+input {
		t.Fatalf("expected second candidate output, got %q", result.Document)
	}
	if len(result.Chunks) != 1 || result.Chunks[0].Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected chunk results %+v", result.Chunks)
	}
}

func TestRunPacesBetweenChunks(t *testing.T) {
	fake := &testsupport.FakeProvider{}
	h := newHarness(t, fake, Options{ChunkSize: 2, PaceDelay: time.Second})
	if _, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(7), "m1"), nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(h.sleeps) != 3 {
		t.Fatalf("expected 3 pacing sleeps for 4 chunks, got %v", h.sleeps)
	}
	for _, d := range h.sleeps {
		if d != time.Second {
			t.Fatalf("unexpected pacing delay %s", d)
		}
	}
}

func TestRunCancellationStopsBeforeNextChunk(t *testing.T) {
	fake := &testsupport.FakeProvider{}
	h := newHarness(t, fake, Options{ChunkSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := h.pipeline.Run(ctx, request(testsupport.BuildSRT(5), "m1"), func(p Progress) {
		if p.Completed == 2 {
			cancel()
		}
	})
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected canceled failure, got %v", err)
	}
	if len(fake.Calls()) != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", len(fake.Calls()))
	}
}

func TestRunStylesSetTemperatureAndPrompt(t *testing.T) {
	for _, tt := range []struct {
		style Style
		temp  float64
		hint  string
	}{
		{StyleCinematic, 0.9, "cinematic"},
		{StyleLiteral, 0.2, "literally"},
	} {
		fake := &testsupport.FakeProvider{}
		h := newHarness(t, fake, Options{ChunkSize: 2})
		req := request(testsupport.BuildSRT(3), "m1")
		req.Style = tt.style
		if _, err := h.pipeline.Run(context.Background(), req, nil); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		calls := fake.Calls()
		if calls[0].Temperature != tt.temp {
			t.Fatalf("%s: expected temperature %v, got %v", tt.style, tt.temp, calls[0].Temperature)
		}
		if calls[0].MaxOutputTokens != gateway.DefaultMaxOutputTokens {
			t.Fatalf("unexpected max output tokens %d", calls[0].MaxOutputTokens)
		}
		prompt := calls[1].Prompt
		for _, want := range []string{tt.hint, "Translate from English to Myanmar", "Part: 2 of 2", "Return ONLY the translated SRT content."} {
			if !strings.Contains(prompt, want) {
				t.Fatalf("%s: prompt missing %q:\n%s", tt.style, want, prompt)
			}
		}
	}
}

func TestRunKeepsOutputWhenBlockCountDrifts(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			return gateway.Success("merged block")
		},
	}
	h := newHarness(t, fake, Options{ChunkSize: 5})
	result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(5), "m1"), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Document != "merged block" {
		t.Fatalf("expected drifted output to be kept, got %q", result.Document)
	}
}

func TestRunRejectsInvalidRequests(t *testing.T) {
	fake := &testsupport.FakeProvider{}
	h := newHarness(t, fake, Options{Languages: language.DefaultPairs})

	req := request(testsupport.BuildSRT(1), "m1")
	req.Pair = language.Pair{Source: "my", Target: "en"}
	if _, err := h.pipeline.Run(context.Background(), req, nil); !errors.Is(err, services.ErrInvalidRequest) {
		t.Fatalf("expected unsupported pair to be rejected, got %v", err)
	}

	req = request(testsupport.BuildSRT(1), "m1")
	req.Style = Style("poetic")
	if _, err := h.pipeline.Run(context.Background(), req, nil); !errors.Is(err, services.ErrInvalidRequest) {
		t.Fatalf("expected unknown style to be rejected, got %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatal("expected no calls for invalid requests")
	}
}

func TestRunDiscoversModels(t *testing.T) {
	fake := &testsupport.FakeProvider{
		Models: []string{"gemini-2.5-pro", "gemini-2.0-flash", "gemini-1.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
	}
	h := newHarness(t, fake, Options{MaxCandidates: 3})
	result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(1)), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := strings.Join(result.Models, ","); got != "gemini-2.0-flash,gemini-2.5-flash,gemini-2.5-flash-lite" {
		t.Fatalf("unexpected candidates %s", got)
	}
	if fake.Calls()[0].Model != "gemini-2.0-flash" {
		t.Fatalf("expected first fast model to be tried first, got %s", fake.Calls()[0].Model)
	}
}

func TestRunCandidatePrecedence(t *testing.T) {
	fake := &testsupport.FakeProvider{Models: []string{"discovered-flash"}}
	h := newHarness(t, fake, Options{Models: []string{"configured"}})

	result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(1), " requested ", "requested"), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if strings.Join(result.Models, ",") != "requested" {
		t.Fatalf("expected request candidates to win, got %v", result.Models)
	}
	result, err = h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(1)), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if strings.Join(result.Models, ",") != "configured" {
		t.Fatalf("expected configured candidates to win over discovery, got %v", result.Models)
	}
	if fake.ListCalls() != 0 {
		t.Fatal("expected discovery to be skipped")
	}
}

func TestRunDiscoveryFailures(t *testing.T) {
	tests := []struct {
		name    string
		fake    *testsupport.FakeProvider
		wantErr error
		models  string
	}{
		{
			name:    "no models",
			fake:    &testsupport.FakeProvider{},
			wantErr: services.ErrNoCapableModel,
		},
		{
			name:    "bad key",
			fake:    &testsupport.FakeProvider{ListErr: gateway.Fail(gateway.KindCredentialInvalid, "", "API key not valid", nil)},
			wantErr: services.ErrCredentialInvalid,
		},
		{
			name:   "outage falls back to default",
			fake:   &testsupport.FakeProvider{ListErr: gateway.Fail(gateway.KindTransport, "", "503", nil)},
			models: DefaultFallbackModel,
		},
		{
			name:   "foreign error falls back to default",
			fake:   &testsupport.FakeProvider{ListErr: errors.New("boom")},
			models: DefaultFallbackModel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.fake, Options{})
			result, err := h.pipeline.Run(context.Background(), request(testsupport.BuildSRT(1)), nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(tt.fake.Calls()) != 0 {
					t.Fatal("expected no generation calls")
				}
				return
			}
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if strings.Join(result.Models, ",") != tt.models {
				t.Fatalf("unexpected models %v", result.Models)
			}
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	p := New(nil, Options{RetryBaseDelay: time.Second, RetryMaxDelay: 5 * time.Second})
	cases := []struct {
		attempt  int
		reported time.Duration
		want     time.Duration
	}{
		{1, 0, time.Second},
		{2, 0, 2 * time.Second},
		{3, 0, 4 * time.Second},
		{4, 0, 5 * time.Second},
		{1, 3 * time.Second, 3 * time.Second},
		{1, time.Minute, 5 * time.Second},
	}
	for _, tt := range cases {
		if got := p.backoffDelay(tt.attempt, tt.reported); got != tt.want {
			t.Fatalf("backoffDelay(%d, %s) = %s, want %s", tt.attempt, tt.reported, got, tt.want)
		}
	}
}

func TestPreferFast(t *testing.T) {
	got := PreferFast([]string{"a-pro", "b-Flash", "c", "d-flash"})
	if strings.Join(got, ",") != "b-Flash,d-flash,a-pro,c" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestRunWithoutFactory(t *testing.T) {
	nilProvider := func(context.Context, string) (gateway.Provider, error) { return nil, nil }
	for name, factory := range map[string]Factory{"nil factory": nil, "nil provider": nilProvider} {
		t.Run(name, func(t *testing.T) {
			p := New(factory, Options{})
			_, err := p.Run(context.Background(), request(testsupport.BuildSRT(1), "m1"), nil)
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			failure, chunk := FailureOf(err)
			if failure == nil || failure.Kind != gateway.KindConfiguration || chunk != 0 {
				t.Fatalf("expected configuration failure before any chunk, got %+v chunk=%d", failure, chunk)
			}
		})
	}
}
