package testsupport

import (
	"context"
	"strings"
	"sync"

	"reelsub/internal/gateway"
)

// Call records one Generate invocation.
type Call struct {
	Model           string
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// FakeProvider is a scripted gateway.Provider. Script decides each outcome;
// n is the 1-based call number. A nil Script echoes the chunk text found in
// the prompt.
type FakeProvider struct {
	Models  []string
	ListErr error
	Script  func(call Call, n int) gateway.Outcome
	// OnCall runs after a call is recorded, before the outcome is returned.
	OnCall func(n int)

	mu        sync.Mutex
	calls     []Call
	listCalls int
}

// Name identifies the fake in logs.
func (f *FakeProvider) Name() string {
	return "fake"
}

// Generate records the call and returns the scripted outcome.
func (f *FakeProvider) Generate(ctx context.Context, p gateway.Params) gateway.Outcome {
	if _, err := p.Validate(); err != nil {
		return gateway.Failed(gateway.Fail(gateway.KindInvalidRequest, p.Model, err.Error(), err))
	}
	call := Call{Model: p.Model, Prompt: p.Prompt, Temperature: p.Temperature, MaxOutputTokens: p.MaxOutputTokens}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	n := len(f.calls)
	f.mu.Unlock()
	if f.OnCall != nil {
		f.OnCall(n)
	}
	if f.Script != nil {
		return f.Script(call, n)
	}
	return gateway.Success(ChunkText(p.Prompt))
}

// ListCapableModels returns the scripted models.
func (f *FakeProvider) ListCapableModels(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if len(f.Models) == 0 {
		return nil, gateway.Fail(gateway.KindNoCapableModel, "", "no models", nil)
	}
	return append([]string(nil), f.Models...), nil
}

// Calls returns a copy of the recorded calls.
func (f *FakeProvider) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// ListCalls reports how many times discovery ran.
func (f *FakeProvider) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// Factory returns a provider factory that always yields f and records the
// credential it was given.
func (f *FakeProvider) Factory(credentials *[]string) func(context.Context, string) (gateway.Provider, error) {
	return func(_ context.Context, credential string) (gateway.Provider, error) {
		if credentials != nil {
			*credentials = append(*credentials, credential)
		}
		return f, nil
	}
}

// ChunkText extracts the subtitle text embedded in a translation prompt.
func ChunkText(prompt string) string {
	const start = "Text to translate:\n"
	const end = "\n\nReturn ONLY"
	i := strings.Index(prompt, start)
	if i < 0 {
		return prompt
	}
	body := prompt[i+len(start):]
	if j := strings.LastIndex(body, end); j >= 0 {
		body = body[:j]
	}
	return body
}
