// Package gateway defines the provider-neutral contract for one remote
// text-generation call.
//
// A Gateway turns (model, prompt, temperature, max output tokens) into an
// Outcome: either the raw generated text or a classified *Failure. Backends
// live under internal/services (gemini, llm) and never retry on their own;
// fallback and backoff policy belong to the translation pipeline.
//
// Failure kinds unwrap to the sentinel markers in internal/services so
// callers branch with errors.Is rather than string matching.
package gateway
