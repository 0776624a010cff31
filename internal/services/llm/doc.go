// Package llm provides an OpenAI-compatible chat completions backend for the
// provider gateway. OpenRouter is the default endpoint.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Generate: send one prompt, receive the raw generated text or a
// classified gateway failure.
// Client.ListCapableModels: list the models that produce text, in provider order.
//
// # Failure Classification
//
// HTTP 401 and key-related 403s map to credential_invalid, 404 and
// model-naming 400s or 403s to model_unavailable, 429 to rate_limited with the Retry-After delay, other
// statuses and network errors to transport. Responses without usable content
// map to empty_response and keep a compact snippet of the payload.
//
// The client never retries. Fallback and backoff belong to the translation
// pipeline.
package llm
