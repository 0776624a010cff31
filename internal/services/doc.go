// Package services defines shared utilities consumed by the translation
// pipeline and the provider backends.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, chunk positions, and model names
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the provider failure taxonomy (credential, model, quota, transport).
//   - Hint, which turns a classified failure into an actionable message for
//     the CLI and HTTP surfaces.
//
// Use these helpers when wiring new provider backends so operational
// behaviour (error handling, observability, retries) stays uniform across
// the pipeline.
package services
