// Package translation drives a chunked subtitle translation run.
//
// A run segments the source into chunks of blank-line separated blocks,
// resolves an ordered list of candidate models once, and translates the chunks
// strictly in order. Each chunk walks the candidates until one succeeds:
// rate limits are retried on the same model with exponential backoff,
// unknown models are dropped for the rest of the run, and credential or
// cancellation failures abort immediately. Successive chunk calls are paced
// by a fixed, cancellable delay. The translated chunks are joined with a
// blank line; a run that cannot translate some chunk returns no document.
//
// Style presets (Cinematic, Literal) carry the sampling temperature and the
// instructions embedded in each prompt. They can be overridden from a YAML
// file.
package translation
