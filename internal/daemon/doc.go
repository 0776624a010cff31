// Package daemon runs the local HTTP translation service.
//
// It wires configuration, the translation pipeline, the log stream hub and
// the metrics recorder into one lifecycle guarded by a flock so only one
// instance serves a state directory. Runs are serialized: a request waits
// for the previous run to finish rather than being rejected.
//
// Keep translation logic in internal/translation; the daemon owns startup,
// shutdown, request decoding and response shaping.
package daemon
