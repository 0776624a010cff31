// Package config loads, normalizes, and validates reelsub configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and resolves provider credentials from the environment. API keys
// are never read from or written to the config file; they come from flags,
// request headers, or environment variables such as GEMINI_API_KEY.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, parsed language pairs, and clear validation errors.
package config
