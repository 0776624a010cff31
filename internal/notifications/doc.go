// Package notifications announces translation runs via ntfy.
//
// NewService returns an ntfy-backed Service when a topic URL is configured and
// a no-op otherwise, so callers never branch on whether alerts are enabled.
// Events carry a small Payload map that the service formats into a title,
// message body, tags, and priority.
package notifications
