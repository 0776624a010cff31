package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ClassifyStatus maps an HTTP status and provider message to a failure kind.
// A 400 or 403 that names the model is treated as an unknown or forbidden
// identifier rather than a rejected credential.
func ClassifyStatus(status int, message string) Kind {
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized:
		return KindCredentialInvalid
	case status == http.StatusForbidden:
		return permissionKind(lower)
	case status == http.StatusNotFound:
		return KindModelUnavailable
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest:
		switch {
		case mentionsBadKey(lower):
			return KindCredentialInvalid
		case strings.Contains(lower, "model"):
			return KindModelUnavailable
		default:
			return KindInvalidRequest
		}
	default:
		return KindTransport
	}
}

// ClassifyProviderStatus maps a provider status string such as
// RESOURCE_EXHAUSTED or PERMISSION_DENIED to a kind, using message to tell
// a forbidden model from a rejected key. ok is false when the status is not
// recognised.
func ClassifyProviderStatus(status, message string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "UNAUTHENTICATED":
		return KindCredentialInvalid, true
	case "PERMISSION_DENIED":
		return permissionKind(strings.ToLower(message)), true
	case "NOT_FOUND":
		return KindModelUnavailable, true
	case "RESOURCE_EXHAUSTED":
		return KindRateLimited, true
	case "UNAVAILABLE", "DEADLINE_EXCEEDED", "INTERNAL":
		return KindTransport, true
	default:
		return "", false
	}
}

func permissionKind(lower string) Kind {
	if !mentionsBadKey(lower) && strings.Contains(lower, "model") {
		return KindModelUnavailable
	}
	return KindCredentialInvalid
}

func mentionsBadKey(lower string) bool {
	for _, marker := range []string{"api key not valid", "api_key_invalid", "invalid api key", "api key"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ClassifyTransportError classifies errors raised before a response arrived.
// Only the caller's own context ending counts as cancellation; client
// timeouts are transport failures and trigger fallback.
func ClassifyTransportError(ctx context.Context, err error) Kind {
	if ctx != nil && ctx.Err() != nil {
		return KindCanceled
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindTransport
}

// ParseRetryAfter interprets a Retry-After header value.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// ParseRetryDelay reads a Google RetryInfo delay such as "30s" or "1.5s".
func ParseRetryDelay(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d, true
	}
	secs, err := strconv.ParseFloat(strings.TrimSuffix(value, "s"), 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Snippet compacts a provider payload for log and error messages.
func Snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
