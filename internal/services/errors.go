package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrNoCapableModel    = errors.New("no capable model")
	ErrModelUnavailable  = errors.New("model unavailable")
	ErrRateLimited       = errors.New("rate limited")
	ErrTransport         = errors.New("transport failure")
	ErrEmptyResponse     = errors.New("empty response")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrCanceled          = errors.New("canceled")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether a failure must stop a translation run immediately
// instead of falling back to the next model candidate.
func Fatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCredentialInvalid),
		errors.Is(err, ErrNoCapableModel),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrCanceled),
		errors.Is(err, ErrConfiguration):
		return true
	default:
		return false
	}
}

// Hint maps a classified failure to the message shown next to it.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCredentialInvalid):
		return "the provider rejected the API key; check or replace it"
	case errors.Is(err, ErrNoCapableModel):
		return "no content-generation model is available for this key; check the key's tier"
	case errors.Is(err, ErrModelUnavailable):
		return "none of the candidate models were accepted; pick another model"
	case errors.Is(err, ErrRateLimited):
		return "provider quota or rate limit reached; reduce chunk size or upgrade the API tier"
	case errors.Is(err, ErrTransport):
		return "network or provider outage; retry later"
	case errors.Is(err, ErrEmptyResponse):
		return "the provider returned no usable text; retry or switch models"
	case errors.Is(err, ErrInvalidRequest):
		return "the request parameters were rejected before sending"
	case errors.Is(err, ErrCanceled):
		return "the run was canceled before it finished"
	case errors.Is(err, ErrConfiguration):
		return "fix the configuration and retry"
	case errors.Is(err, ErrValidation):
		return "fix the input and retry"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
