package api

import (
	"errors"
	"net/http"
	"strings"

	"reelsub/internal/gateway"
	"reelsub/internal/language"
	"reelsub/internal/logging"
	"reelsub/internal/services"
	"reelsub/internal/translation"
)

// ToRequest resolves the wire request into a pipeline request bound to
// credential. Unknown languages or styles are invalid_request failures.
func (r TranslateRequest) ToRequest(credential string) (translation.Request, error) {
	pair, err := language.NewPair(r.SourceLang, r.TargetLang)
	if err != nil {
		return translation.Request{}, gateway.Fail(gateway.KindInvalidRequest, "", err.Error(), err)
	}
	style, err := translation.ParseStyle(r.Style)
	if err != nil {
		return translation.Request{}, gateway.Fail(gateway.KindInvalidRequest, "", err.Error(), err)
	}
	var models []string
	for _, model := range r.Models {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			models = append(models, trimmed)
		}
	}
	return translation.Request{
		SourceText:      r.SourceText,
		Pair:            pair,
		Style:           style,
		ModelCandidates: models,
		Credential:      credential,
	}, nil
}

// StatusForKind maps a failure kind to its HTTP status.
func StatusForKind(kind gateway.Kind) int {
	switch kind {
	case gateway.KindCredentialInvalid:
		return http.StatusUnauthorized
	case gateway.KindModelUnavailable:
		return http.StatusNotFound
	case gateway.KindRateLimited:
		return http.StatusTooManyRequests
	case gateway.KindTransport, gateway.KindEmptyResponse:
		return http.StatusBadGateway
	case gateway.KindNoCapableModel:
		return http.StatusServiceUnavailable
	case gateway.KindInvalidRequest:
		return http.StatusBadRequest
	case gateway.KindCanceled:
		return 499
	case gateway.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts a pipeline error into an HTTP status and body.
func FromError(err error) (int, ErrorResponse) {
	if errors.Is(err, services.ErrConfiguration) {
		return http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Kind:  "configuration",
			Hint:  services.Hint(err),
		}
	}
	failure, chunk := translation.FailureOf(err)
	if failure == nil {
		return http.StatusInternalServerError, ErrorResponse{Error: "unknown error"}
	}
	message := strings.TrimSpace(failure.Message)
	if message == "" {
		message = failure.Error()
	}
	return StatusForKind(failure.Kind), ErrorResponse{
		Error: message,
		Kind:  string(failure.Kind),
		Hint:  services.Hint(failure),
		Model: failure.Model,
		Chunk: chunk,
	}
}

// FromPairs describes the offered language pairs.
func FromPairs(pairs []language.Pair) []PairInfo {
	out := make([]PairInfo, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, PairInfo{Code: pair.String(), Label: pair.Label()})
	}
	return out
}

// FromPresets describes the style presets in display order.
func FromPresets(presets translation.Presets) []StyleInfo {
	sorted := presets.Sorted()
	out := make([]StyleInfo, 0, len(sorted))
	for _, preset := range sorted {
		out = append(out, StyleInfo{
			Style:       string(preset.Style),
			Label:       preset.Label,
			Temperature: preset.Temperature,
		})
	}
	return out
}

// FromLogEvents converts hub events for transport.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: evt.Timestamp,
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			RunID:     evt.RunID,
			Chunk:     evt.Chunk,
			Model:     evt.Model,
			Fields:    evt.Fields,
		})
	}
	return out
}
