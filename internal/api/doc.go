// Package api defines the wire-format types of the local HTTP service and
// the converters between them and the translation pipeline.
//
// # Key Types
//
// TranslateRequest: JSON body of POST /api/translate.
//
// ErrorResponse: classified failure with the provider's message, the
// operator hint, and the model and chunk the failure hit.
//
// StatusResponse, ModelsResponse, LogStreamResponse: read-only views.
//
// # Converters
//
// TranslateRequest.ToRequest resolves languages and style into a
// translation.Request. FromError maps a pipeline error onto an HTTP status
// and ErrorResponse.
//
// ClientLimiter throttles requests per client address.
package api
