package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelsub/internal/services"
)

// DefaultMaxOutputTokens is the output budget used when callers leave it unset.
const DefaultMaxOutputTokens = 8192

// Kind names one class of provider failure.
type Kind string

const (
	KindCredentialInvalid Kind = "credential_invalid"
	KindNoCapableModel    Kind = "no_capable_model"
	KindModelUnavailable  Kind = "model_unavailable"
	KindRateLimited       Kind = "rate_limited"
	KindTransport         Kind = "transport"
	KindEmptyResponse     Kind = "empty_response"
	KindInvalidRequest    Kind = "invalid_request"
	KindCanceled          Kind = "canceled"
	KindConfiguration     Kind = "configuration"
)

// Marker returns the services sentinel error for the kind.
func (k Kind) Marker() error {
	switch k {
	case KindCredentialInvalid:
		return services.ErrCredentialInvalid
	case KindNoCapableModel:
		return services.ErrNoCapableModel
	case KindModelUnavailable:
		return services.ErrModelUnavailable
	case KindRateLimited:
		return services.ErrRateLimited
	case KindEmptyResponse:
		return services.ErrEmptyResponse
	case KindInvalidRequest:
		return services.ErrInvalidRequest
	case KindCanceled:
		return services.ErrCanceled
	case KindConfiguration:
		return services.ErrConfiguration
	default:
		return services.ErrTransport
	}
}

// Params describes one generation call.
type Params struct {
	Model           string
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// Validate enforces the call constraints and fills the output budget default.
func (p Params) Validate() (Params, error) {
	p.Model = strings.TrimSpace(p.Model)
	if p.Model == "" {
		return p, errors.New("model is required")
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return p, errors.New("prompt is required")
	}
	if p.Temperature < 0 || p.Temperature > 1 {
		return p, fmt.Errorf("temperature %.2f outside [0,1]", p.Temperature)
	}
	if p.MaxOutputTokens < 0 {
		return p, fmt.Errorf("max output tokens %d must be positive", p.MaxOutputTokens)
	}
	if p.MaxOutputTokens == 0 {
		p.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return p, nil
}

// Failure is a classified provider failure. Message keeps the provider's own
// text verbatim for diagnosis.
type Failure struct {
	Kind       Kind
	Model      string
	Message    string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(string(f.Kind))
	if f.Model != "" {
		b.WriteString(" (model ")
		b.WriteString(f.Model)
		b.WriteString(")")
	}
	if f.StatusCode > 0 {
		fmt.Fprintf(&b, ": http %d", f.StatusCode)
	}
	if msg := strings.TrimSpace(f.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

// Unwrap exposes the kind marker and the underlying cause.
func (f *Failure) Unwrap() []error {
	if f == nil {
		return nil
	}
	errs := []error{f.Kind.Marker()}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// Fail builds a Failure from a kind and the provider's message.
func Fail(kind Kind, model, message string, err error) *Failure {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &Failure{Kind: kind, Model: model, Message: message, Err: err}
}

// AsFailure extracts a *Failure from err, classifying foreign errors as
// transport failures and context errors as cancellation.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fail(KindCanceled, "", err.Error(), err)
	}
	if errors.Is(err, services.ErrConfiguration) {
		return Fail(KindConfiguration, "", err.Error(), err)
	}
	return Fail(KindTransport, "", err.Error(), err)
}

// Outcome is the tagged result of one Generate call: exactly one of Text or
// Failure is meaningful.
type Outcome struct {
	Text    string
	Failure *Failure
}

// Success builds a successful outcome.
func Success(text string) Outcome {
	return Outcome{Text: text}
}

// Failed builds a failed outcome.
func Failed(f *Failure) Outcome {
	if f == nil {
		f = Fail(KindTransport, "", "unknown failure", nil)
	}
	return Outcome{Failure: f}
}

// OK reports whether the outcome carries generated text.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Err returns the failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// Gateway issues one text-generation call per Generate invocation.
type Gateway interface {
	Generate(ctx context.Context, p Params) Outcome
}

// ModelLister discovers the models that can generate content, in provider order.
type ModelLister interface {
	ListCapableModels(ctx context.Context) ([]string, error)
}

// Provider is a backend that can both generate and discover models.
type Provider interface {
	Gateway
	ModelLister
	Name() string
}
