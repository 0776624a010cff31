package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"reelsub/internal/gateway"
)

const (
	// DefaultModel is used when model discovery fails for reasons other than
	// the credential.
	DefaultModel       = "gemini-2.5-flash"
	defaultHTTPTimeout = 120 * time.Second
	generateAction     = "generateContent"
	retryInfoType      = "type.googleapis.com/google.rpc.RetryInfo"
)

// Config captures the runtime settings required to reach the Gemini API.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Client adapts a genai client to the gateway contract.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sdk        *genai.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client handed to the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the SDK client for one credential. A blank key is a
// credential failure rather than a fallback to ambient environment keys.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.APIKey == "" {
		return nil, gateway.Fail(gateway.KindCredentialInvalid, "", "api key required", nil)
	}
	sdkConfig := &genai.ClientConfig{
		APIKey:     client.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: client.httpClient,
	}
	if client.cfg.BaseURL != "" {
		sdkConfig.HTTPOptions = genai.HTTPOptions{BaseURL: client.cfg.BaseURL}
	}
	sdk, err := genai.NewClient(ctx, sdkConfig)
	if err != nil {
		return nil, gateway.Fail(gateway.KindInvalidRequest, "", "create genai client", err)
	}
	client.sdk = sdk
	return client, nil
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	return "gemini"
}

// Generate issues one GenerateContent call. It never retries.
func (c *Client) Generate(ctx context.Context, p gateway.Params) gateway.Outcome {
	params, err := p.Validate()
	if err != nil {
		return gateway.Failed(gateway.Fail(gateway.KindInvalidRequest, p.Model, err.Error(), err))
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(params.Temperature)),
		MaxOutputTokens: int32(params.MaxOutputTokens),
	}
	resp, err := c.sdk.Models.GenerateContent(ctx, params.Model, genai.Text(params.Prompt), config)
	if err != nil {
		return gateway.Failed(classifyError(ctx, params.Model, err))
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return gateway.Failed(gateway.Fail(gateway.KindEmptyResponse, params.Model, emptyReason(resp), nil))
	}
	return gateway.Success(text)
}

// ListCapableModels returns the models that support generateContent, in
// catalogue order.
func (c *Client) ListCapableModels(ctx context.Context) ([]string, error) {
	var models []string
	for model, err := range c.sdk.Models.All(ctx) {
		if err != nil {
			return nil, classifyError(ctx, "", err)
		}
		if model == nil || !supports(model.SupportedActions, generateAction) {
			continue
		}
		if name := strings.TrimPrefix(strings.TrimSpace(model.Name), "models/"); name != "" {
			models = append(models, name)
		}
	}
	if len(models) == 0 {
		return nil, gateway.Fail(gateway.KindNoCapableModel, "", "no model supports generateContent", nil)
	}
	return models, nil
}

func supports(actions []string, action string) bool {
	for _, candidate := range actions {
		if strings.EqualFold(strings.TrimSpace(candidate), action) {
			return true
		}
	}
	return false
}

func emptyReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return "empty response"
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "no candidates returned"
	}
	if first := resp.Candidates[0]; first != nil && first.FinishReason != "" {
		return "blank text (finish_reason=" + string(first.FinishReason) + ")"
	}
	return "blank text"
}

func classifyError(ctx context.Context, model string, err error) *gateway.Failure {
	apiErr, ok := asAPIError(err)
	if !ok {
		return gateway.Fail(gateway.ClassifyTransportError(ctx, err), model, err.Error(), err)
	}
	kind := gateway.ClassifyStatus(apiErr.Code, apiErr.Message)
	if kind == gateway.KindTransport || kind == gateway.KindInvalidRequest {
		if mapped, ok := gateway.ClassifyProviderStatus(apiErr.Status, apiErr.Message); ok {
			kind = mapped
		}
	}
	failure := gateway.Fail(kind, model, strings.TrimSpace(apiErr.Message), err)
	failure.StatusCode = apiErr.Code
	if kind == gateway.KindRateLimited {
		failure.RetryAfter = retryDelay(apiErr.Details)
	}
	return failure
}

// asAPIError accepts the SDK error by value or pointer.
func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func retryDelay(details []map[string]any) time.Duration {
	for _, detail := range details {
		if kind, _ := detail["@type"].(string); kind != retryInfoType {
			continue
		}
		raw, _ := detail["retryDelay"].(string)
		if delay, ok := gateway.ParseRetryDelay(raw); ok {
			return delay
		}
	}
	return 0
}
