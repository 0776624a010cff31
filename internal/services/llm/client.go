package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelsub/internal/gateway"
)

const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultHTTPTimeout = 120 * time.Second
	chatPath           = "chat/completions"
	modelsPath         = "models"
)

// Config captures the runtime settings required to talk to the provider.
type Config struct {
	APIKey         string
	BaseURL        string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// DefaultHTTPTimeout returns the default timeout used for provider requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	return client
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	return "openrouter"
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema (delta) even when
		// stream=false.
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

type apiError struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

type modelsResponse struct {
	Data []struct {
		ID           string `json:"id"`
		Architecture struct {
			OutputModalities []string `json:"output_modalities"`
		} `json:"architecture"`
	} `json:"data"`
}

// Generate issues one chat completion request. It never retries.
func (c *Client) Generate(ctx context.Context, p gateway.Params) gateway.Outcome {
	params, err := p.Validate()
	if err != nil {
		return gateway.Failed(gateway.Fail(gateway.KindInvalidRequest, p.Model, err.Error(), err))
	}
	if c.cfg.APIKey == "" {
		return gateway.Failed(gateway.Fail(gateway.KindCredentialInvalid, params.Model, "api key required", nil))
	}
	payload := chatCompletionRequest{
		Model:       params.Model,
		Messages:    []chatMessage{{Role: "user", Content: params.Prompt}},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxOutputTokens,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return gateway.Failed(gateway.Fail(gateway.KindInvalidRequest, params.Model, "encode body", err))
	}
	body, err := c.do(ctx, http.MethodPost, chatPath, encoded)
	if err != nil {
		return gateway.Failed(c.classify(ctx, params.Model, err))
	}
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return gateway.Failed(gateway.Fail(gateway.KindEmptyResponse, params.Model,
			"decode response: "+gateway.Snippet(string(body)), err))
	}
	if completion.Error != nil {
		msg := strings.TrimSpace(completion.Error.Message)
		kind := gateway.ClassifyStatus(statusFromCode(completion.Error.Code), msg)
		return gateway.Failed(gateway.Fail(kind, params.Model, msg, nil))
	}
	content, finishReason := extractCompletionPayload(completion)
	if content == "" {
		empty := &emptyContentError{
			Op:           "llm generate",
			FinishReason: finishReason,
			Refusal:      extractCompletionRefusal(completion),
			Snippet:      gateway.Snippet(string(body)),
		}
		if len(completion.Choices) == 0 {
			empty.Op = "llm generate: empty choices"
		}
		return gateway.Failed(gateway.Fail(gateway.KindEmptyResponse, params.Model, empty.Error(), empty))
	}
	return gateway.Success(content)
}

// ListCapableModels returns the identifiers of text-producing models in
// provider order.
func (c *Client) ListCapableModels(ctx context.Context) ([]string, error) {
	if c.cfg.APIKey == "" {
		return nil, gateway.Fail(gateway.KindCredentialInvalid, "", "api key required", nil)
	}
	body, err := c.do(ctx, http.MethodGet, modelsPath, nil)
	if err != nil {
		return nil, c.classify(ctx, "", err)
	}
	var listing modelsResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, gateway.Fail(gateway.KindEmptyResponse, "", "decode models: "+gateway.Snippet(string(body)), err)
	}
	models := make([]string, 0, len(listing.Data))
	for _, model := range listing.Data {
		id := strings.TrimSpace(model.ID)
		if id == "" || !producesText(model.Architecture.OutputModalities) {
			continue
		}
		models = append(models, id)
	}
	if len(models) == 0 {
		return nil, gateway.Fail(gateway.KindNoCapableModel, "", "no text generation models listed", nil)
	}
	return models, nil
}

func producesText(modalities []string) bool {
	if len(modalities) == 0 {
		return true
	}
	for _, modality := range modalities {
		if strings.EqualFold(strings.TrimSpace(modality), "text") {
			return true
		}
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("llm request: build url: %w", err)
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := gateway.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	return body, nil
}

func (c *Client) classify(ctx context.Context, model string, err error) *gateway.Failure {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		msg := providerMessage(statusErr.Body)
		failure := gateway.Fail(gateway.ClassifyStatus(statusErr.StatusCode, msg), model, msg, err)
		failure.StatusCode = statusErr.StatusCode
		failure.RetryAfter = statusErr.RetryAfter
		return failure
	}
	return gateway.Fail(gateway.ClassifyTransportError(ctx, err), model, err.Error(), err)
}

// providerMessage pulls error.message out of a JSON error body, falling back
// to a compact snippet of the raw body.
func providerMessage(body string) string {
	var envelope struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Error != nil {
		if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
			return msg
		}
	}
	return gateway.Snippet(body)
}

// statusFromCode reads numeric error codes embedded in a 200 response body.
func statusFromCode(raw json.RawMessage) int {
	var code int
	if err := json.Unmarshal(raw, &code); err == nil {
		return code
	}
	return 0
}

func extractCompletionPayload(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(
			choice.Message.Content,
			choice.Delta.Content,
			choice.Text,
		); content != "" {
			return content, finishReason
		}
	}
	return "", finishReason
}

func extractCompletionRefusal(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return strings.TrimSpace(refusal)
		}
	}
	return ""
}

// firstNonEmpty returns the first value with non-blank content, unmodified.
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
