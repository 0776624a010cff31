package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsub/internal/config"
)

const userAgent = "reelsub/1"

// Event identifies a notification type.
type Event string

const (
	EventRunCompleted Event = "run_completed"
	EventRunFailed    Event = "run_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Recognised keys: pair, style, chunks,
// models, duration, kind, chunk, error, filename.
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy notifier, or a no-op when no topic is configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	timeout := cfg.NtfyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		if !n.onSuccess {
			return message{}, false
		}
		body := fmt.Sprintf("✅ Translated %s (%s style): %d chunks",
			text(payload, "pair", "unknown pair"), text(payload, "style", "cinematic"), number(payload, "chunks"))
		if name := text(payload, "filename", ""); name != "" {
			body += "\nFile: " + name
		}
		if models := text(payload, "models", ""); models != "" {
			body += "\nModels: " + models
		}
		if d, ok := payload["duration"].(time.Duration); ok && d > 0 {
			body += "\nTook " + d.Round(time.Second).String()
		}
		return message{
			title: "reelsub - Translation Complete",
			body:  body,
			tags:  []string{"reelsub", "translate", "completed"},
		}, true
	case EventRunFailed:
		var b strings.Builder
		b.WriteString("❌ Translation failed")
		if pair := text(payload, "pair", ""); pair != "" {
			b.WriteString(" for ")
			b.WriteString(pair)
		}
		if chunk := number(payload, "chunk"); chunk > 0 {
			fmt.Fprintf(&b, " at chunk %d", chunk)
		}
		b.WriteString(": ")
		if kind := text(payload, "kind", ""); kind != "" {
			b.WriteString(kind)
			b.WriteString(": ")
		}
		b.WriteString(text(payload, "error", "unknown"))
		return message{
			title:    "reelsub - Translation Failed",
			body:     b.String(),
			tags:     []string{"reelsub", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "reelsub - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reelsub", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func text(payload Payload, key, fallback string) string {
	switch v := payload[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case []string:
		if len(v) > 0 {
			return strings.Join(v, ", ")
		}
	case fmt.Stringer:
		return v.String()
	}
	return fallback
}

func number(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
