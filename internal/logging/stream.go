package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one log line as served by the log endpoint.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	RunID     string            `json:"run_id,omitempty"`
	Chunk     int               `json:"chunk,omitempty"`
	Model     string            `json:"model,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LogQuery selects events from a StreamHub. A zero Since with Follow unset
// returns the newest Limit events.
type LogQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	RunID     string
	Component string
}

func (q LogQuery) matches(evt LogEvent) bool {
	if q.RunID != "" && evt.RunID != q.RunID {
		return false
	}
	if q.Component != "" && !strings.EqualFold(q.Component, evt.Component) {
		return false
	}
	return true
}

// StreamHub keeps the most recent log events in a ring and wakes followers
// when new events arrive.
type StreamHub struct {
	mu      sync.Mutex
	ring    []LogEvent
	head    int
	size    int
	lastSeq uint64
	wake    chan struct{}
}

// NewStreamHub returns a hub holding at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{
		ring: make([]LogEvent, capacity),
		wake: make(chan struct{}),
	}
}

// Publish stores evt, assigning its sequence number.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.lastSeq++
	evt.Sequence = h.lastSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	slot := (h.head + h.size) % len(h.ring)
	if h.size == len(h.ring) {
		h.head = (h.head + 1) % len(h.ring)
	} else {
		h.size++
	}
	h.ring[slot] = evt
	close(h.wake)
	h.wake = make(chan struct{})
	h.mu.Unlock()
}

// Query returns matching events and the cursor to pass as Since next time.
// With Follow set it blocks until a matching event arrives or ctx ends.
func (h *StreamHub) Query(ctx context.Context, q LogQuery) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, q.Since, nil
	}
	if q.Limit <= 0 || q.Limit > len(h.ring) {
		q.Limit = len(h.ring)
	}
	for {
		h.mu.Lock()
		var events []LogEvent
		if q.Since == 0 && !q.Follow {
			events = h.tailLocked(q)
		} else {
			events = h.afterLocked(q)
		}
		cursor := h.lastSeq
		wake := h.wake
		h.mu.Unlock()

		if len(events) > 0 || !q.Follow {
			return events, cursor, nil
		}
		q.Since = cursor
		select {
		case <-ctx.Done():
			return nil, cursor, ctx.Err()
		case <-wake:
		}
	}
}

// Tail returns the newest limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	events, cursor, _ := h.Query(context.Background(), LogQuery{Limit: limit})
	return events, cursor
}

// FirstSequence reports the oldest sequence number still held.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.size == 0 {
		return h.lastSeq
	}
	return h.ring[h.head].Sequence
}

func (h *StreamHub) at(i int) LogEvent {
	return h.ring[(h.head+i)%len(h.ring)]
}

func (h *StreamHub) tailLocked(q LogQuery) []LogEvent {
	var out []LogEvent
	for i := h.size - 1; i >= 0 && len(out) < q.Limit; i-- {
		if evt := h.at(i); q.matches(evt) {
			out = append(out, evt)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (h *StreamHub) afterLocked(q LogQuery) []LogEvent {
	var out []LogEvent
	for i := 0; i < h.size && len(out) < q.Limit; i++ {
		evt := h.at(i)
		if evt.Sequence <= q.Since || !q.matches(evt) {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// streamHandler publishes every record to the hub before passing it on.
type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
	group string
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(h.event(ctx, record))
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), qualify(h.group, attrs)...)
	return &clone
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.group = joinGroup(h.group, name)
	return &clone
}

// event folds context fields, logger attrs, then call-site attrs into one
// LogEvent; later values win.
func (h *streamHandler) event(ctx context.Context, record slog.Record) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	apply := func(attr slog.Attr) {
		key := strings.TrimSpace(attr.Key)
		if key == "" {
			return
		}
		value := attr.Value.Resolve()
		switch key {
		case FieldRunID:
			event.RunID = attrString(value)
		case FieldChunk:
			if value.Kind() == slog.KindInt64 {
				event.Chunk = int(value.Int64())
			}
		case FieldModel:
			event.Model = attrString(value)
		case FieldComponent:
			event.Component = attrString(value)
		default:
			if event.Fields == nil {
				event.Fields = make(map[string]string)
			}
			event.Fields[key] = attrString(value)
		}
	}

	for _, attr := range ContextFields(ctx) {
		apply(attr)
	}
	for _, attr := range h.attrs {
		apply(attr)
	}
	var callSite []slog.Attr
	record.Attrs(func(attr slog.Attr) bool {
		callSite = append(callSite, attr)
		return true
	})
	for _, attr := range qualify(h.group, callSite) {
		apply(attr)
	}
	return event
}

func qualify(group string, attrs []slog.Attr) []slog.Attr {
	if group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		out[i] = slog.Attr{Key: group + "." + attr.Key, Value: attr.Value}
	}
	return out
}

func joinGroup(prefix, name string) string {
	switch {
	case name == "":
		return prefix
	case prefix == "":
		return name
	default:
		return prefix + "." + name
	}
}
