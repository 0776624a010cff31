package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"reelsub/internal/services"
)

func TestStreamHandlerCarriesLoggerAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	handler := newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub)

	logger := slog.New(handler).
		With(slog.String(FieldComponent, "translation")).
		With(slog.String(FieldRunID, "run-1")).
		With(slog.Int(FieldChunk, 2))
	logger.Info("attempt", slog.String(FieldModel, "gemini-2.5-flash"), slog.String("outcome", "ok"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0]
	if evt.Component != "translation" || evt.RunID != "run-1" || evt.Chunk != 2 || evt.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected event %#v", evt)
	}
	if evt.Fields["outcome"] != "ok" {
		t.Fatalf("fields = %#v", evt.Fields)
	}
}

func TestStreamHandlerCallSiteOverrides(t *testing.T) {
	hub := NewStreamHub(100)
	handler := newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub)

	slog.New(handler).With(slog.String(FieldModel, "first")).Info("retry", slog.String(FieldModel, "second"))

	events, _ := hub.Tail(10)
	if len(events) != 1 || events[0].Model != "second" {
		t.Fatalf("expected call-site model to win, got %#v", events)
	}
}

func TestStreamHandlerNilHub(t *testing.T) {
	base := slog.NewTextHandler(discardWriter{}, nil)
	if newStreamHandler(base, nil) != base {
		t.Fatal("expected base handler when hub is nil")
	}
}

func TestStreamHubEvictsOldest(t *testing.T) {
	hub := NewStreamHub(2)
	for _, msg := range []string{"a", "b", "c"} {
		hub.Publish(LogEvent{Message: msg})
	}
	events, last := hub.Tail(0)
	if len(events) != 2 || events[0].Message != "b" || events[1].Message != "c" {
		t.Fatalf("unexpected buffer %#v", events)
	}
	if last != 3 || hub.FirstSequence() != 2 {
		t.Fatalf("sequence bookkeeping wrong: last=%d first=%d", last, hub.FirstSequence())
	}
}

func TestStreamHubQuerySince(t *testing.T) {
	hub := NewStreamHub(10)
	hub.Publish(LogEvent{Message: "one"})
	hub.Publish(LogEvent{Message: "two"})

	events, next, err := hub.Query(context.Background(), LogQuery{Since: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 || events[0].Message != "two" || next != 2 {
		t.Fatalf("unexpected query %#v next=%d", events, next)
	}
}

func TestStreamHubQueryFilters(t *testing.T) {
	hub := NewStreamHub(10)
	hub.Publish(LogEvent{Message: "a", RunID: "r1", Component: "translation"})
	hub.Publish(LogEvent{Message: "b", RunID: "r2", Component: "translation"})
	hub.Publish(LogEvent{Message: "c", RunID: "r1", Component: "daemon"})
	hub.Publish(LogEvent{Message: "d", RunID: "r1", Component: "translation"})

	events, _, _ := hub.Query(context.Background(), LogQuery{RunID: "r1", Component: "Translation", Limit: 1})
	if len(events) != 1 || events[0].Message != "d" {
		t.Fatalf("tail should keep the newest match, got %#v", events)
	}
	events, _, _ = hub.Query(context.Background(), LogQuery{Since: 1, RunID: "r1"})
	if len(events) != 2 || events[0].Message != "c" || events[1].Message != "d" {
		t.Fatalf("unexpected filtered events %#v", events)
	}
}

func TestStreamHubFollowWaitsForMatch(t *testing.T) {
	hub := NewStreamHub(10)
	go func() {
		time.Sleep(20 * time.Millisecond)
		hub.Publish(LogEvent{Message: "other", RunID: "r2"})
		time.Sleep(20 * time.Millisecond)
		hub.Publish(LogEvent{Message: "late", RunID: "r1"})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, next, err := hub.Query(ctx, LogQuery{Follow: true, RunID: "r1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 || events[0].Message != "late" || next != 2 {
		t.Fatalf("unexpected events %#v next=%d", events, next)
	}
}

func TestStreamHubFollowHonorsCancel(t *testing.T) {
	hub := NewStreamHub(10)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := hub.Query(ctx, LogQuery{Follow: true}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestStreamHandlerReadsContextAndGroups(t *testing.T) {
	hub := NewStreamHub(10)
	logger := slog.New(newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub))

	ctx := services.WithChunk(services.WithRunID(context.Background(), "run-9"), 4)
	logger.WithGroup("usage").InfoContext(ctx, "tokens", slog.Int("prompt", 12))

	events, _ := hub.Tail(1)
	if len(events) != 1 || events[0].RunID != "run-9" || events[0].Chunk != 4 {
		t.Fatalf("context fields missing: %#v", events)
	}
	if events[0].Fields["usage.prompt"] != "12" {
		t.Fatalf("group not applied: %#v", events[0].Fields)
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
