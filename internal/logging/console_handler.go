package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// consoleHandler prints a header line per record followed by one indented
// line per field:
//
//	2026-01-02 15:04:05 INFO [translation] run 1a2b3c4d · chunk 3 · gemini-2.5-flash – chunk translated
//	    - attempts: 1
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	prefix    string
	// fields holds logger attrs already flattened with their group prefix.
	fields []field
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{mu: new(sync.Mutex), w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = slices.Clone(h.fields)
	for _, a := range attrs {
		clone.fields = appendField(clone.fields, h.prefix, a)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := slices.Clone(h.fields)
	record.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.prefix, a)
		return true
	})
	fields = lastWins(fields)

	var hdr header
	rest := fields[:0]
	for _, f := range fields {
		if !hdr.absorb(f) {
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var b strings.Builder
	b.WriteString(consoleTime(ts))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	hdr.writeTo(&b)
	b.WriteString(" – ")
	b.WriteString(msg)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteByte('\n')
	for _, f := range rest {
		value := redacted
		if !isSecretKey(f.key) {
			value = renderValue(f.value, true)
		}
		fmt.Fprintf(&b, "    - %s: %s\n", f.key, value)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// header collects the fields promoted into the first line.
type header struct {
	component, runID, chunk, model string
}

func (hd *header) absorb(f field) bool {
	switch f.key {
	case FieldComponent:
		hd.component = attrString(f.value)
	case FieldRunID:
		hd.runID = attrString(f.value)
	case FieldChunk:
		hd.chunk = attrString(f.value)
	case FieldModel:
		hd.model = attrString(f.value)
	default:
		return false
	}
	return true
}

func (hd header) writeTo(b *strings.Builder) {
	if hd.component != "" {
		b.WriteString(" [" + hd.component + "]")
	}
	var parts []string
	if id := strings.TrimSpace(hd.runID); id != "" {
		parts = append(parts, "run "+id[:min(len(id), 8)])
	}
	if c := strings.TrimSpace(hd.chunk); c != "" {
		parts = append(parts, "chunk "+c)
	}
	if m := strings.TrimSpace(hd.model); m != "" {
		parts = append(parts, m)
	}
	if len(parts) > 0 {
		b.WriteString(" " + strings.Join(parts, " · "))
	}
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, inner := range a.Value.Group() {
			dst = appendField(dst, prefix, inner)
		}
		return dst
	}
	return append(dst, field{key: prefix + a.Key, value: a.Value})
}

// lastWins keeps the first position of each key with its latest value.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
