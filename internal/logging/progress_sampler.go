package logging

import "strings"

// ProgressSampler thins per-chunk progress lines. A run logs its first and
// last chunk, each time completion crosses a quarter (or whatever step count
// was requested), and whenever the serving model changes.
type ProgressSampler struct {
	steps     int
	lastStep  int
	lastModel string
}

// NewProgressSampler splits a run into steps reporting intervals (default 4).
func NewProgressSampler(steps int) *ProgressSampler {
	if steps <= 0 {
		steps = 4
	}
	return &ProgressSampler{steps: steps, lastStep: -1}
}

// Observe records that done of total chunks are finished, the latest by
// model, and reports whether that deserves a log line.
func (s *ProgressSampler) Observe(done, total int, model string) bool {
	if s == nil || total <= 0 {
		return true
	}
	done = min(max(done, 0), total)
	model = strings.TrimSpace(model)

	emit := done == 1 || done == total
	if step := done * s.steps / total; step > s.lastStep {
		s.lastStep = step
		emit = true
	}
	if model != "" && model != s.lastModel {
		emit = emit || s.lastModel != ""
		s.lastModel = model
	}
	return emit
}
