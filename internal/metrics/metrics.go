// Package metrics exposes Prometheus collectors for translation runs.
//
// A nil *Recorder is valid and records nothing, so library code can take an
// optional recorder without guarding every call.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reelsub"

// Recorder owns the collectors registered for one process.
type Recorder struct {
	registry     *prometheus.Registry
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	chunksTotal  *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	lastSuccess  prometheus.Gauge
	activeRuns   prometheus.Gauge
	httpRequests *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translation",
			Name:      "runs_total",
			Help:      "Translation runs by final status",
		}, []string{"status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "translation",
			Name:      "run_duration_seconds",
			Help:      "Duration of translation runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"status"}),
		chunksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translation",
			Name:      "chunks_total",
			Help:      "Chunks translated, by the model that produced them",
		}, []string{"model"}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "attempts_total",
			Help:      "Generation attempts by model and outcome kind",
		}, []string{"model", "outcome"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "translation",
			Name:      "last_success_timestamp",
			Help:      "Unix timestamp of the last successful run",
		}),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "translation",
			Name:      "active_runs",
			Help:      "Runs currently in progress",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP API requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// RunStarted marks a run as in progress.
func (r *Recorder) RunStarted() {
	if r == nil {
		return
	}
	r.activeRuns.Inc()
}

// RunFinished records the final status of a run.
func (r *Recorder) RunFinished(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.activeRuns.Dec()
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if status == "success" {
		r.lastSuccess.SetToCurrentTime()
	}
}

// ChunkTranslated counts one translated chunk.
func (r *Recorder) ChunkTranslated(model string) {
	if r == nil {
		return
	}
	r.chunksTotal.WithLabelValues(model).Inc()
}

// Attempt counts one gateway call. outcome is "success" or a failure kind.
func (r *Recorder) Attempt(model, outcome string) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(model, outcome).Inc()
}

// HTTPRequest counts one API request.
func (r *Recorder) HTTPRequest(route string, code int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, http.StatusText(code)).Inc()
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}
