package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RunStarted()
	r.RunFinished("success", time.Second)
	r.ChunkTranslated("m")
	r.Attempt("m", "success")
	r.HTTPRequest("/api/translate", http.StatusOK)
	if r.Handler() == nil {
		t.Fatal("expected handler for nil recorder")
	}
}

func TestRecorderExposesCounters(t *testing.T) {
	r := New()
	r.RunStarted()
	r.Attempt("gemini-2.5-flash", "rate_limited")
	r.Attempt("gemini-2.5-flash", "success")
	r.ChunkTranslated("gemini-2.5-flash")
	r.RunFinished("success", 2*time.Second)
	r.HTTPRequest("/api/translate", http.StatusOK)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`reelsub_gateway_attempts_total{model="gemini-2.5-flash",outcome="rate_limited"} 1`,
		`reelsub_translation_chunks_total{model="gemini-2.5-flash"} 1`,
		`reelsub_translation_runs_total{status="success"} 1`,
		`reelsub_translation_active_runs 0`,
		`reelsub_api_requests_total{code="OK",route="/api/translate"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected metrics output to contain %q\n%s", want, text)
		}
	}
}
