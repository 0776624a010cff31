package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsub/internal/app"
	"reelsub/internal/config"
	"reelsub/internal/gateway"
	"reelsub/internal/language"
	"reelsub/internal/logging"
	"reelsub/internal/metrics"
	"reelsub/internal/notifications"
	"reelsub/internal/testsupport"
	"reelsub/internal/translation"
)

func newTestDaemon(t *testing.T, cfg *config.Config, fake *testsupport.FakeProvider) *Daemon {
	t.Helper()
	factory := translation.Factory(fake.Factory(nil))
	pipeline, err := app.NewPipeline(cfg, factory, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	d, err := New(cfg, pipeline, factory, nil, logging.NewStreamHub(64), metrics.New())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("m1"))
	d := newTestDaemon(t, cfg, &testsupport.FakeProvider{})

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status()
	if !status.Running || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected status %+v", status)
	}
	if err := d.Start(); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceRefusesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("m1"))
	first := newTestDaemon(t, cfg, &testsupport.FakeProvider{})
	second := newTestDaemon(t, cfg, &testsupport.FakeProvider{})

	if err := first.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := second.Start()
	if err == nil || !strings.Contains(err.Error(), "already using") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
	first.Stop()
	if err := second.Start(); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(nil, nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestTranslateSerializesRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("m1"))
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
	)
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			mu.Lock()
			inFlight++
			maxSeen = max(maxSeen, inFlight)
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			return gateway.Success(testsupport.ChunkText(call.Prompt))
		},
	}
	d := newTestDaemon(t, cfg, fake)
	req := translation.Request{
		SourceText: testsupport.BuildSRT(2),
		Pair:       language.Pair{Source: "en", Target: "my"},
		Style:      translation.StyleCinematic,
		Credential: "key",
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			if _, err := d.Translate(context.Background(), req); err != nil {
				t.Errorf("Translate: %v", err)
			}
		})
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected runs to be serialized, saw %d concurrent calls", maxSeen)
	}
	last := d.Status().LastRun
	if last == nil || last.Status != string(translation.StateDone) || last.Chunks != 1 || last.Pair != "en:my" {
		t.Fatalf("unexpected last run %+v", last)
	}
}

func TestTranslateQueuedCallerHonorsCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("m1"))
	started := make(chan struct{})
	release := make(chan struct{})
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			if n == 1 {
				close(started)
				<-release
			}
			return gateway.Success(testsupport.ChunkText(call.Prompt))
		},
	}
	d := newTestDaemon(t, cfg, fake)
	req := translation.Request{
		SourceText: testsupport.BuildSRT(1),
		Pair:       language.Pair{Source: "en", Target: "my"},
		Style:      translation.StyleCinematic,
		Credential: "key",
	}

	first := make(chan error, 1)
	go func() {
		_, err := d.Translate(context.Background(), req)
		first <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	queued := make(chan error, 1)
	go func() {
		_, err := d.Translate(ctx, req)
		queued <- err
	}()
	cancel()

	select {
	case err := <-queued:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected queued caller to see cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued caller stayed blocked behind the running translation")
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if calls := len(fake.Calls()); calls != 1 {
		t.Fatalf("expected the canceled caller to make no provider calls, got %d", calls)
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)
	return nil
}

func TestTranslateNotifiesRunOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("m1"))
	fake := &testsupport.FakeProvider{
		Script: func(call testsupport.Call, n int) gateway.Outcome {
			if n == 1 {
				return gateway.Success(testsupport.ChunkText(call.Prompt))
			}
			return gateway.Failed(gateway.Fail(gateway.KindCredentialInvalid, call.Model, "API key not valid", nil))
		},
	}
	d := newTestDaemon(t, cfg, fake)
	notifier := &recordingNotifier{}
	d.SetNotifier(notifier)

	req := translation.Request{
		SourceText: testsupport.BuildSRT(1),
		Pair:       language.Pair{Source: "en", Target: "my"},
		Style:      translation.StyleLiteral,
		Credential: "key",
	}
	if _, err := d.Translate(context.Background(), req); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := d.Translate(context.Background(), req); err == nil {
		t.Fatal("expected second run to fail")
	}
	req.SourceText = "  \n"
	if _, err := d.Translate(context.Background(), req); err != nil {
		t.Fatalf("empty run: %v", err)
	}

	if len(notifier.events) != 2 {
		t.Fatalf("expected two notifications, got %v", notifier.events)
	}
	if notifier.events[0] != notifications.EventRunCompleted || notifier.payloads[0]["chunks"] != 1 || notifier.payloads[0]["style"] != "literal" {
		t.Fatalf("unexpected success notification %v %v", notifier.events[0], notifier.payloads[0])
	}
	failed := notifier.payloads[1]
	if notifier.events[1] != notifications.EventRunFailed || failed["kind"] != "credential_invalid" || failed["chunk"] != 1 || failed["error"] != "API key not valid" {
		t.Fatalf("unexpected failure notification %v %v", notifier.events[1], failed)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("m1"))
	d := newTestDaemon(t, cfg, &testsupport.FakeProvider{})
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/api/status"
	var resp *http.Response
	for range 50 {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeRequiresStart(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("m1"))
	d := newTestDaemon(t, cfg, &testsupport.FakeProvider{})
	if err := d.Serve(context.Background()); err == nil {
		t.Fatal("expected error when serving before Start")
	}
}
