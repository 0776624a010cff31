package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsub/internal/api"
	"reelsub/internal/config"
	"reelsub/internal/gateway"
	"reelsub/internal/logging"
	"reelsub/internal/services"
	"reelsub/internal/subtitles"
)

const (
	subripContentType = "application/x-subrip"
	apiKeyHeader      = "X-Api-Key"
	shutdownTimeout   = 5 * time.Second
)

type apiServer struct {
	cfg     *config.Config
	logger  *slog.Logger
	daemon  *Daemon
	limiter *api.ClientLimiter
	handler http.Handler
}

func newAPIServer(cfg *config.Config, d *Daemon) *apiServer {
	srv := &apiServer{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(d.logger, "api-server"),
		daemon:  d,
		limiter: api.NewClientLimiter(cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst),
	}

	token := cfg.Server.APIToken
	mux := http.NewServeMux()
	mux.Handle("/api/translate", srv.instrument("translate", srv.limited(authMiddleware(token, srv.handleTranslate))))
	mux.Handle("/api/models", srv.instrument("models", srv.limited(authMiddleware(token, srv.handleModels))))
	mux.Handle("/api/status", srv.instrument("status", authMiddleware(token, srv.handleStatus)))
	mux.Handle("/api/logs", srv.instrument("logs", authMiddleware(token, srv.handleLogs)))
	mux.Handle("/metrics", d.metrics.Handler())
	srv.handler = mux
	return srv
}

// Handler exposes the HTTP routes, for tests and embedding.
func (d *Daemon) Handler() http.Handler {
	return newAPIServer(d.cfg, d).handler
}

// Serve listens on the configured bind address until ctx ends. The daemon
// must have been started.
func (d *Daemon) Serve(ctx context.Context) error {
	if !d.running.Load() {
		return errors.New("daemon not started")
	}
	listener, err := net.Listen("tcp", strings.TrimSpace(d.cfg.Server.Bind))
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return d.serve(ctx, listener)
}

func (d *Daemon) serve(ctx context.Context, listener net.Listener) error {
	srv := newAPIServer(d.cfg, d)
	server := &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		srv.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return srv.limiter.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		return nil
	})
	return group.Wait()
}

func (s *apiServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
		return
	}
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mediaType != "application/json" {
		s.writeError(w, http.StatusUnsupportedMediaType, api.ErrorResponse{Error: "expected application/json"})
		return
	}

	var body api.TranslateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "request body too large"})
			return
		}
		s.writeError(w, http.StatusBadRequest, api.ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Kind:  string(gateway.KindInvalidRequest),
			Hint:  services.Hint(services.ErrInvalidRequest),
		})
		return
	}

	req, err := body.ToRequest(s.credential(r))
	if err != nil {
		status, payload := api.FromError(err)
		s.writeError(w, status, payload)
		return
	}

	result, err := s.daemon.Translate(r.Context(), req)
	if err != nil {
		status, payload := api.FromError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("translation request failed",
				logging.String(logging.FieldEventType, "translate_request_failed"),
				logging.String(logging.FieldErrorHint, payload.Hint),
				logging.Error(err),
			)
		}
		s.writeError(w, status, payload)
		return
	}
	if result.Empty() {
		s.writeJSON(w, http.StatusOK, api.WarningResponse{
			Warning:   "the subtitle file is empty; nothing to translate",
			EventType: "empty_input",
		})
		return
	}

	name := subtitles.OutputName(body.Filename)
	w.Header().Set("Content-Type", subripContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Document)))
	w.Header().Set("X-Reelsub-Run-Id", result.RunID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(result.Document)); err != nil {
		s.logger.Warn("failed to write translation response", logging.Error(err))
	}
}

func (s *apiServer) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
		return
	}
	provider, models, err := s.daemon.Models(r.Context(), s.credential(r))
	if err != nil {
		status, payload := api.FromError(err)
		s.writeError(w, status, payload)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ModelsResponse{Provider: provider, Models: models})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
		return
	}
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Running:      status.Running,
		PID:          status.PID,
		Provider:     s.cfg.Provider.Name,
		Busy:         status.Busy,
		LockFilePath: status.LockFilePath,
		ChunkSize:    s.daemon.pipeline.Options().ChunkSize,
		Pairs:        api.FromPairs(s.cfg.Pairs()),
		Styles:       api.FromPresets(s.daemon.pipeline.Presets()),
		LastRun:      status.LastRun,
	})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
		return
	}
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: []api.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	events, next, err := hub.Query(r.Context(), logging.LogQuery{
		Since:     since,
		Limit:     limit,
		Follow:    query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true"),
		RunID:     strings.TrimSpace(query.Get("run")),
		Component: strings.TrimSpace(query.Get("component")),
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: api.FromLogEvents(events), Next: next})
}

// credential prefers the caller's key and falls back to the server environment.
func (s *apiServer) credential(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return key
	}
	return s.cfg.EnvCredential()
}

func (s *apiServer) limited(next http.HandlerFunc) http.Handler {
	return s.limiter.Middleware(next, func(w http.ResponseWriter) {
		s.writeError(w, http.StatusTooManyRequests, api.ErrorResponse{
			Error: "too many requests, please try again later",
			Kind:  string(gateway.KindRateLimited),
		})
	})
}

func (s *apiServer) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.daemon.metrics.HTTPRequest(route, rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, payload api.ErrorResponse) {
	s.writeJSON(w, status, payload)
}
