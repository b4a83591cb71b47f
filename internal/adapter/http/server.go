package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBytes = 8 << 20

// Composer builds a dataset state for one request.
type Composer interface {
	Compose(ctx context.Context, req domain.Request) (domain.DatasetState, error)
}

// Server exposes health, readiness, metrics and on-demand composition
// HTTP endpoints.
type Server struct {
	httpServer *http.Server
	composer   Composer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /v1/compose routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, composer Composer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		composer: composer,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/compose", s.handleCompose)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleCompose composes the request in the body and answers with the state.
// Missing upstream data is not an error here either; the unavailable state
// comes back with 200.
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req, err := domain.ParseRequest(domain.RawEvent{
		Value:   body,
		Headers: map[string]string{"tool": r.URL.Query().Get("tool")},
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	state, err := s.composer.Compose(r.Context(), req)
	if err != nil {
		s.logger.Warn("compose over http failed", "request_id", req.RequestID, "tool", req.Tool, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, state)
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
