// Package api exposes the HTTP interface for the catscii service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheGhostHuCodes/catscii/internal/ascii"
	"github.com/TheGhostHuCodes/catscii/internal/imaging"
	"github.com/TheGhostHuCodes/catscii/internal/telemetry"
	"github.com/TheGhostHuCodes/catscii/internal/upstream"
)

// ArtProvider is the coordinator contract the server depends on.
type ArtProvider interface {
	Get(ctx context.Context) (ascii.Art, error)
}

// Server wires HTTP handlers to the fetch coordinator.
type Server struct {
	router   chi.Router
	provider ArtProvider
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(provider ArtProvider, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		provider: provider,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/", s.getArt)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// getArt is the sole point translating pipeline failures into wire
// statuses: upstream timeouts map to 504, other upstream failures to
// 502, and decode problems (a provider-shape issue, not a caller error)
// to 500.
func (s *Server) getArt(w http.ResponseWriter, r *http.Request) {
	art, err := s.provider.Get(r.Context())
	if err != nil {
		status, msg := classify(err)
		s.logger.Warn("art request failed",
			zap.Int("status", status),
			zap.Error(err),
		)
		writeText(w, status, msg)
		return
	}
	writeText(w, http.StatusOK, art.Text())
}

func classify(err error) (int, string) {
	var failure *upstream.Failure
	if errors.As(err, &failure) {
		switch failure.Kind {
		case upstream.KindTimeout:
			return http.StatusGatewayTimeout, "upstream image provider timed out\n"
		case upstream.KindUpstreamStatus, upstream.KindEmptyBody:
			return http.StatusBadGateway, "upstream image provider failed\n"
		}
	}
	var decodeErr *imaging.DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusInternalServerError, "could not decode upstream image\n"
	}
	return http.StatusInternalServerError, "something went wrong\n"
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok\n")
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The cache slot needs no warmup; readiness tracks process liveness.
	writeText(w, http.StatusOK, "ready\n")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_agent", r.UserAgent()),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeText(w, http.StatusInternalServerError, "internal server error\n")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		telemetry.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
