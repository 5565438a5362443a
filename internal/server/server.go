// Package server exposes the bot's HTTP surface: liveness, readiness,
// Prometheus metrics and, in webhook mode, the Telegram update endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"media-bot/internal/health"
	mlog "media-bot/internal/log"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	readinessBudget = 5 * time.Second

	// Telegram delivers updates for one bot sequentially; this only bounds
	// garbage traffic on the secret path.
	webhookRequestLimit = 120
)

// Options configures the HTTP surface.
type Options struct {
	Listen string
	Health *health.Manager

	// Webhook and WebhookPath are set in webhook mode only.
	Webhook     http.Handler
	WebhookPath string
}

type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

func New(opts Options) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              opts.Listen,
			Handler:           NewRouter(opts),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout / 2,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
		logger: mlog.WithComponent("http"),
	}
}

// NewRouter builds the route table.
func NewRouter(opts Options) http.Handler {
	logger := mlog.WithComponent("http")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLog(logger))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("media-bot is running"))
	})

	if opts.Health != nil {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, opts.Health.Health())
		})
		r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
			ctx, cancel := context.WithTimeout(req.Context(), readinessBudget)
			defer cancel()
			resp := opts.Health.Ready(ctx)
			status := http.StatusOK
			if !resp.Ready {
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, resp)
		})
	}

	r.Handle("/metrics", promhttp.Handler())

	if opts.Webhook != nil && opts.WebhookPath != "" {
		r.With(httprate.LimitAll(webhookRequestLimit, time.Minute)).
			Handle("/"+opts.WebhookPath, opts.Webhook)
	}
	return r
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an
// error.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("http listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().
		Str(mlog.FieldEvent, "http.started").
		Str("addr", ln.Addr().String()).
		Msg("HTTP server listening")
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Str(mlog.FieldEvent, "http.stopping").Msg("shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLog writes one debug line per request. The webhook secret path is
// truncated so it never reaches the log.
func requestLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				path = rc.RoutePattern()
			}
			if len(path) > 40 {
				path = path[:8] + "…"
			}
			logger.Debug().
				Str(mlog.FieldEvent, "http.request").
				Str("method", r.Method).
				Str("path", path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request served")
		})
	}
}
