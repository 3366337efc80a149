// Package server exposes the device registry, diagnostics and the
// terminal bridge over HTTP.
//
// Device routes live under the configured API prefix and answer with a
// {statusCode, data, message, success} envelope. The terminal websocket
// and /metrics sit outside the prefix and are not rate limited.
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/bridge"
	"github.com/NewSmoke38/SED-Manager/internal/config"
	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/internal/logs"
	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Server is the HTTP front end.
type Server struct {
	cfg    config.ServerConfig
	bridge bridge.Options
	store  device.Store
	log    logger.Logger
	now    func() time.Time

	dialer    sshutil.Dialer
	collector *telemetry.Collector
	fetcher   *logs.Fetcher

	metrics  *Metrics
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	handler  http.Handler
}

// New wires a server around a device store and an SSH dialer. Every
// connection the dialer makes is counted on /metrics.
func New(cfg *config.Config, store device.Store, dialer sshutil.Dialer, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}

	limit := rate.Limit(cfg.Server.RateLimit)
	if cfg.Server.RateLimit <= 0 {
		limit = rate.Inf
	}

	s := &Server{
		cfg: cfg.Server,
		bridge: bridge.Options{
			PollInterval: cfg.Bridge.PollInterval,
			Term:         cfg.Bridge.Term,
			Rows:         cfg.Bridge.Rows,
			Cols:         cfg.Bridge.Cols,
		},
		store:   store,
		log:     log,
		now:     time.Now,
		metrics: newMetrics(),
		limiter: rate.NewLimiter(limit, cfg.Server.RateBurst),
	}
	s.dialer = s.metrics.instrument(dialer)
	s.collector = telemetry.NewCollector(s.dialer, log)
	s.fetcher = logs.NewFetcher(s.dialer, log)
	s.upgrader = s.newUpgrader()
	s.handler = s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.requestIDMiddleware,
		s.recoveryMiddleware,
		s.metricsMiddleware,
		s.loggingMiddleware,
		s.corsMiddleware,
	)

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get(s.cfg.WSPath, s.handleTerminal)

	api := func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Get("/health", s.handleHealth)
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Get("/metrics", s.handleDeviceMetrics)
				r.Get("/logs", s.handleDeviceLogs)
			})
		})
	}
	if s.cfg.APIPrefix == "" || s.cfg.APIPrefix == "/" {
		r.Group(api)
	} else {
		r.Route(s.cfg.APIPrefix, api)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
	return r
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Can't listen on "+s.cfg.Addr,
			"Pick a free address with --addr or server.addr in sedm.yaml")
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured shutdown timeout. Open terminal sessions see ctx end and
// tear themselves down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.WrapWithCode(err, errors.ErrConnection, "HTTP server failed", "")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.WrapWithCode(err, errors.ErrConnection, "Graceful shutdown failed", "")
		}
		return nil
	})

	return g.Wait()
}
