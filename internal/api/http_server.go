package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"testdrive/internal/config"
	"testdrive/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking service over JSON/HTTP.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    domain.BookingService
	zone   *time.Location
	auth   *HTTPAuth
	server *http.Server
	logger *zerolog.Logger
}

// NewHTTPServer builds the router. zone is used to interpret export dates; limiter may be nil.
func NewHTTPServer(cfg config.APIConfig, svc domain.BookingService, limiter domain.RateLimiter, zone *time.Location, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if zone == nil {
		zone = time.UTC
	}

	srv := &HTTPServer{
		cfg:    cfg,
		svc:    svc,
		zone:   zone,
		auth:   NewHTTPAuth(cfg, limiter, logger),
		logger: logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(s.logger))

	r.Get("/status", s.handleStatus)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Wrap)

		r.Post("/book", s.handleBook)
		r.Get("/vehicles", s.handleVehicles)
		r.Get("/vehicles/locations", s.handleLocations)
		r.Get("/reservations/export", s.handleExport)
		r.Get("/reservations/{reservationId}", s.handleReservation)
	})

	return r
}

// Handler returns the root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
