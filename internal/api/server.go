// Package api serves the health and readiness endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second

// ReadinessFunc reports whether the bot can serve traffic.
type ReadinessFunc func() bool

// Server represents the health server
type Server struct {
	echo   *echo.Echo
	addr   string
	ready  ReadinessFunc
	logger zerolog.Logger
}

// NewServer creates a new health server listening on addr
func NewServer(addr string, ready ReadinessFunc, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug().Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))

	server := &Server{
		echo:   e,
		addr:   addr,
		ready:  ready,
		logger: logger,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthz)
	s.echo.GET("/readyz", s.readyz)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called. It returns nil on a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("health server listening")
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting at most ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) readyz(c echo.Context) error {
	if s.ready == nil || !s.ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}
