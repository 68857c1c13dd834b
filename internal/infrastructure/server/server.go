package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
)

const shutdownTimeout = 10 * time.Second

// PageIngester runs one listing page.
type PageIngester interface {
	IngestListingPage(ctx context.Context, page int) (domain.PageReport, error)
}

// Pinger reports whether the review store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes health, metrics and a manual ingest trigger.
type Server struct {
	echo     *echo.Echo
	addr     string
	ingester PageIngester
	store    Pinger
	logger   *slog.Logger

	// ingestMu allows one manual ingest at a time.
	ingestMu sync.Mutex
}

// New builds the ops server and registers its routes.
func New(addr string, ingester PageIngester, store Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s := &Server{echo: e, addr: addr, ingester: ingester, store: store, logger: logger}
	s.RegisterRoutes(e)
	return s
}

// RegisterRoutes registers the ops endpoints.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/ingest/:page", s.Ingest)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Health pings the store.
func (s *Server) Health(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Ingest runs one listing page synchronously and returns its report.
func (s *Server) Ingest(c echo.Context) error {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
	}
	if !s.ingestMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "an ingest is already running")
	}
	defer s.ingestMu.Unlock()

	report, err := s.ingester.IngestListingPage(c.Request().Context(), page)
	if err != nil {
		s.logger.Error("manual ingest failed", "page", page, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", "addr", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}
