// Package server exposes the read-only status API for the stack: current
// observations, backup manifests, recent alerts, metrics, and a websocket
// stream of observations.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"docstack/internal/config"
	"docstack/internal/db"
	"docstack/internal/logger"
	"docstack/internal/observer"
)

// Server is the status API server.
type Server struct {
	cfg       *config.Manager
	echo      *echo.Echo
	observer  *observer.Observer
	descs     []observer.Descriptor
	backups   *db.BackupRepository
	alerts    *db.AlertRepository
	startTime time.Time
}

// New creates a status server over the given observer and repositories.
func New(cfg *config.Manager, obs *observer.Observer, descs []observer.Descriptor, backups *db.BackupRepository, alerts *db.AlertRepository) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger.RequestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet},
	}))

	s := &Server{
		cfg:       cfg,
		echo:      e,
		observer:  obs,
		descs:     descs,
		backups:   backups,
		alerts:    alerts,
		startTime: time.Now(),
	}
	s.registerRoutes()
	return s
}

// Start runs the server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.File.Server.Host, s.cfg.File.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.WithField("addr", addr).Info("Status server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
