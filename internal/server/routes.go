package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docstack/internal/backup"
	"docstack/internal/logger"
	"docstack/internal/types"
)

// registerRoutes wires the read-only API surface
func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealthz)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/backups", s.handleBackups)
	api.GET("/alerts", s.handleAlerts)
	api.GET("/events", s.handleEvents)
}

// handleHealthz reports on the server process itself, not the stack
func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

// handleStatus observes every service and returns the aggregate report
func (s *Server) handleStatus(c echo.Context) error {
	observations := s.observer.ObserveAll(c.Request().Context(), s.descs)
	report := types.NewStatusReport(s.cfg.File.Stack.Name, s.descs, observations)
	return c.JSON(http.StatusOK, report)
}

// handleBackups lists backup manifests, newest first
func (s *Server) handleBackups(c echo.Context) error {
	records, err := s.backups.List(c.Request().Context())
	if err != nil {
		logger.GetLogger(c).WithError(err).Error("Cannot list backup manifests")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	summaries := make([]types.BackupSummary, 0, len(records))
	for i := range records {
		m, err := backup.FromRecord(&records[i])
		if err != nil {
			logger.GetLogger(c).WithError(err).Error("Corrupt backup manifest row")
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		summaries = append(summaries, types.NewBackupSummary(m))
	}
	return c.JSON(http.StatusOK, summaries)
}

// handleAlerts returns the most recent audit log entries
func (s *Server) handleAlerts(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.alerts.Recent(c.Request().Context(), limit)
	if err != nil {
		logger.GetLogger(c).WithError(err).Error("Cannot list alert records")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}
