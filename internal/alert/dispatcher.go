package alert

import (
	"context"

	"docstack/internal/config"
	"docstack/internal/db"
	"docstack/internal/logger"
	"docstack/internal/metrics"
)

// Sink is one alert delivery target.
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Dispatcher fans one event out to every configured sink.
type Dispatcher struct {
	sinks []Sink
	audit *db.AlertRepository
}

// NewDispatcher builds a dispatcher from the alerting configuration.
// audit may not be nil; the audit log records every event even when no
// sink is configured.
func NewDispatcher(cfg config.AlertsConfig, audit *db.AlertRepository) *Dispatcher {
	var sinks []Sink
	for _, url := range cfg.Webhooks {
		if url != "" {
			sinks = append(sinks, NewWebhookSink(url))
		}
	}
	if cfg.Email.To != "" {
		sinks = append(sinks, NewEmailSink(cfg.Email))
	}
	return &Dispatcher{sinks: sinks, audit: audit}
}

// NewDispatcherWithSinks builds a dispatcher over explicit sinks. Tests use
// this to observe delivery.
func NewDispatcherWithSinks(audit *db.AlertRepository, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, audit: audit}
}

// Dispatch records the event and delivers it to every sink. Sink failures
// are logged, never propagated; delivery is best effort by design, the
// audit row is the source of truth for what was raised.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	metrics.AlertsTotal.WithLabelValues(string(event.Severity)).Inc()

	if err := d.audit.Append(ctx, &db.AlertRecord{
		Severity:  string(event.Severity),
		Title:     event.Title,
		Body:      event.Body,
		Host:      event.Host,
		CreatedAt: event.Timestamp,
	}); err != nil {
		logger.WithError(err).Error("Failed to record alert in audit log")
	}

	for _, sink := range d.sinks {
		if err := sink.Send(ctx, event); err != nil {
			logger.WithFields(logger.Fields{
				"sink":     sink.Name(),
				"severity": event.Severity,
			}).WithError(err).Error("Alert sink delivery failed")
			continue
		}
		logger.WithFields(logger.Fields{
			"sink":     sink.Name(),
			"severity": event.Severity,
		}).Info("Alert delivered")
	}
}

// SinkCount returns the number of configured sinks
func (d *Dispatcher) SinkCount() int {
	return len(d.sinks)
}
