// Package alert fans a single alert event out to the configured sinks.
// Sinks fail independently; one broken sink never blocks the others, and
// every event lands in the audit log regardless of delivery.
package alert

import (
	"os"
	"time"
)

// Severity classifies an alert event.
type Severity string

const (
	// SeverityAlert marks the transition into a sustained outage
	SeverityAlert Severity = "alert"
	// SeverityRecovered marks the transition back to healthy
	SeverityRecovered Severity = "recovered"
	// SeverityTest marks an operator-triggered delivery check
	SeverityTest Severity = "test"
)

// Event is one notification. Events are ephemeral; only the audit log row
// outlives the dispatch.
type Event struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Host      string    `json:"host"`
}

// NewEvent builds an event stamped with the current time and host identity.
func NewEvent(severity Severity, title, body string) Event {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return Event{
		Title:     title,
		Body:      body,
		Severity:  severity,
		Timestamp: time.Now().UTC(),
		Host:      host,
	}
}
