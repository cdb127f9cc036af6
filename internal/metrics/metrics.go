// Package metrics exposes docstack's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ServiceUp is 1 when the service's latest observation is operationally
	// healthy, 0 otherwise.
	ServiceUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "docstack",
		Name:      "service_up",
		Help:      "Whether the service's latest observation is healthy.",
	}, []string{"service"})

	// ServiceState labels each service with its normalized state.
	ServiceState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "docstack",
		Name:      "service_state",
		Help:      "Normalized service state (1 for the current state, 0 otherwise).",
	}, []string{"service", "state"})

	// MonitorTicksTotal counts health monitor invocations by aggregate result.
	MonitorTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docstack",
		Name:      "monitor_ticks_total",
		Help:      "Health monitor ticks by aggregate result.",
	}, []string{"result"})

	// AlertsTotal counts dispatched alert events by severity.
	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docstack",
		Name:      "alerts_total",
		Help:      "Dispatched alert events by severity.",
	}, []string{"severity"})

	// BackupsTotal counts completed backups by tier.
	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docstack",
		Name:      "backups_total",
		Help:      "Completed backups by tier.",
	}, []string{"tier"})
)

// States are the label values published for docstack_service_state.
var States = []string{"not_found", "starting", "running", "healthy", "degraded", "down"}

// RecordObservation publishes one service observation.
func RecordObservation(service, state string, healthy bool) {
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1.0
		}
		ServiceState.WithLabelValues(service, s).Set(v)
	}
	if healthy {
		ServiceUp.WithLabelValues(service).Set(1)
	} else {
		ServiceUp.WithLabelValues(service).Set(0)
	}
}
