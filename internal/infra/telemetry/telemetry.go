package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the lifecycle counters the service exposes on /metrics.
type Metrics struct {
	DeletionsRequested prometheus.Counter
	DeletionsRecovered prometheus.Counter
	AccountsPurged     prometheus.Counter
	ReconcileRepairs   prometheus.Counter
	EmailChanges       prometheus.Counter
}

// NewMetrics registers the lifecycle counters on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		DeletionsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "deletions_requested_total",
			Help:      "Total number of accepted account deletion requests",
		}),
		DeletionsRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "deletions_recovered_total",
			Help:      "Total number of deletions cancelled via recovery token",
		}),
		AccountsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "purged_total",
			Help:      "Total number of accounts purged after the recovery window",
		}),
		ReconcileRepairs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "onboarding_repairs_total",
			Help:      "Total number of onboarding drift repairs applied",
		}),
		EmailChanges: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "email_changes_total",
			Help:      "Total number of completed email changes",
		}),
	}
}
