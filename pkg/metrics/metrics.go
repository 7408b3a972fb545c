package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Visit lifecycle metrics
	VisitsCreated        prometheus.Counter
	VisitTransitions     *prometheus.CounterVec
	ActiveVisitConflicts prometheus.Counter

	// Treatment ledger metrics
	LedgerMutations *prometheus.CounterVec

	// Finance metrics
	ReportDuration     prometheus.Histogram
	DashboardDuration  prometheus.Histogram
	DashboardCacheHits prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		VisitsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_created_total",
			Help:      "Total number of visits created",
		}),
		VisitTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visit_transitions_total",
			Help:      "Total number of visit status transitions",
		}, []string{"from", "to"}),
		ActiveVisitConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "active_visit_conflicts_total",
			Help:      "Creations rejected because the practitioner already had an active visit",
		}),
		LedgerMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_mutations_total",
			Help:      "Total number of treatment ledger mutations",
		}, []string{"operation"}),
		ReportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Time spent building finance reports",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		DashboardDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dashboard_duration_seconds",
			Help:      "Time spent building the finance dashboard",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		DashboardCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_hits_total",
			Help:      "Dashboard requests served from the in-process cache",
		}),
	}
}
