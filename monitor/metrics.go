package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the monitor's Prometheus instruments.
type Metrics struct {
	PagesProcessed   prometheus.Counter
	PagesFailed      prometheus.Counter
	FetchDuration    prometheus.Histogram
	SignalsExtracted prometheus.Counter
	EventsDetected   *prometheus.CounterVec
}

// NewMetrics registers the monitor metrics on reg. A nil registerer
// creates unregistered instruments, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "centinela_pages_processed_total",
			Help: "Monitored pages processed successfully.",
		}),
		PagesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "centinela_pages_failed_total",
			Help: "Monitored pages that failed this cycle.",
		}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "centinela_fetch_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		}),
		SignalsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "centinela_signals_extracted_total",
			Help: "Commercial signals extracted across all pages.",
		}),
		EventsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "centinela_change_events_total",
			Help: "Change events detected, by severity.",
		}, []string{"severity"}),
	}
}
