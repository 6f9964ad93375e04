// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	IngestedEvents *prometheus.CounterVec

	// Watcher metrics
	WalletPolls        *prometheus.CounterVec
	WatcherTickLatency prometheus.Histogram
	LastSuccessfulPoll prometheus.Gauge

	// Scheduler metrics
	JobRuns *prometheus.CounterVec

	// Catalog and matcher metrics
	CatalogRefreshes *prometheus.CounterVec
	CatalogMarkets   prometheus.Gauge
	MatchResults     *prometheus.CounterVec

	// Copy engine metrics
	LedgerOutcomes  *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec

	// Notification metrics
	NotificationsEmitted *prometheus.CounterVec
	StreamClients        prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "copier"
	}

	return &Metrics{
		IngestedEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_total",
			Help:      "Webhook events by outcome (accepted, duplicate, rejected, failed)",
		}, []string{"outcome"}),

		WalletPolls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "wallet_polls_total",
			Help:      "Per-wallet polls by result (unchanged, seeded, emitted, error)",
		}, []string{"result"}),
		WatcherTickLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one polling tick over all wallets",
			Buckets:   prometheus.DefBuckets,
		}),
		LastSuccessfulPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of the last completed polling tick",
		}),

		JobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and status (ok, error, skipped)",
		}, []string{"job", "status"}),

		CatalogRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "refreshes_total",
			Help:      "Market catalog refreshes by status",
		}, []string{"status"}),
		CatalogMarkets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "markets",
			Help:      "Number of markets in the current catalog snapshot",
		}),
		MatchResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "results_total",
			Help:      "Market match attempts by result (hit, miss)",
		}, []string{"result"}),

		LedgerOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ledger_outcomes_total",
			Help:      "Terminal ledger entries by status and mode",
		}, []string{"status", "mode"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Upstream call latency by service and operation",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service", "operation"}),

		NotificationsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emitted_total",
			Help:      "Notifications emitted by type",
		}, []string{"type"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "stream_clients",
			Help:      "Connected notification stream clients",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordIngested counts one webhook event outcome.
func RecordIngested(outcome string, n int) {
	if n > 0 {
		DefaultMetrics.IngestedEvents.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordWalletPoll counts one per-wallet poll result.
func RecordWalletPoll(result string) {
	DefaultMetrics.WalletPolls.WithLabelValues(result).Inc()
}

// RecordWatcherTick records a completed polling tick.
func RecordWatcherTick(seconds float64, finishedUnix int64) {
	DefaultMetrics.WatcherTickLatency.Observe(seconds)
	DefaultMetrics.LastSuccessfulPoll.Set(float64(finishedUnix))
}

// RecordJobRun counts a scheduled job run.
func RecordJobRun(job, status string) {
	DefaultMetrics.JobRuns.WithLabelValues(job, status).Inc()
}

// RecordCatalogRefresh records a catalog refresh and, on success, the snapshot size.
func RecordCatalogRefresh(markets int, err error) {
	if err != nil {
		DefaultMetrics.CatalogRefreshes.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.CatalogRefreshes.WithLabelValues("ok").Inc()
	DefaultMetrics.CatalogMarkets.Set(float64(markets))
}

// RecordMatch counts a match attempt.
func RecordMatch(hit bool) {
	if hit {
		DefaultMetrics.MatchResults.WithLabelValues("hit").Inc()
		return
	}
	DefaultMetrics.MatchResults.WithLabelValues("miss").Inc()
}

// RecordLedgerOutcome counts a terminal ledger entry.
func RecordLedgerOutcome(status string, simulated bool) {
	mode := "live"
	if simulated {
		mode = "simulated"
	}
	DefaultMetrics.LedgerOutcomes.WithLabelValues(status, mode).Inc()
}

// RecordUpstreamLatency records upstream call latency.
func RecordUpstreamLatency(service, operation string, seconds float64) {
	DefaultMetrics.UpstreamLatency.WithLabelValues(service, operation).Observe(seconds)
}

// RecordNotification counts an emitted notification.
func RecordNotification(kind string) {
	DefaultMetrics.NotificationsEmitted.WithLabelValues(kind).Inc()
}

// AddStreamClients adjusts the connected stream client gauge.
func AddStreamClients(delta int) {
	DefaultMetrics.StreamClients.Add(float64(delta))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
