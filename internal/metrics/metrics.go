// Package metrics declares the Prometheus collectors of the ledger service
// and the worker. Collectors register on the default registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	ledgerWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_writes_total",
			Help: "Total number of persisted ledger writes by type",
		},
		[]string{"type"}, // created, updated, deleted
	)

	ledgerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_errors_total",
			Help: "Total number of ledger errors by operation",
		},
		[]string{"operation"},
	)

	registryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_registry_lookups_total",
			Help: "Ledger registry lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	registrySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_registry_size",
			Help: "Number of ledgers held in memory",
		},
	)

	publishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_change_publish_failures_total",
			Help: "Total number of change events that could not be published",
		},
	)

	mirrorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_mirror_runs_total",
			Help: "Sheets mirror runs by trigger and result",
		},
		[]string{"trigger", "result"}, // event|resync, ok|error
	)

	mirrorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_mirror_duration_seconds",
			Help:    "Duration of a single owner mirror in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTPRequest(route, method string, code int, d time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func IncLedgerWrite(changeType string) {
	ledgerWrites.WithLabelValues(changeType).Inc()
}

func IncLedgerError(operation string) {
	ledgerErrors.WithLabelValues(operation).Inc()
}

func IncRegistryLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	registryLookups.WithLabelValues(result).Inc()
}

func SetRegistrySize(n int) {
	registrySize.Set(float64(n))
}

func IncPublishFailure() {
	publishFailures.Inc()
}

// ObserveMirror records one owner mirror triggered by an event or a resync.
func ObserveMirror(trigger string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mirrorRuns.WithLabelValues(trigger, result).Inc()
	mirrorDuration.Observe(d.Seconds())
}
