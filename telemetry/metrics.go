// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SyncCycles     prometheus.Counter
	RunsDiscovered prometheus.Counter
	NotifyFailures prometheus.Counter
	NotifyRetries  prometheus.Counter
	APIErrors      prometheus.Counter

	// Per-status transition counter
	StatusTransitions *prometheus.CounterVec

	// Histograms (seconds)
	CycleDuration prometheus.Observer

	// Gauges
	TrackedRunsGauge prometheus.Gauge
	PendingRunsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SyncCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "src_sync_cycles_total", Help: "Number of sync cycles executed"})
		RunsDiscovered = promauto.NewCounter(prometheus.CounterOpts{Name: "src_runs_discovered_total", Help: "Number of newly discovered runs posted to Discord"})
		NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "src_notify_failures_total", Help: "Number of notification posts/edits that failed terminally"})
		NotifyRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "src_notify_retries_total", Help: "Number of rate-limited notification attempts retried"})
		APIErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "src_api_errors_total", Help: "Number of transient speedrun.com API failures"})
		StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "src_status_transitions_total", Help: "Run status transitions applied, by target status"}, []string{"status"})
		CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "src_sync_cycle_duration_seconds", Help: "Full discovery+refresh cycle duration seconds", Buckets: prometheus.DefBuckets})
		TrackedRunsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "src_tracked_runs", Help: "Current number of tracked runs (terminal included)"})
		PendingRunsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "src_pending_runs", Help: "Size of the remote pending queue at last fetch"})
	})
}

// IncSyncCycle counts one engine cycle.
func IncSyncCycle() {
	if SyncCycles != nil {
		SyncCycles.Inc()
	}
}

// IncDiscovered counts one newly posted run.
func IncDiscovered() {
	if RunsDiscovered != nil {
		RunsDiscovered.Inc()
	}
}

// IncNotifyFailure counts a post/edit that failed for one run.
func IncNotifyFailure() {
	if NotifyFailures != nil {
		NotifyFailures.Inc()
	}
}

// IncNotifyRetry counts a rate-limited attempt that will be retried.
func IncNotifyRetry() {
	if NotifyRetries != nil {
		NotifyRetries.Inc()
	}
}

// IncAPIError counts a transient remote-read failure.
func IncAPIError() {
	if APIErrors != nil {
		APIErrors.Inc()
	}
}

// IncTransition counts a status transition by target status.
func IncTransition(status string) {
	if StatusTransitions != nil {
		StatusTransitions.WithLabelValues(status).Inc()
	}
}

// SetTrackedRuns records the current store size.
func SetTrackedRuns(n int) {
	if TrackedRunsGauge != nil {
		TrackedRunsGauge.Set(float64(n))
	}
}

// SetPendingRuns records the remote queue size seen this cycle.
func SetPendingRuns(n int) {
	if PendingRunsGauge != nil {
		PendingRunsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
