// Package metrics exposes Prometheus collectors for the scout service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal       *prometheus.CounterVec
	fetchDurationSeconds     *prometheus.HistogramVec
	feedFallbacksTotal       prometheus.Counter
	forumsSkippedTotal       prometheus.Counter
	syncConflictsTotal       prometheus.Counter
	syncConflictRetriesTotal prometheus.Counter
	snapshotsPublishedTotal  prometheus.Counter
	rateLimitBackoffsTotal   *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_fetch_attempts_total",
				Help: "Endpoint fetch attempts, labeled by endpoint class and outcome.",
			},
			[]string{"class", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_fetch_duration_seconds",
				Help:    "Histogram of per-endpoint fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"class"},
		)

		feedFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_feed_fallbacks_total",
				Help: "Runs where a forum degraded to the syndication feed path.",
			},
		)

		forumsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_forums_skipped_total",
				Help: "Forums that yielded no posts on either fetch path.",
			},
		)

		syncConflictsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_sync_conflicts_total",
				Help: "Ledger pushes rejected by the revision precondition.",
			},
		)

		syncConflictRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_sync_conflict_retries_total",
				Help: "Pull-merge-push cycles re-run after a conflict.",
			},
		)

		snapshotsPublishedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_snapshots_published_total",
				Help: "Snapshots successfully synced and announced.",
			},
		)

		rateLimitBackoffsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_rate_limit_backoffs_total",
				Help: "429 backoffs taken before advancing to the next endpoint.",
			},
			[]string{"class"},
		)
	})
}

// Handler returns the http.Handler exposing the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one endpoint attempt.
func ObserveFetch(class, outcome string, duration time.Duration) {
	if fetchAttemptsTotal == nil {
		return
	}
	fetchAttemptsTotal.WithLabelValues(class, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(class).Observe(duration.Seconds())
}

// ObserveRateLimitBackoff records a 429 backoff for the endpoint class.
func ObserveRateLimitBackoff(class string) {
	if rateLimitBackoffsTotal == nil {
		return
	}
	rateLimitBackoffsTotal.WithLabelValues(class).Inc()
}

// ObserveFeedFallback records a degraded feed-path acquisition.
func ObserveFeedFallback() {
	if feedFallbacksTotal == nil {
		return
	}
	feedFallbacksTotal.Inc()
}

// ObserveForumSkipped records a forum that produced no data this run.
func ObserveForumSkipped() {
	if forumsSkippedTotal == nil {
		return
	}
	forumsSkippedTotal.Inc()
}

// ObserveSyncConflict records a precondition-failed push, and whether a
// retry cycle was started for it.
func ObserveSyncConflict(retried bool) {
	if syncConflictsTotal == nil {
		return
	}
	syncConflictsTotal.Inc()
	if retried {
		syncConflictRetriesTotal.Inc()
	}
}

// ObserveSnapshotPublished records a fully synced snapshot.
func ObserveSnapshotPublished() {
	if snapshotsPublishedTotal == nil {
		return
	}
	snapshotsPublishedTotal.Inc()
}
