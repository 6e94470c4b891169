package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	reconciler = "reconciler"

	candidatesTotal       = "candidates_total"
	verifyAttemptsTotal   = "verify_attempts_total"
	verifyDurationMs      = "verify_duration_milliseconds"
	batchPausesTotal      = "batch_pauses_total"
	candidatesPendingName = "candidates_pending"

	// Labels
	statusLabel = "status"
	modeLabel   = "mode"
	resultLabel = "result"

	ModeDryRun = "dry_run"
	ModeLive   = "live"
)

/**
* Metrics definition
**/
var candidatesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reconciler,
		Name:      candidatesTotal,
		Help:      "number of candidates processed, by reconciled status and run mode",
	},
	[]string{statusLabel, modeLabel},
)

var verifyAttemptsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reconciler,
		Name:      verifyAttemptsTotal,
		Help:      "number of calls made to the external registry, by result",
	},
	[]string{resultLabel},
)

var verifyDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Subsystem: reconciler,
		Name:      verifyDurationMs,
		Help:      "latency of a single external registry call",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	},
)

var batchPausesTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: reconciler,
		Name:      batchPausesTotal,
		Help:      "number of pauses taken between batches",
	},
)

var candidatesPendingMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: reconciler,
		Name:      candidatesPendingName,
		Help:      "candidates selected by the current run and not yet processed",
	},
)

func IncreaseCandidatesTotalMetric(status string, dryRun bool) {
	mode := ModeLive
	if dryRun {
		mode = ModeDryRun
	}
	candidatesTotalMetric.With(prometheus.Labels{
		statusLabel: status,
		modeLabel:   mode,
	}).Inc()
}

func IncreaseVerifyAttemptsMetric(result string) {
	verifyAttemptsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func ObserveVerifyDuration(ms float64) {
	verifyDurationMetric.Observe(ms)
}

func IncreaseBatchPausesMetric() {
	batchPausesTotalMetric.Inc()
}

func SetCandidatesPendingMetric(count int) {
	candidatesPendingMetric.Set(float64(count))
}

func NewPrometheusMetricsHandler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(candidatesTotalMetric)
	prometheus.MustRegister(verifyAttemptsTotalMetric)
	prometheus.MustRegister(verifyDurationMetric)
	prometheus.MustRegister(batchPausesTotalMetric)
	prometheus.MustRegister(candidatesPendingMetric)
}
