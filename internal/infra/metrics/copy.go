package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		copyJobsFinishedTotal,
		copyPhaseDuration,
		copyProgressWritesTotal,
		copyTerminalWriteFailuresTotal,
		copyQueueDepth,
	)
}

var (
	copyJobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copy_jobs_finished_total",
			Help: "Copy jobs that reached a terminal status, by kind and status.",
		},
		[]string{"kind", "status"},
	)

	copyPhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copy_phase_duration_seconds",
			Help:    "Wall time of export and import phases.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 180, 600, 1800, 3600},
		},
		[]string{"kind", "success"},
	)

	copyProgressWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copy_progress_writes_total",
			Help: "Progress reports, by outcome (written, throttled, failed).",
		},
		[]string{"result"},
	)

	copyTerminalWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copy_terminal_write_failures_total",
			Help: "Terminal status writes that failed after every retry.",
		},
	)

	copyQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copy_queue_depth",
			Help: "Copy tasks waiting in the queue.",
		},
	)
)

func IncCopyJobFinished(kind, status string) {
	copyJobsFinishedTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func ObservePhase(kind string, d time.Duration, success bool) {
	copyPhaseDuration.WithLabelValues(norm(kind), strconv.FormatBool(success)).Observe(d.Seconds())
}

func IncProgressWrite(result string) {
	copyProgressWritesTotal.WithLabelValues(norm(result)).Inc()
}

func IncTerminalWriteFailure() {
	copyTerminalWriteFailuresTotal.Inc()
}

func SetQueueDepth(n int64) {
	copyQueueDepth.Set(float64(n))
}
