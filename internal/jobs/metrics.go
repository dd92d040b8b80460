package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	skipped  *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track spawns a tracker for the given task type.
func (m *Metrics) Track(task string) *Tracker {
	if m == nil {
		return &Tracker{task: task, start: time.Now()}
	}
	return &Tracker{metrics: m, task: task, start: time.Now()}
}

// End finalises the tracker, recording duration and result, and
// returns the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.task == "" {
		return err
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	t.metrics.runs.WithLabelValues(t.task, result).Inc()
	t.metrics.duration.WithLabelValues(t.task).Observe(time.Since(t.start).Seconds())
	return err
}

// Skip records a run that completed without doing work.
func (t *Tracker) Skip(reason string) {
	if t == nil || t.metrics == nil || t.task == "" {
		return
	}
	t.metrics.runs.WithLabelValues(t.task, "skipped").Inc()
	t.metrics.skipped.WithLabelValues(t.task, reason).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "neighbora_jobs_total",
		Help: "Job executions partitioned by task type and result.",
	}, []string{"task", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neighbora_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "neighbora_jobs_skipped_total",
		Help: "Job runs that did no work, by reason.",
	}, []string{"task", "reason"})
	registerer.MustRegister(runs, duration, skipped)
	return &Metrics{runs: runs, duration: duration, skipped: skipped}
}
