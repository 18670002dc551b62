package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	imbalance  *prometheus.GaugeVec
	imbalanced *prometheus.CounterVec
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
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// ObserveIntegrity records the outcome of one tenant's ledger check. The
// imbalance gauge holds the absolute debit/credit difference of the last run.
func (m *Metrics) ObserveIntegrity(tenant string, difference float64, balanced bool) {
	if m == nil {
		return
	}
	if difference < 0 {
		difference = -difference
	}
	m.imbalance.WithLabelValues(tenant).Set(difference)
	if !balanced {
		m.imbalanced.WithLabelValues(tenant).Inc()
	}
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgersg_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgersg_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgersg_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	imbalance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledgersg_ledger_imbalance",
		Help: "Absolute difference between total debits and credits at the last integrity check.",
	}, []string{"tenant"})
	imbalanced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgersg_ledger_imbalanced_total",
		Help: "Integrity checks that found debits and credits out of balance.",
	}, []string{"tenant"})
	registerer.MustRegister(runs, failures, duration, imbalance, imbalanced)
	return &Metrics{runs: runs, failures: failures, duration: duration, imbalance: imbalance, imbalanced: imbalanced}
}
