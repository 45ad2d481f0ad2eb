package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/frescapp/backoffice/internal/shared"
)

// Run statuses recorded on backoffice_jobs_total.
const (
	StatusSuccess     = "success"
	StatusFailure     = "failure"
	StatusUnavailable = "unavailable"
	StatusContended   = "contended"
)

// Metrics exposes Prometheus collectors for background jobs and closing runs.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	steps     *prometheus.CounterVec
	closeRuns *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer, or the default Prometheus registerer
// when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker times one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// RunStatus classifies a run result. A date already being closed elsewhere is contention, not a
// failure; an unreachable store is reported apart from other failures.
func RunStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, shared.ErrCloseInProgress):
		return StatusContended
	case shared.IsUnavailable(err):
		return StatusUnavailable
	default:
		return StatusFailure
	}
}

// End records the run and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := RunStatus(err)
	if status == StatusFailure || status == StatusUnavailable {
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// EndClose records a closing run together with the saga state it stopped in.
func (t *Tracker) EndClose(state string, err error) error {
	if t != nil && t.metrics != nil && state != "" {
		t.metrics.closeRuns.WithLabelValues(state).Inc()
	}
	return t.End(err)
}

// ObserveStep counts one closing step outcome.
func (m *Metrics) ObserveStep(step, outcome string) {
	if m == nil || step == "" {
		return
	}
	m.steps.WithLabelValues(step, outcome).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_jobs_total",
			Help: "Background job runs by job and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_jobs_failures_total",
			Help: "Failed background job runs, unavailable storage included.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_job_duration_seconds",
			Help:    "Duration in seconds of background job runs.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_closing_steps_total",
			Help: "Closing saga step outcomes by step and outcome.",
		}, []string{"step", "outcome"}),
		closeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_closing_runs_total",
			Help: "Closing runs by the saga state they ended in.",
		}, []string{"state"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.steps, m.closeRuns)
	return m
}
