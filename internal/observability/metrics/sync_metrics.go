package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics holds order-sync job instruments.
type SyncMetrics struct {
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobTimeouts   *prometheus.CounterVec
	jobErrors     *prometheus.CounterVec
	tokensIssued  prometheus.Counter
	ordersSkipped *prometheus.CounterVec
	emailFailures prometheus.Counter
}

// NewSyncMetrics registers sync instruments on the default registerer.
func NewSyncMetrics(cfg Config) *SyncMetrics {
	return newSyncMetrics(prometheus.DefaultRegisterer, cfg)
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	constLabels := constLabelsFor(cfg)

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "sproutlink_sync_job_runs_total",
		Help:        "Order sync job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "sproutlink_sync_job_duration_seconds",
		Help:        "Order sync job latency.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "sproutlink_sync_job_timeouts_total",
		Help:        "Order sync jobs ended by their run timeout.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "sproutlink_sync_job_errors_total",
		Help:        "Order sync job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	tokensIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sproutlink_registration_tokens_issued_total",
		Help:        "Registration tokens minted for new orders.",
		ConstLabels: constLabels,
	})
	ordersSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "sproutlink_sync_orders_skipped_total",
		Help:        "Orders skipped during sync by reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	emailFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sproutlink_registration_email_failures_total",
		Help:        "Registration emails that failed to send despite an issued token.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobTimeouts,
		jobErrors,
		tokensIssued,
		ordersSkipped,
		emailFailures,
	)

	return &SyncMetrics{
		jobRuns:       jobRuns,
		jobDuration:   jobDuration,
		jobTimeouts:   jobTimeouts,
		jobErrors:     jobErrors,
		tokensIssued:  tokensIssued,
		ordersSkipped: ordersSkipped,
		emailFailures: emailFailures,
	}
}

func (m *SyncMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SyncMetrics) ObserveJobDuration(job string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *SyncMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *SyncMetrics) IncJobError(job string, err error) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, errorReason(err)).Inc()
}

func (m *SyncMetrics) IncTokensIssued(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensIssued.Add(float64(n))
}

func (m *SyncMetrics) IncOrdersSkipped(reason string) {
	if m == nil {
		return
	}
	m.ordersSkipped.WithLabelValues(reason).Inc()
}

func (m *SyncMetrics) IncEmailFailure() {
	if m == nil {
		return
	}
	m.emailFailures.Inc()
}

func errorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
