package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dunamismax/logocrunch/internal/domain"
)

// MetricsObserver exports batch progress to Prometheus.
type MetricsObserver struct {
	jobsTotal     *prometheus.CounterVec
	dominantScore prometheus.Histogram
	completed     prometheus.Gauge
	batchDuration prometheus.Histogram
}

func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	m := &MetricsObserver{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logocrunch_pipeline_jobs_total",
			Help: "Logos finished by the batch runner by representation and status.",
		}, []string{"representation", "status"}),
		dominantScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logocrunch_pipeline_dominant_score",
			Help:    "Share of pixels in the dominant color cluster.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logocrunch_pipeline_completed_jobs",
			Help: "Jobs completed by the runner, successful or not.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logocrunch_pipeline_batch_duration_seconds",
			Help:    "Wall time of a whole batch.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}
	reg.MustRegister(m.jobsTotal, m.dominantScore, m.completed, m.batchDuration)
	return m
}

func (m *MetricsObserver) JobFinished(out Outcome, err error, completed int64, _ int) {
	m.completed.Set(float64(completed))
	if err != nil {
		m.jobsTotal.WithLabelValues("none", domain.JobStatusFailed).Inc()
		return
	}
	m.jobsTotal.WithLabelValues(out.Representation, domain.JobStatusSucceeded).Inc()
	m.dominantScore.Observe(out.Dominant.Score)
}

func (m *MetricsObserver) BatchFinished(report Report) {
	m.batchDuration.Observe(report.Elapsed.Seconds())
}
