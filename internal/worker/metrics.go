package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry         *prometheus.Registry
	jobsTotal        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	activeJobs       prometheus.Gauge
	dominantScore    prometheus.Histogram
	outputBytesTotal *prometheus.CounterVec
	webhookFailures  *prometheus.CounterVec
	batchesCompleted prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logocrunch_worker_jobs_total",
			Help: "Finished logo tasks by representation and final status.",
		}, []string{"representation", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logocrunch_worker_job_duration_seconds",
			Help:    "Processing duration for each logo task.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logocrunch_worker_active_jobs",
			Help: "Logos currently being processed by the worker.",
		}),
		dominantScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logocrunch_worker_dominant_score",
			Help:    "Share of pixels in the dominant color cluster.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		outputBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logocrunch_worker_output_bytes_total",
			Help: "Bytes of finished documents by representation.",
		}, []string{"representation"}),
		webhookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logocrunch_worker_webhook_failures_total",
			Help: "Webhook deliveries that failed after all attempts.",
		}, []string{"event"}),
		batchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logocrunch_worker_batches_completed_total",
			Help: "Batches whose last logo was finished by this worker.",
		}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.jobDuration,
		m.activeJobs,
		m.dominantScore,
		m.outputBytesTotal,
		m.webhookFailures,
		m.batchesCompleted,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
