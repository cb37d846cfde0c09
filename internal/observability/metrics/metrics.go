package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK labels successful calculations; failures use the error code.
const OutcomeOK = "ok"

// Metrics exposes Prometheus instruments for the calculator, report and export paths.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	calculations *prometheus.CounterVec
	reportsSaved *prometheus.CounterVec
	exports      *prometheus.CounterVec
	exportBytes  *prometheus.HistogramVec
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
}

// New registers the instruments on reg. A nil registerer uses the default registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cbam_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cbam_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cbam_calculations_total",
			Help: "Emission calculations by outcome.",
		}, []string{"outcome"}),
		reportsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cbam_reports_saved_total",
			Help: "Report rows persisted by product type.",
		}, []string{"product_type"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cbam_exports_total",
			Help: "Generated documents by format and status.",
		}, []string{"format", "status"}),
		exportBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cbam_export_size_bytes",
			Help:    "Generated document size.",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 10),
		}, []string{"format"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cbam_scheduler_job_runs_total",
			Help: "Background job runs by job and status.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cbam_scheduler_job_duration_seconds",
			Help:    "Background job duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequests, m.httpDuration, m.calculations, m.reportsSaved, m.exports, m.exportBytes,
		m.jobRuns, m.jobDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveHTTP records a completed request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(method)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordCalculation(outcome string) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordReportSaved(productType string) {
	if m == nil {
		return
	}
	m.reportsSaved.WithLabelValues(productType).Inc()
}

// RecordExport counts one document generation attempt. size is ignored on failure.
func (m *Metrics) RecordExport(format string, size int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.exports.WithLabelValues(format, status).Inc()
	if err == nil {
		m.exportBytes.WithLabelValues(format).Observe(float64(size))
	}
}

// RecordJob counts one scheduler run. Skipped runs pass skipped=true.
func (m *Metrics) RecordJob(job string, elapsed time.Duration, skipped bool, err error) {
	if m == nil {
		return
	}
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case skipped:
		status = "skipped"
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	if !skipped {
		m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	}
}
