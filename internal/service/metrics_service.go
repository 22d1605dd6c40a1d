package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the grade
// lifecycle endpoints and background export workers.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	gradesSubmitted prometheus.Counter
	decisions       *prometheus.CounterVec
	changeRequests  prometheus.Counter
	reportBuilds    *prometheus.HistogramVec
	exportJobs      *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	gradesSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grades_submitted_total",
		Help: "Total grade records created by teacher submissions",
	})

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_decisions_total",
		Help: "Total administrator decisions applied to grade records",
	}, []string{"decision"})

	changeRequests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grade_change_requests_total",
		Help: "Total change requests staged against decided grades",
	})

	reportBuilds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_build_duration_seconds",
		Help:    "Duration of report aggregation passes",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_export_jobs_total",
		Help: "Total export jobs by terminal status",
	}, []string{"status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_cache_hits_total",
		Help: "Total report cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_cache_misses_total",
		Help: "Total report cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, gradesSubmitted, decisions,
		changeRequests, reportBuilds, exportJobs, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		gradesSubmitted: gradesSubmitted,
		decisions:       decisions,
		changeRequests:  changeRequests,
		reportBuilds:    reportBuilds,
		exportJobs:      exportJobs,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// CountSubmittedGrades adds newly created grade records.
func (m *MetricsService) CountSubmittedGrades(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.gradesSubmitted.Add(float64(n))
}

// CountDecisions adds applied administrator decisions.
func (m *MetricsService) CountDecisions(decision string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.decisions.WithLabelValues(decision).Add(float64(n))
}

// CountChangeRequest counts one staged change request.
func (m *MetricsService) CountChangeRequest() {
	if m == nil {
		return
	}
	m.changeRequests.Inc()
}

// ObserveReportBuild records the duration of one aggregation pass.
func (m *MetricsService) ObserveReportBuild(reportType string, duration time.Duration) {
	if m == nil {
		return
	}
	m.reportBuilds.WithLabelValues(reportType).Observe(duration.Seconds())
}

// CountExportJob counts an export job reaching a terminal status.
func (m *MetricsService) CountExportJob(status string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(status).Inc()
}

// RecordCacheOperation records a report cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
