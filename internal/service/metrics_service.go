package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// progression engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	submissionsGraded  *prometheus.CounterVec
	certificatesMoved  *prometheus.CounterVec
	streakResets       prometheus.Counter
	recommendations    prometheus.Counter
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	sweepDuration      prometheus.Histogram
	notificationEmails *prometheus.CounterVec
}

// NewMetricsService registers the collectors.
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

	submissionsGraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_graded_total",
		Help: "Graded submissions by outcome",
	}, []string{"outcome"})

	certificatesMoved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificate_transitions_total",
		Help: "Certificate workflow transitions by target status",
	}, []string{"to"})

	streakResets := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streak_sweep_resets_total",
		Help: "Streaks zeroed by the maintenance sweep",
	})

	recommendations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "next_course_recommendations_total",
		Help: "Next-course recommendations computed",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "honor_roll_cache_hits_total",
		Help: "Honor roll cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "honor_roll_cache_misses_total",
		Help: "Honor roll cache misses",
	})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "streak_sweep_duration_seconds",
		Help:    "Duration of streak maintenance sweeps",
		Buckets: prometheus.DefBuckets,
	})

	notificationEmails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_emails_total",
		Help: "Notification emails by delivery result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissionsGraded, certificatesMoved,
		streakResets, recommendations, cacheHits, cacheMisses, sweepDuration, notificationEmails, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		submissionsGraded:  submissionsGraded,
		certificatesMoved:  certificatesMoved,
		streakResets:       streakResets,
		recommendations:    recommendations,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		sweepDuration:      sweepDuration,
		notificationEmails: notificationEmails,
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

// CountGrade records one grading outcome.
func (m *MetricsService) CountGrade(pass bool) {
	if m == nil {
		return
	}
	outcome := "corrections"
	if pass {
		outcome = "pass"
	}
	m.submissionsGraded.WithLabelValues(outcome).Inc()
}

// CountCertificateTransition records one workflow advance.
func (m *MetricsService) CountCertificateTransition(to string) {
	if m == nil {
		return
	}
	m.certificatesMoved.WithLabelValues(to).Inc()
}

// ObserveSweep records the outcome of one maintenance sweep.
func (m *MetricsService) ObserveSweep(reset int, duration time.Duration) {
	if m == nil {
		return
	}
	m.streakResets.Add(float64(reset))
	m.sweepDuration.Observe(duration.Seconds())
}

// CountRecommendation records one next-course computation.
func (m *MetricsService) CountRecommendation() {
	if m == nil {
		return
	}
	m.recommendations.Inc()
}

// RecordCacheLookup records a honor roll cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// CountEmail records a notification email delivery result.
func (m *MetricsService) CountEmail(ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "sent"
	}
	m.notificationEmails.WithLabelValues(result).Inc()
}
