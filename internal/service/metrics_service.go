package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the admission
// workflow. All methods are nil-safe so wiring stays optional in tests.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	finalized       prometheus.Counter
	otpFailures     prometheus.Counter
	grantsConsumed  prometheus.Counter
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

	finalized := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "admission_finalizations_total",
		Help: "Total pending submissions finalized into durable records",
	})

	otpFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "admission_otp_failures_total",
		Help: "Total failed OTP verification attempts",
	})

	grantsConsumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "admission_edit_grants_consumed_total",
		Help: "Total single-use edit windows consumed by student resubmissions",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, finalized, otpFailures, grantsConsumed, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		finalized:       finalized,
		otpFailures:     otpFailures,
		grantsConsumed:  grantsConsumed,
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

// IncFinalized counts a completed finalization.
func (m *MetricsService) IncFinalized() {
	if m == nil {
		return
	}
	m.finalized.Inc()
}

// IncOTPFailure counts a rejected OTP attempt.
func (m *MetricsService) IncOTPFailure() {
	if m == nil {
		return
	}
	m.otpFailures.Inc()
}

// IncGrantConsumed counts a consumed edit window.
func (m *MetricsService) IncGrantConsumed() {
	if m == nil {
		return
	}
	m.grantsConsumed.Inc()
}
