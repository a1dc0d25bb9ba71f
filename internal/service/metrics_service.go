package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. All Inc helpers
// are nil-safe so callers never need to guard.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	scansTotal     prometheus.Counter
	marksAccepted  prometheus.Counter
	duplicateScans prometheus.Counter
	invalidQRScans prometheus.Counter
	rowsAppended   prometheus.Counter
}

// NewMetricsService registers the core collectors.
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

	scansTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_scans_total",
		Help: "Total QR scans submitted to the ledger",
	})

	marksAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_marks_accepted_total",
		Help: "Scans that produced a new attendance row",
	})

	duplicateScans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_duplicate_rejections_total",
		Help: "Scans rejected because the student was already marked",
	})

	invalidQRScans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_invalid_qr_total",
		Help: "Scans rejected because the payload did not decode",
	})

	rowsAppended := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_rows_appended_total",
		Help: "Rows appended to the attendance sheet",
	})

	registry.MustRegister(requestDuration, requestTotal, scansTotal, marksAccepted, duplicateScans, invalidQRScans, rowsAppended)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		scansTotal:      scansTotal,
		marksAccepted:   marksAccepted,
		duplicateScans:  duplicateScans,
		invalidQRScans:  invalidQRScans,
		rowsAppended:    rowsAppended,
	}
}

// Handler exposes the /metrics endpoint handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// IncScan counts a submitted scan.
func (s *MetricsService) IncScan() {
	if s != nil {
		s.scansTotal.Inc()
	}
}

// IncMark counts an accepted mark.
func (s *MetricsService) IncMark() {
	if s != nil {
		s.marksAccepted.Inc()
	}
}

// IncDuplicate counts a duplicate rejection.
func (s *MetricsService) IncDuplicate() {
	if s != nil {
		s.duplicateScans.Inc()
	}
}

// IncInvalidQR counts an undecodable payload.
func (s *MetricsService) IncInvalidQR() {
	if s != nil {
		s.invalidQRScans.Inc()
	}
}

// IncRowAppended counts an appended sheet row.
func (s *MetricsService) IncRowAppended() {
	if s != nil {
		s.rowsAppended.Inc()
	}
}
