package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK        = "ok"
	outcomeTruncated = "truncated"
	outcomeMalformed = "malformed"
)

const (
	authAccepted = "accepted"
	authMissing  = "missing"
	authRejected = "rejected"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	validationsTotal  *prometheus.CounterVec
	decodesTotal      *prometheus.CounterVec
	decodeDuration    *prometheus.HistogramVec
	httpRequestsTotal *prometheus.CounterVec
	authTotal         *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		validationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hywire_validations_total",
				Help: "Total number of structural validations by outcome",
			},
			[]string{"outcome"},
		),
		decodesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hywire_decodes_total",
				Help: "Total number of message decodes by outcome",
			},
			[]string{"outcome"},
		),
		decodeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hywire_decode_duration_seconds",
				Help:    "Time spent decoding messages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"message"},
		),
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hywire_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		authTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hywire_auth_total",
				Help: "Total number of API key checks by verdict",
			},
			[]string{"verdict"},
		),
	}
}

// RecordValidation records one validation outcome
func (m *Metrics) RecordValidation(outcome string) {
	if m == nil {
		return
	}
	m.validationsTotal.WithLabelValues(outcome).Inc()
}

// RecordDecode records one decode outcome and its duration
func (m *Metrics) RecordDecode(message, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.decodesTotal.WithLabelValues(outcome).Inc()
	if message != "" {
		m.decodeDuration.WithLabelValues(message).Observe(d.Seconds())
	}
}

// RecordRequest records one HTTP request
func (m *Metrics) RecordRequest(method, endpoint, status string) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// RecordAuth records one API key check verdict
func (m *Metrics) RecordAuth(verdict string) {
	if m == nil {
		return
	}
	m.authTotal.WithLabelValues(verdict).Inc()
}
