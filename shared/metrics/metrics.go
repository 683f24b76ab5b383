package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Contract read metrics
	ContractReadsTotal  *prometheus.CounterVec
	ContractReadLatency *prometheus.HistogramVec

	// Transaction metrics
	TxSubmissionsTotal *prometheus.CounterVec

	// Price oracle metrics
	PriceFetchesTotal *prometheus.CounterVec
	PriceQuoteUSD     prometheus.Gauge

	// Pinning metrics
	PinUploadsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics(namespace, service string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		ContractReadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "contract_reads_total",
				Help:      "Total number of contract view calls",
			},
			[]string{"contract", "method", "outcome"},
		),
		ContractReadLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "contract_read_duration_seconds",
				Help:      "Contract view call latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"contract", "method"},
		),
		TxSubmissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "tx_submissions_total",
				Help:      "Total number of transaction submissions",
			},
			[]string{"function", "outcome"},
		),
		PriceFetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "price_fetches_total",
				Help:      "Total number of spot price fetch attempts",
			},
			[]string{"source", "outcome"},
		),
		PriceQuoteUSD: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "price_quote_usd",
				Help:      "Last known ETH/USD quote",
			},
		),
		PinUploadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: service,
				Name:      "pin_uploads_total",
				Help:      "Total number of asset pin uploads",
			},
			[]string{"kind", "outcome"},
		),
	}
}

// ObserveContractRead records one contract view call
func (m *Metrics) ObserveContractRead(contract, method string, err error, started time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ContractReadsTotal.WithLabelValues(contract, method, outcome).Inc()
	m.ContractReadLatency.WithLabelValues(contract, method).Observe(time.Since(started).Seconds())
}

// Handler returns the prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware instruments an http.Handler with request metrics
func (m *Metrics) HTTPMiddleware(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
