package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Metrics bundles Prometheus collectors for the bot.
type Metrics struct {
	Registry           *prometheus.Registry
	FetchRequestsTotal *prometheus.CounterVec
	FetchDuration      prometheus.Histogram
	FetchRetriesTotal  prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
	CyclesTotal        *prometheus.CounterVec
	CodesAddedTotal    prometheus.Counter
	MemoSize           prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetchRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redeembot_fetch_requests_total",
			Help: "Total HTTP requests issued against the wiki.",
		},
		[]string{"phase"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "redeembot_fetch_duration_seconds",
			Help:    "HTTP request latency for wiki fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	fetchRetries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redeembot_fetch_retries_total",
			Help: "Total number of fetch retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redeembot_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	cyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redeembot_cycles_total",
			Help: "Total scrape cycles by outcome.",
		},
		[]string{"outcome"},
	)
	codesAdded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redeembot_codes_added_total",
			Help: "Total number of newly discovered redeem codes.",
		},
	)
	memoSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "redeembot_memo_size",
			Help: "Number of codes in the memo after the last successful cycle.",
		},
	)

	registry.MustRegister(fetchRequests, fetchDuration, fetchRetries, errorsTotal, cyclesTotal, codesAdded, memoSize)

	return &Metrics{
		Registry:           registry,
		FetchRequestsTotal: fetchRequests,
		FetchDuration:      fetchDuration,
		FetchRetriesTotal:  fetchRetries,
		ErrorsTotal:        errorsTotal,
		CyclesTotal:        cyclesTotal,
		CodesAddedTotal:    codesAdded,
		MemoSize:           memoSize,
	}
}

// IncRequest increments the fetch requests counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.FetchRequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.FetchRetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCycle increments the cycles counter for an outcome label.
func (m *Metrics) IncCycle(outcome string) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
}

// AddCodes counts newly discovered codes.
func (m *Metrics) AddCodes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CodesAddedTotal.Add(float64(n))
}

// SetMemoSize records the current memo size.
func (m *Metrics) SetMemoSize(n int) {
	if m == nil {
		return
	}
	m.MemoSize.Set(float64(n))
}
