// Package metrics exposes the Prometheus collectors of the decision layer.
package metrics

import (
	"net/http"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cebx"

// Registry holds every collector of this package plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	SignalCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "signals",
		Name:      "cache_hits_total",
		Help:      "Shipment counts served from cache",
	})
	SignalCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "signals",
		Name:      "cache_misses_total",
		Help:      "Shipment counts read from the repository",
	})

	FraudScans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fraud",
		Name:      "scans_total",
		Help:      "Fraud scans by tier",
	}, []string{"tier"})
	FraudScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "fraud",
		Name:      "score",
		Help:      "Distribution of fraud scores",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
	BatchScans = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fraud",
		Name:      "batch_scans_total",
		Help:      "Completed batch scans",
	})

	Quotes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pricing",
		Name:      "quotes_total",
		Help:      "Price quotes by mode",
	}, []string{"mode"})
	CombinedFactor = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pricing",
		Name:      "combined_factor",
		Help:      "Distribution of clamped combined pricing factors",
		Buckets:   prometheus.LinearBuckets(0.6, 0.1, 9),
	})

	Commissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "commission",
		Name:      "amount_total",
		Help:      "Commission amounts by type",
	}, []string{"type"})

	SignalFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signal_failures_total",
		Help:      "Engine calls that failed on the signal source",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SignalCacheHits,
		SignalCacheMisses,
		FraudScans,
		FraudScore,
		BatchScans,
		Quotes,
		CombinedFactor,
		Commissions,
		SignalFailures,
		HTTPRequests,
		HTTPDuration,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveScan records a fraud scan.
func ObserveScan(r *domain.FraudScanResult) {
	FraudScans.WithLabelValues(string(r.Tier)).Inc()
	FraudScore.Observe(r.FraudScore)
}

// ObserveQuote records a price quote.
func ObserveQuote(q *domain.PricingQuote) {
	Quotes.WithLabelValues(string(q.Mode)).Inc()
	CombinedFactor.Observe(q.Factors.Combined)
}

// ObserveCommission records the lines of a commission result.
func ObserveCommission(r *domain.CommissionResult) {
	for _, line := range r.Commissions {
		Commissions.WithLabelValues(string(line.Type)).Add(line.Commission)
	}
}
