package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()
	once     sync.Once

	matchingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "matching_latency_seconds",
		Help:    "Latency of one order submission end to end.",
		Buckets: prometheus.DefBuckets,
	})
	ordersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_submitted_total",
			Help: "Orders accepted by the engine.",
		},
		[]string{"ticker", "kind"},
	)
	ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Orders rejected at admission.",
		},
		[]string{"reason"},
	)
	fillsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fills_executed_total",
			Help: "Fills executed.",
		},
		[]string{"ticker"},
	)
	bookDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "book_depth",
			Help: "Resting orders per book side.",
		},
		[]string{"ticker", "side"},
	)
)

// Init registers metrics with the registry once.
func Init() {
	once.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			matchingLatency,
			ordersSubmitted,
			ordersRejected,
			fillsExecuted,
			bookDepth,
		)
	})
}

// Handler exposes the Prometheus metrics endpoint handler.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveMatchingLatency records one submission's latency.
func ObserveMatchingLatency(d time.Duration) {
	Init()
	matchingLatency.Observe(d.Seconds())
}

// IncOrdersSubmitted counts an accepted order; kind is "limit" or
// "market".
func IncOrdersSubmitted(ticker, kind string) {
	Init()
	ordersSubmitted.WithLabelValues(ticker, kind).Inc()
}

// IncOrdersRejected counts a rejection by reason.
func IncOrdersRejected(reason string) {
	Init()
	ordersRejected.WithLabelValues(reason).Inc()
}

// IncFills counts an executed fill for a token.
func IncFills(ticker string) {
	Init()
	fillsExecuted.WithLabelValues(ticker).Inc()
}

// SetBookDepth records the resting order count for a book side.
func SetBookDepth(ticker, side string, depth float64) {
	Init()
	bookDepth.WithLabelValues(ticker, side).Set(depth)
}
