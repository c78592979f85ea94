package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector this service exposes on /metrics.
var Registry = prometheus.NewRegistry()

var (
	ledgerOps = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Total number of ledger operations by outcome.",
	}, []string{"op", "result"})

	payoutFailures = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "ledger_payout_failures_total",
		Help: "Total number of committed sales whose host payout failed.",
	})

	panicsTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "http_req_panics_recovered_total",
		Help: "Total number of HTTP requests recovered from internal panic.",
	})

	httpDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route, method and status code.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6},
	}, []string{"route", "method", "code"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// LedgerOp counts one finished ledger operation. result is "ok" or an error class.
func LedgerOp(op, result string) {
	ledgerOps.WithLabelValues(op, result).Inc()
}

func PayoutFailed() {
	payoutFailures.Inc()
}

func PanicRecovered() {
	panicsTotal.Inc()
}

func ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	httpDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
