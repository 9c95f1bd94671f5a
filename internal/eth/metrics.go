package eth

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type rpcMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	txs      *prometheus.CounterVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics
)

func defaultRPCMetrics() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dappkit",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "JSON-RPC requests issued to the chain node, by method and outcome.",
			}, []string{"method", "outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "dappkit",
				Subsystem: "rpc",
				Name:      "duration_seconds",
				Help:      "Latency of JSON-RPC requests issued to the chain node.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			txs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dappkit",
				Subsystem: "contract",
				Name:      "transactions_total",
				Help:      "Contract transactions by contract, method and final status.",
			}, []string{"contract", "method", "status"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.duration,
			rpcRegistry.txs,
		)
	})
	return rpcRegistry
}

func recordRPC(method string, elapsed time.Duration, err error) {
	m := defaultRPCMetrics()
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func recordTx(contract, method, status string) {
	defaultRPCMetrics().txs.WithLabelValues(contract, method, status).Inc()
}
