package rpcsrv

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring service.
var (
	rpcCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of calls to each RPC method",
			Name:      "rpc_calls_total",
			Namespace: "compactmint",
		},
		[]string{"method"},
	)
	rpcTimes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Help:      "RPC method handling time",
			Name:      "rpc_call_seconds",
			Namespace: "compactmint",
		},
		[]string{"method"},
	)
)

func incCounter(method string) {
	rpcCounter.WithLabelValues(method).Inc()
}

func observeDuration(method string, d time.Duration) {
	rpcTimes.WithLabelValues(method).Observe(d.Seconds())
}

func init() {
	prometheus.MustRegister(rpcCounter, rpcTimes)
}
