package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring service.
var (
	mintedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of tokens minted",
			Name:      "tokens_minted_total",
			Namespace: "compactmint",
		},
	)
	transferredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of tokens transferred",
			Name:      "tokens_transferred_total",
			Namespace: "compactmint",
		},
	)
	ownerScanDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Help:      "Backward scan distance of ownership resolutions",
			Name:      "owner_scan_depth",
			Namespace: "compactmint",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	mintIndexGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Current mint watermark",
			Name:      "mint_index",
			Namespace: "compactmint",
		},
	)
)

func updateMintedCounter(n uint64) {
	mintedCounter.Add(float64(n))
}

func updateTransferredCounter(n int) {
	transferredCounter.Add(float64(n))
}

func updateOwnerScanDepthMetric(depth uint64) {
	ownerScanDepth.Observe(float64(depth))
}

func updateMintIndexMetric(index uint64) {
	mintIndexGauge.Set(float64(index))
}

func init() {
	prometheus.MustRegister(
		mintedCounter,
		transferredCounter,
		ownerScanDepth,
		mintIndexGauge,
	)
}
