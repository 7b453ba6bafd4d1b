package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the scanner's prometheus collectors.
type Metrics struct {
	LastProcessedBlock prometheus.Gauge
	BlockErrors        prometheus.Counter
	BlockDuration      prometheus.Histogram

	SwapsRecorded *prometheus.CounterVec
	PoolsResolved *prometheus.CounterVec
	NativePrice   prometheus.Gauge
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LastProcessedBlock: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "yieldscope",
			Name:      "last_processed_block",
			Help:      "Block number of the last block fully processed by the scan loop.",
		}),
		BlockErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "yieldscope",
			Name:      "block_errors_total",
			Help:      "Failed block processing attempts; the block is retried.",
		}),
		BlockDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "yieldscope",
			Name:      "block_processing_duration_seconds",
			Help:      "Time spent processing a single block.",
			Buckets:   prometheus.DefBuckets,
		}),
		SwapsRecorded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "yieldscope",
			Name:      "swaps_recorded_total",
			Help:      "Swaps folded into a volume window, by protocol.",
		}, []string{"protocol"}),
		PoolsResolved: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "yieldscope",
			Name:      "pools_resolved_total",
			Help:      "Pool registry resolutions that hit the chain, by outcome.",
		}, []string{"outcome"}),
		NativePrice: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "yieldscope",
			Name:      "native_price",
			Help:      "Latest native token price in the stable reference unit.",
		}),
	}
}

// Nop returns collectors registered on a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
