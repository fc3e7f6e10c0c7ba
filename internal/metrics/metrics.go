// Package metrics はPrometheusの計測器を提供します。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はスナップショット配信の計測器一式
type Metrics struct {
	SnapshotRequests *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	PreviewRequests  *prometheus.CounterVec
}

// New は計測器を作成してレジストリに登録する
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SnapshotRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camproxy",
			Name:      "snapshot_requests_total",
			Help:      "Snapshot requests by camera, quality and outcome.",
		}, []string{"camera", "quality", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "camproxy",
			Name:      "snapshot_fetch_duration_seconds",
			Help:      "Upstream snapshot fetch duration by vendor.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"vendor"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "camproxy",
			Name:      "cache_hits_total",
			Help:      "Snapshot cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "camproxy",
			Name:      "cache_misses_total",
			Help:      "Snapshot cache misses.",
		}),
		PreviewRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camproxy",
			Name:      "preview_requests_total",
			Help:      "Preview requests by camera and outcome.",
		}, []string{"camera", "outcome"}),
	}

	reg.MustRegister(
		m.SnapshotRequests,
		m.FetchDuration,
		m.CacheHits,
		m.CacheMisses,
		m.PreviewRequests,
	)

	return m
}
