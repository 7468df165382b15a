package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync
	SyncBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitadmin_sync_batches_total",
			Help: "Total number of sync batches by type and resulting status",
		},
		[]string{"sync_type", "status"},
	)

	SyncRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitadmin_sync_records_total",
			Help: "Total number of synced records by type and outcome",
		},
		[]string{"sync_type", "outcome"}, // "committed", "errored"
	)

	SyncBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitadmin_sync_batch_size",
			Help:    "Number of records per sync batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"sync_type"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitadmin_sync_duration_seconds",
			Help:    "Duration of sync batch reconciliation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sync_type"},
	)

	// Playback
	PlaybackNegotiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitadmin_playback_negotiations_total",
			Help: "Total number of HLS session negotiations by outcome",
		},
		[]string{"outcome"},
	)

	PlaybackNegotiationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fitadmin_playback_negotiation_duration_seconds",
			Help:    "Duration of the endpoint plus session URL round trips",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Cache
	StatisticsCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitadmin_statistics_cache_hits_total",
			Help: "Total number of statistics cache hits",
		},
	)

	StatisticsCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitadmin_statistics_cache_misses_total",
			Help: "Total number of statistics cache misses",
		},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitadmin_websocket_connections_active",
			Help: "Current number of dashboard websocket connections",
		},
	)
)

func RecordSyncBatch(syncType, status string, total, errored int, duration time.Duration) {
	SyncBatches.WithLabelValues(syncType, status).Inc()
	SyncRecords.WithLabelValues(syncType, "committed").Add(float64(total - errored))
	SyncRecords.WithLabelValues(syncType, "errored").Add(float64(errored))
	SyncBatchSize.WithLabelValues(syncType).Observe(float64(total))
	SyncDuration.WithLabelValues(syncType).Observe(duration.Seconds())
}

func RecordPlaybackNegotiation(outcome string, duration time.Duration) {
	PlaybackNegotiations.WithLabelValues(outcome).Inc()
	if duration > 0 {
		PlaybackNegotiationDuration.Observe(duration.Seconds())
	}
}

func RecordStatisticsCache(hit bool) {
	if hit {
		StatisticsCacheHits.Inc()
		return
	}
	StatisticsCacheMisses.Inc()
}
