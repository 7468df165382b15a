package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSyncBatch(t *testing.T) {
	committed := testutil.ToFloat64(SyncRecords.WithLabelValues("test_results", "committed"))
	errored := testutil.ToFloat64(SyncRecords.WithLabelValues("test_results", "errored"))
	batches := testutil.ToFloat64(SyncBatches.WithLabelValues("test_results", "partial"))

	RecordSyncBatch("test_results", "partial", 5, 2, 10*time.Millisecond)

	assert.Equal(t, committed+3, testutil.ToFloat64(SyncRecords.WithLabelValues("test_results", "committed")))
	assert.Equal(t, errored+2, testutil.ToFloat64(SyncRecords.WithLabelValues("test_results", "errored")))
	assert.Equal(t, batches+1, testutil.ToFloat64(SyncBatches.WithLabelValues("test_results", "partial")))
}

func TestRecordPlaybackNegotiation(t *testing.T) {
	before := testutil.ToFloat64(PlaybackNegotiations.WithLabelValues("not_found"))
	RecordPlaybackNegotiation("not_found", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(PlaybackNegotiations.WithLabelValues("not_found")))
}

func TestRecordStatisticsCache(t *testing.T) {
	hits := testutil.ToFloat64(StatisticsCacheHits)
	misses := testutil.ToFloat64(StatisticsCacheMisses)

	RecordStatisticsCache(true)
	RecordStatisticsCache(false)
	RecordStatisticsCache(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(StatisticsCacheHits))
	assert.Equal(t, misses+2, testutil.ToFloat64(StatisticsCacheMisses))
}
