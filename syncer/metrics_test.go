package syncer

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/utilitywarehouse/git-watch-mirror/resolve"
)

func testResult(status Status) Result {
	return Result{
		Entry:    resolve.Entry{LocalPath: "alice/x"},
		Status:   status,
		Duration: time.Second,
	}
}

func Test_recordSync(t *testing.T) {
	// recorders are no-op until metrics are enabled
	recordSync(testResult(StatusCloned))

	reg := prometheus.NewRegistry()
	EnableMetrics("test", reg)
	t.Cleanup(func() {
		lastSyncTimestamp, syncCount, syncLatency = nil, nil, nil
	})

	recordSync(testResult(StatusCloned))
	recordSync(testResult(StatusUpdated))
	recordSync(testResult(StatusFailed))

	if got := testutil.ToFloat64(syncCount.WithLabelValues("alice/x", string(StatusCloned))); got != 1 {
		t.Errorf("cloned count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(syncCount.WithLabelValues("alice/x", string(StatusFailed))); got != 1 {
		t.Errorf("failed count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(lastSyncTimestamp.WithLabelValues("alice/x")); got == 0 {
		t.Errorf("last sync timestamp was not set")
	}
	if got := testutil.CollectAndCount(syncLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}
