package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestReconcileMetricsCounters(t *testing.T) {
	m := NewReconcileMetrics(prometheus.NewRegistry(), Config{ServiceName: "clubledger", Environment: "test"})

	m.IncJobRun("ledger_backfill")
	m.AddMirrored("ledger_backfill", 3)
	m.AddMirrored("ledger_backfill", 0)
	m.IncJobError("ledger_backfill")
	m.ObserveJobDuration("ledger_backfill", 50*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("ledger_backfill")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.mirrored.WithLabelValues("ledger_backfill")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("ledger_backfill")))
}
