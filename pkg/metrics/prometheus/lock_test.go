package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/marmos91/sandboxfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newLockMetrics(reg)

	m.RecordGrant("default", "move", "exclusive")
	m.RecordGrant("default", "move", "exclusive")
	m.RecordDenial("default", "remove", "descendant")
	m.RecordRelease("default", "move", "settled", 5*time.Millisecond)
	m.SetActiveOperations("default", 1)
	m.SetLockedEntries("default", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.grantsTotal.WithLabelValues("default", "move", "exclusive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.denialsTotal.WithLabelValues("default", "remove", "descendant")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.releasesTotal.WithLabelValues("default", "move", "settled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeOperations.WithLabelValues("default")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lockedEntries.WithLabelValues("default")))

	count, err := testutil.GatherAndCount(reg, "sandboxfs_lock_hold_duration_milliseconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSandboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSandboxMetrics(reg)

	m.RecordOperation("default", "move", time.Millisecond, nil)
	m.RecordOperation("default", "move", time.Millisecond, errors.New("conflict"))
	m.RecordThrottled("default")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("default", "move", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("default", "move", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.throttledTotal.WithLabelValues("default")))
}

func TestConstructors_DisabledReturnNoop(t *testing.T) {
	if metrics.IsEnabled() {
		t.Skip("global registry already initialized")
	}
	assert.Equal(t, metrics.NewNoopLockMetrics(), NewLockMetrics())
	assert.Equal(t, metrics.NewNoopSandboxMetrics(), NewSandboxMetrics())
}
