package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"sdncontrol/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectHostStatus(t *testing.T) {
	status, err := CollectHostStatus()
	if err != nil {
		t.Skipf("host status unavailable in this environment: %v", err)
	}
	assert.GreaterOrEqual(t, status.CPUPercent, 0.0)
	assert.Greater(t, status.MemoryPercent, 0.0)
	assert.NotEmpty(t, status.Hostname)
	assert.False(t, status.CollectedAt.IsZero())
}

func TestStatusReporter(t *testing.T) {
	registry := metrics.NewRegistry()
	reporter := NewStatusReporter(10*time.Millisecond, registry)

	_, ok := reporter.Latest()
	assert.False(t, ok)

	reporter.collect = func() (HostStatus, error) {
		return HostStatus{CPUPercent: 12.5, MemoryPercent: 40, Load1: 0.5}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reporter.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := reporter.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	status, _ := reporter.Latest()
	assert.Equal(t, 12.5, status.CPUPercent)
	assert.Equal(t, 40.0, testutil.ToFloat64(registry.HostMemoryPercent))
}

func TestStatusReporterKeepsLastGoodSample(t *testing.T) {
	reporter := NewStatusReporter(0, nil)
	reporter.collect = func() (HostStatus, error) {
		return HostStatus{CPUPercent: 1}, nil
	}
	_, err := reporter.Refresh()
	require.NoError(t, err)

	reporter.collect = func() (HostStatus, error) {
		return HostStatus{}, errors.New("procfs gone")
	}
	_, err = reporter.Refresh()
	assert.Error(t, err)

	status, ok := reporter.Latest()
	assert.True(t, ok)
	assert.Equal(t, 1.0, status.CPUPercent)

	reporter.Run(context.Background()) // disabled interval returns at once
}
