package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm-payroll/internal/platform/metrics"
)

func TestRunNowRecordsMetrics(t *testing.T) {
	m := metrics.New()
	svc := New(m)

	out, err := svc.RunNow(context.Background(), JobPayrollBatch, func(ctx context.Context) (any, error) {
		return 3, errors.New("one employee failed")
	})

	assert.Equal(t, 3, out)
	assert.EqualError(t, err, "one employee failed")
	assert.Contains(t, m.Snapshot()["jobs"], JobPayrollBatch)
}

func TestScheduledJobRunsUntilCancelled(t *testing.T) {
	svc := New(nil)
	var runs atomic.Int32
	svc.Every(JobOutboxRelay, 5*time.Millisecond, func(ctx context.Context) (any, error) {
		runs.Add(1)
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	svc.Wait()
}

func TestEveryIgnoresNonPositiveInterval(t *testing.T) {
	svc := New(nil)
	svc.Every(JobOutboxRelay, 0, func(ctx context.Context) (any, error) { return nil, nil })
	assert.Empty(t, svc.schedules)
}
