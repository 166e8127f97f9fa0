package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResyncer struct {
	calls atomic.Int32
	err   error
}

func (r *countingResyncer) ResyncAll(ctx context.Context) error {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	return r.err
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("every so often", &countingResyncer{}, time.Second, nil)
	assert.Error(t, err)
}

func TestSchedulerRunsResync(t *testing.T) {
	target := &countingResyncer{}
	s, err := NewScheduler("@every 1s", target, time.Second, nil)
	require.NoError(t, err)
	s.Start()
	defer s.Stop(context.Background())

	assert.False(t, s.Next().IsZero())
	assert.Eventually(t, func() bool { return target.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunResyncToleratesFailure(t *testing.T) {
	target := &countingResyncer{err: errors.New("backend down")}
	s, err := NewScheduler("@every 1h", target, time.Second, nil)
	require.NoError(t, err)
	s.runResync()
	assert.Equal(t, int32(1), target.calls.Load())
}
