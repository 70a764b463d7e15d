package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseWatch/internal/domain/models"
	"PulseWatch/pkg/cache"
	"PulseWatch/pkg/logger"
)

type blockingRunner struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
}

func (b *blockingRunner) RunTick(context.Context) models.TickReport {
	n := b.calls.Add(1)
	if b.started != nil {
		b.started <- struct{}{}
	}
	if b.release != nil {
		<-b.release
	}
	return models.TickReport{TickID: "t", Monitored: int(n)}
}

func TestScheduler_TriggerRejectsOverlap(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewScheduler(runner, nil, logger.NewNop(), SchedulerConfig{Interval: time.Hour})

	done := make(chan models.TickReport)
	go func() {
		r, _ := s.Trigger(context.Background())
		done <- r
	}()
	<-runner.started
	assert.True(t, s.Running())

	_, err := s.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrTickInProgress)

	close(runner.release)
	r := <-done
	assert.Equal(t, 1, r.Monitored)
	assert.Equal(t, int32(1), runner.calls.Load())

	last, ok := s.LastReport()
	require.True(t, ok)
	assert.Equal(t, "t", last.TickID)
	assert.False(t, s.Running())
}

func TestScheduler_SharedLockHeldElsewhere(t *testing.T) {
	lock := cache.NewMemoryCache()
	defer lock.Close()

	token, ok, err := lock.TryLock(context.Background(), tickLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	runner := &blockingRunner{}
	s := NewScheduler(runner, lock, logger.NewNop(), SchedulerConfig{LockTTL: time.Minute})

	_, err = s.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrTickInProgress)
	assert.Zero(t, runner.calls.Load())

	require.NoError(t, lock.Unlock(context.Background(), tickLockKey, token))
	_, err = s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), runner.calls.Load())

	// released after the tick
	_, ok, err = lock.TryLock(context.Background(), tickLockKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScheduler_RunsOnStartAndInterval(t *testing.T) {
	runner := &blockingRunner{}
	s := NewScheduler(runner, nil, logger.NewNop(), SchedulerConfig{Interval: 20 * time.Millisecond, RunOnStart: true})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	n := runner.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, runner.calls.Load())
}
