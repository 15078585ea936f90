package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndList(t *testing.T) {
	t.Parallel()

	s := New()
	s.Register(Job{Name: "sweep", Description: "sweep things", Interval: time.Hour})
	s.Register(Job{Name: "snapshot", Description: "persist index", Interval: time.Minute})

	items := s.List()
	require.Len(t, items, 2)

	byName := map[string]ListItem{}
	for _, item := range items {
		byName[item.Name] = item
	}
	sweep, ok := byName["sweep"]
	require.True(t, ok)
	assert.Equal(t, "sweep things", sweep.Description)
	assert.Equal(t, StatusIdle, sweep.Status)
	require.NotNil(t, sweep.NextDate)
	assert.True(t, sweep.NextDate.After(time.Now()))
	assert.Nil(t, sweep.LastRunAt)
}

func TestRunExecutesJob(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New()
	s.Register(Job{Name: "count", Interval: time.Hour, Fn: func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}})

	require.NoError(t, s.Run(context.Background(), "count"))
	require.Eventually(t, func() bool {
		res, err := s.GetTask("count")
		return err == nil && res.Status == StatusFulfill
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	items := s.List()
	require.Len(t, items, 1)
	assert.NotNil(t, items[0].LastRunAt)
}

func TestRunUnknownJob(t *testing.T) {
	t.Parallel()

	s := New()
	require.Error(t, s.Run(context.Background(), "nope"))

	_, err := s.GetTask("nope")
	require.Error(t, err)
}

func TestFailureIsRecordedAndCleared(t *testing.T) {
	t.Parallel()

	var failFirst atomic.Bool
	failFirst.Store(true)
	s := New()
	s.Register(Job{Name: "flaky", Interval: time.Hour, Fn: func(ctx context.Context) error {
		if failFirst.Swap(false) {
			return errors.New("boom")
		}
		return nil
	}})

	require.NoError(t, s.Run(context.Background(), "flaky"))
	require.Eventually(t, func() bool {
		res, err := s.GetTask("flaky")
		return err == nil && res.Status == StatusReject
	}, 2*time.Second, 10*time.Millisecond)
	res, err := s.GetTask("flaky")
	require.NoError(t, err)
	assert.Equal(t, "boom", res.Message)

	require.NoError(t, s.Run(context.Background(), "flaky"))
	require.Eventually(t, func() bool {
		res, err := s.GetTask("flaky")
		return err == nil && res.Status == StatusFulfill && res.Message == ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls atomic.Int32
	s := New()
	s.Register(Job{Name: "slow", Interval: time.Hour, Fn: func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}})

	require.NoError(t, s.Run(context.Background(), "slow"))
	require.Eventually(t, func() bool {
		res, err := s.GetTask("slow")
		return err == nil && res.Status == StatusRunning
	}, 2*time.Second, 10*time.Millisecond)

	// A second trigger while the job is running must not start it again.
	require.NoError(t, s.Run(context.Background(), "slow"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	require.Eventually(t, func() bool {
		res, err := s.GetTask("slow")
		return err == nil && res.Status == StatusFulfill
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStartRunsOnInterval(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New()
	s.Register(Job{Name: "tick", Interval: 20 * time.Millisecond, Fn: func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
}
