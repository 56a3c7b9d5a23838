package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/caiwu/internal/scheduler"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_Add_InvalidSpec(t *testing.T) {
	s := scheduler.New(discard())

	err := s.Add("reminders", "every now and then", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := scheduler.New(discard(), scheduler.WithSeconds())

	var runs atomic.Int32

	require.NoError(t, s.Add("tick", "* * * * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	require.NoError(t, s.Add("failing", "* * * * * *", func(context.Context) error {
		return errors.New("boom")
	}))

	require.NoError(t, s.Add("panicking", "* * * * * *", func(context.Context) error {
		panic("boom")
	}))

	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := scheduler.New(discard(), scheduler.WithSeconds())

	var (
		running atomic.Int32
		maxSeen atomic.Int32
		started = make(chan struct{}, 1)
	)

	require.NoError(t, s.Add("slow", "* * * * * *", func(ctx context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)

		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}

		select {
		case started <- struct{}{}:
		default:
		}

		select {
		case <-time.After(2500 * time.Millisecond):
		case <-ctx.Done():
		}

		return nil
	}))

	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	time.Sleep(1500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, int32(1), maxSeen.Load())
}
