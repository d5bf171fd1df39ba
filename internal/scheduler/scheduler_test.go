package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-platform/pkg/logging"
)

func newTestScheduler(t *testing.T) (*Scheduler, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := logging.NewStructuredLogger("energy-test", "test", logging.DebugLevel)
	logger.SetOutput(&buf)
	return New(time.UTC, logger), &buf
}

func TestAdd(t *testing.T) {
	s, _ := newTestScheduler(t)
	noop := func(context.Context, time.Time) error { return nil }

	require.NoError(t, s.Add("populate", "5 * * * *", noop))
	require.NoError(t, s.Add("publish", "@every 1m", noop))
	assert.Equal(t, 2, s.Entries())

	assert.Error(t, s.Add("populate", "5 * * * *", noop))
	assert.Error(t, s.Add("broken", "not a spec", noop))
	assert.Equal(t, 2, s.Entries())
}

func TestRunNow(t *testing.T) {
	s, buf := newTestScheduler(t)

	calls := 0
	require.NoError(t, s.Add("populate", "5 * * * *", func(ctx context.Context, now time.Time) error {
		calls++
		assert.False(t, now.IsZero())
		assert.NotNil(t, ctx.Value(logging.RequestIDKey))
		return nil
	}))

	require.NoError(t, s.RunNow("populate"))
	assert.Equal(t, 1, calls)
	assert.Contains(t, buf.String(), "[SCHEDULER_JOB_COMPLETE]")

	assert.Error(t, s.RunNow("missing"))
}

func TestRunNow_PropagatesJobError(t *testing.T) {
	s, buf := newTestScheduler(t)
	boom := errors.New("boom")
	require.NoError(t, s.Add("populate", "@hourly", func(context.Context, time.Time) error { return boom }))

	assert.ErrorIs(t, s.RunNow("populate"), boom)
	assert.Contains(t, buf.String(), "[SCHEDULER_JOB_ERROR]")
}

func TestStopCancelsJobContext(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Error(t, s.ctx.Err())
}

func TestKVFields(t *testing.T) {
	fields := kvFields([]interface{}{"now", "t", "entry", 3, "dangling"})
	assert.Equal(t, logging.Fields{"now": "t", "entry": 3}, fields)
}
