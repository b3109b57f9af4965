package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	calls  int
	at time.Time
	err    error
}

func (f *fakePurger) PurgeExpiredRevocations(_ context.Context, now time.Time) (int64, error) {
	f.calls++
	f.at = now
	return 3, f.err
}

type fakeLimiter struct{ evicted int64 }

func (f *fakeLimiter) Evict() int64 { return f.evicted }

func newLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	return logger
}

func TestRunPurgeRevocations(t *testing.T) {
	var buf bytes.Buffer
	purger := &fakePurger{}
	s := NewScheduler(newLogger(&buf))

	s.Run("purge", PurgeRevocations(purger))
	assert.Equal(t, 1, purger.calls)
	assert.WithinDuration(t, time.Now(), purger.at, time.Minute)
	assert.Contains(t, buf.String(), "removed 3 records")

	purger.err = errors.New("db down")
	s.Run("purge", PurgeRevocations(purger))
	assert.Equal(t, 2, purger.calls)
	assert.Contains(t, buf.String(), "db down")
}

func TestRunEvictIdle(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(newLogger(&buf))

	s.Run("evict", EvictIdle(&fakeLimiter{}))
	assert.Empty(t, buf.String(), "nothing removed, nothing logged")

	s.Run("evict", EvictIdle(&fakeLimiter{evicted: 2}))
	assert.Contains(t, buf.String(), "removed 2 records")
}

func TestAddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(newLogger(io.Discard))
	assert.Error(t, s.Add("purge", "not a schedule", PurgeRevocations(&fakePurger{})))
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(newLogger(io.Discard))
	require.NoError(t, s.Add("purge", "@hourly", PurgeRevocations(&fakePurger{})))
	require.NoError(t, s.Add("evict", "@every 10m", EvictIdle(&fakeLimiter{})))
	s.Start()
	s.Stop()
}
