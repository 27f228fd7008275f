package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTicker struct {
	ticks atomic.Int32
}

func (c *countingTicker) Tick(context.Context) string {
	c.ticks.Add(1)
	return ""
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestNewProfilerSchedulerRejectsShortInterval(t *testing.T) {
	_, err := NewProfilerScheduler(&countingTicker{}, 500*time.Millisecond, quietLogger())
	assert.Error(t, err)
}

func TestProfilerSchedulerSpec(t *testing.T) {
	s, err := NewProfilerScheduler(&countingTicker{}, 90*time.Second, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "@every 1m30s", s.Spec())
}

func TestProfilerSchedulerTicks(t *testing.T) {
	ticker := &countingTicker{}
	s, err := NewProfilerScheduler(ticker, time.Second, quietLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return ticker.ticks.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}
