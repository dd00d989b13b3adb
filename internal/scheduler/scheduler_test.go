package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/AINewsHub/internal/news"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh(_ context.Context) []news.Story {
	r.calls.Add(1)
	return []news.Story{{URL: "https://example.com/a"}, {URL: "https://example.com/b"}}
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New("not a cron spec", &countingRefresher{}, nil)
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	r := &countingRefresher{}
	s, err := New("*/30 * * * *", r, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, s.RunOnce(context.Background()))
	assert.EqualValues(t, 1, r.calls.Load())
}

func TestStartRunsAfterDelay(t *testing.T) {
	r := &countingRefresher{}
	s, err := New("0 0 1 1 *", r, nil)
	require.NoError(t, err)
	s.startupDelay = 10 * time.Millisecond

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStopCancelsPendingStartupRun(t *testing.T) {
	r := &countingRefresher{}
	s, err := New("0 0 1 1 *", r, nil)
	require.NoError(t, err)
	s.startupDelay = 50 * time.Millisecond

	s.Start()
	<-s.Stop().Done()
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, r.calls.Load())
}
