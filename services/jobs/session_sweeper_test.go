package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCanceller struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int
	err     error
}

func (r *recordingCanceller) CancelStaleSessions(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.n, r.err
}

func (r *recordingCanceller) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cutoffs)
}

func TestRunOnceUsesMaxAge(t *testing.T) {
	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)
	c := &recordingCanceller{n: 3}
	s := NewSessionSweeper(c, "", 24*time.Hour)
	s.now = func() time.Time { return now }

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, c.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), c.cutoffs[0])
}

func TestRunOnceReportsPartialFailure(t *testing.T) {
	c := &recordingCanceller{n: 1, err: errors.New("deadlock detected")}
	n, err := NewSessionSweeper(c, "", time.Hour).RunOnce(context.Background())
	assert.Equal(t, 1, n)
	assert.Error(t, err)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewSessionSweeper(&recordingCanceller{}, "every now and then", time.Hour)
	assert.Error(t, s.Start())
}

func TestDisabledSweeperNeverRuns(t *testing.T) {
	c := &recordingCanceller{}
	s := NewSessionSweeper(c, "@every 1s", 0)
	require.NoError(t, s.Start())
	s.Stop()
	assert.Zero(t, c.calls())
}

func TestScheduledSweep(t *testing.T) {
	c := &recordingCanceller{}
	s := NewSessionSweeper(c, "@every 1s", time.Hour)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return c.calls() > 0 }, 3*time.Second, 50*time.Millisecond)
}
