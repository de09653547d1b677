package jobs

import (
	"context"
	"sync"
	"time"

	"Scorekeep/services/metrics"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// StaleSessionCanceller is implemented by the orchestrator.
type StaleSessionCanceller interface {
	CancelStaleSessions(ctx context.Context, cutoff time.Time) (int, error)
}

// SessionSweeper periodically cancels sessions nobody started or cancelled
// within maxAge of their creation.
type SessionSweeper struct {
	canceller StaleSessionCanceller
	schedule  string
	maxAge    time.Duration
	timeout   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

func NewSessionSweeper(canceller StaleSessionCanceller, schedule string, maxAge time.Duration) *SessionSweeper {
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &SessionSweeper{
		canceller: canceller,
		schedule:  schedule,
		maxAge:    maxAge,
		timeout:   30 * time.Second,
		now:       time.Now,
	}
}

// Start schedules the sweep. A zero maxAge disables the sweeper.
func (s *SessionSweeper) Start() error {
	if s.maxAge <= 0 {
		zap.S().Info("[SWEEP] disabled")
		return nil
	}
	c := cron.New()
	if err := c.AddFunc(s.schedule, s.tick); err != nil {
		return errors.Wrapf(err, "invalid sweep schedule %q", s.schedule)
	}
	c.Start()
	s.cron = c
	zap.S().Infof("[SWEEP] cancelling sessions older than %s, schedule %s", s.maxAge, s.schedule)
	return nil
}

func (s *SessionSweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// tick skips a run while the previous one is still going.
func (s *SessionSweeper) tick() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		zap.S().Errorf("[SWEEP-ERROR] %v", err)
	}
}

// RunOnce cancels every stale session now and returns how many it cancelled.
func (s *SessionSweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.canceller.CancelStaleSessions(ctx, s.now().Add(-s.maxAge))
	if n > 0 {
		metrics.SweptSessions.Add(float64(n))
		zap.S().Infof("[SWEEP] cancelled %d stale sessions", n)
	}
	return n, err
}
