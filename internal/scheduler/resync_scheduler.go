package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bassista/go_reel/internal/logger"
)

// Refresher reloads a cache from its backing store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ResyncScheduler forces a cache refetch on a fixed interval. It covers stores
// whose change stream is unavailable, where other writers would otherwise go unnoticed.
type ResyncScheduler struct {
	target   Refresher
	interval time.Duration
	timeout  time.Duration

	runs     atomic.Int64
	failures atomic.Int64
}

// NewResyncScheduler creates a scheduler. Each refresh is bounded by timeout when positive.
func NewResyncScheduler(target Refresher, interval, timeout time.Duration) *ResyncScheduler {
	return &ResyncScheduler{target: target, interval: interval, timeout: timeout}
}

// Start runs the scheduler in a goroutine until ctx is done.
// The returned channel is closed once it has stopped.
func (s *ResyncScheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	logger.WithComponent("resync").Debugf("starting cache resync every %v", s.interval)
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("resync").Info("resync scheduler stopped")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
	return done
}

func (s *ResyncScheduler) tick(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.runs.Add(1)
	if err := s.target.Refresh(ctx); err != nil {
		s.failures.Add(1)
		logger.WithComponent("resync").Warnf("cache resync failed, keeping current entries: %v", err)
		return
	}
	logger.WithComponent("resync").Tracef("cache resynced")
}

// Runs returns how many refreshes were attempted.
func (s *ResyncScheduler) Runs() int64 {
	return s.runs.Load()
}

// Failures returns how many refreshes failed.
func (s *ResyncScheduler) Failures() int64 {
	return s.failures.Load()
}
