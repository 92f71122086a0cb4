package retention

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// DefaultCleanupInterval is the cadence of scheduled global runs.
const DefaultCleanupInterval = 24 * time.Hour

// Scheduler triggers global cleanup on a cadence and guards against
// overlapping runs. The guard is process-local: two separate processes
// (or replicas) can each believe they are the sole runner. True mutual
// exclusion across instances would need an external lock.
type Scheduler struct {
	Engine   *Engine
	Interval time.Duration

	running atomic.Bool
	stopCh  chan struct{}
}

// NewScheduler wraps the engine's global cleanup. A non-positive interval
// falls back to DefaultCleanupInterval.
func NewScheduler(eng *Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Scheduler{
		Engine:   eng,
		Interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a global cleanup immediately and then on every interval tick
// until Stop is called.
func (s *Scheduler) Start() {
	s.tick()

	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the ticker goroutine. An in-flight run completes.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) tick() {
	if _, _, err := s.RunNow(context.Background()); err != nil {
		log.Printf("retention: scheduled cleanup: %v", err)
	}
}

// RunNow triggers one global cleanup. If a run is already in flight the
// trigger is skipped: it returns a zero result with ran=false immediately,
// without queuing or retrying. The guard is released on every exit path so
// a failed run cannot wedge the scheduler; the error is returned to the
// caller after the guard is cleared.
func (s *Scheduler) RunNow(ctx context.Context) (res GlobalResult, ran bool, err error) {
	if !s.running.CompareAndSwap(false, true) {
		log.Printf("retention: cleanup already running, trigger skipped")
		return GlobalResult{}, false, nil
	}
	defer s.running.Store(false)

	start := time.Now()
	log.Printf("retention: scheduled cleanup starting")

	res, err = s.Engine.CleanupAll(ctx, TriggerScheduled)
	if err != nil {
		return GlobalResult{}, true, err
	}

	log.Printf("retention: scheduled cleanup done: %d users, %d articles deleted in %s",
		res.UsersProcessed, res.TotalDeleted, time.Since(start).Round(time.Millisecond))
	return res, true, nil
}
