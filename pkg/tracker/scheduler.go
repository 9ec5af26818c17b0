package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Cycle runs one resolution cycle.
type Cycle interface {
	RunCycle(ctx context.Context) (Report, error)
}

// Scheduler runs a cycle at a fixed interval. Ticks that arrive while a
// cycle is still running are skipped; failed cycles aren't retried before
// the next tick.
type Scheduler struct {
	cycle    Cycle
	interval time.Duration
	log      zerolog.Logger
	metrics  *Metrics
	running  sync.Mutex
	wg       sync.WaitGroup
	onReport func(Report, error)
}

func NewScheduler(cycle Cycle, interval time.Duration, log zerolog.Logger, metrics *Metrics) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		cycle:    cycle,
		interval: interval,
		log:      log,
		metrics:  metrics,
	}
}

// OnReport registers a callback invoked after every cycle.
func (s *Scheduler) OnReport(fn func(Report, error)) {
	s.onReport = fn
}

// Run triggers a cycle right away and then on every tick until ctx is done.
// It returns once the cycle in progress, if any, has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	tick, update, stop := ticker(s.interval)
	defer stop()
	defer s.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}
		tick = update
		s.Trigger(ctx)
	}
}

// Trigger starts a cycle in the background unless one is running. It
// reports whether a cycle was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.log.Warn().Msg("previous cycle still running, skipping tick")
		if s.metrics != nil {
			s.metrics.skippedTicks.Inc()
		}
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		// A started cycle finishes even if ctx is canceled meanwhile.
		report, err := s.cycle.RunCycle(context.WithoutCancel(ctx))
		if err != nil {
			s.log.Error().Err(err).Msg("cycle failed")
		}
		if s.onReport != nil {
			s.onReport(report, err)
		}
	}()
	return true
}

// Wait blocks until the cycle in progress finishes.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func ticker(wait time.Duration) (<-chan time.Time, <-chan time.Time, func()) {
	// Don't wait ticker time on first run
	closedTick := make(chan time.Time)
	close(closedTick)
	tick := (<-chan time.Time)(closedTick)
	ticker := time.NewTicker(wait)
	return tick, ticker.C, ticker.Stop
}
