package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

type blockingCycle struct {
	calls    int32
	canceled int32
	started  chan struct{}
	release  chan struct{}
}

func (c *blockingCycle) RunCycle(ctx context.Context) (Report, error) {
	atomic.AddInt32(&c.calls, 1)
	c.started <- struct{}{}
	<-c.release
	if ctx.Err() != nil {
		atomic.AddInt32(&c.canceled, 1)
	}
	return Report{Pending: 1}, nil
}

func TestTriggerSkipsOverlap(t *testing.T) {
	cycle := &blockingCycle{started: make(chan struct{}, 1), release: make(chan struct{})}
	metrics := NewMetrics(prometheus.NewRegistry())
	s := NewScheduler(cycle, time.Hour, zerolog.Nop(), metrics)

	var reports int32
	s.OnReport(func(r Report, err error) {
		atomic.AddInt32(&reports, 1)
	})

	if !s.Trigger(context.Background()) {
		t.Fatal("first trigger should start a cycle")
	}
	<-cycle.started
	for i := 0; i < 3; i++ {
		if s.Trigger(context.Background()) {
			t.Fatal("trigger shouldn't start a cycle while one is running")
		}
	}
	close(cycle.release)
	s.Wait()

	if got := atomic.LoadInt32(&cycle.calls); got != 1 {
		t.Errorf("want 1 cycle, got %d", got)
	}
	if got := atomic.LoadInt32(&reports); got != 1 {
		t.Errorf("want 1 report, got %d", got)
	}
	if got := testutil.ToFloat64(metrics.skippedTicks); got != 3 {
		t.Errorf("want 3 skipped ticks, got %v", got)
	}

	// Once finished a new cycle can start.
	if !s.Trigger(context.Background()) {
		t.Fatal("trigger should start a cycle after the previous one finished")
	}
	<-cycle.started
	s.Wait()
}

func TestRunWaitsForCycle(t *testing.T) {
	cycle := &blockingCycle{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewScheduler(cycle, time.Hour, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// The first cycle starts without waiting for the interval.
	select {
	case <-cycle.started:
	case <-time.After(time.Second):
		t.Fatal("first cycle didn't start")
	}
	cancel()

	select {
	case <-done:
		t.Fatal("run returned while a cycle was in progress")
	case <-time.After(50 * time.Millisecond):
	}
	close(cycle.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("run didn't return")
	}
	if got := atomic.LoadInt32(&cycle.canceled); got != 0 {
		t.Errorf("running cycle shouldn't observe cancellation")
	}
}

type countingCycle struct {
	lock  sync.Mutex
	calls int
	err   error
}

func (c *countingCycle) RunCycle(ctx context.Context) (Report, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.calls++
	return Report{}, c.err
}

func TestRunTicks(t *testing.T) {
	cycle := &countingCycle{err: errors.New("store down")}
	s := NewScheduler(cycle, 10*time.Millisecond, zerolog.Nop(), nil)

	var errs int32
	s.OnReport(func(_ Report, err error) {
		if err != nil {
			atomic.AddInt32(&errs, 1)
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}

	cycle.lock.Lock()
	calls := cycle.calls
	cycle.lock.Unlock()
	if calls < 2 {
		t.Errorf("want several cycles, got %d", calls)
	}
	// Failed cycles don't stop the scheduler.
	if got := atomic.LoadInt32(&errs); int(got) != calls {
		t.Errorf("want %d failed reports, got %d", calls, got)
	}
}
