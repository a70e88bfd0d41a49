package heartbeat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pushmon/pushmon/internal/models"
	"github.com/pushmon/pushmon/internal/shutdown"
	"github.com/rs/zerolog"
)

// State is the scheduler's lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// HeartbeatReporter is implemented by anything that can emit one heartbeat.
type HeartbeatReporter interface {
	Report(ctx context.Context) models.HeartbeatResult
}

// Scheduler drives the heartbeat loop: report, log, then wait for the
// remainder of the interval or for shutdown, whichever comes first. Ticks
// are strictly sequential; a slow tick consumes its own wait window instead
// of overlapping the next request. A failed tick is logged and the loop
// carries on; tolerating transient failures is the whole point of a
// watchdog.
type Scheduler struct {
	reporter HeartbeatReporter
	interval time.Duration
	coord    *shutdown.Coordinator
	logger   zerolog.Logger

	state   atomic.Int32
	started atomic.Bool
	wg      sync.WaitGroup
}

// NewScheduler wires the loop to its reporter and shutdown coordinator.
func NewScheduler(reporter HeartbeatReporter, interval time.Duration, coord *shutdown.Coordinator, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		reporter: reporter,
		interval: interval,
		coord:    coord,
		logger:   logger,
	}
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run executes the loop on the calling goroutine until the coordinator
// triggers. The first tick fires immediately so connectivity problems
// surface right away.
func (s *Scheduler) Run() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scheduler is already running")
	}
	s.wg.Add(1)
	s.run()
	return nil
}

// run is the loop body. The caller must have claimed the started flag and
// registered with the wait group, so that Stop can block on loop exit from
// either entry point.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ctx, cancel := s.coord.Context(context.Background())
	defer cancel()

	s.state.Store(int32(StateRunning))
	s.logger.Info().Dur("interval", s.interval).Msg("heartbeat loop started")

	for {
		// No tick may start once cancellation has been observed.
		if s.coord.Triggered() || ctx.Err() != nil {
			s.drain()
			return
		}

		tickStart := time.Now()
		s.tick(ctx)

		wait := s.interval - time.Since(tickStart)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.drain()
			return
		case <-timer.C:
		}
	}
}

// Start launches the loop in its own goroutine, in the style of a supervised
// service payload. The started flag is claimed before the goroutine is
// spawned, so a Stop issued immediately after Start still shuts the loop
// down.
func (s *Scheduler) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scheduler is already running")
	}

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop triggers shutdown and blocks until the drain completes. Safe to call
// whether the scheduler was started via Start or Run.
func (s *Scheduler) Stop() error {
	if !s.started.Load() {
		return errors.New("scheduler is not running")
	}

	s.coord.Trigger()
	s.wg.Wait()
	return nil
}

// tick sends one heartbeat and logs the outcome. The tick context bounds the
// in-flight request by the interval and aborts it on shutdown.
func (s *Scheduler) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	result := s.reporter.Report(tickCtx)
	if result.Err != nil {
		s.logger.Error().
			Err(result.Err).
			Dur("rtt", result.RTT).
			Str("uptime", result.Uptime).
			Msg("heartbeat failed")
		return
	}

	s.logger.Info().
		Int("status", result.StatusCode).
		Dur("rtt", result.RTT).
		Str("uptime", result.Uptime).
		Str("ping", result.Ping).
		Msg("heartbeat sent")
}

// drain marks the terminal transition and emits the final record before the
// caller flushes the sink.
func (s *Scheduler) drain() {
	s.state.Store(int32(StateDraining))
	s.logger.Info().Msg("shutdown requested, draining heartbeat loop")
	s.state.Store(int32(StateStopped))
}
