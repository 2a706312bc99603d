// Package schedule runs the recurring coach jobs. A job row in the store is
// the durable source of truth; the in-process timers registered here are
// rebuilt from those rows on every start.
package schedule

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/diarypete/diarypete/core/logger"
)

// Scheduler wraps a gocron scheduler behind the small surface the rest of
// the program needs.
type Scheduler struct {
	inner gocron.Scheduler
}

// NewScheduler builds a stopped scheduler. Call Start once all timers from
// the store are registered.
func NewScheduler() (*Scheduler, error) {
	inner, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{inner: inner}, nil
}

// Put registers task to run every interval, first firing after initialDelay.
// The start time is taken from the wall clock; gocron rejects starts in the
// past, so the delay must not be negative.
func (s *Scheduler) Put(task func(), interval, initialDelay time.Duration) error {
	_, err := s.inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithStartAt(gocron.WithStartDateTime(time.Now().Add(initialDelay))),
	)
	if err != nil {
		return err
	}
	logger.SCHED.Debug("timer registered",
		slog.String("event", "sched.put"),
		slog.Duration("interval", interval),
		slog.Duration("initial_delay", initialDelay.Round(time.Second)),
	)
	return nil
}

// Start begins firing registered timers.
func (s *Scheduler) Start() { s.inner.Start() }

// Shutdown stops the scheduler and waits for running tasks.
func (s *Scheduler) Shutdown() error { return s.inner.Shutdown() }

// Len reports how many timers are registered.
func (s *Scheduler) Len() int { return len(s.inner.Jobs()) }
