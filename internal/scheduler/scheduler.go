// Package scheduler runs the relay's periodic housekeeping jobs.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ziadkadry99/larkbot/internal/logging"
)

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	s   gocron.Scheduler
	log *slog.Logger
}

// New creates a stopped scheduler.
func New(log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = logging.Discard()
	}
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logging.NewGocronLogger(log)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{s: s, log: log}, nil
}

// Every runs job every interval, first after one interval has passed.
func (s *Scheduler) Every(name string, interval time.Duration, job func()) error {
	return s.add(name, interval, job)
}

// EveryNow runs job once at start and then every interval.
func (s *Scheduler) EveryNow(name string, interval time.Duration, job func()) error {
	return s.add(name, interval, job, gocron.WithStartAt(gocron.WithStartImmediately()))
}

func (s *Scheduler) add(name string, interval time.Duration, job func(), opts ...gocron.JobOption) error {
	if interval <= 0 {
		return fmt.Errorf("job %q: interval must be positive, got %s", name, interval)
	}
	opts = append(opts,
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if _, err := s.s.NewJob(gocron.DurationJob(interval), gocron.NewTask(job), opts...); err != nil {
		s.log.Error("failed to add job", "name", name, "interval", interval, "error", err)
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}
	s.log.Info("job scheduled", "name", name, "interval", interval)
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() { s.s.Start() }

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}
