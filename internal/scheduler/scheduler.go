package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"campusevents/internal/domain"
)

// CycleRunner is one poll-and-dispatch pass of the reminder engine.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// jobTimeout bounds a single job run so a stuck cycle eventually releases;
// generous compared to the wake interval on purpose.
const jobTimeout = 5 * time.Minute

// Scheduler owns the recurring background jobs: the per-minute reminder
// dispatch and the daily spreadsheet sweep. Overlapping runs of the same job
// are skipped, never executed concurrently.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a Scheduler operating in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	cronLog := &cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)
	return &Scheduler{cron: c, logger: logger}
}

// AddDispatchJob schedules the reminder dispatch engine on the wake interval.
func (s *Scheduler) AddDispatchJob(interval time.Duration, runner CycleRunner) error {
	spec := fmt.Sprintf("@every %s", interval)
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := runner.RunCycle(ctx); err != nil {
			s.logger.Error("dispatch cycle failed, will retry on next wake-up", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register dispatch job: %w", err)
	}
	s.logger.Info("dispatch job registered", "interval", interval.String())
	return nil
}

// AddDailySweep schedules the spreadsheet past-event sweep at 00:05 local time.
func (s *Scheduler) AddDailySweep(events domain.EventService) error {
	_, err := s.cron.AddFunc("5 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := events.SweepPast(ctx); err != nil {
			s.logger.Error("daily sweep failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register daily sweep: %w", err)
	}
	s.logger.Info("daily sweep registered", "at", "00:05")
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops scheduling new runs and returns a context that is done once any
// in-flight job has finished, so a cycle can complete the receipt write it
// already committed to.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")
	return s.cron.Stop()
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
