// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of background work. The context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Scheduler owns a cron runner. A job still running when its next tick fires
// is skipped, and a panicking job is logged instead of crashing the process.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

type Option func(*options)

type options struct {
	location *time.Location
	seconds  bool
}

func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithSeconds accepts six-field specs with a leading seconds field.
func WithSeconds() Option {
	return func(o *options) { o.seconds = true }
}

func New(logger *slog.Logger, opts ...Option) *Scheduler {
	o := options{location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	cl := cronLogger{logger: logger}

	cronOpts := []cron.Option{
		cron.WithLocation(o.location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	}

	if o.seconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cronOpts...),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Add registers job under name on a cron expression such as "@hourly" or "0 8 * * *".
func (s *Scheduler) Add(name, expr string, job Job) error {
	_, err := s.cron.AddFunc(expr, func() {
		start := time.Now()

		if err := job(s.ctx); err != nil {
			s.logger.Error("job failed", "job", name, "error", err, "duration", time.Since(start))
			return
		}

		s.logger.Debug("job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("scheduling %s on %q: %w", name, expr, err)
	}

	s.logger.Info("job scheduled", "job", name, "schedule", expr)

	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
