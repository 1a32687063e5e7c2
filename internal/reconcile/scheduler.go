// Package reconcile runs the periodic orphaned-hire sweep: hired internship
// applications that never got an internship row are reported to their
// employers.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper finds orphaned hires and notifies their employers, returning how
// many were found. lifecycle.Service implements it.
type Sweeper interface {
	NotifyOrphanedHires(ctx context.Context) (int, error)
}

// Scheduler wraps robfig/cron and manages the sweep loop.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *zap.Logger
	spec    string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler that sweeps on the given cron spec, e.g. "@every 1h".
func New(sweeper Sweeper, logger *zap.Logger, spec string) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		sweeper: sweeper,
		logger:  logger,
		spec:    spec,
	}
}

// Start registers the job and starts the scheduler. One sweep also runs
// immediately so existing orphans are reported without waiting for the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.Sweep(ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("cron.AddFunc %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("reconcile scheduler started", zap.String("spec", s.spec))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Sweep(ctx)
	}()
	return nil
}

// Stop halts the scheduler and waits for a running sweep, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("reconcile scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep runs one reconciliation cycle. Failures are logged; the next tick
// retries.
func (s *Scheduler) Sweep(ctx context.Context) {
	n, err := s.sweeper.NotifyOrphanedHires(ctx)
	if err != nil {
		s.logger.Error("orphaned-hire sweep failed", zap.Error(err))
		return
	}
	if n == 0 {
		s.logger.Debug("orphaned-hire sweep found nothing")
		return
	}
	s.logger.Info("orphaned hires reported", zap.Int("count", n))
}

// cronLogger routes robfig/cron's logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
