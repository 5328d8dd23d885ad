package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"StockPilot/internal/domain/models"
	applogger "StockPilot/pkg/logger"
)

// Scheduler triggers ingestion runs on a cron schedule. Ticks that overlap a
// running ingestion, locally or in another process, are skipped.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	runner  *Runner
	timeout time.Duration
	l       *applogger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler validates spec (standard five field cron) and builds a stopped scheduler.
func NewScheduler(spec string, runner *Runner, timeout time.Duration, l *applogger.Logger) (*Scheduler, error) {
	if l == nil {
		l = applogger.Nop()
	}
	cl := cronLogger{l: l.With(applogger.String("component", "scheduler"))}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{cron: c, spec: spec, runner: runner, timeout: timeout, l: l}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the cron loop in the background until Stop or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.l.Info("scheduler started", applogger.String("schedule", s.spec))
}

// Stop prevents further ticks and waits for a running tick or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.l.Info("scheduler stopped")
}

// Next reports the next scheduled tick.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	_, err := s.runner.Run(ctx, models.IngestionRequest{RequestedAt: time.Now().UTC()})
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.l.Info("scheduled run skipped, previous run still active")
	case err != nil:
		s.l.Error("scheduled run failed", applogger.Error(err))
	}
}

// cronLogger adapts the logger to cron.Logger.
type cronLogger struct{ l *applogger.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug(msg, kvFields(kv)...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error(msg, append(kvFields(kv), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	out := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		out = append(out, applogger.Any(k, kv[i+1]))
	}
	return out
}
