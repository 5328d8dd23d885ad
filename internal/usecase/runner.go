package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/pkg/cache"
	applogger "StockPilot/pkg/logger"
	"StockPilot/pkg/queue"
)

// JobTypeIngest is the queue message type for on-demand runs.
const JobTypeIngest = "ingest"

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// RunDefaults fills the parts of a request the caller left empty.
type RunDefaults struct {
	Instruments []string
	Period      string
	Interval    string
}

// Runner serializes ingestion runs across processes with a cache lock, so at
// most one run is active at a time.
type Runner struct {
	pipeline *Pipeline
	lock     cache.Service
	lockKey  string
	lockTTL  time.Duration
	defaults RunDefaults
	metrics  drepo.Metrics
	l        *applogger.Logger
}

// NewRunner creates a runner. A nil lock disables cross-process serialization.
func NewRunner(p *Pipeline, lock cache.Service, lockKey string, lockTTL time.Duration, defaults RunDefaults, metrics drepo.Metrics, l *applogger.Logger) *Runner {
	if l == nil {
		l = applogger.Nop()
	}
	if lockTTL <= 0 {
		lockTTL = 9 * time.Minute
	}
	return &Runner{
		pipeline: p,
		lock:     lock,
		lockKey:  lockKey,
		lockTTL:  lockTTL,
		defaults: defaults,
		metrics:  metrics,
		l:        l,
	}
}

// Resolve applies the defaults to req.
func (r *Runner) Resolve(req models.IngestionRequest) models.IngestionRequest {
	if len(req.Instruments) == 0 {
		req.Instruments = append([]string(nil), r.defaults.Instruments...)
	}
	if req.Period == "" {
		req.Period = r.defaults.Period
	}
	if req.Interval == "" {
		req.Interval = r.defaults.Interval
	}
	return req
}

// Run executes one ingestion under the run lock. It returns ErrRunInProgress
// without touching the pipeline when the lock is held elsewhere.
func (r *Runner) Run(ctx context.Context, req models.IngestionRequest) (*RunResult, error) {
	req = r.Resolve(req)
	if r.lock != nil {
		token, ok, err := r.lock.TryLock(ctx, r.lockKey, r.lockTTL)
		if err != nil {
			r.metrics.RecordError("run_lock")
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			r.metrics.RecordError("run_overlap")
			return nil, ErrRunInProgress
		}
		defer func() {
			// release even when the run was cancelled
			if err := r.lock.Unlock(context.WithoutCancel(ctx), r.lockKey, token); err != nil {
				r.l.Warn("release run lock", applogger.Error(err))
			}
		}()
	}

	res, err := r.pipeline.RunIngestion(ctx, req.Instruments, req.Period, req.Interval)
	if res != nil {
		r.l.Info("ingestion run finished",
			applogger.String("run_id", res.RunID),
			applogger.String("request_id", req.ID),
			applogger.Int("rows", res.Rows),
			applogger.Int("partitions", len(res.URIs)),
			applogger.Int("skipped", len(res.Skipped)),
		)
	}
	return res, err
}

// IngestJob runs queued IngestionRequests.
type IngestJob struct {
	runner *Runner
	l      *applogger.Logger
}

func NewIngestJob(runner *Runner, l *applogger.Logger) *IngestJob {
	if l == nil {
		l = applogger.Nop()
	}
	return &IngestJob{runner: runner, l: l}
}

func (j *IngestJob) Name() string { return "ingestion" }

func (j *IngestJob) Type() string { return JobTypeIngest }

// Handle decodes the request and runs it. An overlapping run is returned as
// an error so the queue retries it later.
func (j *IngestJob) Handle(ctx context.Context, payload []byte) error {
	req, err := queue.ParsePayload[models.IngestionRequest](payload)
	if err != nil {
		return err
	}
	_, err = j.runner.Run(ctx, *req)
	if errors.Is(err, ErrRunInProgress) {
		j.l.Info("queued ingestion deferred, run in progress", applogger.String("request_id", req.ID))
	}
	return err
}

var _ queue.Job = (*IngestJob)(nil)
