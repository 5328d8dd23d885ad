package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/domain/service"
	"StockPilot/internal/services/normalize"
	applogger "StockPilot/pkg/logger"
	"StockPilot/pkg/retry"
)

var (
	// ErrEmptyUniverse means no instrument survived trimming and de-duplication.
	ErrEmptyUniverse = errors.New("empty instrument universe")

	errEmptyFrame = errors.New("empty frame")
)

// NormalizeUniverse trims, upper-cases and de-duplicates ids, keeping the
// first occurrence of each.
func NormalizeUniverse(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type IngestorConfig struct {
	Concurrency int
	Retry       retry.Policy
}

// Ingestor fetches, normalizes and enriches one batch of bars. It performs
// no writes.
type Ingestor struct {
	market  drepo.MarketData
	norm    *normalize.Normalizer
	meta    service.MetadataResolver
	metrics drepo.Metrics
	cfg     IngestorConfig
	l       *applogger.Logger

	now   func() time.Time
	newID func() string
}

type IngestorOption func(*Ingestor)

// WithClock replaces the clock the batch timestamp is taken from.
func WithClock(now func() time.Time) IngestorOption {
	return func(i *Ingestor) { i.now = now }
}

func WithRunIDs(gen func() string) IngestorOption {
	return func(i *Ingestor) { i.newID = gen }
}

func NewIngestor(market drepo.MarketData, norm *normalize.Normalizer, meta service.MetadataResolver, metrics drepo.Metrics, cfg IngestorConfig, l *applogger.Logger, opts ...IngestorOption) *Ingestor {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = func(err error) bool { return !errors.Is(err, drepo.ErrPermanent) }
	}
	if l == nil {
		l = applogger.Nop()
	}
	i := &Ingestor{
		market:  market,
		norm:    norm,
		meta:    meta,
		metrics: metrics,
		cfg:     cfg,
		l:       l,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type instrumentResult struct {
	bars    []models.Bar
	report  models.NormalizeReport
	skipped *models.SkippedInstrument
}

// Run ingests instruments for one (period, interval) pair. Instruments that
// fail are skipped and listed in the batch; zero successes give an empty
// batch, not an error.
func (i *Ingestor) Run(ctx context.Context, instruments []string, period, interval string) (*models.Batch, error) {
	ids := NormalizeUniverse(instruments)
	if len(ids) == 0 {
		return nil, ErrEmptyUniverse
	}
	if err := drepo.ValidateGranularity(period, interval); err != nil {
		return nil, err
	}

	start := time.Now()
	batch := &models.Batch{
		RunID:     i.newID(),
		Timestamp: i.now().UTC().Truncate(time.Second),
	}
	log := i.l.With(applogger.String("run_id", batch.RunID))
	log.Info("ingestion started",
		applogger.Int("instruments", len(ids)),
		applogger.String("period", period),
		applogger.String("interval", interval))

	results := make([]instrumentResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Concurrency)
	for idx, id := range ids {
		g.Go(func() error {
			results[idx] = i.ingestOne(gctx, log, id, period, interval, batch.Timestamp)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		i.metrics.RecordRun("cancelled", time.Since(start).Seconds())
		return nil, fmt.Errorf("ingestion run: %w", err)
	}

	for _, r := range results {
		batch.Report.Add(r.report)
		if r.skipped != nil {
			batch.Skipped = append(batch.Skipped, *r.skipped)
			continue
		}
		batch.Bars = append(batch.Bars, r.bars...)
	}
	i.recordReport(batch.Report)

	status := "ok"
	switch {
	case batch.Empty():
		status = "empty"
	case len(batch.Skipped) > 0:
		status = "partial"
	}
	i.metrics.RecordRun(status, time.Since(start).Seconds())
	log.Info("ingestion finished",
		applogger.String("status", status),
		applogger.Int("bars", len(batch.Bars)),
		applogger.Int("skipped", len(batch.Skipped)),
		applogger.Duration("elapsed_ms", time.Since(start)))
	return batch, nil
}

func (i *Ingestor) ingestOne(ctx context.Context, log *applogger.Logger, id, period, interval string, ts time.Time) instrumentResult {
	log = log.With(applogger.String("symbol", id))
	skip := func(reason string, attempts int) instrumentResult {
		i.metrics.RecordInstrument("skipped")
		return instrumentResult{skipped: &models.SkippedInstrument{InstrumentID: id, Reason: reason, Attempts: attempts}}
	}

	fetchStart := time.Now()
	var frame *models.RawFrame
	attempts, err := retry.Do(ctx, i.cfg.Retry, func(ctx context.Context, attempt int) error {
		f, err := i.market.FetchBars(ctx, id, period, interval)
		if err != nil {
			log.Debug("fetch attempt failed", applogger.Int("attempt", attempt), applogger.Error(err))
			return err
		}
		if f.Empty() {
			return errEmptyFrame
		}
		frame = f
		return nil
	})
	i.metrics.RecordLatency("fetch", time.Since(fetchStart).Seconds())
	if err != nil {
		i.metrics.RecordError("fetch")
		log.Warn("instrument skipped", applogger.Int("attempts", attempts), applogger.Error(err))
		return skip(err.Error(), attempts)
	}

	bars, rep, err := i.norm.Normalize(frame)
	if err != nil {
		log.Warn("instrument skipped", applogger.Error(err))
		return skip(err.Error(), attempts)
	}

	md := frame.Meta
	if i.meta != nil {
		md = i.meta.Resolve(ctx, id, md)
	}
	for k := range bars {
		bars[k].InstrumentID = id
		bars[k].DisplayName = md.DisplayName
		bars[k].Currency = md.Currency
		bars[k].IngestedAt = ts
	}

	i.metrics.RecordInstrument("ok")
	log.Debug("instrument ingested",
		applogger.Int("rows", len(bars)),
		applogger.Int("input_rows", rep.Input),
		applogger.Int("attempts", attempts))
	return instrumentResult{bars: bars, report: rep}
}

func (i *Ingestor) recordReport(r models.NormalizeReport) {
	i.metrics.RecordRowsDropped("null_close", r.DroppedNullClose)
	i.metrics.RecordRowsDropped("invalid", r.DroppedInvalid)
	i.metrics.RecordRowsDropped("ohlc", r.DroppedOHLC)
	i.metrics.RecordRowsDropped("flagged_ohlc", r.FlaggedOHLC)
	i.metrics.RecordRowsDropped("duplicate", r.Duplicates)
}
