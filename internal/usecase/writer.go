package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/services/barfile"
	applogger "StockPilot/pkg/logger"
)

var (
	// ErrInvalidInstrumentID rejects ids that would escape the partition prefix.
	ErrInvalidInstrumentID = errors.New("invalid instrument id")
	// ErrPartitionConflict means an object already holds different bytes under the key.
	ErrPartitionConflict = errors.New("partition conflict")
)

// ObjectKey returns raw/{date}/{id}_{ts}.parquet for the batch timestamp.
func ObjectKey(instrumentID string, batchTS time.Time) (string, error) {
	if instrumentID == "" || strings.ContainsAny(instrumentID, `/\`) || strings.Contains(instrumentID, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidInstrumentID, instrumentID)
	}
	ts := batchTS.UTC()
	return fmt.Sprintf("raw/%s/%s_%s.parquet", ts.Format("2006-01-02"), instrumentID, ts.Format("2006-01-02T15-04-05Z")), nil
}

// BatchWriter persists a batch as one create-only parquet object per instrument.
type BatchWriter struct {
	store       drepo.ObjectStore
	events      drepo.EventPublisher
	metrics     drepo.Metrics
	concurrency int
	l           *applogger.Logger
}

// NewBatchWriter builds a writer. events may be nil.
func NewBatchWriter(store drepo.ObjectStore, events drepo.EventPublisher, metrics drepo.Metrics, concurrency int, l *applogger.Logger) *BatchWriter {
	if concurrency < 1 {
		concurrency = 4
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &BatchWriter{store: store, events: events, metrics: metrics, concurrency: concurrency, l: l}
}

// Write stores every partition of batch under keys derived from batchTS and
// returns the URIs written, in instrument order. Failed partitions are
// reported together in the error; the URIs of the others are still returned.
func (w *BatchWriter) Write(ctx context.Context, batch *models.Batch, batchTS time.Time) ([]string, error) {
	if batch.Empty() {
		return []string{}, nil
	}
	ids, groups := batch.Partitions()

	uris := make([]string, len(ids))
	errs := make([]error, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			uris[i], errs[i] = w.writePartition(gctx, batch.RunID, id, groups[id], batchTS)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(ids))
	for i, u := range uris {
		if errs[i] == nil {
			out = append(out, u)
		}
	}
	return out, errors.Join(errs...)
}

func (w *BatchWriter) writePartition(ctx context.Context, runID, id string, bars []models.Bar, batchTS time.Time) (string, error) {
	key, err := ObjectKey(id, batchTS)
	if err != nil {
		w.metrics.RecordPartition("failed")
		return "", err
	}
	data, err := barfile.Encode(bars)
	if err != nil {
		w.metrics.RecordPartition("failed")
		return "", fmt.Errorf("partition %s: %w", id, err)
	}

	status := "written"
	err = w.store.PutIfAbsent(ctx, key, data, barfile.ContentType)
	if errors.Is(err, drepo.ErrObjectExists) {
		existing, gerr := w.store.Get(ctx, key)
		switch {
		case gerr != nil:
			err = fmt.Errorf("read existing: %w", gerr)
		case bytes.Equal(existing, data):
			status, err = "unchanged", nil
		default:
			err = fmt.Errorf("%w: %s", ErrPartitionConflict, key)
		}
	}
	if err != nil {
		w.metrics.RecordPartition("failed")
		w.l.Error("partition write failed", applogger.String("key", key), applogger.Error(err))
		return "", fmt.Errorf("partition %s: %w", id, err)
	}
	w.metrics.RecordPartition(status)

	uri := w.store.URI(key)
	// a re-run that found identical bytes already announced this partition
	if w.events != nil && status == "written" {
		ev := models.PartitionWritten{
			RunID:        runID,
			URI:          uri,
			Key:          key,
			InstrumentID: id,
			Rows:         len(bars),
			BatchTime:    batchTS.UTC(),
		}
		if perr := w.events.PublishPartition(ctx, ev); perr != nil {
			w.metrics.RecordError("publish_partition")
			w.l.Warn("partition event not published", applogger.String("uri", uri), applogger.Error(perr))
		}
	}
	w.l.Debug("partition stored",
		applogger.String("uri", uri),
		applogger.String("status", status),
		applogger.Int("rows", len(bars)))
	return uri, nil
}
