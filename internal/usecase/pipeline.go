package usecase

import (
	"context"
	"fmt"

	"StockPilot/internal/domain/models"
	applogger "StockPilot/pkg/logger"
)

// Pipeline runs an ingestion and writes its batch.
type Pipeline struct {
	ingestor    *Ingestor
	writer      *BatchWriter
	destination func() error
	l           *applogger.Logger
}

// NewPipeline wires the run and write steps. destination reports a missing
// storage target; it is checked before any network call.
func NewPipeline(ingestor *Ingestor, writer *BatchWriter, destination func() error, l *applogger.Logger) *Pipeline {
	if l == nil {
		l = applogger.Nop()
	}
	return &Pipeline{ingestor: ingestor, writer: writer, destination: destination, l: l}
}

// RunResult describes one completed ingestion.
type RunResult struct {
	RunID   string                     `json:"run_id"`
	URIs    []string                   `json:"uris"`
	Rows    int                        `json:"rows"`
	Skipped []models.SkippedInstrument `json:"skipped,omitempty"`
	Report  models.NormalizeReport     `json:"report"`
}

// RunIngestion fetches instruments and writes one object per instrument.
// Partition failures are returned joined, alongside the URIs that succeeded.
func (p *Pipeline) RunIngestion(ctx context.Context, instruments []string, period, interval string) (*RunResult, error) {
	if p.destination != nil {
		if err := p.destination(); err != nil {
			return nil, err
		}
	}
	batch, err := p.ingestor.Run(ctx, instruments, period, interval)
	if err != nil {
		return nil, err
	}
	res := &RunResult{
		RunID:   batch.RunID,
		Rows:    len(batch.Bars),
		Skipped: batch.Skipped,
		Report:  batch.Report,
	}
	if batch.Empty() {
		p.l.Warn("ingestion produced no bars", applogger.String("run_id", batch.RunID))
		res.URIs = []string{}
		return res, nil
	}
	uris, err := p.writer.Write(ctx, batch, batch.Timestamp)
	res.URIs = uris
	if err != nil {
		return res, fmt.Errorf("write batch %s: %w", batch.RunID, err)
	}
	return res, nil
}
