package service

import (
	"context"

	"StockPilot/internal/domain/models"
)

// SignalEvaluator scores a window of bars. Implementations must be pure.
type SignalEvaluator interface {
	Evaluate(w models.SignalInputWindow) models.SignalResult
	// Window builds an evaluation window (with aligned moving averages) from bars.
	Window(instrumentID string, bars []models.Bar) models.SignalInputWindow
}

// MetadataResolver attaches display metadata to an instrument.
type MetadataResolver interface {
	Resolve(ctx context.Context, symbol string, known models.Metadata) models.Metadata
}
