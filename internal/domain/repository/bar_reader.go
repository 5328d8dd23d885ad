package repository

import (
	"context"

	"StockPilot/internal/domain/models"
)

// BarReader provides read-only access to loaded bars for the query layer.
// Implementations return ErrNotFound when an instrument has no rows.
type BarReader interface {
	LatestBars(ctx context.Context, symbol string, n int) ([]models.BarPoint, error)
	Instruments(ctx context.Context) ([]string, error)
}
