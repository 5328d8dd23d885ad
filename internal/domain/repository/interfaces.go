package repository

import (
	"context"
	"errors"

	"StockPilot/internal/domain/models"
)

var (
	// ErrNotFound means the warehouse holds no rows for the request.
	ErrNotFound = errors.New("not found")
	// ErrObjectExists is returned by ObjectStore.PutIfAbsent when the key is taken.
	ErrObjectExists = errors.New("object already exists")
	// ErrPermanent marks upstream failures that retrying cannot fix.
	ErrPermanent = errors.New("permanent upstream failure")
)

//go:generate mockgen -source=interfaces.go -destination=mocks/interfaces_mock.go -package=mocks

// MarketData fetches raw bars for one instrument.
type MarketData interface {
	FetchBars(ctx context.Context, symbol, period, interval string) (*models.RawFrame, error)
}

// MetadataSource resolves static instrument metadata. Fields it cannot
// provide are left empty.
type MetadataSource interface {
	Name() string
	Lookup(ctx context.Context, symbol string) (models.Metadata, error)
}

// ObjectStore is the minimal object storage contract the batch writer needs.
type ObjectStore interface {
	// PutIfAbsent creates key with data, or returns ErrObjectExists without
	// touching the stored object.
	PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	URI(key string) string
	// Key resolves a URI produced by URI back to its key.
	Key(uri string) (string, error)
}

// EventPublisher emits pipeline events.
type EventPublisher interface {
	PublishPartition(ctx context.Context, ev models.PartitionWritten) error
}

// BarWarehouse accepts bars loaded from object storage.
type BarWarehouse interface {
	InsertBars(ctx context.Context, bars []models.Bar) error
}

type Metrics interface {
	RecordRun(status string, seconds float64)
	RecordInstrument(status string)
	RecordRowsDropped(reason string, n int)
	RecordPartition(status string)
	RecordCacheAccess(accessor string, hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
