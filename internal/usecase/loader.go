package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/services/barfile"
	pkgkafka "StockPilot/pkg/kafka"
	applogger "StockPilot/pkg/logger"
)

// WarehouseLoader copies written partitions from object storage into the
// warehouse. It consumes PartitionWritten events and also loads URIs on demand.
type WarehouseLoader struct {
	topic     string
	store     drepo.ObjectStore
	warehouse drepo.BarWarehouse
	metrics   drepo.Metrics
	l         *applogger.Logger
}

func NewWarehouseLoader(topic string, store drepo.ObjectStore, warehouse drepo.BarWarehouse, metrics drepo.Metrics, l *applogger.Logger) *WarehouseLoader {
	if l == nil {
		l = applogger.Nop()
	}
	return &WarehouseLoader{topic: topic, store: store, warehouse: warehouse, metrics: metrics, l: l}
}

func (h *WarehouseLoader) Topic() string { return h.topic }

// Handle loads the partition named by a PartitionWritten event.
func (h *WarehouseLoader) Handle(ctx context.Context, b []byte) error {
	var ev models.PartitionWritten
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("loader_unmarshal")
		return fmt.Errorf("decode partition event: %w", err)
	}
	// time from the run's batch timestamp to the event reaching the loader
	if !ev.BatchTime.IsZero() {
		h.metrics.RecordLatency("load_lag", time.Since(ev.BatchTime).Seconds())
	}

	key := ev.Key
	if key == "" {
		k, err := h.store.Key(ev.URI)
		if err != nil {
			h.metrics.RecordError("loader_uri")
			return err
		}
		key = k
	}
	n, err := h.loadKey(ctx, key)
	if err != nil {
		return err
	}
	h.l.Info("partition loaded",
		applogger.String("run_id", ev.RunID),
		applogger.String("instrument", ev.InstrumentID),
		applogger.String("key", key),
		applogger.Int("rows", n),
	)
	return nil
}

// LoadURI loads one partition by URI and returns the number of rows inserted.
func (h *WarehouseLoader) LoadURI(ctx context.Context, uri string) (int, error) {
	key, err := h.store.Key(uri)
	if err != nil {
		return 0, err
	}
	return h.loadKey(ctx, key)
}

func (h *WarehouseLoader) loadKey(ctx context.Context, key string) (int, error) {
	start := time.Now()
	data, err := h.store.Get(ctx, key)
	if err != nil {
		h.metrics.RecordError("loader_get")
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	bars, err := barfile.Decode(data)
	if err != nil {
		h.metrics.RecordError("loader_decode")
		return 0, fmt.Errorf("decode %s: %w", key, err)
	}
	if err := h.warehouse.InsertBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	h.metrics.RecordLatency("partition_load", time.Since(start).Seconds())
	return len(bars), nil
}

var _ pkgkafka.MessageHandler = (*WarehouseLoader)(nil)
