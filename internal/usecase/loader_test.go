package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/pkg/metrics"
)

type fakeWarehouse struct {
	bars []models.Bar
	err  error
}

func (f *fakeWarehouse) InsertBars(_ context.Context, bars []models.Bar) error {
	if f.err != nil {
		return f.err
	}
	f.bars = append(f.bars, bars...)
	return nil
}

func writtenEvent(t *testing.T, store *memStore) (models.PartitionWritten, []byte) {
	t.Helper()
	events := &recordingEvents{}
	w := NewBatchWriter(store, events, metrics.Nop{}, 1, nil)
	_, err := w.Write(context.Background(), testBatch("AAPL"), batchTS)
	require.NoError(t, err)
	require.Len(t, events.events, 1)
	b, err := json.Marshal(events.events[0])
	require.NoError(t, err)
	return events.events[0], b
}

func TestLoaderHandlesPartitionEvent(t *testing.T) {
	store := newMemStore()
	_, payload := writtenEvent(t, store)
	wh := &fakeWarehouse{}
	loader := NewWarehouseLoader("bars.partition_written", store, wh, metrics.Nop{}, nil)

	require.NoError(t, loader.Handle(context.Background(), payload))
	require.Len(t, wh.bars, 3)
	assert.Equal(t, "AAPL", wh.bars[0].InstrumentID)
	assert.True(t, batchTS.Equal(wh.bars[0].IngestedAt))
	assert.Equal(t, "bars.partition_written", loader.Topic())
}

func TestLoaderResolvesKeyFromURI(t *testing.T) {
	store := newMemStore()
	ev, _ := writtenEvent(t, store)
	ev.Key = ""
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	wh := &fakeWarehouse{}
	loader := NewWarehouseLoader("t", store, wh, metrics.Nop{}, nil)
	require.NoError(t, loader.Handle(context.Background(), payload))
	assert.Len(t, wh.bars, 3)

	n, err := loader.LoadURI(context.Background(), ev.URI)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLoaderErrors(t *testing.T) {
	store := newMemStore()
	_, payload := writtenEvent(t, store)

	t.Run("bad payload", func(t *testing.T) {
		loader := NewWarehouseLoader("t", store, &fakeWarehouse{}, metrics.Nop{}, nil)
		assert.Error(t, loader.Handle(context.Background(), []byte("{")))
	})

	t.Run("missing object", func(t *testing.T) {
		loader := NewWarehouseLoader("t", newMemStore(), &fakeWarehouse{}, metrics.Nop{}, nil)
		err := loader.Handle(context.Background(), payload)
		assert.ErrorIs(t, err, drepo.ErrNotFound)
	})

	t.Run("warehouse down", func(t *testing.T) {
		down := errors.New("clickhouse down")
		loader := NewWarehouseLoader("t", store, &fakeWarehouse{err: down}, metrics.Nop{}, nil)
		assert.ErrorIs(t, loader.Handle(context.Background(), payload), down)
	})

	t.Run("foreign uri", func(t *testing.T) {
		loader := NewWarehouseLoader("t", store, &fakeWarehouse{}, metrics.Nop{}, nil)
		_, err := loader.LoadURI(context.Background(), "s3://elsewhere/x.parquet")
		assert.Error(t, err)
	})
}
