package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/services/barfile"
	"StockPilot/pkg/metrics"
)

// memStore is a create-only in-memory object store.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) PutIfAbsent(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && strings.Contains(key, m.failOn) {
		return errors.New("storage unavailable")
	}
	if _, ok := m.objects[key]; ok {
		return drepo.ErrObjectExists
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, drepo.ErrNotFound
	}
	return b, nil
}

func (m *memStore) URI(key string) string { return "mem://bucket/" + key }

func (m *memStore) Key(uri string) (string, error) {
	if !strings.HasPrefix(uri, "mem://bucket/") {
		return "", errors.New("foreign uri")
	}
	return strings.TrimPrefix(uri, "mem://bucket/"), nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.PartitionWritten
}

func (r *recordingEvents) PublishPartition(_ context.Context, ev models.PartitionWritten) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

var batchTS = time.Date(2025, 6, 2, 13, 40, 5, 0, time.UTC)

func testBatch(ids ...string) *models.Batch {
	b := &models.Batch{RunID: "run-1", Timestamp: batchTS}
	for _, id := range ids {
		for i := 2; i >= 0; i-- {
			px := 50 + float64(i)
			b.Bars = append(b.Bars, models.Bar{
				InstrumentID: id,
				Timestamp:    barStart.Add(time.Duration(i) * time.Minute),
				Open:         px,
				High:         px + 1,
				Low:          px - 1,
				Close:        px,
				AdjClose:     px,
				Volume:       100,
				Currency:     "USD",
				DisplayName:  id,
				Source:       models.SourceYFinance,
				IngestedAt:   batchTS,
			})
		}
	}
	return b
}

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("AAPL", batchTS)
	require.NoError(t, err)
	assert.Equal(t, "raw/2025-06-02/AAPL_2025-06-02T13-40-05Z.parquet", key)

	for _, bad := range []string{"", "A/B", `A\B`, "..", "X..Y"} {
		_, err := ObjectKey(bad, batchTS)
		assert.ErrorIs(t, err, ErrInvalidInstrumentID, bad)
	}
}

func TestWriteStoresSortedPartitions(t *testing.T) {
	store := newMemStore()
	events := &recordingEvents{}
	w := NewBatchWriter(store, events, metrics.Nop{}, 2, nil)

	uris, err := w.Write(context.Background(), testBatch("MSFT", "AAPL"), batchTS)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"mem://bucket/raw/2025-06-02/AAPL_2025-06-02T13-40-05Z.parquet",
		"mem://bucket/raw/2025-06-02/MSFT_2025-06-02T13-40-05Z.parquet",
	}, uris)

	data, err := store.Get(context.Background(), "raw/2025-06-02/AAPL_2025-06-02T13-40-05Z.parquet")
	require.NoError(t, err)
	bars, err := barfile.Decode(data)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp), "rows sorted by time")

	require.Len(t, events.events, 2)
	assert.Equal(t, 3, events.events[0].Rows)
	assert.Equal(t, "run-1", events.events[0].RunID)
}

func TestWriteIsIdempotent(t *testing.T) {
	store := newMemStore()
	events := &recordingEvents{}
	w := NewBatchWriter(store, events, metrics.Nop{}, 4, nil)

	first, err := w.Write(context.Background(), testBatch("KO"), batchTS)
	require.NoError(t, err)
	before, _ := store.Get(context.Background(), store.keys()[0])

	second, err := w.Write(context.Background(), testBatch("KO"), batchTS)
	require.NoError(t, err)
	after, _ := store.Get(context.Background(), store.keys()[0])

	assert.Equal(t, first, second)
	assert.Equal(t, before, after)
	assert.Len(t, store.keys(), 1)
	assert.Len(t, events.events, 1, "unchanged partitions are not announced again")
}

func TestWriteConflictOnDifferentBytes(t *testing.T) {
	store := newMemStore()
	w := NewBatchWriter(store, nil, metrics.Nop{}, 1, nil)

	_, err := w.Write(context.Background(), testBatch("PG"), batchTS)
	require.NoError(t, err)
	original, _ := store.Get(context.Background(), store.keys()[0])

	changed := testBatch("PG")
	changed.Bars[0].Close = 999
	changed.Bars[0].High = 1000
	uris, err := w.Write(context.Background(), changed, batchTS)
	assert.ErrorIs(t, err, ErrPartitionConflict)
	assert.Empty(t, uris)

	kept, _ := store.Get(context.Background(), store.keys()[0])
	assert.Equal(t, original, kept, "existing object is never overwritten")
}

func TestWriteSurfacesEveryFailedPartition(t *testing.T) {
	store := newMemStore()
	store.failOn = "NVDA"
	w := NewBatchWriter(store, nil, metrics.Nop{}, 4, nil)

	batch := testBatch("AAPL", "NVDA", "TSLA")
	batch.Bars = append(batch.Bars, models.Bar{InstrumentID: "../X", Timestamp: barStart, Close: 1, Open: 1, High: 1, Low: 1})

	uris, err := w.Write(context.Background(), batch, batchTS)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInstrumentID)
	assert.Contains(t, err.Error(), "NVDA")
	assert.Len(t, uris, 2)
	assert.Contains(t, uris[0], "AAPL_")
	assert.Contains(t, uris[1], "TSLA_")
}

func TestWriteEmptyBatch(t *testing.T) {
	store := newMemStore()
	uris, err := NewBatchWriter(store, nil, metrics.Nop{}, 1, nil).Write(context.Background(), &models.Batch{}, batchTS)
	require.NoError(t, err)
	assert.Empty(t, uris)
	assert.Empty(t, store.keys())
}
