package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/services/signals"
	"StockPilot/pkg/cache"
	"StockPilot/pkg/metrics"
)

type fakeReader struct {
	mu    sync.Mutex
	bars  map[string][]models.BarPoint
	calls int
}

func (f *fakeReader) LatestBars(_ context.Context, symbol string, n int) ([]models.BarPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	all := f.bars[symbol]
	if len(all) == 0 {
		return nil, drepo.ErrNotFound
	}
	if n < len(all) {
		all = all[len(all)-n:]
	}
	return append([]models.BarPoint(nil), all...), nil
}

func (f *fakeReader) Instruments(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.bars))
	for id := range f.bars {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func points(id string, closes []float64, volumes []int64) []models.BarPoint {
	out := make([]models.BarPoint, len(closes))
	for i, c := range closes {
		out[i] = models.BarPoint{Bar: models.Bar{
			InstrumentID: id,
			DisplayName:  id + " Corp",
			Currency:     "USD",
			Timestamp:    barStart.Add(time.Duration(i) * time.Minute),
			Open:         c,
			High:         c,
			Low:          c,
			Close:        c,
			AdjClose:     c,
			Volume:       volumes[i%len(volumes)],
		}}
	}
	return out
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newQuery(t *testing.T, r *fakeReader) (*QueryService, *testClock) {
	t.Helper()
	clk := &testClock{t: time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)}
	mc := cache.NewMemoryCache(cache.WithMemoryClock(clk.now))
	t.Cleanup(func() { _ = mc.Close() })
	q := NewQueryService(r, signals.New(signals.DefaultConfig()), mc, metrics.Nop{}, QueryConfig{}, nil)
	return q, clk
}

func TestSnapshotChange(t *testing.T) {
	r := &fakeReader{bars: map[string][]models.BarPoint{
		"AAPL": points("AAPL", []float64{200, 198.5, 201.25}, []int64{1000}),
	}}
	q, _ := newQuery(t, r)

	s, err := q.Snapshot(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.InstrumentID)
	assert.Equal(t, "AAPL Corp", s.DisplayName)
	assert.Equal(t, 201.25, s.Price)
	require.NotNil(t, s.PreviousClose)
	assert.Equal(t, 198.5, *s.PreviousClose)
	require.NotNil(t, s.Change)
	assert.Equal(t, 2.75, *s.Change)
	require.NotNil(t, s.ChangePct)
	assert.Equal(t, 1.3854, *s.ChangePct)
}

func TestSnapshotSingleBarHasNoChange(t *testing.T) {
	r := &fakeReader{bars: map[string][]models.BarPoint{"KO": points("KO", []float64{60}, []int64{5})}}
	q, _ := newQuery(t, r)

	s, err := q.Snapshot(context.Background(), "KO")
	require.NoError(t, err)
	assert.Nil(t, s.PreviousClose)
	assert.Nil(t, s.Change)
	assert.Nil(t, s.ChangePct)
}

func TestQueryCacheHonoursTTL(t *testing.T) {
	r := &fakeReader{bars: map[string][]models.BarPoint{
		"MSFT": points("MSFT", []float64{1, 2, 3}, []int64{10}),
	}}
	q, clk := newQuery(t, r)
	ctx := context.Background()

	_, err := q.Snapshot(ctx, "MSFT")
	require.NoError(t, err)
	_, err = q.Snapshot(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 1, r.callCount(), "second read within ttl is served from cache")

	clk.t = clk.t.Add(31 * time.Second)
	_, err = q.Snapshot(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 2, r.callCount(), "price ttl is 30s")
}

func TestNotFoundIsNotCached(t *testing.T) {
	r := &fakeReader{bars: map[string][]models.BarPoint{}}
	q, _ := newQuery(t, r)

	_, err := q.LatestBars(context.Background(), "NFLX", 10)
	assert.ErrorIs(t, err, drepo.ErrNotFound)
	_, err = q.LatestBars(context.Background(), "NFLX", 10)
	assert.ErrorIs(t, err, drepo.ErrNotFound)
	assert.Equal(t, 2, r.callCount())
}

func TestInvalidIDRejected(t *testing.T) {
	q, _ := newQuery(t, &fakeReader{})
	_, err := q.Trend(context.Background(), "../etc")
	assert.ErrorIs(t, err, ErrInvalidInstrumentID)
	_, err = q.Snapshot(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidInstrumentID)
}

func TestVolumeSeriesAverage(t *testing.T) {
	r := &fakeReader{bars: map[string][]models.BarPoint{
		"V": points("V", []float64{1, 1, 1, 1}, []int64{100, 200, 300, 400}),
	}}
	q, _ := newQuery(t, r)

	vs, err := q.VolumeSeries(context.Background(), "V", 3)
	require.NoError(t, err)
	require.Len(t, vs.Points, 3)
	assert.Equal(t, int64(200), vs.Points[0].Volume)
	assert.Equal(t, 300.0, vs.Average)
}

func TestTrendStates(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name        string
		close       float64
		fast, slow  *float64
		want        models.TrendState
	}{
		{"bullish", 105, f(102), f(100), models.TrendBullish},
		{"bearish", 95, f(98), f(100), models.TrendBearish},
		{"mixed", 101, f(98), f(100), models.TrendNeutral},
		{"averages undefined", 101, nil, nil, models.TrendNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := models.BarPoint{Bar: models.Bar{Close: tt.close}, SMA9: tt.fast, SMA21: tt.slow}
			assert.Equal(t, tt.want, trendOf("X", b).State)
		})
	}
}

func TestSignalsInsufficientIsAResult(t *testing.T) {
	r := &fakeReader{bars: map[string][]models.BarPoint{
		"GE": points("GE", []float64{1, 2, 3, 4, 5}, []int64{10}),
	}}
	q, _ := newQuery(t, r)

	res, err := q.Signals(context.Background(), "GE", 60)
	require.NoError(t, err)
	assert.Equal(t, models.SignalInsufficientData, res.Status)
	assert.Equal(t, models.Hold, res.Recommendation)
	assert.Equal(t, 5, res.Available)
}

func TestSignalsScoresFullWindow(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	r := &fakeReader{bars: map[string][]models.BarPoint{"META": points("META", closes, []int64{1000})}}
	q, _ := newQuery(t, r)

	res, err := q.Signals(context.Background(), "META", 60)
	require.NoError(t, err)
	assert.Equal(t, models.SignalOK, res.Status)
	require.NotNil(t, res.Indicators)
	assert.Equal(t, models.TrendBullish, res.Indicators.Trend)
}

func TestVolumeAlerts(t *testing.T) {
	spike := make([]int64, 20)
	flat := make([]int64, 20)
	for i := range spike {
		spike[i], flat[i] = 100, 100
	}
	spike[19] = 1000
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 10
	}
	r := &fakeReader{bars: map[string][]models.BarPoint{
		"TSLA": points("TSLA", closes, spike),
		"PEP":  points("PEP", closes, flat),
	}}
	q, _ := newQuery(t, r)

	alerts, err := q.VolumeAlerts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "TSLA", alerts[0].InstrumentID)
	assert.Equal(t, int64(1000), alerts[0].Volume)
	assert.Equal(t, 145.0, alerts[0].Average)
	assert.Equal(t, 6.9, alerts[0].Ratio)

	alerts, err = q.VolumeAlerts(context.Background(), []string{"pep", "UNKNOWN"})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestOverview(t *testing.T) {
	r := &fakeReader{bars: map[string][]models.BarPoint{
		"NVDA": points("NVDA", []float64{1, 2, 3}, []int64{10}),
	}}
	q, _ := newQuery(t, r)

	ov, err := q.Overview(context.Background(), "NVDA", 60)
	require.NoError(t, err)
	assert.Len(t, ov.History, 3)
	require.NotNil(t, ov.Snapshot)
	require.NotNil(t, ov.Signals)
	assert.Equal(t, models.SignalInsufficientData, ov.Signals.Status)
	assert.Empty(t, ov.Errors)

	_, err = q.Overview(context.Background(), "NONE", 60)
	assert.ErrorIs(t, err, drepo.ErrNotFound)
}

func TestInstrumentsCached(t *testing.T) {
	r := &fakeReader{bars: map[string][]models.BarPoint{
		"B": points("B", []float64{1}, []int64{1}),
		"A": points("A", []float64{1}, []int64{1}),
	}}
	q, _ := newQuery(t, r)

	ids, err := q.Instruments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids)
}
