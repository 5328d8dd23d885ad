package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPilot/internal/domain/models"
)

var base = time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)

func f(v float64) *float64 { return models.Float(v) }

// frame builds a yfinance-style frame with two-level labels.
func frame(symbol string, rows ...[]*float64) *models.RawFrame {
	fr := &models.RawFrame{
		Symbol: symbol,
		Columns: [][]string{
			{"Open", symbol}, {"High", symbol}, {"Low", symbol},
			{"Close", symbol}, {"Adj Close", symbol}, {"Volume", symbol},
		},
	}
	for i, r := range rows {
		fr.Index = append(fr.Index, base.Add(time.Duration(i)*time.Minute))
		fr.Rows = append(fr.Rows, r)
	}
	return fr
}

func TestCanonicalColumn(t *testing.T) {
	tests := map[string]string{
		"Open":      "open",
		"HIGH":      "high",
		"low":       "low",
		"Close":     "close",
		"Adj Close": "adj_close",
		"adj_close": "adj_close",
		"Volume":    "volume",
	}
	for in, want := range tests {
		got, ok := CanonicalColumn(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := CanonicalColumn("Dividends")
	assert.False(t, ok)
}

func TestFlattenColumns(t *testing.T) {
	got := FlattenColumns([][]string{{"Close", "AAPL"}, {"Volume"}, {}})
	assert.Equal(t, []string{"Close", "Volume", ""}, got)
}

func TestNormalizeDropsNullClose(t *testing.T) {
	n := New(PolicyReject)
	fr := frame("AAPL",
		[]*float64{f(10), f(11), f(9), f(10.5), f(10.4), f(100)},
		[]*float64{f(10), f(11), f(9), nil, f(10.4), f(100)},
		[]*float64{f(10), f(11), f(9), f(math.NaN()), nil, f(100)},
	)

	bars, rep, err := n.Normalize(fr)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 2, rep.DroppedNullClose)
	assert.Equal(t, 3, rep.Input)
	assert.Equal(t, 1, rep.Kept)

	b := bars[0]
	assert.Equal(t, "AAPL", b.InstrumentID)
	assert.Equal(t, 10.5, b.Close)
	assert.Equal(t, 10.4, b.AdjClose)
	assert.Equal(t, int64(100), b.Volume)
	assert.Equal(t, models.SourceYFinance, b.Source)
	assert.Equal(t, base, b.Timestamp)
}

func TestNormalizeBackfillsEverythingButClose(t *testing.T) {
	n := New(PolicyReject)
	fr := frame("MSFT", []*float64{nil, nil, nil, f(42), nil, nil})

	bars, rep, err := n.Normalize(fr)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	b := bars[0]
	assert.Equal(t, 42.0, b.Open)
	assert.Equal(t, 42.0, b.High)
	assert.Equal(t, 42.0, b.Low)
	assert.Equal(t, 42.0, b.AdjClose)
	assert.Equal(t, int64(0), b.Volume)
	assert.Equal(t, 1, rep.Backfilled)
}

func TestNormalizeOHLCPolicy(t *testing.T) {
	// high below close
	bad := []*float64{f(10), f(10.2), f(9.8), f(10.5), f(10.5), f(7)}

	t.Run("reject", func(t *testing.T) {
		bars, rep, err := New(PolicyReject).Normalize(frame("TSLA", bad))
		require.NoError(t, err)
		assert.Empty(t, bars)
		assert.Equal(t, 1, rep.DroppedOHLC)
	})

	t.Run("flag repairs the range", func(t *testing.T) {
		bars, rep, err := New(PolicyFlag).Normalize(frame("TSLA", bad))
		require.NoError(t, err)
		require.Len(t, bars, 1)
		assert.Equal(t, 1, rep.FlaggedOHLC)
		assert.Equal(t, 10.5, bars[0].High)
	})
}

func TestNormalizeInvariantsHold(t *testing.T) {
	n := New(PolicyReject)
	fr := frame("GOOGL",
		[]*float64{f(100), f(101), f(99), f(100.5), nil, f(10)},
		[]*float64{nil, f(102), nil, f(101), nil, nil},
		[]*float64{f(101), nil, f(100.5), f(100.8), nil, f(5)},
		[]*float64{f(-1), f(102), f(99), f(100), nil, f(5)},
		[]*float64{f(100), f(101), f(99), f(math.Inf(1)), nil, f(5)},
		[]*float64{f(100), f(101), f(99), f(100), nil, f(-5)},
	)
	bars, rep, err := n.Normalize(fr)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.DroppedInvalid)
	require.Len(t, bars, 3)
	for _, b := range bars {
		assert.GreaterOrEqual(t, b.High, math.Max(b.Open, b.Close))
		assert.LessOrEqual(t, b.Low, math.Min(b.Open, b.Close))
		assert.Greater(t, b.Close, 0.0)
		assert.GreaterOrEqual(t, b.Volume, int64(0))
	}
}

func TestNormalizeSortsAndDedupes(t *testing.T) {
	fr := frame("V",
		[]*float64{f(1), f(1), f(1), f(1), nil, f(1)},
		[]*float64{f(2), f(2), f(2), f(2), nil, f(2)},
		[]*float64{f(3), f(3), f(3), f(3), nil, f(3)},
	)
	// out of order, with the last row repeating the first timestamp
	fr.Index = []time.Time{base.Add(time.Minute), base, base.Add(time.Minute)}

	bars, rep, err := New(PolicyReject).Normalize(fr)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, base, bars[0].Timestamp)
	assert.Equal(t, 3.0, bars[1].Close, "later duplicate wins")
	assert.Equal(t, 1, rep.Duplicates)
}

func TestNormalizeMissingCloseColumn(t *testing.T) {
	fr := &models.RawFrame{
		Symbol:  "PEP",
		Columns: [][]string{{"Open"}, {"Volume"}},
		Index:   []time.Time{base},
		Rows:    [][]*float64{{f(1), f(2)}},
	}
	_, _, err := New(PolicyReject).Normalize(fr)
	assert.ErrorIs(t, err, ErrNoCloseColumn)
}

func TestNormalizeEmptyFrame(t *testing.T) {
	bars, rep, err := New(PolicyReject).Normalize(&models.RawFrame{Symbol: "KO"})
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Zero(t, rep.Input)
}
