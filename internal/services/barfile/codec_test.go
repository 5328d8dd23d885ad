package barfile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPilot/internal/domain/models"
)

func sampleBars() []models.Bar {
	ts := time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)
	ingested := time.Date(2025, 6, 2, 13, 40, 0, 0, time.UTC)
	out := make([]models.Bar, 3)
	for i := range out {
		px := 100 + float64(i)
		out[i] = models.Bar{
			InstrumentID: "AAPL",
			Timestamp:    ts.Add(time.Duration(i) * time.Minute),
			Open:         px,
			High:         px + 1,
			Low:          px - 1,
			Close:        px + 0.5,
			AdjClose:     px + 0.5,
			Volume:       int64(1000 * (i + 1)),
			Currency:     "USD",
			DisplayName:  "Apple Inc.",
			Source:       models.SourceYFinance,
			IngestedAt:   ingested,
		}
	}
	return out
}

func TestColumnsOrder(t *testing.T) {
	assert.Equal(t, []string{
		"date_time", "ticker", "name", "currency", "open", "high", "low",
		"close", "adj_close", "volume", "source", "date", "ingested_at",
	}, Columns())
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(sampleBars())
	require.NoError(t, err)
	b, err := Encode(sampleBars())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeRestoresBars(t *testing.T) {
	in := sampleBars()
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.True(t, in[i].Timestamp.Equal(out[i].Timestamp))
		assert.True(t, in[i].IngestedAt.Equal(out[i].IngestedAt))
		assert.Equal(t, in[i].Close, out[i].Close)
		assert.Equal(t, in[i].Volume, out[i].Volume)
		assert.Equal(t, "Apple Inc.", out[i].DisplayName)
	}
}
