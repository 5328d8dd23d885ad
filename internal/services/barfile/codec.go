// Package barfile encodes bar partitions as parquet files.
package barfile

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"StockPilot/internal/domain/models"
)

// ContentType is stored with every object.
const ContentType = "application/vnd.apache.parquet"

// row fixes the file schema. Field order is column order.
type row struct {
	DateTime   time.Time `parquet:"date_time,timestamp(microsecond)"`
	Ticker     string    `parquet:"ticker"`
	Name       string    `parquet:"name"`
	Currency   string    `parquet:"currency"`
	Open       float64   `parquet:"open"`
	High       float64   `parquet:"high"`
	Low        float64   `parquet:"low"`
	Close      float64   `parquet:"close"`
	AdjClose   float64   `parquet:"adj_close"`
	Volume     int64     `parquet:"volume"`
	Source     string    `parquet:"source"`
	Date       int32     `parquet:"date,date"`
	IngestedAt time.Time `parquet:"ingested_at,timestamp(microsecond)"`
}

// Columns lists the column names in file order.
func Columns() []string {
	fields := parquet.SchemaOf(row{}).Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name()
	}
	return out
}

const secondsPerDay = 24 * 60 * 60

func toRow(b models.Bar) row {
	return row{
		DateTime:   b.Timestamp.UTC().Truncate(time.Microsecond),
		Ticker:     b.InstrumentID,
		Name:       b.DisplayName,
		Currency:   b.Currency,
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		AdjClose:   b.AdjClose,
		Volume:     b.Volume,
		Source:     b.Source,
		Date:       int32(b.CalendarDate().Unix() / secondsPerDay),
		IngestedAt: b.IngestedAt.UTC().Truncate(time.Microsecond),
	}
}

func (r row) bar() models.Bar {
	return models.Bar{
		InstrumentID: r.Ticker,
		Timestamp:    r.DateTime.UTC(),
		Open:         r.Open,
		High:         r.High,
		Low:          r.Low,
		Close:        r.Close,
		AdjClose:     r.AdjClose,
		Volume:       r.Volume,
		Currency:     r.Currency,
		DisplayName:  r.Name,
		Source:       r.Source,
		IngestedAt:   r.IngestedAt.UTC(),
	}
}

// Encode writes bars in the given order. The output depends only on the
// input: the same bars always give the same bytes.
func Encode(bars []models.Bar) ([]byte, error) {
	rows := make([]row, len(bars))
	for i, b := range bars {
		rows[i] = toRow(b)
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, fmt.Errorf("encode parquet: %w", err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) ([]models.Bar, error) {
	rows, err := parquet.Read[row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode parquet: %w", err)
	}
	bars := make([]models.Bar, len(rows))
	for i, r := range rows {
		bars[i] = r.bar()
	}
	return bars, nil
}
