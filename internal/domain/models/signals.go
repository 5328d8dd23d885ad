package models

import "time"

// BarPoint is a stored bar with the moving averages computed by the warehouse.
type BarPoint struct {
	Bar
	SMA9  *float64 `json:"sma_9"`
	SMA21 *float64 `json:"sma_21"`
}

// Snapshot is the latest price with its change against the prior bar.
type Snapshot struct {
	InstrumentID  string    `json:"instrument_id"`
	DisplayName   string    `json:"display_name"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
	Price         float64   `json:"price"`
	PreviousClose *float64  `json:"previous_close,omitempty"`
	Change        *float64  `json:"change,omitempty"`
	ChangePct     *float64  `json:"change_pct,omitempty"`
	Volume        int64     `json:"volume"`
}

type VolumePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Volume    int64     `json:"volume"`
}

// VolumeSeries is a newest-last volume series and its mean.
type VolumeSeries struct {
	InstrumentID string        `json:"instrument_id"`
	Points       []VolumePoint `json:"points"`
	Average      float64       `json:"average"`
}

type Trend struct {
	InstrumentID string     `json:"instrument_id"`
	State        TrendState `json:"state"`
	Close        float64    `json:"close"`
	SMA9         *float64   `json:"sma_9,omitempty"`
	SMA21        *float64   `json:"sma_21,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// VolumeAlert flags an instrument whose latest volume is far above its average.
type VolumeAlert struct {
	InstrumentID string    `json:"instrument_id"`
	Volume       int64     `json:"volume"`
	Average      float64   `json:"average"`
	Ratio        float64   `json:"ratio"`
	Timestamp    time.Time `json:"timestamp"`
}

// Overview bundles every read accessor for one instrument. A part that failed
// is left nil and its error recorded under the part name.
type Overview struct {
	InstrumentID string            `json:"instrument_id"`
	Timestamp    time.Time         `json:"timestamp"`
	History      []BarPoint        `json:"history,omitempty"`
	Snapshot     *Snapshot         `json:"snapshot,omitempty"`
	Volume       *VolumeSeries     `json:"volume,omitempty"`
	Trend        *Trend            `json:"trend,omitempty"`
	Signals      *SignalResult     `json:"signals,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// PartitionWritten is published after a parquet partition lands in object storage.
type PartitionWritten struct {
	RunID        string    `json:"run_id"`
	URI          string    `json:"uri"`
	Key          string    `json:"key"`
	InstrumentID string    `json:"instrument_id"`
	Rows         int       `json:"rows"`
	BatchTime    time.Time `json:"batch_time"`
}

// IngestionRequest is the queued payload for an on-demand run.
type IngestionRequest struct {
	ID          string    `json:"id"`
	Instruments []string  `json:"instruments"`
	Period      string    `json:"period"`
	Interval    string    `json:"interval"`
	RequestedAt time.Time `json:"requested_at"`
}
