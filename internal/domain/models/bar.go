package models

import (
	"sort"
	"time"
)

const (
	// SourceYFinance tags bars fetched from the Yahoo Finance chart API.
	SourceYFinance = "yfinance"
	// UnknownCurrency is used when no metadata source reports a currency.
	UnknownCurrency = "UNKNOWN"
)

// Bar is one OHLCV row for an instrument at a timestamp.
type Bar struct {
	InstrumentID string    `json:"instrument_id"`
	Timestamp    time.Time `json:"timestamp"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	AdjClose     float64   `json:"adj_close"`
	Volume       int64     `json:"volume"`
	Currency     string    `json:"currency"`
	DisplayName  string    `json:"display_name"`
	Source       string    `json:"source"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// CalendarDate is the UTC date of the bar timestamp.
func (b Bar) CalendarDate() time.Time {
	t := b.Timestamp.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Metadata is the static per-instrument description attached to every bar.
type Metadata struct {
	DisplayName string `json:"display_name"`
	Currency    string `json:"currency"`
}

// Complete reports whether both fields are known.
func (m Metadata) Complete() bool { return m.DisplayName != "" && m.Currency != "" }

// Merge fills empty fields of m from other.
func (m Metadata) Merge(other Metadata) Metadata {
	if m.DisplayName == "" {
		m.DisplayName = other.DisplayName
	}
	if m.Currency == "" {
		m.Currency = other.Currency
	}
	return m
}

// SkippedInstrument records why an instrument contributed nothing to a batch.
type SkippedInstrument struct {
	InstrumentID string `json:"instrument_id"`
	Reason       string `json:"reason"`
	Attempts     int    `json:"attempts"`
}

// Batch is everything one ingestion run produced. All bars share Timestamp as ingested_at.
type Batch struct {
	RunID     string              `json:"run_id"`
	Timestamp time.Time           `json:"timestamp"`
	Bars      []Bar               `json:"bars"`
	Skipped   []SkippedInstrument `json:"skipped,omitempty"`
	Report    NormalizeReport     `json:"report"`
}

func (b *Batch) Empty() bool { return b == nil || len(b.Bars) == 0 }

// Partitions groups bars by instrument, each group sorted by timestamp.
// The returned ids are sorted so callers iterate deterministically.
func (b *Batch) Partitions() ([]string, map[string][]Bar) {
	groups := make(map[string][]Bar)
	if b == nil {
		return nil, groups
	}
	for _, bar := range b.Bars {
		groups[bar.InstrumentID] = append(groups[bar.InstrumentID], bar)
	}
	ids := make([]string, 0, len(groups))
	for id, bars := range groups {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, groups
}

// NormalizeReport counts rows dropped or repaired by the normalizer.
type NormalizeReport struct {
	Input            int `json:"input"`
	Kept             int `json:"kept"`
	DroppedNullClose int `json:"dropped_null_close"`
	DroppedInvalid   int `json:"dropped_invalid"`
	DroppedOHLC      int `json:"dropped_ohlc"`
	FlaggedOHLC      int `json:"flagged_ohlc"`
	Duplicates       int `json:"duplicates"`
	Backfilled       int `json:"backfilled"`
}

// Add accumulates another report into r.
func (r *NormalizeReport) Add(o NormalizeReport) {
	r.Input += o.Input
	r.Kept += o.Kept
	r.DroppedNullClose += o.DroppedNullClose
	r.DroppedInvalid += o.DroppedInvalid
	r.DroppedOHLC += o.DroppedOHLC
	r.FlaggedOHLC += o.FlaggedOHLC
	r.Duplicates += o.Duplicates
	r.Backfilled += o.Backfilled
}
