package models

import "time"

// RawFrame is a provider response before normalization: a time index, column
// labels that may be hierarchical (e.g. ["Close", "AAPL"]), and a value grid
// where nil marks a missing cell.
type RawFrame struct {
	Symbol  string
	Columns [][]string
	Index   []time.Time
	Rows    [][]*float64
	Meta    Metadata
}

func (f *RawFrame) Empty() bool { return f == nil || len(f.Index) == 0 || len(f.Columns) == 0 }

// Float returns a pointer to v, for building frames.
func Float(v float64) *float64 { return &v }
