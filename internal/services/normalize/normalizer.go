package normalize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"StockPilot/internal/domain/models"
)

// Policy decides what happens to rows whose high/low do not bracket open and close.
type Policy string

const (
	PolicyReject Policy = "reject"
	PolicyFlag   Policy = "flag"
)

// ErrNoCloseColumn means the frame cannot produce any valid bar.
var ErrNoCloseColumn = errors.New("frame has no close column")

const (
	colOpen     = "open"
	colHigh     = "high"
	colLow      = "low"
	colClose    = "close"
	colAdjClose = "adj_close"
	colVolume   = "volume"
)

var canonical = map[string]string{
	"open":     colOpen,
	"high":     colHigh,
	"low":      colLow,
	"close":    colClose,
	"adjclose": colAdjClose,
	"volume":   colVolume,
}

// CanonicalColumn maps a provider label like "Adj Close" to its canonical name.
func CanonicalColumn(label string) (string, bool) {
	key := strings.ToLower(label)
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	name, ok := canonical[key]
	return name, ok
}

// FlattenColumns keeps the first level of hierarchical labels.
func FlattenColumns(cols [][]string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if len(c) > 0 {
			out[i] = c[0]
		}
	}
	return out
}

type Normalizer struct {
	policy Policy
}

func New(policy Policy) *Normalizer {
	if policy != PolicyFlag {
		policy = PolicyReject
	}
	return &Normalizer{policy: policy}
}

// Normalize converts a raw frame to canonical bars sorted by time. Instrument
// metadata and ingested_at are left for the caller.
func (n *Normalizer) Normalize(f *models.RawFrame) ([]models.Bar, models.NormalizeReport, error) {
	var rep models.NormalizeReport
	if f.Empty() {
		return nil, rep, nil
	}
	rep.Input = len(f.Index)

	idx := make(map[string]int, len(canonical))
	for i, label := range FlattenColumns(f.Columns) {
		name, ok := CanonicalColumn(label)
		if !ok {
			continue
		}
		// several tickers in one frame repeat labels; the first one wins
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	if _, ok := idx[colClose]; !ok {
		return nil, rep, fmt.Errorf("normalize %s: %w", f.Symbol, ErrNoCloseColumn)
	}

	bars := make([]models.Bar, 0, len(f.Index))
	for i, ts := range f.Index {
		var row []*float64
		if i < len(f.Rows) {
			row = f.Rows[i]
		}
		cell := func(name string) *float64 {
			j, ok := idx[name]
			if !ok || j >= len(row) {
				return nil
			}
			return row[j]
		}

		bar, outcome := n.normalizeRow(cell)
		switch outcome {
		case rowNullClose:
			rep.DroppedNullClose++
			continue
		case rowInvalid:
			rep.DroppedInvalid++
			continue
		case rowOHLC:
			rep.DroppedOHLC++
			continue
		case rowFlagged:
			rep.FlaggedOHLC++
		case rowBackfilled:
			rep.Backfilled++
		}
		bar.InstrumentID = f.Symbol
		bar.Timestamp = ts.UTC()
		bar.Source = models.SourceYFinance
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	out := bars[:0]
	for _, b := range bars {
		if k := len(out); k > 0 && out[k-1].Timestamp.Equal(b.Timestamp) {
			out[k-1] = b
			rep.Duplicates++
			continue
		}
		out = append(out, b)
	}
	rep.Kept = len(out)
	return out, rep, nil
}

type rowOutcome int

const (
	rowOK rowOutcome = iota
	rowBackfilled
	rowFlagged
	rowNullClose
	rowInvalid
	rowOHLC
)

func (n *Normalizer) normalizeRow(cell func(string) *float64) (models.Bar, rowOutcome) {
	c := cell(colClose)
	if c == nil || math.IsNaN(*c) {
		return models.Bar{}, rowNullClose
	}
	if !usablePrice(*c) {
		return models.Bar{}, rowInvalid
	}
	bar := models.Bar{Close: *c}
	filled := false

	pick := func(name string, fallback float64) (float64, bool) {
		v := cell(name)
		if v == nil || math.IsNaN(*v) {
			filled = true
			return fallback, true
		}
		return *v, usablePrice(*v)
	}

	var ok bool
	if bar.Open, ok = pick(colOpen, bar.Close); !ok {
		return models.Bar{}, rowInvalid
	}
	if bar.High, ok = pick(colHigh, math.Max(bar.Open, bar.Close)); !ok {
		return models.Bar{}, rowInvalid
	}
	if bar.Low, ok = pick(colLow, math.Min(bar.Open, bar.Close)); !ok {
		return models.Bar{}, rowInvalid
	}
	if bar.AdjClose, ok = pick(colAdjClose, bar.Close); !ok {
		return models.Bar{}, rowInvalid
	}

	switch v := cell(colVolume); {
	case v == nil || math.IsNaN(*v):
		filled = true
	case math.IsInf(*v, 0) || *v < 0:
		return models.Bar{}, rowInvalid
	default:
		bar.Volume = int64(math.Round(*v))
	}

	top, bottom := math.Max(bar.Open, bar.Close), math.Min(bar.Open, bar.Close)
	if bar.High < top || bar.Low > bottom {
		if n.policy == PolicyReject {
			return models.Bar{}, rowOHLC
		}
		bar.High = math.Max(bar.High, top)
		bar.Low = math.Min(bar.Low, bottom)
		return bar, rowFlagged
	}
	if filled {
		return bar, rowBackfilled
	}
	return bar, rowOK
}

func usablePrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
