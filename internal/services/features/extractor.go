package features

import (
	"math"

	"StockPilot/internal/domain/models"
)

// Closes extracts close prices in bar order.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// SMA returns the simple moving average aligned to xs. Positions with fewer
// than period prior values are NaN.
func SMA(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i := range xs {
		if i+1 < period {
			out[i] = math.NaN()
			continue
		}
		// summed per window so values do not drift on long series
		sum := 0.0
		for _, x := range xs[i+1-period : i+1] {
			sum += x
		}
		out[i] = sum / float64(period)
	}
	return out
}

// PctChange returns (cur-prev)/prev, and false when prev is zero or either
// value is not finite.
func PctChange(cur, prev float64) (float64, bool) {
	if prev == 0 || !finite(cur) || !finite(prev) {
		return 0, false
	}
	return (cur - prev) / prev, true
}

// MeanVolume averages the volume of the last n bars.
func MeanVolume(bars []models.Bar, n int) float64 {
	if n <= 0 || len(bars) < n {
		return math.NaN()
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += float64(b.Volume)
	}
	return sum / float64(n)
}

// RecentRange returns the highest high and lowest low of the last n bars.
func RecentRange(bars []models.Bar, n int) (high, low float64) {
	if n <= 0 || len(bars) < n {
		return math.NaN(), math.NaN()
	}
	tail := bars[len(bars)-n:]
	high, low = tail[0].High, tail[0].Low
	for _, b := range tail[1:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// Defined reports whether x holds a usable indicator value.
func Defined(x float64) bool { return finite(x) }
