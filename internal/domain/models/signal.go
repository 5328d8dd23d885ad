package models

import "time"

type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

type Polarity string

const (
	PolarityBuy     Polarity = "buy"
	PolaritySell    Polarity = "sell"
	PolarityNeutral Polarity = "neutral"
)

type AlertKind string

const (
	AlertHighVolume      AlertKind = "high_volume"
	AlertLowVolume       AlertKind = "low_volume"
	AlertTrend           AlertKind = "trend"
	AlertGoldenCross     AlertKind = "golden_cross"
	AlertDeathCross      AlertKind = "death_cross"
	AlertStrongMomentum  AlertKind = "strong_momentum"
	AlertWeakMomentum    AlertKind = "weak_momentum"
	AlertRisingTrend     AlertKind = "rising_trend"
	AlertDecliningTrend  AlertKind = "declining_trend"
	AlertNearResistance  AlertKind = "near_resistance"
	AlertNearSupport     AlertKind = "near_support"
	AlertBreakResistance AlertKind = "breaking_resistance"
	AlertBreakSupport    AlertKind = "breaking_support"
)

// Alert is one triggered rule. Weight is the score it contributed to its polarity.
type Alert struct {
	Kind     AlertKind `json:"kind"`
	Polarity Polarity  `json:"polarity"`
	Weight   int       `json:"weight"`
	Title    string    `json:"title"`
	Reason   string    `json:"reason"`
}

type SignalStatus string

const (
	SignalOK               SignalStatus = "ok"
	SignalInsufficientData SignalStatus = "insufficient_data"
)

type TrendState string

const (
	TrendBullish TrendState = "bullish"
	TrendBearish TrendState = "bearish"
	TrendNeutral TrendState = "neutral"
)

type VolumeState string

const (
	VolumeHigh   VolumeState = "high"
	VolumeLow    VolumeState = "low"
	VolumeNormal VolumeState = "normal"
)

// Indicators is the evaluated state at the newest bar. Pointers are nil when
// the value was indeterminate.
type Indicators struct {
	Close        float64     `json:"close"`
	FastMA       float64     `json:"fast_ma"`
	SlowMA       float64     `json:"slow_ma"`
	Volume       int64       `json:"volume"`
	VolumeAvg    float64     `json:"volume_avg"`
	VolumeState  VolumeState `json:"volume_state"`
	Trend        TrendState  `json:"trend"`
	RecentHigh   float64     `json:"recent_high"`
	RecentLow    float64     `json:"recent_low"`
	ShortChange  *float64    `json:"short_change,omitempty"`
	MediumChange *float64    `json:"medium_change,omitempty"`
}

// SignalResult is the outcome of one evaluation. Build a new one rather than
// mutating an existing result.
type SignalResult struct {
	InstrumentID   string         `json:"instrument_id"`
	EvaluatedAt    time.Time      `json:"evaluated_at"`
	Status         SignalStatus   `json:"status"`
	Required       int            `json:"required_bars,omitempty"`
	Available      int            `json:"available_bars"`
	BuyScore       int            `json:"buy_score"`
	SellScore      int            `json:"sell_score"`
	NetScore       int            `json:"net_score"`
	Recommendation Recommendation `json:"recommendation"`
	Alerts         []Alert        `json:"alerts"`
	Indicators     *Indicators    `json:"indicators,omitempty"`
	Indeterminate  []string       `json:"indeterminate,omitempty"`
}

func (r SignalResult) Insufficient() bool { return r.Status == SignalInsufficientData }

// HasAlert reports whether an alert of the given kind was triggered.
func (r SignalResult) HasAlert(kind AlertKind) bool {
	for _, a := range r.Alerts {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// SignalInputWindow is the newest-last bar sequence for one instrument with
// fast and slow moving averages aligned index for index. NaN marks an MA value
// that is not yet defined.
type SignalInputWindow struct {
	InstrumentID string
	Bars         []Bar
	Fast         []float64
	Slow         []float64
}

func (w SignalInputWindow) Len() int { return len(w.Bars) }
