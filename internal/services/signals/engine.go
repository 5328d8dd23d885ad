package signals

import (
	"fmt"

	"StockPilot/internal/domain/models"
	"StockPilot/internal/domain/service"
	"StockPilot/internal/services/features"
)

// Score weights per rule family.
const (
	weightMinor     = 1
	weightTrend     = 2
	weightBreakout  = 2
	weightCrossover = 3
)

// Config holds the rule thresholds. Zero fields take DefaultConfig values.
type Config struct {
	FastPeriod      int
	SlowPeriod      int
	VolumePeriod    int
	HighVolumeRatio float64
	LowVolumeRatio  float64
	LevelPeriod     int
	LevelProximity  float64
	ShortPeriod     int
	ShortThreshold  float64
	MediumPeriod    int
	MediumThreshold float64
}

func DefaultConfig() Config {
	return Config{
		FastPeriod:      9,
		SlowPeriod:      21,
		VolumePeriod:    20,
		HighVolumeRatio: 1.5,
		LowVolumeRatio:  0.5,
		LevelPeriod:     20,
		LevelProximity:  0.02,
		ShortPeriod:     1,
		ShortThreshold:  0.03,
		MediumPeriod:    5,
		MediumThreshold: 0.05,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FastPeriod <= 0 {
		c.FastPeriod = d.FastPeriod
	}
	if c.SlowPeriod <= 0 {
		c.SlowPeriod = d.SlowPeriod
	}
	if c.VolumePeriod <= 0 {
		c.VolumePeriod = d.VolumePeriod
	}
	if c.HighVolumeRatio <= 0 {
		c.HighVolumeRatio = d.HighVolumeRatio
	}
	if c.LowVolumeRatio <= 0 {
		c.LowVolumeRatio = d.LowVolumeRatio
	}
	if c.LevelPeriod <= 0 {
		c.LevelPeriod = d.LevelPeriod
	}
	if c.LevelProximity <= 0 {
		c.LevelProximity = d.LevelProximity
	}
	if c.ShortPeriod <= 0 {
		c.ShortPeriod = d.ShortPeriod
	}
	if c.ShortThreshold <= 0 {
		c.ShortThreshold = d.ShortThreshold
	}
	if c.MediumPeriod <= 0 {
		c.MediumPeriod = d.MediumPeriod
	}
	if c.MediumThreshold <= 0 {
		c.MediumThreshold = d.MediumThreshold
	}
	return c
}

// Engine evaluates the rule set. It holds only configuration and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

func (e *Engine) Config() Config { return e.cfg }

// Required is the minimum window length every rule can be evaluated on.
func (e *Engine) Required() int {
	c := e.cfg
	n := c.SlowPeriod + 1
	for _, v := range []int{c.FastPeriod + 1, c.VolumePeriod, c.LevelPeriod, c.MediumPeriod + 1, c.ShortPeriod + 1} {
		if v > n {
			n = v
		}
	}
	return n
}

// Window builds an evaluation window with fast and slow SMAs over closes.
func (e *Engine) Window(instrumentID string, bars []models.Bar) models.SignalInputWindow {
	closes := features.Closes(bars)
	return models.SignalInputWindow{
		InstrumentID: instrumentID,
		Bars:         bars,
		Fast:         features.SMA(closes, e.cfg.FastPeriod),
		Slow:         features.SMA(closes, e.cfg.SlowPeriod),
	}
}

// Recommend maps a net score onto the recommendation scale. Bounds are inclusive.
func Recommend(net int) models.Recommendation {
	switch {
	case net >= 4:
		return models.StrongBuy
	case net >= 2:
		return models.Buy
	case net <= -4:
		return models.StrongSell
	case net <= -2:
		return models.Sell
	default:
		return models.Hold
	}
}

// scorer accumulates alerts for a single evaluation.
type scorer struct {
	buy, sell     int
	alerts        []models.Alert
	indeterminate []string
}

func (s *scorer) add(kind models.AlertKind, pol models.Polarity, weight int, title, reason string) {
	switch pol {
	case models.PolarityBuy:
		s.buy += weight
	case models.PolaritySell:
		s.sell += weight
	default:
		weight = 0
	}
	s.alerts = append(s.alerts, models.Alert{Kind: kind, Polarity: pol, Weight: weight, Title: title, Reason: reason})
}

func (s *scorer) skip(rule string) { s.indeterminate = append(s.indeterminate, rule) }

// Evaluate scores the newest bar of w against its lookback. It performs no I/O
// and reads nothing outside w and the engine configuration.
func (e *Engine) Evaluate(w models.SignalInputWindow) models.SignalResult {
	c := e.cfg
	n := len(w.Bars)
	// scores stay zero and Status carries the outcome
	res := models.SignalResult{
		InstrumentID:   w.InstrumentID,
		Status:         models.SignalInsufficientData,
		Required:       e.Required(),
		Available:      n,
		Recommendation: models.Hold,
		Alerts:         []models.Alert{},
	}
	if n > 0 {
		res.EvaluatedAt = w.Bars[n-1].Timestamp
	}
	if n < res.Required || len(w.Fast) != n || len(w.Slow) != n {
		return res
	}

	cur, prev := w.Bars[n-1], w.Bars[n-2]
	fast, slow := w.Fast[n-1], w.Slow[n-1]
	prevFast, prevSlow := w.Fast[n-2], w.Slow[n-2]
	if !features.Defined(fast) || !features.Defined(slow) || !features.Defined(prevFast) || !features.Defined(prevSlow) {
		return res
	}

	var s scorer
	ind := &models.Indicators{
		Close:  cur.Close,
		FastMA: fast,
		SlowMA: slow,
		Volume: cur.Volume,
	}

	// trend first: the volume rule depends on it
	trend := models.TrendNeutral
	switch {
	case cur.Close > fast && fast > slow:
		trend = models.TrendBullish
	case cur.Close < fast && fast < slow:
		trend = models.TrendBearish
	}
	ind.Trend = trend

	// 1. volume
	avgVol := features.MeanVolume(w.Bars, c.VolumePeriod)
	ind.VolumeAvg = avgVol
	ind.VolumeState = models.VolumeNormal
	if avgVol == 0 || !features.Defined(avgVol) {
		s.skip("volume")
	} else {
		ratio := float64(cur.Volume) / avgVol
		switch {
		case ratio > c.HighVolumeRatio:
			ind.VolumeState = models.VolumeHigh
			reason := fmt.Sprintf("volume %d is %.1fx the %d-period average", cur.Volume, ratio, c.VolumePeriod)
			switch trend {
			case models.TrendBullish:
				s.add(models.AlertHighVolume, models.PolarityBuy, weightMinor, "High Volume Bullish", reason+" in an uptrend")
			case models.TrendBearish:
				s.add(models.AlertHighVolume, models.PolaritySell, weightMinor, "High Volume Bearish", reason+" in a downtrend")
			default:
				s.add(models.AlertHighVolume, models.PolarityNeutral, 0, "High Volume", reason)
			}
		case ratio < c.LowVolumeRatio:
			ind.VolumeState = models.VolumeLow
			s.add(models.AlertLowVolume, models.PolarityNeutral, 0, "Low Volume",
				fmt.Sprintf("volume %d is %.1fx the %d-period average", cur.Volume, ratio, c.VolumePeriod))
		}
	}

	// 2. trend
	switch trend {
	case models.TrendBullish:
		s.add(models.AlertTrend, models.PolarityBuy, weightTrend, "Bullish Trend",
			fmt.Sprintf("close %.2f above SMA%d %.2f above SMA%d %.2f", cur.Close, c.FastPeriod, fast, c.SlowPeriod, slow))
	case models.TrendBearish:
		s.add(models.AlertTrend, models.PolaritySell, weightTrend, "Bearish Trend",
			fmt.Sprintf("close %.2f below SMA%d %.2f below SMA%d %.2f", cur.Close, c.FastPeriod, fast, c.SlowPeriod, slow))
	default:
		s.add(models.AlertTrend, models.PolarityNeutral, 0, "Sideways",
			fmt.Sprintf("close %.2f between moving averages", cur.Close))
	}

	// 3. crossovers
	switch {
	case fast > slow && prevFast <= prevSlow:
		s.add(models.AlertGoldenCross, models.PolarityBuy, weightCrossover, "Golden Cross",
			fmt.Sprintf("SMA%d crossed above SMA%d", c.FastPeriod, c.SlowPeriod))
	case fast < slow && prevFast >= prevSlow:
		s.add(models.AlertDeathCross, models.PolaritySell, weightCrossover, "Death Cross",
			fmt.Sprintf("SMA%d crossed below SMA%d", c.FastPeriod, c.SlowPeriod))
	}

	// 4. momentum
	if chg, ok := features.PctChange(cur.Close, w.Bars[n-1-c.ShortPeriod].Close); !ok {
		s.skip("short_momentum")
	} else {
		ind.ShortChange = &chg
		switch {
		case chg > c.ShortThreshold:
			s.add(models.AlertStrongMomentum, models.PolarityBuy, weightMinor, "Strong Momentum",
				fmt.Sprintf("price up %.2f%% over %d period(s)", chg*100, c.ShortPeriod))
		case chg < -c.ShortThreshold:
			s.add(models.AlertWeakMomentum, models.PolaritySell, weightMinor, "Weak Momentum",
				fmt.Sprintf("price down %.2f%% over %d period(s)", -chg*100, c.ShortPeriod))
		}
	}
	if chg, ok := features.PctChange(cur.Close, w.Bars[n-1-c.MediumPeriod].Close); !ok {
		s.skip("medium_momentum")
	} else {
		ind.MediumChange = &chg
		switch {
		case chg < -c.MediumThreshold:
			s.add(models.AlertDecliningTrend, models.PolaritySell, weightMinor, "Declining Trend",
				fmt.Sprintf("price down %.2f%% over %d periods", -chg*100, c.MediumPeriod))
		case chg > c.MediumThreshold:
			s.add(models.AlertRisingTrend, models.PolarityBuy, weightMinor, "Rising Trend",
				fmt.Sprintf("price up %.2f%% over %d periods", chg*100, c.MediumPeriod))
		}
	}

	// 5. support and resistance
	high, low := features.RecentRange(w.Bars, c.LevelPeriod)
	ind.RecentHigh, ind.RecentLow = high, low
	if high == 0 || !features.Defined(high) {
		s.skip("resistance")
	} else if (high-cur.Close)/high <= c.LevelProximity {
		s.add(models.AlertNearResistance, models.PolaritySell, weightMinor, "Near Resistance",
			fmt.Sprintf("close %.2f within %.0f%% of %d-period high %.2f", cur.Close, c.LevelProximity*100, c.LevelPeriod, high))
	}
	if low == 0 || !features.Defined(low) {
		s.skip("support")
	} else if (cur.Close-low)/low <= c.LevelProximity {
		s.add(models.AlertNearSupport, models.PolarityBuy, weightMinor, "Near Support",
			fmt.Sprintf("close %.2f within %.0f%% of %d-period low %.2f", cur.Close, c.LevelProximity*100, c.LevelPeriod, low))
	}

	// 6. breakouts through the slow average
	switch {
	case cur.Close < slow && prev.Close >= prevSlow:
		s.add(models.AlertBreakSupport, models.PolaritySell, weightBreakout, "Breaking Support",
			fmt.Sprintf("close fell below SMA%d %.2f", c.SlowPeriod, slow))
	case cur.Close > slow && prev.Close <= prevSlow:
		s.add(models.AlertBreakResistance, models.PolarityBuy, weightBreakout, "Breaking Resistance",
			fmt.Sprintf("close rose above SMA%d %.2f", c.SlowPeriod, slow))
	}

	res.Status = models.SignalOK
	res.BuyScore = s.buy
	res.SellScore = s.sell
	res.NetScore = s.buy - s.sell
	res.Recommendation = Recommend(res.NetScore)
	res.Alerts = s.alerts
	res.Indicators = ind
	res.Indeterminate = s.indeterminate
	return res
}

var _ service.SignalEvaluator = (*Engine)(nil)
