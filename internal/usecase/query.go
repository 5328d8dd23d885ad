package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/domain/service"
	"StockPilot/pkg/cache"
	applogger "StockPilot/pkg/logger"
)

// QueryTTLs bounds how stale each accessor's answer may be.
type QueryTTLs struct {
	Price       time.Duration
	History     time.Duration
	Volume      time.Duration
	Trend       time.Duration
	Signals     time.Duration
	Instruments time.Duration
}

func DefaultQueryTTLs() QueryTTLs {
	return QueryTTLs{
		Price:       30 * time.Second,
		History:     5 * time.Minute,
		Volume:      5 * time.Minute,
		Trend:       5 * time.Minute,
		Signals:     time.Minute,
		Instruments: 5 * time.Minute,
	}
}

type QueryConfig struct {
	TTL             QueryTTLs
	Prefix          string
	HistoryBars     int
	VolumePeriod    int
	HighVolumeRatio float64
	Timeout         time.Duration
}

// QueryService answers the read API from the warehouse through a TTL cache.
type QueryService struct {
	reader  drepo.BarReader
	engine  service.SignalEvaluator
	cache   cache.Service
	metrics drepo.Metrics
	cfg     QueryConfig
	l       *applogger.Logger
}

// NewQueryService builds the read side. c may be nil, in which case every
// call goes to the warehouse.
func NewQueryService(reader drepo.BarReader, engine service.SignalEvaluator, c cache.Service, metrics drepo.Metrics, cfg QueryConfig, l *applogger.Logger) *QueryService {
	d := DefaultQueryTTLs()
	if cfg.TTL == (QueryTTLs{}) {
		cfg.TTL = d
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "query"
	}
	if cfg.HistoryBars <= 0 {
		cfg.HistoryBars = 60
	}
	if cfg.VolumePeriod <= 0 {
		cfg.VolumePeriod = 20
	}
	if cfg.HighVolumeRatio <= 0 {
		cfg.HighVolumeRatio = 1.5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &QueryService{reader: reader, engine: engine, cache: c, metrics: metrics, cfg: cfg, l: l}
}

func cleanID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidInstrumentID, id)
	}
	return id, nil
}

// cached runs load through the cache under accessor's key and records the hit.
func cached[T any](ctx context.Context, q *QueryService, accessor string, ttl time.Duration, load func(context.Context) (T, error), parts ...interface{}) (T, error) {
	key := cache.Key(q.cfg.Prefix, append([]interface{}{accessor}, parts...)...)
	v, hit, err := cache.GetOrLoad(ctx, q.cache, key, ttl, load)
	q.metrics.RecordCacheAccess(accessor, hit)
	return v, err
}

// LatestBars returns the n most recent bars with their moving averages,
// oldest first. n <= 0 means the configured history length.
func (q *QueryService) LatestBars(ctx context.Context, id string, n int) ([]models.BarPoint, error) {
	id, err := cleanID(id)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = q.cfg.HistoryBars
	}
	return cached(ctx, q, "history", q.cfg.TTL.History, func(ctx context.Context) ([]models.BarPoint, error) {
		return q.reader.LatestBars(ctx, id, n)
	}, id, n)
}

// Snapshot is the latest close with its change against the previous bar.
func (q *QueryService) Snapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	id, err := cleanID(id)
	if err != nil {
		return nil, err
	}
	return cached(ctx, q, "price", q.cfg.TTL.Price, func(ctx context.Context) (*models.Snapshot, error) {
		bars, err := q.reader.LatestBars(ctx, id, 2)
		if err != nil {
			return nil, err
		}
		return snapshotOf(id, bars), nil
	}, id)
}

func snapshotOf(id string, bars []models.BarPoint) *models.Snapshot {
	last := bars[len(bars)-1]
	s := &models.Snapshot{
		InstrumentID: id,
		DisplayName:  last.DisplayName,
		Currency:     last.Currency,
		Timestamp:    last.Timestamp,
		Price:        last.Close,
		Volume:       last.Volume,
	}
	if len(bars) < 2 {
		return s
	}
	prev := bars[len(bars)-2].Close
	s.PreviousClose = &prev

	cur, before := decimal.NewFromFloat(last.Close), decimal.NewFromFloat(prev)
	change := cur.Sub(before)
	abs := change.Round(4).InexactFloat64()
	s.Change = &abs
	if !before.IsZero() {
		pct := change.Div(before).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
		s.ChangePct = &pct
	}
	return s
}

// VolumeSeries returns the last n volumes, oldest first, and their mean.
func (q *QueryService) VolumeSeries(ctx context.Context, id string, n int) (*models.VolumeSeries, error) {
	id, err := cleanID(id)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = q.cfg.VolumePeriod
	}
	return cached(ctx, q, "volume", q.cfg.TTL.Volume, func(ctx context.Context) (*models.VolumeSeries, error) {
		bars, err := q.reader.LatestBars(ctx, id, n)
		if err != nil {
			return nil, err
		}
		vs := &models.VolumeSeries{InstrumentID: id, Points: make([]models.VolumePoint, len(bars))}
		var sum float64
		for i, b := range bars {
			vs.Points[i] = models.VolumePoint{Timestamp: b.Timestamp, Volume: b.Volume}
			sum += float64(b.Volume)
		}
		vs.Average = sum / float64(len(bars))
		return vs, nil
	}, id, n)
}

// Trend classifies the latest bar by close against both moving averages.
func (q *QueryService) Trend(ctx context.Context, id string) (*models.Trend, error) {
	id, err := cleanID(id)
	if err != nil {
		return nil, err
	}
	return cached(ctx, q, "trend", q.cfg.TTL.Trend, func(ctx context.Context) (*models.Trend, error) {
		bars, err := q.reader.LatestBars(ctx, id, 1)
		if err != nil {
			return nil, err
		}
		return trendOf(id, bars[len(bars)-1]), nil
	}, id)
}

func trendOf(id string, b models.BarPoint) *models.Trend {
	t := &models.Trend{
		InstrumentID: id,
		State:        models.TrendNeutral,
		Close:        b.Close,
		SMA9:         b.SMA9,
		SMA21:        b.SMA21,
		Timestamp:    b.Timestamp,
	}
	if b.SMA9 == nil || b.SMA21 == nil {
		return t
	}
	fast, slow := *b.SMA9, *b.SMA21
	switch {
	case b.Close > fast && fast > slow:
		t.State = models.TrendBullish
	case b.Close < fast && fast < slow:
		t.State = models.TrendBearish
	}
	return t
}

// Signals evaluates the rule engine over the latest n bars. A window shorter
// than the engine needs yields an insufficient_data result, not an error.
func (q *QueryService) Signals(ctx context.Context, id string, n int) (*models.SignalResult, error) {
	id, err := cleanID(id)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = q.cfg.HistoryBars
	}
	return cached(ctx, q, "signals", q.cfg.TTL.Signals, func(ctx context.Context) (*models.SignalResult, error) {
		points, err := q.reader.LatestBars(ctx, id, n)
		if err != nil {
			return nil, err
		}
		bars := make([]models.Bar, len(points))
		for i, p := range points {
			bars[i] = p.Bar
		}
		res := q.engine.Evaluate(q.engine.Window(id, bars))
		return &res, nil
	}, id, n)
}

// Instruments lists every instrument in the warehouse, sorted.
func (q *QueryService) Instruments(ctx context.Context) ([]string, error) {
	return cached(ctx, q, "instruments", q.cfg.TTL.Instruments, q.reader.Instruments)
}

// VolumeAlerts reports instruments whose latest volume exceeds the configured
// multiple of their recent average, strongest first. Empty ids means every
// instrument in the warehouse; ids without data are skipped.
func (q *QueryService) VolumeAlerts(ctx context.Context, ids []string) ([]models.VolumeAlert, error) {
	if len(ids) == 0 {
		all, err := q.Instruments(ctx)
		if err != nil {
			return nil, err
		}
		ids = all
	}
	ids = NormalizeUniverse(ids)

	found := make([]*models.VolumeAlert, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			vs, err := q.VolumeSeries(gctx, id, q.cfg.VolumePeriod)
			if err != nil {
				if !errors.Is(err, drepo.ErrNotFound) {
					q.l.Warn("volume alert skipped", applogger.String("instrument", id), applogger.Error(err))
				}
				return nil
			}
			if a := volumeAlert(vs, q.cfg.HighVolumeRatio); a != nil {
				found[i] = a
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.VolumeAlert, 0)
	for _, a := range found {
		if a != nil {
			out = append(out, *a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	return out, nil
}

func volumeAlert(vs *models.VolumeSeries, threshold float64) *models.VolumeAlert {
	if len(vs.Points) == 0 || vs.Average <= 0 {
		return nil
	}
	last := vs.Points[len(vs.Points)-1]
	ratio := float64(last.Volume) / vs.Average
	if ratio <= threshold {
		return nil
	}
	return &models.VolumeAlert{
		InstrumentID: vs.InstrumentID,
		Volume:       last.Volume,
		Average:      vs.Average,
		Ratio:        decimal.NewFromFloat(ratio).Round(2).InexactFloat64(),
		Timestamp:    last.Timestamp,
	}
}

// Overview gathers every accessor for one instrument in parallel. Failed parts
// are reported in Errors; it fails only when the instrument has no data at all.
func (q *QueryService) Overview(ctx context.Context, id string, n int) (*models.Overview, error) {
	id, err := cleanID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
	defer cancel()

	res := &models.Overview{InstrumentID: id, Timestamp: time.Now().UTC()}
	parts := []string{"history", "snapshot", "volume", "trend", "signals"}
	errs := make([]error, len(parts))

	var g errgroup.Group
	g.Go(func() error {
		var err error
		res.History, err = q.LatestBars(ctx, id, n)
		errs[0] = err
		return nil
	})
	g.Go(func() error {
		var err error
		res.Snapshot, err = q.Snapshot(ctx, id)
		errs[1] = err
		return nil
	})
	g.Go(func() error {
		var err error
		res.Volume, err = q.VolumeSeries(ctx, id, 0)
		errs[2] = err
		return nil
	})
	g.Go(func() error {
		var err error
		res.Trend, err = q.Trend(ctx, id)
		errs[3] = err
		return nil
	})
	g.Go(func() error {
		var err error
		res.Signals, err = q.Signals(ctx, id, n)
		errs[4] = err
		return nil
	})
	_ = g.Wait()

	notFound := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		if res.Errors == nil {
			res.Errors = map[string]string{}
		}
		res.Errors[parts[i]] = err.Error()
		if errors.Is(err, drepo.ErrNotFound) {
			notFound++
		}
	}
	if notFound == len(parts) {
		return nil, fmt.Errorf("overview %s: %w", id, drepo.ErrNotFound)
	}
	return res, nil
}
