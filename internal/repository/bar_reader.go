package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	pkgch "StockPilot/pkg/clickhouse"
	applogger "StockPilot/pkg/logger"
)

// BarReader serves the read API from the deduplicated bars table, with the
// fast and slow moving averages computed in the query.
type BarReader struct {
	db    *sql.DB
	table string
	fast  int
	slow  int
	l     *applogger.Logger
}

// NewBarReader builds a reader whose SMA columns use the given periods.
func NewBarReader(ch *pkgch.Client, database string, fast, slow int, l *applogger.Logger) *BarReader {
	if l == nil {
		l = applogger.Nop()
	}
	if fast <= 0 {
		fast = 9
	}
	if slow <= fast {
		slow = 21
	}
	return &BarReader{db: ch.DB(), table: database + ".bars", fast: fast, slow: slow, l: l}
}

// LatestBars returns the n most recent bars of symbol in ascending order. An
// SMA is NULL until its full window is available.
func (r *BarReader) LatestBars(ctx context.Context, symbol string, n int) ([]models.BarPoint, error) {
	start := time.Now()
	// enough older rows that the oldest returned bar has a complete slow window
	depth := n + r.slow - 1
	rows, err := r.db.QueryContext(ctx, latestBarsQuery(r.table, r.fast, r.slow), symbol, depth, n)
	if err != nil {
		r.l.Error("clickhouse latest_bars query error",
			applogger.String("symbol", symbol),
			applogger.Int("limit", n),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("latest bars %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make([]models.BarPoint, 0, n)
	for rows.Next() {
		var (
			p         models.BarPoint
			fast, slw sql.NullFloat64
		)
		if err := rows.Scan(
			&p.Timestamp, &p.InstrumentID, &p.DisplayName, &p.Currency,
			&p.Open, &p.High, &p.Low, &p.Close, &p.AdjClose, &p.Volume,
			&p.Source, &p.IngestedAt, &fast, &slw,
		); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		p.Timestamp = p.Timestamp.UTC()
		p.IngestedAt = p.IngestedAt.UTC()
		p.SMA9 = nullable(fast)
		p.SMA21 = nullable(slw)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("bars for %s: %w", symbol, drepo.ErrNotFound)
	}

	// newest first from the query; callers want ascending
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	r.l.Debug("clickhouse latest_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// Instruments lists the distinct tickers in the table, sorted.
func (r *BarReader) Instruments(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT ticker FROM %s ORDER BY ticker", r.table))
	if err != nil {
		return nil, fmt.Errorf("instruments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("instruments: %w", drepo.ErrNotFound)
	}
	return out, nil
}

func latestBarsQuery(table string, fast, slow int) string {
	const tpl = `
        SELECT date_time, ticker, name, currency, open, high, low, close, adj_close, volume, source, ingested_at,
               if(rn >= %[2]d, ma_fast, NULL) AS sma_fast,
               if(rn >= %[3]d, ma_slow, NULL) AS sma_slow
        FROM (
            SELECT *,
                   row_number() OVER (ORDER BY date_time) AS rn,
                   avg(close) OVER (ORDER BY date_time ROWS BETWEEN %[4]d PRECEDING AND CURRENT ROW) AS ma_fast,
                   avg(close) OVER (ORDER BY date_time ROWS BETWEEN %[5]d PRECEDING AND CURRENT ROW) AS ma_slow
            FROM (
                SELECT date_time, ticker, name, currency, open, high, low, close, adj_close, volume, source, ingested_at
                FROM %[1]s FINAL
                WHERE ticker = ?
                ORDER BY date_time DESC
                LIMIT ?
            )
        )
        ORDER BY date_time DESC
        LIMIT ?
    `
	return fmt.Sprintf(tpl, table, fast, slow, fast-1, slow-1)
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ drepo.BarReader = (*BarReader)(nil)
