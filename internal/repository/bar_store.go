package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockPilot/internal/domain/models"
	drepo "StockPilot/internal/domain/repository"
	pkgch "StockPilot/pkg/clickhouse"
	applogger "StockPilot/pkg/logger"
)

const insertChunk = 2000

// barColumns is the warehouse column order. It matches the parquet layout
// except that calendar date is derived again on insert.
var barColumns = []string{
	"date_time", "ticker", "name", "currency", "open", "high", "low", "close",
	"adj_close", "volume", "source", "date", "ingested_at",
}

// BarsSchema returns the idempotent DDL for the bars table. ReplacingMergeTree
// keeps the row with the newest ingested_at per (ticker, date_time), so loading
// the same bar from a later run replaces the earlier copy on merge.
func BarsSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars (
	date_time   DateTime64(6, 'UTC'),
	ticker      LowCardinality(String),
	name        String,
	currency    LowCardinality(String),
	open        Float64,
	high        Float64,
	low         Float64,
	close       Float64,
	adj_close   Float64,
	volume      Int64,
	source      LowCardinality(String),
	date        Date,
	ingested_at DateTime64(6, 'UTC')
)
ENGINE = ReplacingMergeTree(ingested_at)
PARTITION BY toYYYYMM(date)
ORDER BY (ticker, date_time)`, database),
	}
}

// BarStore appends bars to the ClickHouse bars table.
type BarStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	table    string
	metrics  drepo.Metrics
	l        *applogger.Logger
}

func NewBarStore(ch *pkgch.Client, database string, metrics drepo.Metrics, l *applogger.Logger) *BarStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &BarStore{
		ch:       ch,
		db:       ch.DB(),
		database: database,
		table:    database + ".bars",
		metrics:  metrics,
		l:        l,
	}
}

// Init creates the database and table when missing.
func (s *BarStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, BarsSchema(s.database))
}

// InsertBars writes bars in multi-row chunks. A failed chunk aborts the call;
// chunks already sent stay, and a retry of the whole call is harmless because
// the table deduplicates on merge.
func (s *BarStore) InsertBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	for lo := 0; lo < len(bars); lo += insertChunk {
		hi := min(lo+insertChunk, len(bars))
		chunk := bars[lo:hi]
		args := make([]interface{}, 0, len(chunk)*len(barColumns))
		for _, b := range chunk {
			args = append(args, barArgs(b)...)
		}
		if _, err := s.db.ExecContext(ctx, insertQuery(s.table, len(chunk)), args...); err != nil {
			s.metrics.RecordError("warehouse_insert")
			s.l.Error("clickhouse insert bars failed",
				applogger.String("table", s.table),
				applogger.Int("rows", len(chunk)),
				applogger.Error(err),
			)
			return fmt.Errorf("insert bars: %w", err)
		}
	}
	s.metrics.RecordLatency("warehouse_insert", time.Since(start).Seconds())
	s.l.Debug("clickhouse insert bars ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Health pings the warehouse.
func (s *BarStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func insertQuery(table string, rows int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(barColumns)), ", ") + ")"
	values := make([]string, rows)
	for i := range values {
		values[i] = tuple
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(barColumns, ", "), strings.Join(values, ", "))
}

func barArgs(b models.Bar) []interface{} {
	return []interface{}{
		b.Timestamp.UTC(),
		b.InstrumentID,
		b.DisplayName,
		b.Currency,
		b.Open,
		b.High,
		b.Low,
		b.Close,
		b.AdjClose,
		b.Volume,
		b.Source,
		b.CalendarDate(),
		b.IngestedAt.UTC(),
	}
}

var _ drepo.BarWarehouse = (*BarStore)(nil)
