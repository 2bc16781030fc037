package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	pkgch "AutoTrader/pkg/clickhouse"
	applogger "AutoTrader/pkg/logger"
)

// CHCandleStore serves and archives candles in the ClickHouse candles table.
type CHCandleStore struct {
	db     *sql.DB
	table  string
	source string
	l      *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, source string, l *applogger.Logger) *CHCandleStore {
	return newCHCandleStore(ch.DB(), ch.Database()+".candles", source, l)
}

func newCHCandleStore(db *sql.DB, table, source string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: db, table: table, source: source, l: l.With("ch_candles")}
}

const latestCandlesQuery = `
        SELECT bucket, open, high, low, close, volume
        FROM %s FINAL
        WHERE pair = ? AND timeframe = ?
        ORDER BY bucket DESC
        LIMIT ?
    `

// Fetch returns the latest limit bars, oldest first.
func (s *CHCandleStore) Fetch(ctx context.Context, pair string, tf domrepo.Timeframe, minBars, limit int) (models.CandleSeries, error) {
	start := time.Now()
	if limit < minBars {
		limit = minBars
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(latestCandlesQuery, s.table), pair, string(tf), limit)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error",
			applogger.String("pair", pair),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return models.CandleSeries{}, fmt.Errorf("%w: clickhouse: %v", models.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, limit)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return models.CandleSeries{}, fmt.Errorf("scan candle: %w", err)
		}
		c.Bucket = c.Bucket.UTC()
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		return models.CandleSeries{}, fmt.Errorf("%w: clickhouse rows: %v", models.ErrSourceUnavailable, err)
	}

	// reverse DESC to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	series := models.CandleSeries{Pair: pair, Timeframe: string(tf), Candles: tmp}

	s.l.Debug("clickhouse latest_candles ok",
		applogger.String("pair", pair),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(tmp)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	if series.Len() < minBars {
		return models.CandleSeries{}, fmt.Errorf("%w: %s %s has %d bars, need %d", models.ErrInsufficientData, pair, tf, series.Len(), minBars)
	}
	return series, nil
}

// StoreCandles inserts the series in chunks. ReplacingMergeTree keeps the newest copy of a bar.
func (s *CHCandleStore) StoreCandles(ctx context.Context, series models.CandleSeries) error {
	const chunkSize = 2000
	for start := 0; start < len(series.Candles); start += chunkSize {
		end := start + chunkSize
		if end > len(series.Candles) {
			end = len(series.Candles)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, c := range series.Candles[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, series.Pair, series.Timeframe, c.Bucket.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume, s.source)
		}
		q := fmt.Sprintf("INSERT INTO %s (pair, timeframe, bucket, open, high, low, close, volume, source) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store candles %s %s: %w", series.Pair, series.Timeframe, err)
		}
	}
	return nil
}
