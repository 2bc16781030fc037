package repository

import (
	"context"

	"AutoTrader/internal/domain/models"
)

// CandleSource returns the latest closed-or-forming bars for a pair, oldest
// first. Fewer than minBars bars is models.ErrInsufficientData.
type CandleSource interface {
	Fetch(ctx context.Context, pair string, tf Timeframe, minBars, limit int) (models.CandleSeries, error)
}

// CandleArchive persists candles for later replay.
type CandleArchive interface {
	StoreCandles(ctx context.Context, series models.CandleSeries) error
}

// SignalSink receives each signal of a cycle.
type SignalSink interface {
	Publish(ctx context.Context, pair string, mode models.Mode, s models.Signal) error
}

// ReportSink receives the whole cycle once it is complete.
type ReportSink interface {
	PublishReport(ctx context.Context, r *models.CycleReport) error
}

// SignalBoard keeps the latest signal per pair and mode.
type SignalBoard interface {
	SignalSink
	ReportSink
	Get(ctx context.Context, mode models.Mode, pair string) (models.Signal, error)
	List(ctx context.Context, mode models.Mode) ([]models.Signal, error)
	Put(ctx context.Context, s models.Signal) error
	// Swap replaces prev with next unless a newer signal was stored since
	// prev was read.
	Swap(ctx context.Context, prev, next models.Signal) (bool, error)
	LatestReport(ctx context.Context) (*models.CycleReport, error)
}

// PriceStream delivers live prices for a set of pairs.
type PriceStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, pairs []string) error
	Read(ctx context.Context) (<-chan models.PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Metrics interface {
	RecordSignal(mode, action string, confidence float64)
	RecordSkip(mode, reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordLastPrice(pair string, price float64)
}
