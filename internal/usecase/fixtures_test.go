package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	"AutoTrader/internal/services/indicators"
	"AutoTrader/internal/services/signal"
)

var (
	swingProfile = models.ModeProfile{
		Mode: models.ModeSwing, Timeframe: "4h", CandleLimit: 120,
		TargetMultiplier: 1.2, ConfidenceBase: 68, MinGainPct: 3, MaxGainPct: 30, ChangeWindow: 6,
	}
	positionalProfile = models.ModeProfile{
		Mode: models.ModePositional, Timeframe: "1d", CandleLimit: 120,
		TargetMultiplier: 2.0, ConfidenceBase: 72, MinGainPct: 3, MaxGainPct: 30, ChangeWindow: 2,
	}
	fixedNow = time.Date(2025, 5, 20, 15, 4, 5, 0, time.UTC)
)

func newEngine() *signal.Engine {
	proj, _ := signal.NewProjector(signal.StrategyATRMultiple, 0.5, 15, 40, []float64{0.382, 0.618, 1.0})
	scorer, _ := signal.NewScorer(signal.ScorerADXAlignment, signal.Band{Min: 60, Max: 90})
	asm := signal.NewAssembler(3, 2, time.UTC)
	asm.Now = func() time.Time { return fixedNow }
	return signal.NewEngine(
		indicators.New(indicators.Periods{Fast: 9, Slow: 21, ATR: 14, ADX: 14, Margin: 5, UseADX: true}),
		proj, scorer,
		signal.Filter{MinGainPct: 3, MinConfidence: 65},
		asm,
	)
}

func trend(pair string, n int, step float64) models.CandleSeries {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := models.CandleSeries{Pair: pair, Timeframe: "4h"}
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price += step
		s.Candles = append(s.Candles, models.Candle{
			Bucket: base.Add(time.Duration(i) * 4 * time.Hour),
			Open:   open,
			High:   math.Max(open, price) + 0.8,
			Low:    math.Min(open, price) - 0.8,
			Close:  price,
			Volume: 1000,
		})
	}
	return s
}

// mapSource serves a fixed series per pair; missing pairs are unavailable.
type mapSource struct {
	mu     sync.Mutex
	series map[string]models.CandleSeries
	calls  int
	delay  time.Duration
}

func (m *mapSource) Fetch(ctx context.Context, pair string, tf domrepo.Timeframe, minBars, limit int) (models.CandleSeries, error) {
	m.mu.Lock()
	m.calls++
	s, ok := m.series[pair]
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return models.CandleSeries{}, ctx.Err()
		}
	}
	if !ok {
		return models.CandleSeries{}, fmt.Errorf("%w: %s", models.ErrSourceUnavailable, pair)
	}
	if s.Len() < minBars {
		return models.CandleSeries{}, fmt.Errorf("%w: %s", models.ErrInsufficientData, pair)
	}
	return s.Tail(limit), nil
}

type memBoard struct {
	mu      sync.Mutex
	signals map[string]models.Signal
	report  *models.CycleReport
	order   []string
	failPut bool
	// afterGet runs once, outside the lock, after the next Get
	afterGet func()
}

func newMemBoard() *memBoard { return &memBoard{signals: map[string]models.Signal{}} }

func boardKey(m models.Mode, pair string) string { return m.Key() + ":" + pair }

func (b *memBoard) Publish(ctx context.Context, pair string, mode models.Mode, s models.Signal) error {
	b.mu.Lock()
	b.order = append(b.order, boardKey(mode, pair))
	b.mu.Unlock()
	return b.Put(ctx, s)
}

func (b *memBoard) Put(_ context.Context, s models.Signal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPut {
		return errors.New("board down")
	}
	b.signals[boardKey(s.Mode, s.Pair)] = s
	return nil
}

func (b *memBoard) Get(_ context.Context, mode models.Mode, pair string) (models.Signal, error) {
	b.mu.Lock()
	s, ok := b.signals[boardKey(mode, pair)]
	hook := b.afterGet
	b.afterGet = nil
	b.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return models.Signal{}, models.ErrNotFound
	}
	return s, nil
}

func (b *memBoard) Swap(_ context.Context, prev, next models.Signal) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPut {
		return false, errors.New("board down")
	}
	key := boardKey(next.Mode, next.Pair)
	cur, ok := b.signals[key]
	if !ok || cur.GeneratedAt.After(prev.GeneratedAt) {
		return false, nil
	}
	b.signals[key] = next
	return true, nil
}

func (b *memBoard) List(_ context.Context, mode models.Mode) ([]models.Signal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Signal
	for _, s := range b.signals {
		if s.Mode == mode {
			out = append(out, s)
		}
	}
	return out, nil
}

func (b *memBoard) PublishReport(_ context.Context, r *models.CycleReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.report = r
	return nil
}

func (b *memBoard) LatestReport(context.Context) (*models.CycleReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.report == nil {
		return nil, models.ErrNotFound
	}
	return b.report, nil
}
