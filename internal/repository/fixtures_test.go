package repository

import (
	"context"
	"errors"
	"time"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
)

var sp = time.FixedZone("BRT", -3*3600)

func sig(pair string, mode models.Mode, dir models.Direction) models.Signal {
	s := models.Signal{
		Pair:          pair,
		Mode:          mode,
		Direction:     dir,
		Trend:         dir,
		Status:        models.StatusEligible,
		Price:         100,
		Target:        106,
		GainPct:       6,
		ConfidencePct: 72.5,
		GeneratedAt:   time.Date(2024, 3, 1, 9, 30, 0, 0, sp),
	}
	if dir == models.DirectionNone {
		s.Status = models.StatusNoTrend
		s.Target, s.GainPct, s.ConfidencePct = 100, 0, 0
	}
	return s
}

type stubSource struct {
	series models.CandleSeries
	err    error
	calls  int
}

func (s *stubSource) Fetch(_ context.Context, pair string, tf domrepo.Timeframe, minBars, limit int) (models.CandleSeries, error) {
	s.calls++
	if s.err != nil {
		return models.CandleSeries{}, s.err
	}
	if s.series.Len() < minBars {
		return models.CandleSeries{}, models.ErrInsufficientData
	}
	return s.series, nil
}

func series(pair string, n int) models.CandleSeries {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := models.CandleSeries{Pair: pair, Timeframe: "4h"}
	for i := 0; i < n; i++ {
		p := 100 + float64(i)
		out.Candles = append(out.Candles, models.Candle{Bucket: t0.Add(time.Duration(i) * 4 * time.Hour), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10})
	}
	return out
}

type failingSink struct{ calls int }

var errSink = errors.New("sink down")

func (f *failingSink) Publish(context.Context, string, models.Mode, models.Signal) error {
	f.calls++
	return errSink
}

func (f *failingSink) PublishReport(context.Context, *models.CycleReport) error {
	f.calls++
	return errSink
}

type recordingSink struct {
	signals []models.Signal
	reports []*models.CycleReport
}

func (r *recordingSink) Publish(_ context.Context, _ string, _ models.Mode, s models.Signal) error {
	r.signals = append(r.signals, s)
	return nil
}

func (r *recordingSink) PublishReport(_ context.Context, rep *models.CycleReport) error {
	r.reports = append(r.reports, rep)
	return nil
}
