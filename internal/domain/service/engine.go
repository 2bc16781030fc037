package service

import (
	"AutoTrader/internal/domain/models"
)

// IndicatorCalculator reduces a candle series to the indicator snapshot at its last bar.
type IndicatorCalculator interface {
	MinBars() int
	Compute(series models.CandleSeries) (models.IndicatorSet, error)
}

// TargetProjector projects an exit target for a directional trend.
type TargetProjector interface {
	Name() string
	Project(in models.ProjectionInput) (models.Projection, error)
}

// ConfidenceScorer scores a directional decision in percent.
type ConfidenceScorer interface {
	Name() string
	Score(in models.ScoreInput) float64
}

// SignalEvaluator turns a candle series into a signal for one pair and mode.
type SignalEvaluator interface {
	MinBars() int
	Evaluate(pair string, profile models.ModeProfile, series models.CandleSeries) (models.Signal, error)
}
