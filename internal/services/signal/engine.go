package signal

import (
	"fmt"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/service"
	"AutoTrader/internal/services/features"
)

// Engine runs indicators, classification, projection, scoring, filtering and
// assembly for one pair and mode. It holds no state between calls.
type Engine struct {
	indicators service.IndicatorCalculator
	projector  service.TargetProjector
	scorer     service.ConfidenceScorer
	filter     Filter
	assembler  *Assembler
}

var _ service.SignalEvaluator = (*Engine)(nil)

func NewEngine(
	indicators service.IndicatorCalculator,
	projector service.TargetProjector,
	scorer service.ConfidenceScorer,
	filter Filter,
	assembler *Assembler,
) *Engine {
	return &Engine{
		indicators: indicators,
		projector:  projector,
		scorer:     scorer,
		filter:     filter,
		assembler:  assembler,
	}
}

func (e *Engine) MinBars() int { return e.indicators.MinBars() }

// Evaluate computes the signal for series. Errors are per pair: callers skip
// the pair and carry on.
func (e *Engine) Evaluate(pair string, profile models.ModeProfile, series models.CandleSeries) (models.Signal, error) {
	ind, err := e.indicators.Compute(series)
	if err != nil {
		return models.Signal{}, fmt.Errorf("%s %s: %w", pair, profile.Mode, err)
	}
	return e.Decide(pair, profile, ind, series)
}

// Decide runs everything after the indicator stage. series is only consulted
// by strategies that need the bars themselves (swing range, change window).
func (e *Engine) Decide(pair string, profile models.ModeProfile, ind models.IndicatorSet, series models.CandleSeries) (models.Signal, error) {
	if !features.Finite(ind.Price, ind.EMAFast, ind.EMASlow, ind.ATR) {
		return models.Signal{}, fmt.Errorf("%s %s: %w", pair, profile.Mode, models.ErrNonFiniteIndicator)
	}
	if ind.Price <= 0 {
		return models.Signal{}, fmt.Errorf("%s %s: %w: price=%v", pair, profile.Mode, models.ErrInvalidPriceOrVolatility, ind.Price)
	}

	dir := Classify(ind)
	s := models.Signal{
		Pair:      pair,
		Mode:      profile.Mode,
		Direction: dir,
		Trend:     dir,
		Price:     ind.Price,
		Target:    ind.Price,
	}

	if dir != models.DirectionNone {
		proj, err := e.projector.Project(models.ProjectionInput{
			Direction:  dir,
			Indicators: ind,
			Profile:    profile,
			Series:     series,
		})
		if err != nil {
			return models.Signal{}, fmt.Errorf("%s %s: %w", pair, profile.Mode, err)
		}
		s.Target = proj.Target
		s.GainPct = proj.GainPct
		s.Secondary = proj.Secondary
		s.ConfidencePct = e.scorer.Score(models.ScoreInput{
			Direction:  dir,
			Indicators: ind,
			Profile:    profile,
			Series:     series,
		})
	}

	// gates see the percentages as they will be published
	s = e.filter.Apply(e.assembler.RoundPct(s))
	s, err := models.NewSignal(s)
	if err != nil {
		return models.Signal{}, fmt.Errorf("%s %s: %w", pair, profile.Mode, err)
	}
	return e.assembler.Assemble(s), nil
}

// Placeholder returns the zeroed record used for skipped pairs.
func (e *Engine) Placeholder(pair string, mode models.Mode) models.Signal {
	return e.assembler.Placeholder(pair, mode)
}
