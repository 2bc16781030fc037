package signal

import (
	"fmt"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/service"
	"AutoTrader/internal/services/features"
)

const (
	ScorerADXAlignment     = "adx_alignment"
	ScorerChangeReinforced = "change_reinforced"
)

// Band is the inclusive range a directional confidence is clamped to.
type Band struct {
	Min float64
	Max float64
}

// TrendStrength normalizes ADX to [0,1]. Without ADX it is neutral (0.5).
func TrendStrength(ind models.IndicatorSet) float64 {
	if ind.ADX == nil {
		return 0.5
	}
	return clamp((*ind.ADX-10)/40, 0, 1)
}

func score(base, trend, alignment float64, band Band) float64 {
	return clamp(base+20*trend+10*alignment, band.Min, band.Max)
}

// ADXAlignmentScorer scores base + 20*trend strength + 10*EMA alignment.
type ADXAlignmentScorer struct {
	Band Band
}

var _ service.ConfidenceScorer = (*ADXAlignmentScorer)(nil)

func (s *ADXAlignmentScorer) Name() string { return ScorerADXAlignment }

func (s *ADXAlignmentScorer) Score(in models.ScoreInput) float64 {
	if in.Direction == models.DirectionNone {
		return 0
	}
	alignment := 0.0
	if Classify(in.Indicators) == in.Direction {
		alignment = 1
	}
	return score(in.Profile.ConfidenceBase, TrendStrength(in.Indicators), alignment, s.Band)
}

// ChangeReinforcedScorer only grants the alignment bonus when the close-to-close
// change over the profile's change window agrees with the direction. A flat
// change agrees with both directions. Too little history grants no bonus.
type ChangeReinforcedScorer struct {
	Band Band
}

var _ service.ConfidenceScorer = (*ChangeReinforcedScorer)(nil)

func (s *ChangeReinforcedScorer) Name() string { return ScorerChangeReinforced }

func (s *ChangeReinforcedScorer) Score(in models.ScoreInput) float64 {
	if in.Direction == models.DirectionNone {
		return 0
	}
	alignment := 0.0
	if Classify(in.Indicators) == in.Direction {
		if change, ok := features.PriceChangePct(in.Series.Closes(), in.Profile.ChangeWindow); ok {
			if (in.Direction == models.DirectionLong && change >= 0) ||
				(in.Direction == models.DirectionShort && change <= 0) {
				alignment = 1
			}
		}
	}
	return score(in.Profile.ConfidenceBase, TrendStrength(in.Indicators), alignment, s.Band)
}

// NewScorer builds the scorer named by kind.
func NewScorer(kind string, band Band) (service.ConfidenceScorer, error) {
	switch kind {
	case ScorerADXAlignment, "":
		return &ADXAlignmentScorer{Band: band}, nil
	case ScorerChangeReinforced:
		return &ChangeReinforcedScorer{Band: band}, nil
	}
	return nil, fmt.Errorf("unknown confidence scorer %q", kind)
}
