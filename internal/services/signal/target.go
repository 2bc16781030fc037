package signal

import (
	"fmt"
	"math"
	"sort"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/service"
	"AutoTrader/internal/services/features"
)

const (
	StrategyATRMultiple    = "atr_multiple"
	StrategySwingFibonacci = "swing_fibonacci"
)

// ATRMultiple projects a target at a multiple of the ATR expressed in percent of price.
type ATRMultiple struct {
	ATRPctMin float64
	ATRPctMax float64
}

var _ service.TargetProjector = (*ATRMultiple)(nil)

func (p *ATRMultiple) Name() string { return StrategyATRMultiple }

func (p *ATRMultiple) Project(in models.ProjectionInput) (models.Projection, error) {
	price, atr := in.Indicators.Price, in.Indicators.ATR
	if err := checkPriceAndATR(price, atr); err != nil {
		return models.Projection{}, err
	}
	if in.Direction == models.DirectionNone {
		return models.Projection{Target: price}, nil
	}

	atrPct := clamp(100*atr/price, p.ATRPctMin, p.ATRPctMax)
	raw := clamp(atrPct*in.Profile.TargetMultiplier, in.Profile.MinGainPct, in.Profile.MaxGainPct)
	target := TargetFromGain(in.Direction, price, raw)

	return models.Projection{
		Target:  target,
		GainPct: GainPct(in.Direction, price, target),
	}, nil
}

// SwingFibonacci projects targets at Fibonacci extensions of the recent swing
// range. The primary target is the ratio whose distance lies closest to one
// ATR; ties go to the smaller ratio. Gains are capped at the profile maximum.
type SwingFibonacci struct {
	Lookback int
	Ratios   []float64
}

var _ service.TargetProjector = (*SwingFibonacci)(nil)

// minAmplitude is the floor applied when the swing range collapses.
const minAmplitude = 0.01

func NewSwingFibonacci(lookback int, ratios []float64) *SwingFibonacci {
	rs := append([]float64(nil), ratios...)
	sort.Float64s(rs)
	return &SwingFibonacci{Lookback: lookback, Ratios: rs}
}

func (p *SwingFibonacci) Name() string { return StrategySwingFibonacci }

func (p *SwingFibonacci) Project(in models.ProjectionInput) (models.Projection, error) {
	price, atr := in.Indicators.Price, in.Indicators.ATR
	if err := checkPriceAndATR(price, atr); err != nil {
		return models.Projection{}, err
	}
	if in.Direction == models.DirectionNone || len(p.Ratios) == 0 {
		return models.Projection{Target: price}, nil
	}

	hi, lo := features.SwingRange(in.Series, p.Lookback)
	amplitude := hi - lo
	if !(amplitude > 0) {
		amplitude = math.Max(price*0.02, minAmplitude)
	}

	primary := 0
	for i, r := range p.Ratios {
		if math.Abs(r*amplitude-atr) < math.Abs(p.Ratios[primary]*amplitude-atr) {
			primary = i
		}
	}

	var out models.Projection
	for i, r := range p.Ratios {
		target := p.cap(in, price+sign(in.Direction)*r*amplitude)
		if i == primary {
			out.Target = target
			out.GainPct = GainPct(in.Direction, price, target)
			continue
		}
		out.Secondary = append(out.Secondary, target)
	}
	return out, nil
}

// cap pulls a target back to the profile's max gain.
func (p *SwingFibonacci) cap(in models.ProjectionInput, target float64) float64 {
	price := in.Indicators.Price
	if GainPct(in.Direction, price, target) > in.Profile.MaxGainPct {
		return TargetFromGain(in.Direction, price, in.Profile.MaxGainPct)
	}
	return target
}

func sign(dir models.Direction) float64 {
	if dir == models.DirectionShort {
		return -1
	}
	return 1
}

func checkPriceAndATR(price, atr float64) error {
	if !features.Finite(price, atr) {
		return fmt.Errorf("%w: price=%v atr=%v", models.ErrNonFiniteIndicator, price, atr)
	}
	if price <= 0 || atr < 0 {
		return fmt.Errorf("%w: price=%v atr=%v", models.ErrInvalidPriceOrVolatility, price, atr)
	}
	return nil
}

// NewProjector builds the projector named by strategy.
func NewProjector(strategy string, atrPctMin, atrPctMax float64, lookback int, ratios []float64) (service.TargetProjector, error) {
	switch strategy {
	case StrategyATRMultiple, "":
		return &ATRMultiple{ATRPctMin: atrPctMin, ATRPctMax: atrPctMax}, nil
	case StrategySwingFibonacci:
		return NewSwingFibonacci(lookback, ratios), nil
	}
	return nil, fmt.Errorf("unknown target strategy %q", strategy)
}
