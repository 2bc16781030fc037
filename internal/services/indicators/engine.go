package indicators

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/service"
	"AutoTrader/internal/services/features"
)

// Periods configures the indicator lookbacks.
type Periods struct {
	Fast   int
	Slow   int
	ATR    int
	ADX    int
	Margin int // extra bars required on top of the longest lookback
	UseADX bool
}

// Engine computes EMA fast/slow, ATR and optionally ADX at the last bar.
//
// EMAs are seeded with the SMA of the first n closes. ATR is the simple
// average of the last n true ranges. ADX is Wilder's and needs 2n bars; with
// fewer bars it is reported as absent rather than failing the pair.
type Engine struct {
	p Periods
}

var _ service.IndicatorCalculator = (*Engine)(nil)

func New(p Periods) *Engine {
	return &Engine{p: p}
}

// MinBars is max(slow, atr, adx) + margin.
func (e *Engine) MinBars() int {
	return max(e.p.Slow, e.p.ATR, e.p.ADX) + e.p.Margin
}

func (e *Engine) Compute(series models.CandleSeries) (models.IndicatorSet, error) {
	n := series.Len()
	if need := e.MinBars(); n < need {
		return models.IndicatorSet{}, fmt.Errorf("%w: %s needs %d bars, got %d", models.ErrInsufficientData, series.Pair, need, n)
	}
	if err := series.Validate(); err != nil {
		return models.IndicatorSet{}, err
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()

	set := models.IndicatorSet{
		Price:   closes[n-1],
		EMAFast: last(talib.Ema(closes, e.p.Fast)),
		EMASlow: last(talib.Ema(closes, e.p.Slow)),
		ATR:     last(talib.Sma(talib.TRange(highs, lows, closes), e.p.ATR)),
	}

	if e.p.UseADX && n >= 2*e.p.ADX {
		adx := last(talib.Adx(highs, lows, closes, e.p.ADX))
		if !features.Finite(adx) {
			return models.IndicatorSet{}, fmt.Errorf("%w: adx of %s", models.ErrNonFiniteIndicator, series.Pair)
		}
		set.ADX = &adx
	}

	if !features.Finite(set.Price, set.EMAFast, set.EMASlow, set.ATR) {
		return models.IndicatorSet{}, fmt.Errorf("%w: %s price=%v ema_fast=%v ema_slow=%v atr=%v",
			models.ErrNonFiniteIndicator, series.Pair, set.Price, set.EMAFast, set.EMASlow, set.ATR)
	}
	return set, nil
}

func last(v []float64) float64 {
	return v[len(v)-1]
}
