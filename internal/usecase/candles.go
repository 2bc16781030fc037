package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	"AutoTrader/internal/domain/service"
)

// CandlesUseCase shows the bars and indicators the engine sees for a pair.
type CandlesUseCase struct {
	source     domrepo.CandleSource
	indicators service.IndicatorCalculator
	profiles   Profiles
}

func NewCandlesUseCase(source domrepo.CandleSource, indicators service.IndicatorCalculator, profiles Profiles) *CandlesUseCase {
	return &CandlesUseCase{source: source, indicators: indicators, profiles: profiles}
}

type GetCandlesParams struct {
	Pair string
	Mode string
	// N trims the returned bars to the last N; zero returns all of them.
	N int
}

type GetCandlesResult struct {
	Pair       string               `json:"pair"`
	Mode       string               `json:"mode"`
	Timeframe  string               `json:"timeframe"`
	Count      int                  `json:"count"`
	Indicators *models.IndicatorSet `json:"indicators,omitempty"`
	Candles    []models.Candle      `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	pair := strings.ToUpper(strings.TrimSpace(p.Pair))
	if pair == "" {
		return nil, fmt.Errorf("pair required")
	}
	profile, err := uc.profiles.Lookup(p.Mode)
	if err != nil {
		return nil, err
	}

	series, err := uc.source.Fetch(ctx, pair, domrepo.Timeframe(profile.Timeframe), 1, profile.CandleLimit)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}

	res := &GetCandlesResult{Pair: pair, Mode: profile.Mode.Key(), Timeframe: profile.Timeframe}
	ind, err := uc.indicators.Compute(series)
	switch {
	case err == nil:
		res.Indicators = &ind
	case errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrNonFiniteIndicator), errors.Is(err, models.ErrInvalidSeries):
		// bars are still worth showing
	default:
		return nil, err
	}

	if p.N > 0 {
		series = series.Tail(p.N)
	}
	res.Candles = series.Candles
	res.Count = len(series.Candles)
	return res, nil
}
