package usecase

import (
	"context"
	"fmt"
	"strings"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/service"
	"AutoTrader/pkg/util"
)

// EvaluateUseCase runs the engine on caller-supplied candles.
type EvaluateUseCase struct {
	eval     service.SignalEvaluator
	profiles Profiles
}

func NewEvaluateUseCase(eval service.SignalEvaluator, profiles Profiles) *EvaluateUseCase {
	return &EvaluateUseCase{eval: eval, profiles: profiles}
}

func (uc *EvaluateUseCase) Evaluate(ctx context.Context, req models.EvaluateRequest) (models.Signal, error) {
	if err := ctx.Err(); err != nil {
		return models.Signal{}, err
	}
	profile, err := uc.profiles.Lookup(req.Mode)
	if err != nil {
		return models.Signal{}, err
	}

	pair := strings.ToUpper(strings.TrimSpace(req.Pair))
	series := models.CandleSeries{Pair: pair, Timeframe: profile.Timeframe, Candles: make([]models.Candle, 0, len(req.Candles))}
	for i, in := range req.Candles {
		ts, ok := util.ParseTime(in.Time)
		if !ok {
			return models.Signal{}, fmt.Errorf("%w: candle %d has unparseable time %q", models.ErrInvalidSeries, i, in.Time)
		}
		series.Candles = append(series.Candles, models.Candle{
			Bucket: ts.UTC(),
			Open:   in.Open,
			High:   in.High,
			Low:    in.Low,
			Close:  in.Close,
			Volume: in.Volume,
		})
	}
	if err := series.Validate(); err != nil {
		return models.Signal{}, err
	}
	return uc.eval.Evaluate(pair, profile, series)
}
