package usecase

import (
	"context"
	"errors"
	"fmt"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	"AutoTrader/internal/services/signal"
)

// PriceRefresher moves the published price of board signals to the live
// price. Targets stay; the gain of actionable signals follows the price.
type PriceRefresher struct {
	board         domrepo.SignalBoard
	modes         []models.Mode
	priceDecimals int32
	pctDecimals   int32
}

func NewPriceRefresher(board domrepo.SignalBoard, modes []models.Mode, priceDecimals, pctDecimals int) *PriceRefresher {
	return &PriceRefresher{board: board, modes: modes, priceDecimals: int32(priceDecimals), pctDecimals: int32(pctDecimals)}
}

// Process implements the realtime pipeline processor.
func (r *PriceRefresher) Process(ctx context.Context, t models.PriceTick) error {
	var errs []error
	for _, mode := range r.modes {
		s, err := r.board.Get(ctx, mode, t.Pair)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				errs = append(errs, err)
			}
			continue
		}
		updated, ok := r.Refresh(s, t.Price)
		if !ok {
			continue
		}
		// a cycle may have published since the read; its signal wins
		if _, err := r.board.Swap(ctx, s, updated); err != nil {
			errs = append(errs, fmt.Errorf("swap %s %s: %w", mode.Key(), t.Pair, err))
		}
	}
	return errors.Join(errs...)
}

// Refresh returns s repriced at price. ok is false when s has nothing to refresh.
func (r *PriceRefresher) Refresh(s models.Signal, price float64) (models.Signal, bool) {
	if s.Status == models.StatusSkipped || price <= 0 {
		return s, false
	}
	price = signal.RoundPrice(price, r.priceDecimals)
	if price == s.Price {
		return s, false
	}

	s.Price = price
	switch {
	case s.Trend == models.DirectionNone:
		// a trendless signal targets its own price
		s.Target = price
	case s.Actionable():
		s.GainPct = signal.Round(signal.GainPct(s.Direction, price, s.Target), r.pctDecimals)
	}
	if err := s.Validate(); err != nil {
		return s, false
	}
	return s, true
}
