package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/repository"
	applogger "AutoTrader/pkg/logger"
)

// FallbackSource asks each exchange in order and returns the first series
// that is long enough and well ordered.
type FallbackSource struct {
	exchanges []Exchange
	quote     string
	l         *applogger.Logger
	m         repository.Metrics
}

func NewFallbackSource(exchanges []Exchange, quote string, l *applogger.Logger, m repository.Metrics) *FallbackSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &FallbackSource{exchanges: exchanges, quote: quote, l: l.With("exchange"), m: m}
}

// New builds exchange clients by name, keeping the given order.
func New(names []string, o Options) ([]Exchange, error) {
	out := make([]Exchange, 0, len(names))
	for _, n := range names {
		switch strings.ToLower(n) {
		case "kucoin":
			out = append(out, NewKuCoin(o))
		case "gateio", "gate", "gate.io":
			out = append(out, NewGateIO(o))
		case "okx":
			out = append(out, NewOKX(o))
		default:
			return nil, fmt.Errorf("unknown exchange %q", n)
		}
	}
	return out, nil
}

func (s *FallbackSource) Fetch(ctx context.Context, pair string, tf repository.Timeframe, minBars, limit int) (models.CandleSeries, error) {
	base, quote := SplitPair(pair, s.quote)
	var (
		errs    []string
		longest int
	)
	for _, ex := range s.exchanges {
		if err := ctx.Err(); err != nil {
			return models.CandleSeries{}, fmt.Errorf("%w: %s: %v", models.ErrSourceUnavailable, pair, err)
		}
		start := time.Now()
		candles, err := ex.Candles(ctx, base, quote, tf, limit)
		s.observe(ex.Name(), start)
		if err != nil {
			errs = append(errs, ex.Name()+": "+err.Error())
			if isUnsupportedTimeframe(err) {
				continue
			}
			s.recordError("exchange_" + ex.Name())
			s.l.Warn("candle fetch failed",
				applogger.String("exchange", ex.Name()),
				applogger.String("pair", base),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
			continue
		}

		series := models.CandleSeries{Pair: base, Timeframe: string(tf), Candles: candles}
		if err := series.Validate(); err != nil {
			errs = append(errs, ex.Name()+": "+err.Error())
			continue
		}
		if series.Len() < minBars {
			if series.Len() > longest {
				longest = series.Len()
			}
			errs = append(errs, fmt.Sprintf("%s: %d bars", ex.Name(), series.Len()))
			continue
		}

		s.l.Debug("candles fetched",
			applogger.String("exchange", ex.Name()),
			applogger.String("pair", base),
			applogger.String("tf", string(tf)),
			applogger.Int("bars", series.Len()),
		)
		return series, nil
	}

	if longest > 0 {
		return models.CandleSeries{}, fmt.Errorf("%w: %s %s has %d bars, need %d", models.ErrInsufficientData, base, tf, longest, minBars)
	}
	return models.CandleSeries{}, fmt.Errorf("%w: %s %s (%s)", models.ErrSourceUnavailable, base, tf, strings.Join(errs, "; "))
}

func (s *FallbackSource) observe(name string, start time.Time) {
	if s.m != nil {
		s.m.RecordLatency("candles_"+name, time.Since(start).Seconds())
	}
}

func (s *FallbackSource) recordError(kind string) {
	if s.m != nil {
		s.m.RecordError(kind)
	}
}

func isUnsupportedTimeframe(err error) bool {
	var u *UnsupportedTimeframeError
	return errors.As(err, &u)
}
