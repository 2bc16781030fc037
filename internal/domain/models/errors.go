package models

import "errors"

// Per-pair errors. A batch cycle records them as skips and moves on.
var (
	ErrInsufficientData         = errors.New("insufficient data")
	ErrNonFiniteIndicator       = errors.New("non-finite indicator")
	ErrInvalidPriceOrVolatility = errors.New("invalid price or volatility")
	ErrInvalidSeries            = errors.New("invalid candle series")
	ErrSourceUnavailable        = errors.New("candle source unavailable")
)

var (
	ErrInvalidSignal = errors.New("invalid signal")
	ErrNotFound      = errors.New("not found")
	ErrUnknownMode   = errors.New("unknown mode")
)

// ErrorKind maps an error to a short label used in skip reasons and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrNonFiniteIndicator):
		return "non_finite_indicator"
	case errors.Is(err, ErrInvalidPriceOrVolatility):
		return "invalid_price_or_volatility"
	case errors.Is(err, ErrInvalidSeries):
		return "invalid_series"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrInvalidSignal):
		return "invalid_signal"
	default:
		return "internal"
	}
}
