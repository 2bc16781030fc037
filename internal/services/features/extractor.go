package features

import (
    "math"

    talib "github.com/markcheno/go-talib"

    "AutoTrader/internal/domain/models"
)

// PriceChangePct returns the percent change of the last close against the
// close `window` bars earlier. ok is false when the series is too short or
// the reference close is not positive.
func PriceChangePct(closes []float64, window int) (float64, bool) {
    if window <= 0 || len(closes) <= window {
        return 0, false
    }
    ref := closes[len(closes)-1-window]
    if ref <= 0 {
        return 0, false
    }
    return (closes[len(closes)-1]/ref - 1) * 100, true
}

// SwingRange returns the highest high and lowest low over the last lookback
// bars. A lookback larger than the series uses the whole series.
func SwingRange(series models.CandleSeries, lookback int) (hi, lo float64) {
    n := series.Len()
    if n == 0 {
        return 0, 0
    }
    if lookback <= 0 || lookback > n {
        lookback = n
    }
    if lookback < 2 {
        c := series.Last()
        return c.High, c.Low
    }
    highs := talib.Max(series.Highs(), lookback)
    lows := talib.Min(series.Lows(), lookback)
    return highs[n-1], lows[n-1]
}

// Finite reports whether every value is a real number.
func Finite(vals ...float64) bool {
    for _, v := range vals {
        if math.IsNaN(v) || math.IsInf(v, 0) {
            return false
        }
    }
    return true
}
