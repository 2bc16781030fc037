package models

import (
	"fmt"
	"time"
)

// Candle represents one OHLCV bar. Bucket is the bar open time in UTC.
type Candle struct {
	Bucket time.Time `json:"bucket"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// CandleSeries is an ordered run of bars for one pair and timeframe, oldest first.
type CandleSeries struct {
	Pair      string   `json:"pair"`
	Timeframe string   `json:"timeframe"`
	Candles   []Candle `json:"candles"`
}

func (s CandleSeries) Len() int { return len(s.Candles) }

// Last returns the most recent bar. Callers check Len first.
func (s CandleSeries) Last() Candle { return s.Candles[len(s.Candles)-1] }

func (s CandleSeries) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

func (s CandleSeries) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

func (s CandleSeries) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// Tail returns the series restricted to its last n bars.
func (s CandleSeries) Tail(n int) CandleSeries {
	if n >= len(s.Candles) || n < 0 {
		return s
	}
	s.Candles = s.Candles[len(s.Candles)-n:]
	return s
}

// Validate checks that bar times strictly increase. Corrupt prices are left
// for the indicator stage, which reports them as non-finite indicators.
func (s CandleSeries) Validate() error {
	for i, c := range s.Candles {
		if i > 0 && !c.Bucket.After(s.Candles[i-1].Bucket) {
			return fmt.Errorf("%w: bar %d at %s is not after %s", ErrInvalidSeries, i,
				c.Bucket.Format(time.RFC3339), s.Candles[i-1].Bucket.Format(time.RFC3339))
		}
	}
	return nil
}
