package signal

import (
	"errors"
	"math"
	"testing"
	"time"

	"AutoTrader/internal/domain/models"
)

func rangeSeries(n int, hi, lo float64) models.CandleSeries {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := models.CandleSeries{Pair: "T", Timeframe: "4h"}
	mid := (hi + lo) / 2
	for i := 0; i < n; i++ {
		c := models.Candle{Bucket: base.Add(time.Duration(i) * time.Hour), Open: mid, High: mid, Low: mid, Close: mid}
		if i == n/3 {
			c.High = hi
		}
		if i == 2*n/3 {
			c.Low = lo
		}
		s.Candles = append(s.Candles, c)
	}
	return s
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestGainPct(t *testing.T) {
	cases := []struct {
		dir           models.Direction
		price, target float64
		want          float64
	}{
		{models.DirectionLong, 100, 103, 3},
		{models.DirectionShort, 50, 48.5, 3},
		{models.DirectionShort, 50, 51, -2},
		{models.DirectionNone, 100, 120, 0},
		{models.DirectionLong, 0, 1, 0},
	}
	for _, c := range cases {
		if got := GainPct(c.dir, c.price, c.target); !approx(got, c.want) {
			t.Fatalf("%s %v->%v: got %v, want %v", c.dir, c.price, c.target, got, c.want)
		}
	}
}

func TestATRMultipleClamps(t *testing.T) {
	p := &ATRMultiple{ATRPctMin: 0.5, ATRPctMax: 15}
	cases := []struct {
		name     string
		dir      models.Direction
		price    float64
		atr      float64
		wantGain float64
	}{
		{"atr floor then gain floor", models.DirectionLong, 100, 0, 3},
		{"inside both bands", models.DirectionLong, 100, 4, 4.8},
		{"atr ceiling", models.DirectionShort, 100, 40, 18},
		{"atr ceiling long", models.DirectionLong, 10, 10, 18},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := p.Project(models.ProjectionInput{
				Direction:  c.dir,
				Indicators: models.IndicatorSet{Price: c.price, ATR: c.atr},
				Profile:    swing,
			})
			if err != nil {
				t.Fatalf("project: %v", err)
			}
			if !approx(got.GainPct, c.wantGain) {
				t.Fatalf("gain: got %v, want %v", got.GainPct, c.wantGain)
			}
			if got.GainPct != GainPct(c.dir, c.price, got.Target) {
				t.Fatalf("gain must be recomputed from target")
			}
		})
	}

	high := swing
	high.TargetMultiplier = 5
	got, err := p.Project(models.ProjectionInput{
		Direction:  models.DirectionLong,
		Indicators: models.IndicatorSet{Price: 100, ATR: 10},
		Profile:    high,
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !approx(got.GainPct, 30) || !approx(got.Target, 130) {
		t.Fatalf("expected max gain cap, got %+v", got)
	}
}

func TestATRMultipleRejectsBadInput(t *testing.T) {
	p := &ATRMultiple{ATRPctMin: 0.5, ATRPctMax: 15}
	for _, ind := range []models.IndicatorSet{{Price: 0, ATR: 1}, {Price: 10, ATR: -0.1}} {
		_, err := p.Project(models.ProjectionInput{Direction: models.DirectionLong, Indicators: ind, Profile: swing})
		if !errors.Is(err, models.ErrInvalidPriceOrVolatility) {
			t.Fatalf("%+v: got %v", ind, err)
		}
	}
	_, err := p.Project(models.ProjectionInput{Direction: models.DirectionLong, Indicators: models.IndicatorSet{Price: math.Inf(1), ATR: 1}, Profile: swing})
	if !errors.Is(err, models.ErrNonFiniteIndicator) {
		t.Fatalf("expected ErrNonFiniteIndicator, got %v", err)
	}
}

func TestSwingFibonacciPrimarySelection(t *testing.T) {
	p := NewSwingFibonacci(40, []float64{1.0, 0.618, 0.382})
	series := rangeSeries(40, 110, 90) // amplitude 20

	cases := []struct {
		name       string
		dir        models.Direction
		atr        float64
		wantTarget float64
		wantSec    []float64
	}{
		{"atr near 0.382", models.DirectionLong, 7, 107.64, []float64{112.36, 120}},
		{"atr near 0.618", models.DirectionLong, 12, 112.36, []float64{107.64, 120}},
		{"atr near 1.0", models.DirectionShort, 25, 80, []float64{92.36, 87.64}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := p.Project(models.ProjectionInput{
				Direction:  c.dir,
				Indicators: models.IndicatorSet{Price: 100, ATR: c.atr},
				Profile:    swing,
				Series:     series,
			})
			if err != nil {
				t.Fatalf("project: %v", err)
			}
			if !approx(got.Target, c.wantTarget) {
				t.Fatalf("target: got %v, want %v", got.Target, c.wantTarget)
			}
			if len(got.Secondary) != len(c.wantSec) {
				t.Fatalf("secondary: got %v", got.Secondary)
			}
			for i := range c.wantSec {
				if !approx(got.Secondary[i], c.wantSec[i]) {
					t.Fatalf("secondary[%d]: got %v, want %v", i, got.Secondary[i], c.wantSec[i])
				}
			}
			if got.GainPct != GainPct(c.dir, 100, got.Target) {
				t.Fatalf("gain must follow target")
			}
		})
	}
}

func TestSwingFibonacciTieGoesToSmallerRatio(t *testing.T) {
	p := NewSwingFibonacci(10, []float64{2, 1})
	got, err := p.Project(models.ProjectionInput{
		Direction:  models.DirectionLong,
		Indicators: models.IndicatorSet{Price: 100, ATR: 15},
		Profile:    swing,
		Series:     rangeSeries(10, 105, 95),
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !approx(got.Target, 110) {
		t.Fatalf("got %v, want 110", got.Target)
	}
}

func TestSwingFibonacciFlatRangeFallback(t *testing.T) {
	p := NewSwingFibonacci(40, []float64{0.382, 0.618, 1.0})
	got, err := p.Project(models.ProjectionInput{
		Direction:  models.DirectionLong,
		Indicators: models.IndicatorSet{Price: 100, ATR: 0.7},
		Profile:    swing,
		Series:     rangeSeries(40, 100, 100),
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	// amplitude falls back to 2% of price
	if !approx(got.Target, 100.764) {
		t.Fatalf("got %v, want 100.764", got.Target)
	}
}

func TestSwingFibonacciCapsAtMaxGain(t *testing.T) {
	p := NewSwingFibonacci(40, []float64{0.382, 0.618, 1.0})
	got, err := p.Project(models.ProjectionInput{
		Direction:  models.DirectionShort,
		Indicators: models.IndicatorSet{Price: 100, ATR: 50},
		Profile:    swing,
		Series:     rangeSeries(40, 250, 50),
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !approx(got.Target, 70) || !approx(got.GainPct, 30) {
		t.Fatalf("got %+v", got)
	}
	for _, v := range got.Secondary {
		if v <= 0 {
			t.Fatalf("secondary target %v must stay positive", v)
		}
	}
}

func TestNewProjectorUnknown(t *testing.T) {
	if _, err := NewProjector("moon", 0.5, 15, 40, nil); err == nil {
		t.Fatalf("expected error")
	}
}
