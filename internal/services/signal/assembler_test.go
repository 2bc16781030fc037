package signal

import (
	"testing"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/pkg/util"
)

func TestRound(t *testing.T) {
	cases := []struct {
		v      float64
		places int32
		want   float64
	}{
		{103.00000000000001, 3, 103},
		{2.9999999999999996, 2, 3},
		{0.12345, 3, 0.123},
		{0.1235, 3, 0.124},
		{-1.005, 2, -1.01},
		{88.888, 2, 88.89},
	}
	for _, c := range cases {
		if got := Round(c.v, c.places); got != c.want {
			t.Fatalf("Round(%v,%d): got %v, want %v", c.v, c.places, got, c.want)
		}
	}
}

func TestPriceScale(t *testing.T) {
	cases := []struct {
		price float64
		want  int32
	}{
		{67123.45, 3},
		{1, 3},
		{0.5, 3},
		{0.05, 4},
		{0.0006, 6},
		{0.000012, 7},
		{0, 3},
	}
	for _, c := range cases {
		if got := PriceScale(c.price, 3); got != c.want {
			t.Fatalf("PriceScale(%v): got %d, want %d", c.price, got, c.want)
		}
	}
}

func TestAssembleSubUnitPrice(t *testing.T) {
	a := NewAssembler(3, 2, time.UTC)
	got := a.Assemble(models.Signal{
		Pair: "PEPE", Mode: models.ModeSwing,
		Direction: models.DirectionShort, Trend: models.DirectionShort,
		Price: 0.0000123456, Target: 0.000011975, GainPct: 3.0000001, ConfidencePct: 80,
		Secondary: []float64{0.0000115},
	})
	if got.Price != 0.0000123 || got.Target != 0.000012 || got.Secondary[0] != 0.0000115 {
		t.Fatalf("rounding: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("assembled signal invalid: %v", err)
	}
}

func TestAssembleRoundsAndStamps(t *testing.T) {
	loc := util.LoadLocation("America/Sao_Paulo")
	a := NewAssembler(3, 2, loc)
	a.Now = func() time.Time { return time.Date(2025, 6, 2, 2, 30, 15, 999, time.UTC) }

	got := a.Assemble(models.Signal{
		Pair: "BTC", Mode: models.ModeSwing,
		Direction: models.DirectionLong, Trend: models.DirectionLong,
		Price: 67123.45678, Target: 69137.1604834, GainPct: 3.0000000001, ConfidencePct: 87.666666,
		Secondary: []float64{70000.12345},
	})

	if got.Price != 67123.457 || got.Target != 69137.16 || got.GainPct != 3 || got.ConfidencePct != 87.67 {
		t.Fatalf("rounding: %+v", got)
	}
	if got.Secondary[0] != 70000.123 {
		t.Fatalf("secondary rounding: %v", got.Secondary)
	}

	p := got.Payload()
	if p.Data != "2025-06-01" || p.Hora != "23:30" {
		t.Fatalf("local date/hour: %s %s", p.Data, p.Hora)
	}
	if p.Sinal != "LONG" || p.Par != "BTC" || p.Modo != "swing" || p.Alvo2 == nil || p.Alvo3 != nil {
		t.Fatalf("payload: %+v", p)
	}
}
