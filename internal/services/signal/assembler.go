package signal

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"AutoTrader/internal/domain/models"
)

// Assembler rounds the numbers and stamps the signal with the assembly time.
type Assembler struct {
	PriceDecimals int32
	PctDecimals   int32
	Location      *time.Location
	Now           func() time.Time
}

func NewAssembler(priceDecimals, pctDecimals int, loc *time.Location) *Assembler {
	if loc == nil {
		loc = time.UTC
	}
	return &Assembler{
		PriceDecimals: int32(priceDecimals),
		PctDecimals:   int32(pctDecimals),
		Location:      loc,
		Now:           time.Now,
	}
}

// Assemble rounds prices on the scale of s.Price, so target and secondary
// levels keep the same number of decimals as the price they are quoted against.
func (a *Assembler) Assemble(s models.Signal) models.Signal {
	scale := PriceScale(s.Price, a.PriceDecimals)
	s.Price = Round(s.Price, scale)
	s.Target = Round(s.Target, scale)
	if len(s.Secondary) > 0 {
		sec := make([]float64, len(s.Secondary))
		for i, v := range s.Secondary {
			sec[i] = Round(v, scale)
		}
		s.Secondary = sec
	}
	s = a.RoundPct(s)
	s.GeneratedAt = a.now()
	return s
}

// RoundPct rounds gain and confidence to the published precision.
func (a *Assembler) RoundPct(s models.Signal) models.Signal {
	s.GainPct = Round(s.GainPct, a.PctDecimals)
	s.ConfidencePct = Round(s.ConfidencePct, a.PctDecimals)
	return s
}

// Placeholder is the zeroed "no entry" record published for a skipped pair.
func (a *Assembler) Placeholder(pair string, mode models.Mode) models.Signal {
	return models.Signal{
		Pair:        pair,
		Mode:        mode,
		Direction:   models.DirectionNone,
		Trend:       models.DirectionNone,
		Status:      models.StatusSkipped,
		GeneratedAt: a.now(),
	}
}

func (a *Assembler) now() time.Time {
	now := a.Now
	if now == nil {
		now = time.Now
	}
	// drop the monotonic reading so equal clocks give equal signals
	return now().In(a.Location).Truncate(time.Second)
}

// PriceScale is the number of decimals price is published with. Below 1 the
// scale widens past the leading zeros so places significant digits remain.
func PriceScale(price float64, places int32) int32 {
	a := math.Abs(price)
	if a == 0 || a >= 1 || math.IsNaN(a) || math.IsInf(a, 0) {
		return places
	}
	lead := int32(math.Ceil(-math.Log10(a))) - 1
	if lead < 0 {
		lead = 0
	}
	return places + lead
}

// RoundPrice rounds price on its own PriceScale.
func RoundPrice(price float64, places int32) float64 {
	return Round(price, PriceScale(price, places))
}

// Round rounds half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
