package signal

import "AutoTrader/internal/domain/models"

// gainTolerance absorbs float drift when a gain was clamped to exactly the minimum.
const gainTolerance = 1e-9

// Filter gates signals on minimum gain and confidence. A rejected signal is
// published as "no entry"; with ZeroFiltered its numbers are zeroed too.
// Values are compared as given; Engine rounds them to the published precision first.
type Filter struct {
	MinGainPct    float64
	MinConfidence float64
	ZeroFiltered  bool
}

// Apply is idempotent: an already rejected signal comes back unchanged.
func (f Filter) Apply(s models.Signal) models.Signal {
	if s.Trend == models.DirectionNone {
		s.Direction = models.DirectionNone
		s.Status = models.StatusNoTrend
		return s
	}
	if s.Direction == models.DirectionNone {
		return s
	}
	if s.GainPct+gainTolerance < f.MinGainPct || s.ConfidencePct < f.MinConfidence {
		s.Direction = models.DirectionNone
		s.Status = models.StatusFiltered
		if f.ZeroFiltered {
			s.Target = s.Price
			s.GainPct = 0
			s.ConfidencePct = 0
			s.Secondary = nil
		}
		return s
	}
	s.Status = models.StatusEligible
	return s
}
