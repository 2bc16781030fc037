package signal

import "AutoTrader/internal/domain/models"

// Classify derives the trend from the EMA relation alone. Equal EMAs mean no edge.
func Classify(ind models.IndicatorSet) models.Direction {
	switch {
	case ind.EMAFast > ind.EMASlow:
		return models.DirectionLong
	case ind.EMAFast < ind.EMASlow:
		return models.DirectionShort
	default:
		return models.DirectionNone
	}
}

// GainPct is the single gain definition shared by projection, filtering and
// live price refreshes.
func GainPct(dir models.Direction, price, target float64) float64 {
	if price == 0 {
		return 0
	}
	switch dir {
	case models.DirectionLong:
		return (target/price - 1) * 100
	case models.DirectionShort:
		return (1 - target/price) * 100
	default:
		return 0
	}
}

// TargetFromGain places a target gainPct percent away from price in the trade direction.
func TargetFromGain(dir models.Direction, price, gainPct float64) float64 {
	switch dir {
	case models.DirectionLong:
		return price * (1 + gainPct/100)
	case models.DirectionShort:
		return price * (1 - gainPct/100)
	default:
		return price
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
