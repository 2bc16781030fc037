package models

// IndicatorSet is the snapshot of technical indicators at the last bar.
// ADX is nil when it was not computed.
type IndicatorSet struct {
	Price   float64  `json:"price"`
	EMAFast float64  `json:"ema_fast"`
	EMASlow float64  `json:"ema_slow"`
	ATR     float64  `json:"atr"`
	ADX     *float64 `json:"adx,omitempty"`
}

// ModeProfile carries the per-mode parameters of the decision pipeline.
type ModeProfile struct {
	Mode             Mode    `json:"mode"`
	Timeframe        string  `json:"timeframe"`
	CandleLimit      int     `json:"candle_limit"`
	TargetMultiplier float64 `json:"target_multiplier"`
	ConfidenceBase   float64 `json:"confidence_base"`
	MinGainPct       float64 `json:"min_gain_pct"`
	MaxGainPct       float64 `json:"max_gain_pct"`
	ChangeWindow     int     `json:"change_window"`
}

// ProjectionInput is what a target projector sees.
type ProjectionInput struct {
	Direction  Direction
	Indicators IndicatorSet
	Profile    ModeProfile
	Series     CandleSeries
}

// Projection is a projected exit. Target and GainPct always agree: GainPct is
// recomputed from the final Target. Secondary holds extra targets, if any.
type Projection struct {
	Target    float64
	GainPct   float64
	Secondary []float64
}

// ScoreInput is what a confidence scorer sees.
type ScoreInput struct {
	Direction  Direction
	Indicators IndicatorSet
	Profile    ModeProfile
	Series     CandleSeries
}
