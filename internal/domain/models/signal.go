package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// NoEntryLabel is the published action for a signal that should not be traded.
const NoEntryLabel = "NAO ENTRAR"

type Mode string

const (
	ModeSwing      Mode = "SWING"
	ModePositional Mode = "POSITIONAL"
)

// Key is the lowercase group name used by the entry file and API paths.
func (m Mode) Key() string {
	if m == ModePositional {
		return "posicional"
	}
	return strings.ToLower(string(m))
}

// ParseMode accepts "swing", "positional", "posicional" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "swing":
		return ModeSwing, nil
	case "positional", "posicional":
		return ModePositional, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Status explains why a signal carries its published direction.
type Status string

const (
	StatusEligible Status = "eligible"
	StatusNoTrend  Status = "no_trend"
	StatusFiltered Status = "filtered"
	StatusSkipped  Status = "skipped"
)

// Signal is the final recommendation for one pair and mode.
// Direction is what gets published; Trend is what the classifier saw.
type Signal struct {
	Pair          string    `json:"pair"`
	Mode          Mode      `json:"mode"`
	Direction     Direction `json:"direction"`
	Trend         Direction `json:"trend"`
	Status        Status    `json:"status"`
	Price         float64   `json:"price"`
	Target        float64   `json:"target"`
	GainPct       float64   `json:"gain_pct"`
	ConfidencePct float64   `json:"confidence_pct"`
	Secondary     []float64 `json:"secondary,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// NewSignal validates s and returns it.
func NewSignal(s Signal) (Signal, error) {
	if err := s.Validate(); err != nil {
		return Signal{}, err
	}
	return s, nil
}

func (s Signal) Validate() error {
	if s.Pair == "" {
		return fmt.Errorf("%w: empty pair", ErrInvalidSignal)
	}
	if s.Mode != ModeSwing && s.Mode != ModePositional {
		return fmt.Errorf("%w: mode %q", ErrInvalidSignal, s.Mode)
	}
	for _, v := range [...]float64{s.Price, s.Target, s.GainPct, s.ConfidencePct} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite field", ErrInvalidSignal)
		}
	}
	if s.Status == StatusSkipped {
		if s.Direction != DirectionNone {
			return fmt.Errorf("%w: skipped signal must not publish a direction", ErrInvalidSignal)
		}
		return nil
	}
	if s.Price <= 0 {
		return fmt.Errorf("%w: price %v", ErrInvalidSignal, s.Price)
	}
	switch s.Trend {
	case DirectionNone:
		if s.Direction != DirectionNone || s.Target != s.Price || s.GainPct != 0 || s.ConfidencePct != 0 {
			return fmt.Errorf("%w: trendless signal must have target=price, zero gain and confidence", ErrInvalidSignal)
		}
	case DirectionLong, DirectionShort:
		if s.Direction != DirectionNone && s.Direction != s.Trend {
			return fmt.Errorf("%w: direction %s disagrees with trend %s", ErrInvalidSignal, s.Direction, s.Trend)
		}
	default:
		return fmt.Errorf("%w: trend %q", ErrInvalidSignal, s.Trend)
	}
	if s.ConfidencePct < 0 || s.ConfidencePct > 100 {
		return fmt.Errorf("%w: confidence %v", ErrInvalidSignal, s.ConfidencePct)
	}
	return nil
}

// Actionable reports whether the signal recommends an entry.
func (s Signal) Actionable() bool {
	return s.Direction == DirectionLong || s.Direction == DirectionShort
}

// Action is the published label: LONG, SHORT or NAO ENTRAR.
func (s Signal) Action() string {
	if s.Actionable() {
		return string(s.Direction)
	}
	return NoEntryLabel
}

// SignalPayload is the downstream wire shape. Field names are a fixed contract.
type SignalPayload struct {
	Par       string   `json:"par"`
	Modo      string   `json:"modo"`
	Sinal     string   `json:"sinal"`
	Preco     float64  `json:"preco"`
	Alvo      float64  `json:"alvo"`
	Alvo2     *float64 `json:"alvo_2,omitempty"`
	Alvo3     *float64 `json:"alvo_3,omitempty"`
	GanhoPct  float64  `json:"ganho_pct"`
	AssertPct float64  `json:"assert_pct"`
	Data      string   `json:"data"`
	Hora      string   `json:"hora"`
}

// Payload renders the signal in its own GeneratedAt location.
func (s Signal) Payload() SignalPayload {
	p := SignalPayload{
		Par:       s.Pair,
		Modo:      s.Mode.Key(),
		Sinal:     s.Action(),
		Preco:     s.Price,
		Alvo:      s.Target,
		GanhoPct:  s.GainPct,
		AssertPct: s.ConfidencePct,
		Data:      s.GeneratedAt.Format("2006-01-02"),
		Hora:      s.GeneratedAt.Format("15:04"),
	}
	if len(s.Secondary) > 0 {
		v := s.Secondary[0]
		p.Alvo2 = &v
	}
	if len(s.Secondary) > 1 {
		v := s.Secondary[1]
		p.Alvo3 = &v
	}
	return p
}
