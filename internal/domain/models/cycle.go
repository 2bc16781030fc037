package models

import "time"

// Skip records a pair that produced no signal in a cycle.
type Skip struct {
	Pair   string `json:"pair"`
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// CycleReport is the outcome of one batch evaluation.
// Signals and Skipped are ordered by mode, then pair.
type CycleReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Signals    []Signal  `json:"signals"`
	Skipped    []Skip    `json:"skipped"`
}

// ByMode returns the signals of one mode, in report order.
func (r *CycleReport) ByMode(m Mode) []Signal {
	var out []Signal
	for _, s := range r.Signals {
		if s.Mode == m {
			out = append(out, s)
		}
	}
	return out
}

// EntryFile is the document consumed by the downstream trading bot.
type EntryFile struct {
	GeneratedAt string          `json:"generated_at"`
	Swing       []SignalPayload `json:"swing"`
	Posicional  []SignalPayload `json:"posicional"`
}

// PriceTick is a live last-trade price for a pair.
type PriceTick struct {
	Pair  string    `json:"pair"`
	Price float64   `json:"price"`
	Time  time.Time `json:"time"`
}
