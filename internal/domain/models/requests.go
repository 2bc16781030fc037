package models

// Requests for the signals HTTP API.

type SignalsRequest struct {
	Mode string `query:"mode" json:"mode" validate:"omitempty,oneof=swing positional posicional SWING POSITIONAL"`
}

type SignalRequest struct {
	Mode string `param:"mode" validate:"required,oneof=swing positional posicional SWING POSITIONAL"`
	Pair string `param:"pair" validate:"required,max=20"`
}

type CandlesRequest struct {
	Pair string `query:"pair" json:"pair" validate:"required,max=20"`
	Mode string `query:"mode" json:"mode" default:"swing" validate:"oneof=swing positional posicional SWING POSITIONAL"`
	N    int    `query:"n" json:"n" default:"0" validate:"gte=0,lte=1000"`
}

type CandleInput struct {
	Time   string  `json:"time" validate:"required"`
	Open   float64 `json:"open" validate:"gt=0"`
	High   float64 `json:"high" validate:"gt=0"`
	Low    float64 `json:"low" validate:"gt=0"`
	Close  float64 `json:"close" validate:"gt=0"`
	Volume float64 `json:"volume" validate:"gte=0"`
}

type EvaluateRequest struct {
	Pair    string        `json:"pair" validate:"required,max=20"`
	Mode    string        `json:"mode" default:"swing" validate:"oneof=swing positional posicional SWING POSITIONAL"`
	Candles []CandleInput `json:"candles" validate:"required,min=1,max=2000,dive"`
}
