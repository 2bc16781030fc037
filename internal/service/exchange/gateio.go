package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/repository"
)

const gateioURL = "https://api.gateio.ws"

// Gate.io caps a candlestick page at 1000 rows.
const gateioMaxLimit = 1000

type GateIO struct {
	restClient
}

func NewGateIO(o Options) *GateIO {
	return &GateIO{restClient: newRestClient("gateio", gateioURL, o)}
}

var gateioIntervals = map[repository.Timeframe]string{
	repository.TF1h: "1h",
	repository.TF4h: "4h",
	repository.TF1d: "1d",
	repository.TF1w: "7d",
}

// Candles rows are [time(s), quote volume, close, high, low, open, base volume, closed], oldest first.
func (g *GateIO) Candles(ctx context.Context, base, quote string, tf repository.Timeframe, limit int) ([]models.Candle, error) {
	interval, ok := gateioIntervals[tf]
	if !ok {
		return nil, &UnsupportedTimeframeError{Exchange: g.name, Timeframe: tf}
	}
	if limit <= 0 || limit > gateioMaxLimit {
		limit = gateioMaxLimit
	}
	var rows [][]string
	err := g.getJSON(ctx, "/api/v4/spot/candlesticks", map[string]string{
		"currency_pair": base + "_" + quote,
		"interval":      interval,
		"limit":         strconv.Itoa(limit),
	}, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		v, err := parseFloats(row, 0, 2, 3, 4, 5, 6)
		if err != nil {
			return nil, fmt.Errorf("gateio: %w", err)
		}
		out = append(out, models.Candle{
			Bucket: time.Unix(int64(v[0]), 0).UTC(),
			Close:  v[1],
			High:   v[2],
			Low:    v[3],
			Open:   v[4],
			Volume: v[5],
		})
	}
	return normalize(out, limit), nil
}
