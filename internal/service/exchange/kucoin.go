package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/repository"
)

const kucoinURL = "https://api.kucoin.com"

type KuCoin struct {
	restClient
}

func NewKuCoin(o Options) *KuCoin {
	return &KuCoin{restClient: newRestClient("kucoin", kucoinURL, o)}
}

type kucoinCandles struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

var kucoinTypes = map[repository.Timeframe]string{
	repository.TF1h:  "1hour",
	repository.TF2h:  "2hour",
	repository.TF4h:  "4hour",
	repository.TF6h:  "6hour",
	repository.TF12h: "12hour",
	repository.TF1d:  "1day",
	repository.TF1w:  "1week",
}

// Candles rows are [time(s), open, close, high, low, volume, turnover], newest first.
func (k *KuCoin) Candles(ctx context.Context, base, quote string, tf repository.Timeframe, limit int) ([]models.Candle, error) {
	typ, ok := kucoinTypes[tf]
	if !ok {
		return nil, &UnsupportedTimeframeError{Exchange: k.name, Timeframe: tf}
	}
	var resp kucoinCandles
	err := k.getJSON(ctx, "/api/v1/market/candles", map[string]string{
		"symbol":  base + "-" + quote,
		"type":    typ,
		"startAt": strconv.FormatInt(k.since(tf, limit).Unix(), 10),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != "200000" {
		return nil, fmt.Errorf("kucoin: code %s: %s", resp.Code, resp.Msg)
	}

	out := make([]models.Candle, 0, len(resp.Data))
	for _, row := range resp.Data {
		v, err := parseFloats(row, 0, 1, 2, 3, 4, 5)
		if err != nil {
			return nil, fmt.Errorf("kucoin: %w", err)
		}
		out = append(out, models.Candle{
			Bucket: time.Unix(int64(v[0]), 0).UTC(),
			Open:   v[1],
			Close:  v[2],
			High:   v[3],
			Low:    v[4],
			Volume: v[5],
		})
	}
	return normalize(out, limit), nil
}
