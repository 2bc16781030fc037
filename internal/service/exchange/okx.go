package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/repository"
)

const okxURL = "https://www.okx.com"

// OKX serves at most 300 bars per page on /market/candles.
const okxMaxLimit = 300

type OKX struct {
	restClient
}

func NewOKX(o Options) *OKX {
	return &OKX{restClient: newRestClient("okx", okxURL, o)}
}

type okxCandles struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// UTC-anchored bar names; plain 6H and above follow Hong Kong time.
var okxBars = map[repository.Timeframe]string{
	repository.TF1h:  "1H",
	repository.TF2h:  "2H",
	repository.TF4h:  "4H",
	repository.TF6h:  "6Hutc",
	repository.TF12h: "12Hutc",
	repository.TF1d:  "1Dutc",
	repository.TF1w:  "1Wutc",
}

// Candles rows are [ts(ms), o, h, l, c, vol, volCcy, volCcyQuote, confirm], newest first.
func (o *OKX) Candles(ctx context.Context, base, quote string, tf repository.Timeframe, limit int) ([]models.Candle, error) {
	bar, ok := okxBars[tf]
	if !ok {
		return nil, &UnsupportedTimeframeError{Exchange: o.name, Timeframe: tf}
	}
	if limit <= 0 || limit > okxMaxLimit {
		limit = okxMaxLimit
	}
	var resp okxCandles
	err := o.getJSON(ctx, "/api/v5/market/candles", map[string]string{
		"instId": base + "-" + quote,
		"bar":    bar,
		"limit":  strconv.Itoa(limit),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx: code %s: %s", resp.Code, resp.Msg)
	}

	out := make([]models.Candle, 0, len(resp.Data))
	for _, row := range resp.Data {
		v, err := parseFloats(row, 0, 1, 2, 3, 4, 5)
		if err != nil {
			return nil, fmt.Errorf("okx: %w", err)
		}
		out = append(out, models.Candle{
			Bucket: time.UnixMilli(int64(v[0])).UTC(),
			Open:   v[1],
			High:   v[2],
			Low:    v[3],
			Close:  v[4],
			Volume: v[5],
		})
	}
	return normalize(out, limit), nil
}
