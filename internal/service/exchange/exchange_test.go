package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"AutoTrader/internal/domain/repository"
)

func serve(t *testing.T, path, body string, status int, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestKuCoinCandles(t *testing.T) {
	body := `{"code":"200000","data":[
		["1700014400","11","12","13","10","5","50"],
		["1700000000","10","11","12","9","4","40"]]}`
	srv := serve(t, "/api/v1/market/candles", body, 200, nil)

	k := NewKuCoin(Options{BaseURL: srv.URL})
	got, err := k.Candles(context.Background(), "BTC", "USDT", repository.TF4h, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	first := got[0]
	if !first.Bucket.Equal(time.Unix(1700000000, 0)) || first.Open != 10 || first.Close != 11 || first.High != 12 || first.Low != 9 || first.Volume != 4 {
		t.Fatalf("first bar = %+v", first)
	}
}

func TestKuCoinErrorCode(t *testing.T) {
	srv := serve(t, "/api/v1/market/candles", `{"code":"400100","msg":"bad symbol"}`, 200, nil)
	k := NewKuCoin(Options{BaseURL: srv.URL})
	if _, err := k.Candles(context.Background(), "XXX", "USDT", repository.TF4h, 10); err == nil {
		t.Fatal("expected error")
	}
}

func TestGateIOCandles(t *testing.T) {
	body := `[["1700000000","400","11","12","9","10","4","true"],["1700014400","500","12","13","10","11","5","false"]]`
	srv := serve(t, "/api/v4/spot/candlesticks", body, 200, nil)

	g := NewGateIO(Options{BaseURL: srv.URL})
	got, err := g.Candles(context.Background(), "ETH", "USDT", repository.TF4h, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Open != 11 || got[1].Close != 12 || got[1].Volume != 5 {
		t.Fatalf("bars = %+v", got)
	}
}

func TestGateIOUnsupportedTimeframe(t *testing.T) {
	g := NewGateIO(Options{BaseURL: "http://127.0.0.1:0"})
	_, err := g.Candles(context.Background(), "ETH", "USDT", repository.TF6h, 2)
	if !isUnsupportedTimeframe(err) {
		t.Fatalf("want unsupported timeframe, got %v", err)
	}
}

func TestOKXCandles(t *testing.T) {
	body := `{"code":"0","msg":"","data":[
		["1700014400000","11","13","10","12","5","0","0","0"],
		["1700000000000","10","12","9","11","4","0","0","1"]]}`
	srv := serve(t, "/api/v5/market/candles", body, 200, nil)

	o := NewOKX(Options{BaseURL: srv.URL})
	got, err := o.Candles(context.Background(), "SOL", "USDT", repository.TF1d, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("limit not applied, len = %d", len(got))
	}
	if !got[0].Bucket.Equal(time.UnixMilli(1700014400000)) || got[0].Close != 12 {
		t.Fatalf("bar = %+v", got[0])
	}
}

func TestRetryOnServerError(t *testing.T) {
	var hits int32
	srv := serve(t, "/api/v5/market/candles", `oops`, 502, &hits)

	o := NewOKX(Options{BaseURL: srv.URL, Retries: 2})
	if _, err := o.Candles(context.Background(), "SOL", "USDT", repository.TF1d, 1); err == nil {
		t.Fatal("expected error")
	}
	if hits != 3 {
		t.Fatalf("hits = %d, want 3", hits)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var hits int32
	srv := serve(t, "/api/v5/market/candles", `{}`, 400, &hits)

	o := NewOKX(Options{BaseURL: srv.URL, Retries: 2})
	if _, err := o.Candles(context.Background(), "SOL", "USDT", repository.TF1d, 1); err == nil {
		t.Fatal("expected error")
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
}

func TestSplitPair(t *testing.T) {
	cases := []struct {
		in          string
		base, quote string
	}{
		{"BTC", "BTC", "USDT"},
		{"btcusdt", "BTC", "USDT"},
		{"BTC/USDT", "BTC", "USDT"},
		{"eth-usdc", "ETH", "USDC"},
		{"SOL_USDT", "SOL", "USDT"},
		{"USDT", "USDT", "USDT"},
	}
	for _, tc := range cases {
		b, q := SplitPair(tc.in, "USDT")
		if b != tc.base || q != tc.quote {
			t.Errorf("SplitPair(%q) = %s/%s, want %s/%s", tc.in, b, q, tc.base, tc.quote)
		}
	}
}

func TestNewByName(t *testing.T) {
	got, err := New([]string{"kucoin", "gateio", "okx"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Name() != "kucoin" || got[1].Name() != "gateio" || got[2].Name() != "okx" {
		t.Fatalf("order not kept")
	}
	if _, err := New([]string{"binance"}, Options{}); err == nil {
		t.Fatal("unknown exchange accepted")
	}
}
