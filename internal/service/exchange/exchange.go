package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/domain/repository"
	"AutoTrader/internal/service/ratelimit"
	xhttp "AutoTrader/pkg/http"
)

// Exchange serves public OHLCV bars for one venue.
type Exchange interface {
	Name() string
	Candles(ctx context.Context, base, quote string, tf repository.Timeframe, limit int) ([]models.Candle, error)
}

// Options are shared by every REST exchange client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	// Limiter throttles requests per exchange name. Nil disables throttling.
	Limiter *ratelimit.Limiter
	Client  *http.Client
	Now     func() time.Time
}

// restClient is the plumbing shared by the venue clients: throttling,
// bounded retries on transient failures and JSON decoding.
type restClient struct {
	name    string
	baseURL string
	http    *xhttp.Client
	retries int
	limiter *ratelimit.Limiter
	now     func() time.Time
}

func newRestClient(name, defaultURL string, o Options) restClient {
	if o.BaseURL == "" {
		o.BaseURL = defaultURL
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	opts := []xhttp.ClientOption{xhttp.WithTimeout(o.Timeout), xhttp.WithUserAgent("autotrader/1.0")}
	if o.Client != nil {
		opts = append(opts, xhttp.WithHTTPClient(o.Client))
	}
	return restClient{
		name:    name,
		baseURL: o.BaseURL,
		http:    xhttp.NewClient(opts...),
		retries: o.Retries,
		limiter: o.Limiter,
		now:     o.Now,
	}
}

func (c *restClient) Name() string { return c.name }

// getJSON retries transport errors, 429 and 5xx up to c.retries extra times.
func (c *restClient) getJSON(ctx context.Context, path string, query map[string]string, dest interface{}) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if c.limiter != nil {
			if werr := c.limiter.Wait(ctx, c.name); werr != nil {
				return werr
			}
		}
		err = c.http.GetJSON(ctx, c.baseURL+path, query, dest)
		if err == nil {
			return nil
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s %s: %w", c.name, path, err)
}

// since is limit bars before now, plus one bar of slack.
func (c *restClient) since(tf repository.Timeframe, limit int) time.Time {
	d := tfDuration(tf)
	return c.now().Add(-time.Duration(limit+1) * d)
}

func tfDuration(tf repository.Timeframe) time.Duration {
	switch tf {
	case repository.TF1h:
		return time.Hour
	case repository.TF2h:
		return 2 * time.Hour
	case repository.TF4h:
		return 4 * time.Hour
	case repository.TF6h:
		return 6 * time.Hour
	case repository.TF12h:
		return 12 * time.Hour
	case repository.TF1d:
		return 24 * time.Hour
	case repository.TF1w:
		return 7 * 24 * time.Hour
	}
	return 0
}

func parseFloats(row []string, idx ...int) ([]float64, error) {
	out := make([]float64, len(idx))
	for i, j := range idx {
		if j >= len(row) {
			return nil, fmt.Errorf("row has %d fields, want index %d", len(row), j)
		}
		v, err := strconv.ParseFloat(row[j], 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", j, err)
		}
		out[i] = v
	}
	return out, nil
}

// normalize sorts bars oldest first, drops duplicate buckets and keeps the last limit.
func normalize(candles []models.Candle, limit int) []models.Candle {
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Bucket.Before(candles[j].Bucket) })
	out := candles[:0]
	for _, c := range candles {
		if n := len(out); n > 0 && out[n-1].Bucket.Equal(c.Bucket) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// UnsupportedTimeframeError is returned when a venue has no matching bar size.
type UnsupportedTimeframeError struct {
	Exchange  string
	Timeframe repository.Timeframe
}

func (e *UnsupportedTimeframeError) Error() string {
	return fmt.Sprintf("%s: timeframe %s not supported", e.Exchange, e.Timeframe)
}
