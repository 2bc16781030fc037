package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	"AutoTrader/pkg/cache"
	"AutoTrader/pkg/util"
)

// CachedCandleSource memoizes series per pair, timeframe and bar. A new bar
// opening changes the key, so a cached series never spans two bar opens.
type CachedCandleSource struct {
	next  domrepo.CandleSource
	cache cache.Service
	ttl   time.Duration
	now   func() time.Time
}

func NewCachedCandleSource(next domrepo.CandleSource, c cache.Service, ttl time.Duration) *CachedCandleSource {
	return &CachedCandleSource{next: next, cache: c, ttl: ttl, now: time.Now}
}

func candlesPrefix(pair string, tf domrepo.Timeframe) string {
	return cache.GenerateKey("candles", strings.ToUpper(pair), string(tf))
}

func (s *CachedCandleSource) key(pair string, tf domrepo.Timeframe, limit int) string {
	bucket := util.BucketStart(s.now(), string(tf))
	return cache.GenerateKey(candlesPrefix(pair, tf), limit, bucket.Unix())
}

func (s *CachedCandleSource) Fetch(ctx context.Context, pair string, tf domrepo.Timeframe, minBars, limit int) (models.CandleSeries, error) {
	key := s.key(pair, tf, limit)

	var series models.CandleSeries
	err := s.cache.Get(ctx, key, &series)
	if err == nil {
		if series.Len() < minBars {
			return models.CandleSeries{}, fmt.Errorf("%w: %s %s has %d bars, need %d", models.ErrInsufficientData, pair, tf, series.Len(), minBars)
		}
		return series, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// a broken cache must not stop the cycle
		return s.next.Fetch(ctx, pair, tf, minBars, limit)
	}

	series, err = s.next.Fetch(ctx, pair, tf, minBars, limit)
	if err != nil {
		return models.CandleSeries{}, err
	}
	_ = s.cache.Set(ctx, key, series, s.ttl)
	return series, nil
}

// Invalidate drops every cached series of pair and timeframe.
func (s *CachedCandleSource) Invalidate(ctx context.Context, pair string, tf domrepo.Timeframe) error {
	keys, err := s.cache.Keys(ctx, cache.BuildPattern(candlesPrefix(pair, tf)+":"))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.cache.Delete(ctx, keys...)
}
