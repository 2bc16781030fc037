package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/pkg/cache"
)

const reportKey = "report:latest"

const (
	lockTTL  = 5 * time.Second
	lockWait = 2 * time.Second
	lockPoll = 10 * time.Millisecond
)

var errBoardBusy = errors.New("signal board: entry locked")

// CacheSignalBoard keeps the latest signal per mode and pair in a cache.Service.
type CacheSignalBoard struct {
	c   cache.Service
	ttl time.Duration
}

// NewCacheSignalBoard entries live for ttl; zero keeps them until overwritten.
func NewCacheSignalBoard(c cache.Service, ttl time.Duration) *CacheSignalBoard {
	return &CacheSignalBoard{c: c, ttl: ttl}
}

func signalKey(mode models.Mode, pair string) string {
	return cache.GenerateKey("signal", mode.Key(), strings.ToUpper(pair))
}

func (b *CacheSignalBoard) Publish(ctx context.Context, _ string, _ models.Mode, s models.Signal) error {
	return b.Put(ctx, s)
}

func (b *CacheSignalBoard) Put(ctx context.Context, s models.Signal) error {
	key := signalKey(s.Mode, s.Pair)
	return b.withLock(ctx, key, func() error {
		return b.c.Set(ctx, key, s, b.ttl)
	})
}

// Swap stores next unless the entry is gone or holds a signal generated after
// prev. ok reports whether next was written.
func (b *CacheSignalBoard) Swap(ctx context.Context, prev, next models.Signal) (bool, error) {
	key := signalKey(next.Mode, next.Pair)
	written := false
	err := b.withLock(ctx, key, func() error {
		var cur models.Signal
		if err := b.c.Get(ctx, key, &cur); err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				return nil
			}
			return err
		}
		if cur.GeneratedAt.After(prev.GeneratedAt) {
			return nil
		}
		if err := b.c.Set(ctx, key, next, b.ttl); err != nil {
			return err
		}
		written = true
		return nil
	})
	return written, err
}

// withLock serializes writers of one entry through the cache lock.
func (b *CacheSignalBoard) withLock(ctx context.Context, key string, fn func() error) error {
	lock := "lock:" + key
	deadline := time.Now().Add(lockWait)
	for {
		ok, err := b.c.TryLock(ctx, lock, lockTTL)
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", errBoardBusy, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPoll):
		}
	}
	defer func() { _ = b.c.Unlock(context.WithoutCancel(ctx), lock) }()
	return fn()
}

func (b *CacheSignalBoard) Get(ctx context.Context, mode models.Mode, pair string) (models.Signal, error) {
	var s models.Signal
	if err := b.c.Get(ctx, signalKey(mode, pair), &s); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.Signal{}, fmt.Errorf("%w: %s %s", models.ErrNotFound, mode.Key(), pair)
		}
		return models.Signal{}, err
	}
	return s, nil
}

// List returns the signals of a mode ordered by pair.
func (b *CacheSignalBoard) List(ctx context.Context, mode models.Mode) ([]models.Signal, error) {
	keys, err := b.c.Keys(ctx, cache.BuildPattern(cache.GenerateKey("signal", mode.Key())+":"))
	if err != nil {
		return nil, err
	}
	byKey, err := cache.MGetTyped[models.Signal](ctx, b.c, keys...)
	if err != nil {
		return nil, err
	}
	out := make([]models.Signal, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out, nil
}

func (b *CacheSignalBoard) PublishReport(ctx context.Context, r *models.CycleReport) error {
	return b.c.Set(ctx, reportKey, r, b.ttl)
}

func (b *CacheSignalBoard) LatestReport(ctx context.Context) (*models.CycleReport, error) {
	var r models.CycleReport
	if err := b.c.Get(ctx, reportKey, &r); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: no cycle has completed yet", models.ErrNotFound)
		}
		return nil, err
	}
	return &r, nil
}
