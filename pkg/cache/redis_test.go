package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisKeyPrefix(t *testing.T) {
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "autotrader")
	defer c.Close()

	if got := c.wrapKey("signal:swing:BTC"); got != "autotrader:signal:swing:BTC" {
		t.Fatalf("wrap = %q", got)
	}
	if got := c.unwrapKey("autotrader:signal:swing:BTC"); got != "signal:swing:BTC" {
		t.Fatalf("unwrap = %q", got)
	}
	if got := c.wrapKeys("a", "b"); len(got) != 2 || got[1] != "autotrader:b" {
		t.Fatalf("wrapKeys = %v", got)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1}), "autotrader")
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var s string
	if err := c.Get(ctx, "k", &s); err == nil || err == ErrCacheMiss {
		t.Fatalf("expected a connection error, got %v", err)
	}
	if m, err := c.MGet(ctx); err != nil || len(m) != 0 {
		t.Fatalf("empty MGet = %v, %v", m, err)
	}
	if err := c.Delete(ctx); err != nil {
		t.Fatalf("empty Delete = %v", err)
	}
}
