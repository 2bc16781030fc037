package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/pkg/metrics"
)

type recProc struct {
	mu    sync.Mutex
	ticks []models.PriceTick
	fail  int
}

func (r *recProc) Process(_ context.Context, t models.PriceTick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errors.New("board down")
	}
	r.ticks = append(r.ticks, t)
	return nil
}

func (r *recProc) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

func tick(pair string, price float64) models.PriceTick {
	return models.PriceTick{Pair: pair, Price: price, Time: time.Unix(1700000000, 0)}
}

func TestPipelineValidates(t *testing.T) {
	p := NewRealtimePipeline(&recProc{}, metrics.Nop{})
	for _, bad := range []models.PriceTick{
		{Price: 1, Time: time.Now()},
		{Pair: "BTC", Price: 0, Time: time.Now()},
		{Pair: "BTC", Price: 1},
	} {
		if err := p.Process(context.Background(), bad); err == nil {
			t.Fatalf("tick %+v accepted", bad)
		}
	}
}

func TestPipelineThrottlesPerPair(t *testing.T) {
	proc := &recProc{}
	p := NewRealtimePipeline(proc, metrics.Nop{}, WithMinInterval(time.Second))
	now := time.Unix(0, 0)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	_ = p.Process(ctx, tick("BTC", 1))
	_ = p.Process(ctx, tick("BTC", 2))
	_ = p.Process(ctx, tick("ETH", 3))
	now = now.Add(1500 * time.Millisecond)
	_ = p.Process(ctx, tick("BTC", 4))

	if proc.count() != 3 {
		t.Fatalf("processed %d ticks, want 3", proc.count())
	}
}

func TestPipelineRetriesBufferedTicks(t *testing.T) {
	proc := &recProc{fail: 1}
	p := NewRealtimePipeline(proc, metrics.Nop{}, WithMinInterval(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	if err := p.Process(ctx, tick("BTC", 1)); err == nil {
		t.Fatal("downstream error not reported")
	}

	deadline := time.Now().Add(2 * time.Second)
	for proc.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if proc.count() != 1 {
		t.Fatal("buffered tick never retried")
	}
}
