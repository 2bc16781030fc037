package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/pkg/cache"
	"AutoTrader/pkg/metrics"
)

func newCycle(src *mapSource, board *memBoard, cfg CycleConfig) *SignalCycle {
	c := NewSignalCycle(src, newEngine(), board, board, nil, nil, metrics.Nop{}, cfg)
	c.newID = func() string { return "cycle-1" }
	c.now = func() time.Time { return fixedNow }
	return c
}

func testSource() *mapSource {
	return &mapSource{series: map[string]models.CandleSeries{
		"BTC": trend("BTC", 120, 0.5),
		"ETH": trend("ETH", 120, -0.3),
		"SOL": trend("SOL", 10, 1),
	}}
}

func TestCycleProducesOrderedReport(t *testing.T) {
	board := newMemBoard()
	c := newCycle(testSource(), board, CycleConfig{
		Pairs:    []string{"SOL", "ETH", "DOGE", "BTC"},
		Profiles: []models.ModeProfile{swingProfile, positionalProfile},
		Workers:  3,
	})

	rep, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.ID != "cycle-1" {
		t.Fatalf("id = %s", rep.ID)
	}

	var got []string
	for _, s := range rep.Signals {
		got = append(got, s.Mode.Key()+":"+s.Pair)
	}
	want := []string{"swing:BTC", "swing:ETH", "posicional:BTC", "posicional:ETH"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("signals = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(board.order, want) {
		t.Fatalf("publish order = %v", board.order)
	}

	reasons := map[string]string{}
	for _, s := range rep.Skipped {
		reasons[s.Mode.Key()+":"+s.Pair] = s.Reason
	}
	if reasons["swing:DOGE"] != "source_unavailable" || reasons["swing:SOL"] != "insufficient_data" || len(reasons) != 4 {
		t.Fatalf("skips = %v", reasons)
	}
	if board.report != rep {
		t.Fatal("report not published")
	}
	if rep.Signals[0].Trend != models.DirectionLong || rep.Signals[1].Trend != models.DirectionShort {
		t.Fatalf("trends = %s %s", rep.Signals[0].Trend, rep.Signals[1].Trend)
	}
}

func TestCycleDeterministicAcrossWorkerCounts(t *testing.T) {
	cfg := CycleConfig{
		Pairs:    []string{"BTC", "ETH", "SOL", "XRP"},
		Profiles: []models.ModeProfile{swingProfile, positionalProfile},
	}
	var first *models.CycleReport
	for _, w := range []int{1, 2, 8} {
		cfg.Workers = w
		rep, err := newCycle(testSource(), newMemBoard(), cfg).Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if first == nil {
			first = rep
			continue
		}
		if !reflect.DeepEqual(first.Signals, rep.Signals) || !reflect.DeepEqual(first.Skipped, rep.Skipped) {
			t.Fatalf("workers=%d changed the report", w)
		}
	}
}

func TestCyclePlaceholderForSkipped(t *testing.T) {
	rep, err := newCycle(testSource(), newMemBoard(), CycleConfig{
		Pairs:              []string{"DOGE"},
		Profiles:           []models.ModeProfile{swingProfile},
		PlaceholderSkipped: true,
	}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Signals) != 1 || len(rep.Skipped) != 1 {
		t.Fatalf("signals=%d skipped=%d", len(rep.Signals), len(rep.Skipped))
	}
	s := rep.Signals[0]
	if s.Status != models.StatusSkipped || s.Action() != models.NoEntryLabel || s.Price != 0 {
		t.Fatalf("placeholder = %+v", s)
	}
}

func TestCycleRejectsConcurrentRun(t *testing.T) {
	src := testSource()
	src.delay = 200 * time.Millisecond
	c := newCycle(src, newMemBoard(), CycleConfig{
		Pairs:    []string{"BTC"},
		Profiles: []models.ModeProfile{swingProfile},
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background())
		done <- err
	}()
	for !c.Running() {
		time.Sleep(time.Millisecond)
	}
	if _, err := c.Run(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Fatalf("want ErrCycleRunning, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestCycleHonoursDistributedLock(t *testing.T) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	c := NewSignalCycle(testSource(), newEngine(), newMemBoard(), nil, mc, nil, metrics.Nop{}, CycleConfig{
		Pairs:    []string{"BTC"},
		Profiles: []models.ModeProfile{swingProfile},
	})

	_, _ = mc.TryLock(ctx, cycleLockKey, time.Minute)
	if _, err := c.Run(ctx); !errors.Is(err, ErrCycleRunning) {
		t.Fatalf("want ErrCycleRunning while another replica holds the lock, got %v", err)
	}
	_ = mc.Unlock(ctx, cycleLockKey)
	if _, err := c.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if ok, _ := mc.TryLock(ctx, cycleLockKey, time.Minute); !ok {
		t.Fatal("lock not released after the cycle")
	}
}

func TestCycleCancelled(t *testing.T) {
	src := testSource()
	src.delay = time.Second
	board := newMemBoard()
	c := newCycle(src, board, CycleConfig{
		Pairs:    []string{"BTC", "ETH"},
		Profiles: []models.ModeProfile{swingProfile},
		Timeout:  20 * time.Millisecond,
	})

	if _, err := c.Run(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	if board.report != nil || len(board.order) != 0 {
		t.Fatal("aborted cycle must not publish")
	}
}
