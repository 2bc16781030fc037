package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"AutoTrader/internal/domain/models"
)

type countingCycle struct {
	runs atomic.Int32
}

func (c *countingCycle) Run(context.Context) (*models.CycleReport, error) {
	c.runs.Add(1)
	return &models.CycleReport{}, nil
}

type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(e string) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

func (t *trace) component(name string, startErr error) Component {
	return ComponentFunc(
		func(context.Context) error {
			t.add("start " + name)
			return startErr
		},
		func(context.Context) error {
			t.add("stop " + name)
			return nil
		},
	)
}

func TestServeSchedulesAndShutsDownInOrder(t *testing.T) {
	tr := &trace{}
	cycle := &countingCycle{}
	a := New(Options{Interval: 10 * time.Millisecond, RunOnStart: true}, nil, cycle,
		Closer{Name: "db", Close: func() error { tr.add("close db"); return nil }},
	)
	a.Add("collector", tr.component("collector", nil))
	a.Add("http", tr.component("http", nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for cycle.runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("runs = %d", cycle.runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	want := []string{"start collector", "start http", "stop http", "stop collector", "close db"}
	if len(tr.events) != len(want) {
		t.Fatalf("events = %v", tr.events)
	}
	for i := range want {
		if tr.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", tr.events, want)
		}
	}
}

func TestServeStopsStartedComponentsOnFailure(t *testing.T) {
	tr := &trace{}
	a := New(Options{Interval: time.Hour}, nil, &countingCycle{})
	a.Add("collector", tr.component("collector", nil))
	a.Add("http", tr.component("http", errors.New("bind: address in use")))

	if err := a.Serve(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	want := []string{"start collector", "start http", "stop collector"}
	if len(tr.events) != len(want) || tr.events[2] != want[2] {
		t.Fatalf("events = %v", tr.events)
	}
}

func TestRunOnce(t *testing.T) {
	cycle := &countingCycle{}
	closed := false
	a := New(Options{}, nil, cycle, Closer{Name: "kafka", Close: func() error { closed = true; return nil }})
	if _, err := a.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cycle.runs.Load() != 1 || !closed {
		t.Fatalf("runs=%d closed=%v", cycle.runs.Load(), closed)
	}
}
