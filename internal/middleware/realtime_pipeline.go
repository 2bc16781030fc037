package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, t models.PriceTick) error
}

// RealtimePipeline sits between the price stream and the signal board.
// It validates ticks, keeps at most one tick per pair per interval, and
// buffers ticks for retry when the downstream fails.
type RealtimePipeline struct {
	proc        Proc
	metrics     domrepo.Metrics
	minInterval time.Duration
	bufCh       chan models.PriceTick
	stopCh      chan struct{}
	started     bool
	mu          sync.Mutex
	lastSeen    map[string]time.Time // per-pair last accepted time
	now         func() time.Time
}

type PipelineOption func(*RealtimePipeline)

// WithMinInterval sets the minimum spacing of accepted ticks per pair.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *RealtimePipeline) {
		if d >= 0 {
			p.minInterval = d
		}
	}
}

// WithBufferSize sets the retry buffer size used when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufCh = make(chan models.PriceTick, n)
		}
	}
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		proc:        proc,
		metrics:     metrics,
		minInterval: 2 * time.Second,
		bufCh:       make(chan models.PriceTick, 256),
		stopCh:      make(chan struct{}),
		lastSeen:    make(map[string]time.Time),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches background retry of buffered ticks.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case t := <-p.bufCh:
				if err := p.proc.Process(ctx, t); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					select {
					case <-time.After(backoff):
					case <-stop:
						return
					}
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- t:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background retry loop.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Process validates, throttles, and forwards a tick downstream, buffering on errors.
func (p *RealtimePipeline) Process(ctx context.Context, t models.PriceTick) error {
	start := p.now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(t.Pair, start) {
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- t:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// Buffered is the number of ticks waiting for retry.
func (p *RealtimePipeline) Buffered() int { return len(p.bufCh) }

func validateTick(t models.PriceTick) error {
	if t.Pair == "" {
		return fmt.Errorf("pair empty")
	}
	if t.Time.IsZero() {
		return fmt.Errorf("tick time missing")
	}
	if t.Price <= 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return fmt.Errorf("invalid price %v", t.Price)
	}
	return nil
}

func (p *RealtimePipeline) allow(pair string, now time.Time) bool {
	if p.minInterval <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[pair]
	if ok && now.Sub(last) < p.minInterval {
		return false
	}
	p.lastSeen[pair] = now
	return true
}
