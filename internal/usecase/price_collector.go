package usecase

import (
	"context"
	"sync"

	"AutoTrader/internal/domain/models"
	drepo "AutoTrader/internal/domain/repository"
	mid "AutoTrader/internal/middleware"
	applogger "AutoTrader/pkg/logger"
)

// PriceCollector feeds live ticks through the realtime pipeline.
type PriceCollector struct {
	stream  drepo.PriceStream
	pipe    *mid.RealtimePipeline
	pairs   []string
	metrics drepo.Metrics
	l       *applogger.Logger
	wg      sync.WaitGroup
}

func NewPriceCollector(stream drepo.PriceStream, pipe *mid.RealtimePipeline, pairs []string, metrics drepo.Metrics, l *applogger.Logger) *PriceCollector {
	if l == nil {
		l = applogger.Nop()
	}
	return &PriceCollector{stream: stream, pipe: pipe, pairs: pairs, metrics: metrics, l: l.With("price_collector")}
}

// IsConnected returns true if the price stream is connected.
func (c *PriceCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *PriceCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx, c.pairs); err != nil {
		return err
	}
	c.pipe.Start(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx)
	}()
	return nil
}

func (c *PriceCollector) consume(ctx context.Context) {
	for {
		ticks, errs := c.stream.Read(ctx)
		err := c.drain(ctx, ticks, errs)
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("stream")
		c.l.Warn("price stream lost, reconnecting", applogger.Error(err))
		for {
			rerr := c.stream.Reconnect(ctx)
			if rerr == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.l.Error("price stream reconnect failed", applogger.Error(rerr))
		}
	}
}

// drain returns once the current connection's channels are done.
func (c *PriceCollector) drain(ctx context.Context, ticks <-chan models.PriceTick, errs <-chan error) error {
	var streamErr error
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				if ticks == nil {
					return streamErr
				}
				continue
			}
			streamErr = err
		case t, ok := <-ticks:
			if !ok {
				ticks = nil
				if errs == nil {
					return streamErr
				}
				continue
			}
			_ = c.pipe.Process(ctx, t)
			c.metrics.RecordLastPrice(t.Pair, t.Price)
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *PriceCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	err := c.stream.Close()
	done := make(chan struct{})
	go func() { c.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}
