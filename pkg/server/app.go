package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AutoTrader/internal/domain/models"
	"AutoTrader/internal/usecase"
	applogger "AutoTrader/pkg/logger"
)

// Cycle is one batch evaluation.
type Cycle interface {
	Run(ctx context.Context) (*models.CycleReport, error)
}

// Component is a long-running part started with the app and stopped on shutdown.
type Component interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Closer releases an infrastructure client after everything else stopped.
type Closer struct {
	Name  string
	Close func() error
}

type componentFuncs struct {
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

func (c componentFuncs) Start(ctx context.Context) error    { return c.start(ctx) }
func (c componentFuncs) Shutdown(ctx context.Context) error { return c.stop(ctx) }

// ComponentFunc adapts a start/stop pair to Component.
func ComponentFunc(start, stop func(ctx context.Context) error) Component {
	return componentFuncs{start: start, stop: stop}
}

// Options configures the scheduler.
type Options struct {
	Interval        time.Duration
	RunOnStart      bool
	ShutdownTimeout time.Duration
}

// App encapsulates the entire application lifecycle.
type App struct {
	opts       Options
	l          *applogger.Logger
	cycle      Cycle
	components []namedComponent
	closers    []Closer
}

type namedComponent struct {
	name string
	c    Component
}

// New creates a new App. Components start in the order given and stop in reverse.
func New(opts Options, l *applogger.Logger, cycle Cycle, closers ...Closer) *App {
	if l == nil {
		l = applogger.Nop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &App{opts: opts, l: l.With("app"), cycle: cycle, closers: closers}
}

// Add registers a component.
func (a *App) Add(name string, c Component) {
	a.components = append(a.components, namedComponent{name: name, c: c})
}

// Run starts every component and the scheduler, and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve is Run with a caller-owned context.
func (a *App) Serve(ctx context.Context) error {
	started := 0
	for _, nc := range a.components {
		if err := nc.c.Start(ctx); err != nil {
			a.l.Error("component start failed", applogger.String("component", nc.name), applogger.Error(err))
			a.shutdown(a.components[:started])
			return err
		}
		a.l.Info("component started", applogger.String("component", nc.name))
		started++
	}

	a.schedule(ctx)

	a.l.Info("shutdown signal received")
	a.shutdown(a.components)
	return nil
}

// RunOnce runs a single cycle and releases the clients.
func (a *App) RunOnce(ctx context.Context) (*models.CycleReport, error) {
	defer a.close()
	return a.cycle.Run(ctx)
}

func (a *App) schedule(ctx context.Context) {
	if a.opts.Interval <= 0 {
		<-ctx.Done()
		return
	}
	if a.opts.RunOnStart {
		a.runCycle(ctx)
	}
	t := time.NewTicker(a.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.runCycle(ctx)
		}
	}
}

func (a *App) runCycle(ctx context.Context) {
	_, err := a.cycle.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrCycleRunning):
		a.l.Info("scheduled cycle skipped, previous one still running")
	case ctx.Err() != nil:
	default:
		a.l.Error("scheduled cycle failed", applogger.Error(err))
	}
}

// shutdown stops components in reverse start order, then closes clients.
func (a *App) shutdown(components []namedComponent) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.ShutdownTimeout)
	defer cancel()
	for i := len(components) - 1; i >= 0; i-- {
		nc := components[i]
		if err := nc.c.Shutdown(ctx); err != nil {
			a.l.Warn("component stop error", applogger.String("component", nc.name), applogger.Error(err))
		}
	}
	a.close()
	a.l.Info("shutdown complete")
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("client", c.Name), applogger.Error(err))
		}
	}
	a.closers = nil
}
