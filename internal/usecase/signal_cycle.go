package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	"AutoTrader/internal/domain/service"
	applogger "AutoTrader/pkg/logger"

	"github.com/google/uuid"
)

// ErrCycleRunning is returned when a cycle is requested while one is in flight.
var ErrCycleRunning = errors.New("signal cycle already running")

// Evaluator is the decision engine as seen by the cycle.
type Evaluator interface {
	service.SignalEvaluator
	Placeholder(pair string, mode models.Mode) models.Signal
}

// Locker serializes cycles across replicas. cache.Service satisfies it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type CycleConfig struct {
	Pairs    []string
	Profiles []models.ModeProfile
	Workers  int
	Timeout  time.Duration
	// PlaceholderSkipped publishes a zeroed "no entry" signal for skipped pairs.
	PlaceholderSkipped bool
}

const cycleLockKey = "lock:signal-cycle"

// SignalCycle evaluates every pair in every mode and publishes the result.
type SignalCycle struct {
	source  domrepo.CandleSource
	eval    Evaluator
	sink    domrepo.SignalSink
	reports domrepo.ReportSink
	lock    Locker
	l       *applogger.Logger
	m       domrepo.Metrics
	cfg     CycleConfig

	running atomic.Bool
	now     func() time.Time
	newID   func() string
}

func NewSignalCycle(
	source domrepo.CandleSource,
	eval Evaluator,
	sink domrepo.SignalSink,
	reports domrepo.ReportSink,
	lock Locker,
	l *applogger.Logger,
	m domrepo.Metrics,
	cfg CycleConfig,
) *SignalCycle {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &SignalCycle{
		source:  source,
		eval:    eval,
		sink:    sink,
		reports: reports,
		lock:    lock,
		l:       l.With("cycle"),
		m:       m,
		cfg:     cfg,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

type cycleJob struct {
	modeIdx int
	pair    string
	profile models.ModeProfile
}

type cycleResult struct {
	job    cycleJob
	signal *models.Signal
	skip   *models.Skip
}

// Run executes one cycle. Per-pair failures become skips; only cancellation
// or a concurrent cycle make Run fail.
func (c *SignalCycle) Run(ctx context.Context) (*models.CycleReport, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrCycleRunning
	}
	defer c.running.Store(false)

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if c.lock != nil {
		ok, err := c.lock.TryLock(ctx, cycleLockKey, c.lockTTL())
		if err != nil {
			c.l.Warn("cycle lock unavailable, running unlocked", applogger.Error(err))
		} else if !ok {
			return nil, ErrCycleRunning
		} else {
			defer func() { _ = c.lock.Unlock(context.WithoutCancel(ctx), cycleLockKey) }()
		}
	}

	report := &models.CycleReport{ID: c.newID(), StartedAt: c.now().UTC()}
	c.l.Info("cycle started",
		applogger.String("cycle_id", report.ID),
		applogger.Int("pairs", len(c.cfg.Pairs)),
		applogger.Int("modes", len(c.cfg.Profiles)),
	)

	results := c.evaluateAll(ctx)
	if err := ctx.Err(); err != nil {
		c.l.Error("cycle aborted", applogger.String("cycle_id", report.ID), applogger.Error(err))
		return nil, fmt.Errorf("cycle %s: %w", report.ID, err)
	}

	for _, r := range results {
		if r.skip != nil {
			report.Skipped = append(report.Skipped, *r.skip)
			c.recordSkip(*r.skip)
		}
		if r.signal != nil {
			report.Signals = append(report.Signals, *r.signal)
		}
	}

	for _, s := range report.Signals {
		_ = c.sink.Publish(ctx, s.Pair, s.Mode, s)
		if c.m != nil {
			c.m.RecordSignal(s.Mode.Key(), s.Action(), s.ConfidencePct)
		}
	}
	report.FinishedAt = c.now().UTC()
	if c.reports != nil {
		_ = c.reports.PublishReport(ctx, report)
	}
	if c.m != nil {
		c.m.RecordLatency("cycle", report.FinishedAt.Sub(report.StartedAt).Seconds())
	}

	c.l.Info("cycle finished",
		applogger.String("cycle_id", report.ID),
		applogger.Int("signals", len(report.Signals)),
		applogger.Int("skipped", len(report.Skipped)),
		applogger.Duration("duration_ms", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (c *SignalCycle) lockTTL() time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout + time.Minute
	}
	return 15 * time.Minute
}

// evaluateAll fans jobs out to the worker pool and returns results ordered by
// mode, then pair, whatever order the workers finished in.
func (c *SignalCycle) evaluateAll(ctx context.Context) []cycleResult {
	var jobs []cycleJob
	for i, p := range c.cfg.Profiles {
		for _, pair := range c.cfg.Pairs {
			jobs = append(jobs, cycleJob{modeIdx: i, pair: pair, profile: p})
		}
	}

	results := make([]cycleResult, len(jobs))
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < c.cfg.Workers && w < len(jobs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				results[i] = c.evaluate(ctx, jobs[i])
			}
		}()
	}
	for i := range jobs {
		select {
		case idx <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(idx)
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].job, results[j].job
		if a.modeIdx != b.modeIdx {
			return a.modeIdx < b.modeIdx
		}
		return a.pair < b.pair
	})
	return results
}

func (c *SignalCycle) evaluate(ctx context.Context, job cycleJob) cycleResult {
	res := cycleResult{job: job}
	start := time.Now()

	series, err := c.source.Fetch(ctx, job.pair, domrepo.Timeframe(job.profile.Timeframe), c.eval.MinBars(), job.profile.CandleLimit)
	if err == nil {
		var s models.Signal
		s, err = c.eval.Evaluate(job.pair, job.profile, series)
		if err == nil {
			res.signal = &s
		}
	}
	if c.m != nil {
		c.m.RecordLatency("evaluate_pair", time.Since(start).Seconds())
	}
	if err == nil {
		return res
	}

	res.skip = &models.Skip{Pair: job.pair, Mode: job.profile.Mode, Reason: models.ErrorKind(err), Detail: err.Error()}
	c.l.Warn("pair skipped",
		applogger.String("pair", job.pair),
		applogger.String("mode", job.profile.Mode.Key()),
		applogger.String("reason", res.skip.Reason),
		applogger.Error(err),
	)
	if c.cfg.PlaceholderSkipped {
		p := c.eval.Placeholder(job.pair, job.profile.Mode)
		res.signal = &p
	}
	return res
}

func (c *SignalCycle) recordSkip(s models.Skip) {
	if c.m != nil {
		c.m.RecordSkip(s.Mode.Key(), s.Reason)
	}
}

// Running reports whether a cycle is in flight in this process.
func (c *SignalCycle) Running() bool { return c.running.Load() }
