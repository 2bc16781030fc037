package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	icache "AutoTrader/internal/service/cache"
	"AutoTrader/internal/service/metrics"
	"AutoTrader/internal/service/ratelimit"
	"AutoTrader/internal/usecase"
	xhttp "AutoTrader/pkg/http"
	"AutoTrader/pkg/http/middleware"
	applogger "AutoTrader/pkg/logger"
)

// CycleRunner triggers signal cycles. *usecase.SignalCycle satisfies it.
type CycleRunner interface {
	Run(ctx context.Context) (*models.CycleReport, error)
	Running() bool
}

// HealthCheck reports a dependency as unhealthy by returning an error.
type HealthCheck func(ctx context.Context) error

// Options carries the optional parts of the handler.
type Options struct {
	// Operators guards the POST routes; nil leaves them open.
	Operators *middleware.Operators
	// CycleRPS limits manual cycle triggers across all callers.
	CycleRPS        float64
	CandlesCacheTTL time.Duration
	Checks          map[string]HealthCheck
	// BaseContext outlives requests; background cycles stop with it.
	BaseContext context.Context
}

// SignalsEchoHandler serves signals, reports, candles and on-demand evaluation.
type SignalsEchoHandler struct {
	logger   *applogger.Logger
	board    domrepo.SignalBoard
	cycle    CycleRunner
	evaluate *usecase.EvaluateUseCase
	candles  *usecase.CandlesUseCase

	ops      *middleware.Operators
	rl       *ratelimit.Limiter
	cache    *icache.TTLCache[*usecase.GetCandlesResult]
	checks   map[string]HealthCheck
	baseCtx  context.Context
	cacheTTL time.Duration
}

func NewSignalsEchoHandler(
	logger *applogger.Logger,
	board domrepo.SignalBoard,
	cycle CycleRunner,
	evaluate *usecase.EvaluateUseCase,
	candles *usecase.CandlesUseCase,
	opts Options,
) *SignalsEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = applogger.Nop()
	}
	if opts.CycleRPS <= 0 {
		opts.CycleRPS = 0.2
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	return &SignalsEchoHandler{
		logger:   logger.With("api"),
		board:    board,
		cycle:    cycle,
		evaluate: evaluate,
		candles:  candles,
		ops:      opts.Operators,
		rl:       ratelimit.New(opts.CycleRPS, 1),
		cache:    icache.NewTTLCache[*usecase.GetCandlesResult](opts.CandlesCacheTTL),
		checks:   opts.Checks,
		baseCtx:  opts.BaseContext,
		cacheTTL: opts.CandlesCacheTTL,
	}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/signals", h.ListSignals)
	g.GET("/signals/:mode/:pair", h.GetSignal)
	g.GET("/report", h.Report)
	g.GET("/candles", h.Candles)

	auth := middleware.RequireOperator(h.ops)
	g.POST("/evaluate", h.Evaluate, auth)
	g.POST("/cycles", h.TriggerCycle, auth)
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	res := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			res[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		res[name] = "ok"
	}
	return xhttp.DataResponse(c, status, map[string]interface{}{
		"checks":        res,
		"cycle_running": h.cycle != nil && h.cycle.Running(),
	})
}

func (h *SignalsEchoHandler) ListSignals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	modes := []models.Mode{models.ModeSwing, models.ModePositional}
	if req.Mode != "" {
		m, err := models.ParseMode(req.Mode)
		if err != nil {
			return h.fail(c, "list signals", err)
		}
		modes = []models.Mode{m}
	}

	rows := make([]models.Signal, 0)
	for _, m := range modes {
		list, err := h.board.List(c.Request().Context(), m)
		if err != nil {
			return h.fail(c, "list signals", err)
		}
		rows = append(rows, list...)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SignalsEchoHandler) GetSignal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	m, err := models.ParseMode(req.Mode)
	if err != nil {
		return h.fail(c, "get signal", err)
	}
	s, err := h.board.Get(c.Request().Context(), m, strings.ToUpper(req.Pair))
	if err != nil {
		return h.fail(c, "get signal", err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *SignalsEchoHandler) Report(c echo.Context) error {
	r, err := h.board.LatestReport(c.Request().Context())
	if err != nil {
		return h.fail(c, "latest report", err)
	}
	return xhttp.SuccessResponse(c, r)
}

func (h *SignalsEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := fmt.Sprintf("%s:%s:%d", strings.ToUpper(req.Pair), strings.ToLower(req.Mode), req.N)
	if res, ok := h.cache.Get(key); ok {
		metrics.ResponseCache.WithLabelValues("candles", "hit").Inc()
		h.cacheHeader(c)
		return xhttp.SuccessResponse(c, res)
	}
	metrics.ResponseCache.WithLabelValues("candles", "miss").Inc()

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{Pair: req.Pair, Mode: req.Mode, N: req.N})
	if err != nil {
		return h.fail(c, "candles", err)
	}
	h.cache.Set(key, res)
	h.cacheHeader(c)
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) cacheHeader(c echo.Context) {
	if secs := int(h.cacheTTL.Seconds()); secs > 0 {
		c.Response().Header().Set(echo.HeaderCacheControl, fmt.Sprintf("private, max-age=%d", secs))
	}
}

type evaluateResponse struct {
	Signal  models.Signal        `json:"signal"`
	Payload models.SignalPayload `json:"payload"`
}

func (h *SignalsEchoHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.evaluate.Evaluate(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, evaluateResponse{Signal: s, Payload: s.Payload()})
}

// TriggerCycle starts a cycle in the background and answers 202. With
// ?wait=true it runs the cycle inline and returns the report.
func (h *SignalsEchoHandler) TriggerCycle(c echo.Context) error {
	if !h.rl.Allow("cycles") {
		metrics.CycleTriggers.WithLabelValues("rate_limited").Inc()
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("cycle triggers are rate limited"))
	}
	if h.cycle.Running() {
		metrics.CycleTriggers.WithLabelValues("busy").Inc()
		return h.fail(c, "trigger cycle", usecase.ErrCycleRunning)
	}

	operator, _ := c.Get(middleware.OperatorContextKey).(string)
	h.logger.Info("cycle triggered", applogger.String("operator", operator), applogger.String("remote", c.RealIP()))

	if c.QueryParam("wait") == "true" {
		r, err := h.cycle.Run(c.Request().Context())
		if err != nil {
			metrics.CycleTriggers.WithLabelValues("failed").Inc()
			return h.fail(c, "trigger cycle", err)
		}
		metrics.CycleTriggers.WithLabelValues("completed").Inc()
		h.cache.Purge()
		return xhttp.SuccessResponse(c, r)
	}

	metrics.CycleTriggers.WithLabelValues("started").Inc()
	go func() {
		if _, err := h.cycle.Run(h.baseCtx); err != nil {
			h.logger.Warn("triggered cycle failed", applogger.Error(err))
			return
		}
		h.cache.Purge()
	}()
	return xhttp.AcceptedResponse(c, map[string]string{"status": "started"})
}

func (h *SignalsEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", applogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps domain errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	kind := models.ErrorKind(err)
	switch {
	case errors.Is(err, models.ErrUnknownMode):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrCycleRunning):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrSourceUnavailable):
		return xhttp.ServiceUnavailableError(err.Error()).WithParam("reason", kind).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("request timed out").WithError(err)
	case kind != "internal":
		return xhttp.UnprocessableError(err.Error()).WithParam("reason", kind).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
