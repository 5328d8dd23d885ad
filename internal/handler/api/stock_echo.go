package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"StockPilot/internal/domain/models"
	domrepo "StockPilot/internal/domain/repository"
	"StockPilot/internal/service/metrics"
	"StockPilot/internal/service/ratelimit"
	"StockPilot/internal/usecase"
	xhttp "StockPilot/pkg/http"
	xlogger "StockPilot/pkg/logger"
	"StockPilot/pkg/queue"
)

// Queries is the read side the handlers serve.
type Queries interface {
	Instruments(ctx context.Context) ([]string, error)
	LatestBars(ctx context.Context, id string, n int) ([]models.BarPoint, error)
	Snapshot(ctx context.Context, id string) (*models.Snapshot, error)
	VolumeSeries(ctx context.Context, id string, n int) (*models.VolumeSeries, error)
	Trend(ctx context.Context, id string) (*models.Trend, error)
	Signals(ctx context.Context, id string, n int) (*models.SignalResult, error)
	Overview(ctx context.Context, id string, n int) (*models.Overview, error)
	VolumeAlerts(ctx context.Context, ids []string) ([]models.VolumeAlert, error)
}

// StockEchoHandler serves the market read API and the ingestion trigger.
type StockEchoHandler struct {
	logger   *xlogger.Logger
	q        Queries
	jobs     queue.Publisher
	defaults usecase.RunDefaults
	limiter  *ratelimit.Limiter
	metrics  *metrics.StreamMetrics
	stream   StreamConfig
}

func NewStockEchoHandler(logger *xlogger.Logger, q Queries, jobs queue.Publisher, defaults usecase.RunDefaults,
	limiter *ratelimit.Limiter, m *metrics.StreamMetrics, stream StreamConfig) *StockEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &StockEchoHandler{
		logger:   logger,
		q:        q,
		jobs:     jobs,
		defaults: defaults,
		limiter:  limiter,
		metrics:  m,
		stream:   stream.withDefaults(),
	}
}

func (h *StockEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.rateLimit)
	g.GET("/instruments", h.Instruments)
	g.GET("/bars", h.Bars)
	g.GET("/snapshot", h.Snapshot)
	g.GET("/volume", h.Volume)
	g.GET("/trend", h.Trend)
	g.GET("/signals", h.Signals)
	g.GET("/overview", h.Overview)
	g.GET("/alerts/volume", h.VolumeAlerts)
	g.POST("/ingestions", h.TriggerIngestion)
	g.GET("/ws/snapshots", h.StreamSnapshots)
}

func (h *StockEchoHandler) Instruments(c echo.Context) error {
	ids, err := h.q.Instruments(c.Request().Context())
	if err != nil {
		return h.fail(c, "instruments", "", err)
	}
	return xhttp.ListResponse(c, ids, int64(len(ids)))
}

func (h *StockEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.q.LatestBars(c.Request().Context(), req.Symbol, req.N)
	if err != nil {
		return h.fail(c, "bars", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StockEchoHandler) Snapshot(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.q.Snapshot(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "snapshot", req.Symbol, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *StockEchoHandler) Volume(c echo.Context) error {
	req := &models.VolumeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.q.VolumeSeries(c.Request().Context(), req.Symbol, req.N)
	if err != nil {
		return h.fail(c, "volume", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StockEchoHandler) Trend(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.q.Trend(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "trend", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StockEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.q.Signals(c.Request().Context(), req.Symbol, req.N)
	if err != nil {
		return h.fail(c, "signals", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StockEchoHandler) Overview(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.q.Overview(c.Request().Context(), req.Symbol, req.N)
	if err != nil {
		return h.fail(c, "overview", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StockEchoHandler) VolumeAlerts(c echo.Context) error {
	req := &models.VolumeAlertsRequest{Symbols: xhttp.QueryList(c, "symbols")}
	if verr := xhttp.ValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.q.VolumeAlerts(c.Request().Context(), req.Symbols)
	if err != nil {
		return h.fail(c, "volume_alerts", "", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

// TriggerIngestion enqueues an on-demand run and answers 202 with the job id.
func (h *StockEchoHandler) TriggerIngestion(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ingestion queue is not configured"))
	}
	req := &models.IngestionTriggerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	period, interval := domrepo.NormalizeGranularity(req.Period, req.Interval, h.defaults.Period, h.defaults.Interval)
	if err := domrepo.ValidateGranularity(period, interval); err != nil {
		return h.fail(c, "ingestions", "", err)
	}
	ids := usecase.NormalizeUniverse(req.Symbols)
	if len(req.Symbols) > 0 && len(ids) == 0 {
		return h.fail(c, "ingestions", "", usecase.ErrEmptyUniverse)
	}

	job := models.IngestionRequest{
		ID:          uuid.NewString(),
		Instruments: ids,
		Period:      period,
		Interval:    interval,
		RequestedAt: time.Now().UTC(),
	}
	jobID, err := h.jobs.Enqueue(c.Request().Context(), usecase.JobTypeIngest, job)
	if err != nil {
		return h.fail(c, "ingestions", "", err)
	}
	h.logger.Info("ingestion enqueued",
		xlogger.String("job_id", jobID),
		xlogger.String("request_id", job.ID),
		xlogger.Int("instruments", len(ids)),
	)
	return xhttp.AcceptedResponse(c, map[string]interface{}{
		"job_id":  jobID,
		"request": job,
	})
}

// fail maps usecase errors onto API errors.
var apiErrors = xhttp.ErrorMap{
	{Target: usecase.ErrInvalidInstrumentID, Build: xhttp.Passthrough(xhttp.BadRequestError)},
	{Target: domrepo.ErrUnsupportedGranularity, Build: xhttp.Passthrough(xhttp.BadRequestError)},
	{Target: usecase.ErrEmptyUniverse, Build: xhttp.Passthrough(xhttp.BadRequestError)},
	{Target: queue.ErrQueueFull, Build: xhttp.Always(xhttp.ServiceUnavailableError, "ingestion queue is unavailable")},
	{Target: queue.ErrNotRunning, Build: xhttp.Always(xhttp.ServiceUnavailableError, "ingestion queue is unavailable")},
	{Target: context.DeadlineExceeded, Build: xhttp.Always(xhttp.ServiceUnavailableError, "upstream timed out")},
}

func (h *StockEchoHandler) fail(c echo.Context, op, symbol string, err error) error {
	if errors.Is(err, domrepo.ErrNotFound) {
		msg := "no data available"
		if symbol != "" {
			msg = fmt.Sprintf("no data available for %s", symbol)
		}
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(msg).OnField("symbol").WithError(err))
	}
	if appErr, ok := apiErrors.Resolve(err); ok {
		return xhttp.AppErrorResponse(c, appErr)
	}
	h.logger.Error("api usecase error", xlogger.String("op", op), xlogger.String("symbol", symbol), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("Something went wrong").WithError(err))
}

// rateLimit rejects requests over the per client budget for each route.
func (h *StockEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter == nil {
			return next(c)
		}
		route := c.Path()
		if h.limiter.Allow(c.RealIP() + "|" + route) {
			return next(c)
		}
		if h.metrics != nil {
			h.metrics.Limited.WithLabelValues(route).Inc()
		}
		h.logger.Warn("rate limited", xlogger.String("route", route), xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
	}
}
