package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	xhttp "StockPilot/pkg/http"
	xlogger "StockPilot/pkg/logger"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports dependency health on /healthz.
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *xlogger.Logger
}

func NewHealthHandler(logger *xlogger.Logger, timeout time.Duration, checks map[string]HealthCheck) *HealthHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HealthHandler{checks: checks, timeout: timeout, logger: logger}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health runs every check concurrently and answers 503 if any failed.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	results := make([]error, len(names))

	// checks report through results, never through the group
	var g errgroup.Group
	for i, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			results[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	report := healthReport{Status: "ok", Checks: make(map[string]string, len(names))}
	for i, name := range names {
		if err := results[i]; err != nil {
			report.Status = "degraded"
			report.Checks[name] = err.Error()
			h.logger.Warn("health check failed", xlogger.String("check", name), xlogger.Error(err))
			continue
		}
		report.Checks[name] = "ok"
	}
	if report.Status != "ok" {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, report)
	}
	return xhttp.SuccessResponse(c, report)
}
