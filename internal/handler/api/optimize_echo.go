package api

import (
	"errors"
	"net/http"
	"time"

	"PortOpt/internal/domain/models"
	drepo "PortOpt/internal/domain/repository"
	"PortOpt/internal/middleware"
	"PortOpt/internal/services/meanvar"
	"PortOpt/internal/services/statistics"
	"PortOpt/internal/usecase"
	pkgcache "PortOpt/pkg/cache"
	xhttp "PortOpt/pkg/http"
	applogger "PortOpt/pkg/logger"
	"PortOpt/pkg/queue"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// OptimizeEchoHandler implements the Echo-based HTTP surface of the optimizer.
type OptimizeEchoHandler struct {
	logger    *applogger.Logger
	uc        *usecase.OptimizationUseCase
	queue     queue.QueueService // nil when async jobs are disabled
	cache     pkgcache.Service   // nil when async jobs are disabled
	store     drepo.PriceStore   // nil when the price store is disabled
	gate      *middleware.SolveGate
	stream    *FrontierStreamHandler
	defaults  usecase.SolveDefaults
	resultTTL time.Duration
}

func NewOptimizeEchoHandler(
	logger *applogger.Logger,
	uc *usecase.OptimizationUseCase,
	q queue.QueueService,
	cache pkgcache.Service,
	store drepo.PriceStore,
	gate *middleware.SolveGate,
	defaults usecase.SolveDefaults,
	resultTTL time.Duration,
) *OptimizeEchoHandler {
	if resultTTL <= 0 {
		resultTTL = time.Hour
	}
	return &OptimizeEchoHandler{
		logger:    logger,
		uc:        uc,
		queue:     q,
		cache:     cache,
		store:     store,
		gate:      gate,
		stream:    NewFrontierStreamHandler(logger, uc, defaults),
		defaults:  defaults,
		resultTTL: resultTTL,
	}
}

func (h *OptimizeEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api", h.gate.Middleware())
	g.POST("/optimize", h.Optimize)
	g.GET("/optimize/export", h.Export)
	if h.queue != nil && h.cache != nil {
		g.POST("/optimize/async", h.OptimizeAsync)
		g.GET("/optimize/jobs/:id", h.JobStatus)
	}

	e.GET("/ws/optimize", h.stream.Stream, h.gate.Middleware())
}

// Optimize runs a full optimization synchronously and returns the report.
func (h *OptimizeEchoHandler) Optimize(c echo.Context) error {
	req := &models.OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.run(c, *req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

// Export runs the optimization and returns the allocation table as CSV.
func (h *OptimizeEchoHandler) Export(c echo.Context) error {
	req := &models.OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.run(c, *req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	csvBytes, err := usecase.AllocationCSV(report)
	if err != nil {
		h.logger.Error("csv export failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="allocations.csv"`)
	return c.Blob(http.StatusOK, "text/csv", csvBytes)
}

// OptimizeAsync enqueues the run and returns the job ID immediately.
func (h *OptimizeEchoHandler) OptimizeAsync(c echo.Context) error {
	req := &models.OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// Reject malformed dates before enqueueing.
	if _, err := usecase.ParamsFromRequest(*req, h.defaults); err != nil {
		return h.errorResponse(c, err)
	}

	ctx := c.Request().Context()
	id := uuid.NewString()
	if err := usecase.MarkQueued(ctx, h.cache, id, h.resultTTL); err != nil {
		h.logger.Error("mark job queued failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	payload := usecase.OptimizeJobPayload{ID: id, Request: *req}
	if err := h.queue.PublishMessage(ctx, usecase.OptimizeJobType, payload); err != nil {
		h.logger.Error("enqueue optimize job failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, models.OptimizeJobStatus{ID: id, State: "queued"})
}

// JobStatus returns the stored state of an asynchronous run.
func (h *OptimizeEchoHandler) JobStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "job id required")
	}
	status, ok := usecase.JobStatus(c.Request().Context(), h.cache, id)
	if !ok {
		return xhttp.NotFoundResponse(c, "unknown or expired job: "+id)
	}
	return xhttp.SuccessResponse(c, status)
}

// Health reports liveness, including the price store when one is wired.
func (h *OptimizeEchoHandler) Health(c echo.Context) error {
	resp := map[string]string{"status": "ok"}
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			resp["status"] = "degraded"
			resp["price_store"] = err.Error()
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, resp)
		}
		resp["price_store"] = "ok"
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *OptimizeEchoHandler) run(c echo.Context, req models.OptimizeRequest) (*models.OptimizationReport, error) {
	params, err := usecase.ParamsFromRequest(req, h.defaults)
	if err != nil {
		return nil, err
	}
	return h.uc.Optimize(c.Request().Context(), params)
}

// errorResponse maps domain errors onto HTTP statuses: bad inputs are 4xx,
// failed solves are 422 with the solver diagnostic, anything else is 500.
func (h *OptimizeEchoHandler) errorResponse(c echo.Context, err error) error {
	var inputErr *meanvar.InputError
	if errors.As(err, &inputErr) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(inputErr.Error()))
	}
	var statsErr *statistics.Error
	if errors.As(err, &statsErr) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", statsErr.Error(), http.StatusUnprocessableEntity))
	}
	var solveErr *meanvar.OptimizationFailedError
	if errors.As(err, &solveErr) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_NOT_CONVERGED", "", solveErr.Error(), http.StatusUnprocessableEntity))
	}
	h.logger.Error("optimize request failed", applogger.Error(err))
	return xhttp.AppErrorResponse(c,
		xhttp.NewAppError("ERR_UPSTREAM", "", "market data unavailable", http.StatusBadGateway))
}
