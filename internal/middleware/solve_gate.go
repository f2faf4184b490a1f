package middleware

import (
	"net/http"

	"PortOpt/internal/service/ratelimit"
	xhttp "PortOpt/pkg/http"
	applogger "PortOpt/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SolveGate protects the optimization endpoints: a per-client token bucket
// plus a hard cap on solves running at once. Solves are CPU-bound, so
// admitting more than the configured cap only degrades every in-flight run.
type SolveGate struct {
	limiter      *ratelimit.Limiter
	sem          chan struct{}
	capacity     float64
	refillPerSec float64
	logger       *applogger.Logger
}

func NewSolveGate(logger *applogger.Logger, maxConcurrent int, capacity, refillPerSec float64) *SolveGate {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if capacity <= 0 {
		capacity = 10
	}
	if refillPerSec <= 0 {
		refillPerSec = 1
	}
	return &SolveGate{
		limiter:      ratelimit.New(),
		sem:          make(chan struct{}, maxConcurrent),
		capacity:     capacity,
		refillPerSec: refillPerSec,
		logger:       logger,
	}
}

func (g *SolveGate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.limiter.Allow(c.RealIP(), g.capacity, g.refillPerSec) {
				g.logger.Warn("rate limited", applogger.String("remote", c.RealIP()))
				return xhttp.AppErrorResponse(c,
					xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
			}

			select {
			case g.sem <- struct{}{}:
				defer func() { <-g.sem }()
				return next(c)
			default:
				g.logger.Warn("solve capacity exhausted", applogger.String("remote", c.RealIP()))
				return xhttp.AppErrorResponse(c,
					xhttp.NewAppError("ERR_BUSY", "", "optimizer at capacity, retry shortly", http.StatusServiceUnavailable))
			}
		}
	}
}
