package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PortOpt/internal/domain/models"
	"PortOpt/internal/services/meanvar"
	pkgcache "PortOpt/pkg/cache"
	applogger "PortOpt/pkg/logger"
	"PortOpt/pkg/queue"
	"PortOpt/pkg/util"
)

const (
	// OptimizeJobType is the queue message type handled by OptimizeJob.
	OptimizeJobType = "optimize.request"

	jobKeyPrefix = "job:"
)

// OptimizeJobPayload is the wire form of one queued optimization run.
type OptimizeJobPayload struct {
	ID      string                 `json:"id"`
	Request models.OptimizeRequest `json:"request"`
}

// OptimizeJob runs queued optimization requests and stores their final status
// in the cache. Failures are terminal: a bad request does not become better on
// retry, so Handle reports them through the status record and returns nil.
type OptimizeJob struct {
	uc        *OptimizationUseCase
	cache     pkgcache.Service
	logger    *applogger.Logger
	resultTTL time.Duration
	defaults  SolveDefaults
}

func NewOptimizeJob(uc *OptimizationUseCase, cache pkgcache.Service, logger *applogger.Logger, resultTTL time.Duration, defaults SolveDefaults) *OptimizeJob {
	if resultTTL <= 0 {
		resultTTL = time.Hour
	}
	return &OptimizeJob{uc: uc, cache: cache, logger: logger, resultTTL: resultTTL, defaults: defaults}
}

func (j *OptimizeJob) Name() string { return "optimize" }

func (j *OptimizeJob) Type() string { return OptimizeJobType }

func (j *OptimizeJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[OptimizeJobPayload](payload)
	if err != nil {
		j.logger.Error("invalid optimize job payload", applogger.Error(err))
		return nil
	}

	params, err := ParamsFromRequest(p.Request, j.defaults)
	if err != nil {
		j.storeStatus(ctx, models.OptimizeJobStatus{ID: p.ID, State: "failed", Error: err.Error()})
		return nil
	}

	report, err := j.uc.Optimize(ctx, params)
	if err != nil {
		j.logger.Warn("queued optimization failed",
			applogger.String("job_id", p.ID),
			applogger.Error(err),
		)
		j.storeStatus(ctx, models.OptimizeJobStatus{ID: p.ID, State: "failed", Error: err.Error()})
		return nil
	}

	j.storeStatus(ctx, models.OptimizeJobStatus{ID: p.ID, State: "done", Report: report})
	return nil
}

func (j *OptimizeJob) storeStatus(ctx context.Context, status models.OptimizeJobStatus) {
	raw, err := json.Marshal(status)
	if err != nil {
		j.logger.Error("marshal job status", applogger.Error(err))
		return
	}
	if err := j.cache.Set(ctx, jobKeyPrefix+status.ID, string(raw), j.resultTTL); err != nil {
		j.logger.Error("store job status",
			applogger.String("job_id", status.ID),
			applogger.Error(err),
		)
	}
}

// JobStatus loads the stored status of a queued run. The second return is
// false when the job is unknown or expired.
func JobStatus(ctx context.Context, cache pkgcache.Service, id string) (*models.OptimizeJobStatus, bool) {
	var raw string
	if err := cache.Get(ctx, jobKeyPrefix+id, &raw); err != nil {
		return nil, false
	}
	var status models.OptimizeJobStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, false
	}
	return &status, true
}

// MarkQueued records the initial status so polls between enqueue and first
// worker pickup see a queued state rather than a miss.
func MarkQueued(ctx context.Context, cache pkgcache.Service, id string, ttl time.Duration) error {
	raw, err := json.Marshal(models.OptimizeJobStatus{ID: id, State: "queued"})
	if err != nil {
		return err
	}
	return cache.Set(ctx, jobKeyPrefix+id, string(raw), ttl)
}

// ParamsFromRequest converts a validated HTTP request into solve parameters,
// parsing its dates and folding in configured defaults.
func ParamsFromRequest(req models.OptimizeRequest, defaults SolveDefaults) (OptimizeParams, error) {
	from, ok := util.ParseTime(req.Start)
	if !ok {
		return OptimizeParams{}, &meanvar.InputError{Reason: "invalid start date: " + req.Start}
	}
	to, ok := util.ParseTime(req.End)
	if !ok {
		return OptimizeParams{}, &meanvar.InputError{Reason: "invalid end date: " + req.End}
	}

	params := OptimizeParams{
		Tickers:        req.Tickers,
		From:           from,
		To:             to,
		RiskFreeRate:   req.RiskFreeRate,
		FrontierPoints: req.FrontierPoints,
	}
	if req.LowerBound != nil || req.UpperBound != nil {
		bounds := defaults.Bounds
		if req.LowerBound != nil {
			bounds.Lower = *req.LowerBound
		}
		if req.UpperBound != nil {
			bounds.Upper = *req.UpperBound
		}
		params.Bounds = &bounds
	}
	return params, nil
}
