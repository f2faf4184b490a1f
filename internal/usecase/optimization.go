package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"PortOpt/internal/domain/models"
	drepo "PortOpt/internal/domain/repository"
	"PortOpt/internal/services/meanvar"
	applogger "PortOpt/pkg/logger"
)

// SolveDefaults carries the configured fallbacks applied when a request omits
// an optional field.
type SolveDefaults struct {
	RiskFreeRate   float64
	Bounds         models.Bounds
	FrontierPoints int
	Parallelism    int
}

// OptimizeParams are the normalized inputs of one optimization run. Observer
// is optional and receives progress events as named portfolios finish and
// frontier points complete.
type OptimizeParams struct {
	Tickers        []string
	From, To       time.Time
	RiskFreeRate   *float64
	Bounds         *models.Bounds
	FrontierPoints int
	Observer       func(models.FrontierProgressEvent)
}

// OptimizationUseCase orchestrates one full run: statistics, both named
// portfolios, the frontier sweep, and the assembled report.
type OptimizationUseCase struct {
	stats     *StatisticsProvider
	optimizer *meanvar.Optimizer
	publisher drepo.ResultPublisher
	metrics   drepo.Metrics
	logger    *applogger.Logger
	defaults  SolveDefaults
}

func NewOptimizationUseCase(
	stats *StatisticsProvider,
	optimizer *meanvar.Optimizer,
	publisher drepo.ResultPublisher,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	defaults SolveDefaults,
) *OptimizationUseCase {
	if defaults.FrontierPoints <= 0 {
		defaults.FrontierPoints = meanvar.DefaultFrontierPoints
	}
	if defaults.Parallelism <= 0 {
		defaults.Parallelism = 4
	}
	return &OptimizationUseCase{
		stats:     stats,
		optimizer: optimizer,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		defaults:  defaults,
	}
}

// Optimize runs the full pipeline. It is all-or-nothing: any invalid input or
// failed solve of a named portfolio aborts the run with an error; only
// individual frontier points may come back infeasible.
func (uc *OptimizationUseCase) Optimize(ctx context.Context, params OptimizeParams) (*models.OptimizationReport, error) {
	tickers, err := normalizeTickers(params.Tickers)
	if err != nil {
		return nil, err
	}
	if !params.From.Before(params.To) {
		return nil, &meanvar.InputError{Reason: "start date must precede end date"}
	}

	riskFree := uc.defaults.RiskFreeRate
	if params.RiskFreeRate != nil {
		riskFree = *params.RiskFreeRate
	}
	if riskFree < 0 {
		return nil, &meanvar.InputError{Reason: "risk-free rate must be non-negative"}
	}
	bounds := uc.defaults.Bounds
	if params.Bounds != nil {
		bounds = *params.Bounds
	}
	if !bounds.Valid() {
		return nil, &meanvar.InputError{Reason: fmt.Sprintf("invalid bounds [%g, %g]", bounds.Lower, bounds.Upper)}
	}
	nPoints := params.FrontierPoints
	if nPoints <= 0 {
		nPoints = uc.defaults.FrontierPoints
	}

	stats, err := uc.stats.Statistics(ctx, tickers, params.From, params.To)
	if err != nil {
		return nil, err
	}

	maxSharpe, err := uc.solveTimed("max_sharpe", func() (models.OptimizationOutcome, error) {
		return uc.optimizer.MaxSharpe(stats, riskFree, bounds)
	})
	if err != nil {
		return nil, err
	}
	msPerf, err := meanvar.Performance(maxSharpe.Weights, stats, uc.optimizer.Annualization())
	if err != nil {
		return nil, err
	}
	msSummary := meanvar.Summarize(stats.Assets, maxSharpe.Weights, msPerf, riskFree)
	uc.metrics.RecordSharpe(msSummary.SharpeRatio)
	uc.emit(params.Observer, models.FrontierProgressEvent{Stage: "max_sharpe", Summary: &msSummary})

	minVol, err := uc.solveTimed("min_volatility", func() (models.OptimizationOutcome, error) {
		return uc.optimizer.MinVolatility(stats, bounds)
	})
	if err != nil {
		return nil, err
	}
	mvPerf, err := meanvar.Performance(minVol.Weights, stats, uc.optimizer.Annualization())
	if err != nil {
		return nil, err
	}
	mvSummary := meanvar.Summarize(stats.Assets, minVol.Weights, mvPerf, riskFree)
	uc.emit(params.Observer, models.FrontierProgressEvent{Stage: "min_volatility", Summary: &mvSummary})

	// The two named portfolios anchor the return range of the sweep.
	frontier, err := uc.optimizer.Frontier(stats, bounds,
		mvPerf.Return, msPerf.Return,
		nPoints, uc.defaults.Parallelism,
		func(index int, point models.FrontierPoint) {
			if !point.Feasible {
				uc.metrics.RecordInfeasiblePoint()
			}
			samples := meanvar.FrontierSamples(models.EfficientFrontier{point})
			uc.emit(params.Observer, models.FrontierProgressEvent{
				Stage: "frontier_point",
				Index: index,
				Total: nPoints,
				Point: &samples[0],
			})
		},
	)
	if err != nil {
		return nil, err
	}

	report := &models.OptimizationReport{
		Tickers:       tickers,
		Start:         params.From.Format("2006-01-02"),
		End:           params.To.Format("2006-01-02"),
		RiskFreeRate:  riskFree,
		MaxSharpe:     msSummary,
		MinVolatility: mvSummary,
		Frontier:      meanvar.FrontierSamples(frontier),
	}
	uc.emit(params.Observer, models.FrontierProgressEvent{Stage: "done"})

	if uc.publisher != nil {
		if err := uc.publisher.PublishReport(ctx, report); err != nil {
			uc.logger.Warn("result publish failed", applogger.Error(err))
		}
	}
	return report, nil
}

func (uc *OptimizationUseCase) solveTimed(kind string, solve func() (models.OptimizationOutcome, error)) (models.OptimizationOutcome, error) {
	start := time.Now()
	outcome, err := solve()
	uc.metrics.RecordSolve(kind, time.Since(start).Seconds(), err == nil && outcome.Converged)
	if err != nil {
		uc.metrics.RecordError("solve")
		uc.logger.Warn("portfolio solve failed",
			applogger.String("portfolio", kind),
			applogger.Error(err),
		)
		return models.OptimizationOutcome{}, err
	}
	return outcome, nil
}

func (uc *OptimizationUseCase) emit(observer func(models.FrontierProgressEvent), ev models.FrontierProgressEvent) {
	if observer != nil {
		observer(ev)
	}
}

// normalizeTickers uppercases, trims, dedupes, and keeps a stable sorted order
// so equivalent requests hit the same statistics cache entry.
func normalizeTickers(tickers []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) < 2 {
		return nil, &meanvar.InputError{Reason: "at least two distinct tickers are required"}
	}
	sort.Strings(out)
	return out, nil
}
