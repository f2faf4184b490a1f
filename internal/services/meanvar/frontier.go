package meanvar

import (
	"sync"

	"PortOpt/internal/domain/models"
	domsvc "PortOpt/internal/domain/service"
)

// DefaultFrontierPoints is the default frontier sample count.
const DefaultFrontierPoints = 20

// FrontierObserver is notified as frontier points complete, in completion
// order. Implementations must be safe for concurrent use.
type FrontierObserver func(index int, point models.FrontierPoint)

// Frontier traces the efficient frontier between retLo and retHi (the
// annualized returns of the two anchor portfolios) with nPoints evenly spaced
// target returns, inclusive. Each target is an independent minimum-volatility
// solve with an added target-return equality, so the sweep is dispatched
// across a bounded worker pool and reassembled in target order afterwards.
//
// Targets that admit no feasible portfolio are marked infeasible rather than
// reported as zero volatility; the sweep itself always succeeds.
func (o *Optimizer) Frontier(stats *models.ReturnStatistics, bounds models.Bounds, retLo, retHi float64, nPoints, parallelism int, observe FrontierObserver) (models.EfficientFrontier, error) {
	if err := validateInputs(stats, bounds); err != nil {
		return nil, err
	}
	if nPoints <= 0 {
		nPoints = DefaultFrontierPoints
	}
	if parallelism <= 0 {
		parallelism = 4
	}
	if retHi < retLo {
		retLo, retHi = retHi, retLo
	}

	targets := linspace(retLo, retHi, nPoints)
	points := make(models.EfficientFrontier, nPoints)

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			points[i] = o.frontierPoint(stats, bounds, target)
			if observe != nil {
				observe(i, points[i])
			}
		}(i, target)
	}
	wg.Wait()

	return points, nil
}

// frontierPoint solves for the minimal volatility attaining one target return.
func (o *Optimizer) frontierPoint(stats *models.ReturnStatistics, bounds models.Bounds, target float64) models.FrontierPoint {
	out := o.solve(
		Volatility(stats, o.annualization),
		stats,
		bounds,
		[]domsvc.EqualityConstraint{ReturnConstraint(stats, o.annualization, target)},
	)
	if !out.Converged {
		return models.FrontierPoint{TargetReturn: target, Feasible: false}
	}
	return models.FrontierPoint{
		TargetReturn: target,
		Volatility:   annualVolatility(out.Weights, stats.Cov, o.annualization),
		Feasible:     true,
	}
}

// linspace returns n evenly spaced values over [lo, hi] inclusive. When
// lo == hi all points coincide, which is degenerate but not an error.
func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
