package meanvar

import (
	"fmt"

	"PortOpt/internal/domain/models"
	domsvc "PortOpt/internal/domain/service"
)

// InputError reports invalid optimization inputs, detected before any solver
// runs.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return "invalid input: " + e.Reason }

// OptimizationFailedError reports a named-portfolio solve that did not
// converge. It carries the solver diagnostic and is fatal for the whole
// request; failures are deterministic given the same inputs, so there is no
// retry policy.
type OptimizationFailedError struct {
	Portfolio  string
	Diagnostic string
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("%s optimization failed: %s", e.Portfolio, e.Diagnostic)
}

// Optimizer solves the named mean-variance portfolios over a pluggable
// constrained minimizer.
type Optimizer struct {
	min           domsvc.ConstrainedMinimizer
	annualization float64
}

// Option configures Optimizer.
type Option func(*Optimizer)

// WithAnnualization overrides the trading-periods-per-year factor.
func WithAnnualization(t float64) Option {
	return func(o *Optimizer) {
		if t > 0 {
			o.annualization = t
		}
	}
}

// NewOptimizer creates an Optimizer backed by the given minimizer.
func NewOptimizer(min domsvc.ConstrainedMinimizer, opts ...Option) *Optimizer {
	o := &Optimizer{min: min, annualization: DefaultAnnualization}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Annualization returns the configured annualization factor.
func (o *Optimizer) Annualization() float64 { return o.annualization }

// MaxSharpe finds the tangent portfolio: the weights maximizing
// (return - riskFree) / volatility subject to the budget constraint and
// uniform bounds. Non-convergence is returned as *OptimizationFailedError.
func (o *Optimizer) MaxSharpe(stats *models.ReturnStatistics, riskFree float64, bounds models.Bounds) (models.OptimizationOutcome, error) {
	if err := validateInputs(stats, bounds); err != nil {
		return models.OptimizationOutcome{}, err
	}
	out := o.solve(NegativeSharpe(stats, riskFree, o.annualization), stats, bounds, nil)
	if !out.Converged {
		return out, &OptimizationFailedError{Portfolio: "max sharpe", Diagnostic: out.Diagnostic}
	}
	return out, nil
}

// MinVolatility finds the weights with the smallest annualized volatility
// subject to the budget constraint and uniform bounds. This problem is convex;
// the local optimum is global.
func (o *Optimizer) MinVolatility(stats *models.ReturnStatistics, bounds models.Bounds) (models.OptimizationOutcome, error) {
	if err := validateInputs(stats, bounds); err != nil {
		return models.OptimizationOutcome{}, err
	}
	out := o.solve(Volatility(stats, o.annualization), stats, bounds, nil)
	if !out.Converged {
		return out, &OptimizationFailedError{Portfolio: "min volatility", Diagnostic: out.Diagnostic}
	}
	return out, nil
}

// solve runs one constrained minimization from the neutral equal-weight start,
// with the budget constraint plus any extra equalities. Converged weights are
// renormalized so the budget holds exactly.
func (o *Optimizer) solve(obj domsvc.Objective, stats *models.ReturnStatistics, bounds models.Bounds, extra []domsvc.EqualityConstraint) models.OptimizationOutcome {
	eqs := append([]domsvc.EqualityConstraint{BudgetConstraint()}, extra...)
	out := o.min.Minimize(domsvc.Problem{
		Objective:  obj,
		Equalities: eqs,
		Bounds:     bounds,
		Initial:    equalWeights(stats.NumAssets()),
	})
	if out.Converged {
		normalize(out.Weights, bounds)
	}
	return out
}

// validateInputs enforces the preconditions shared by every solver entry
// point: at least two assets, matching statistic shapes, sane bounds.
func validateInputs(stats *models.ReturnStatistics, bounds models.Bounds) error {
	n := stats.NumAssets()
	if n < 2 {
		return &InputError{Reason: fmt.Sprintf("need at least 2 assets, got %d", n)}
	}
	if len(stats.Assets) != 0 && len(stats.Assets) != n {
		return &InputError{Reason: fmt.Sprintf("%d asset labels for %d assets", len(stats.Assets), n)}
	}
	if !bounds.Valid() {
		return &InputError{Reason: fmt.Sprintf("lower bound %g must be smaller than upper bound %g", bounds.Lower, bounds.Upper)}
	}
	if _, err := Performance(equalWeights(n), stats, 1); err != nil {
		return &InputError{Reason: err.Error()}
	}
	return nil
}

// equalWeights is the neutral, bias-free starting point 1/N used by every
// solve.
func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// normalize rescales weights so they sum to exactly 1, then clamps each back
// into bounds. The solver already holds the sum within tolerance, so the
// per-weight adjustment is tiny; without the clamp the rescale can push a
// weight sitting exactly on a bound marginally past it.
func normalize(w []float64, bounds models.Bounds) {
	s := 0.0
	for _, wi := range w {
		s += wi
	}
	if s == 0 {
		return
	}
	for i := range w {
		w[i] /= s
		if w[i] < bounds.Lower {
			w[i] = bounds.Lower
		}
		if w[i] > bounds.Upper {
			w[i] = bounds.Upper
		}
	}
}
