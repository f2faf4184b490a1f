package solver

import (
	"fmt"
	"math"

	"PortOpt/internal/domain/models"
	domsvc "PortOpt/internal/domain/service"

	"gonum.org/v1/gonum/optimize"
)

// PenaltyMinimizer implements domain/service.ConstrainedMinimizer with a
// sequential quadratic-penalty method on top of gonum/optimize: each round
// minimizes objective + mu*(equality and bound violations squared) with BFGS
// (Nelder-Mead fallback), warm-starting the next round with an escalated mu.
//
// The method converges to a local optimum. Minimum-variance problems are
// convex and reach the global optimum; the maximum-Sharpe objective is not
// guaranteed globally convex and is solved from the single supplied starting
// point without restarts.
type PenaltyMinimizer struct {
	rounds       int
	initialMu    float64
	growth       float64
	violationTol float64
}

// Option configures PenaltyMinimizer.
type Option func(*PenaltyMinimizer)

// WithRounds sets the number of penalty escalation rounds.
func WithRounds(n int) Option {
	return func(m *PenaltyMinimizer) {
		if n > 0 {
			m.rounds = n
		}
	}
}

// WithPenalty sets the initial penalty weight and its per-round growth factor.
func WithPenalty(initial, growth float64) Option {
	return func(m *PenaltyMinimizer) {
		if initial > 0 {
			m.initialMu = initial
		}
		if growth > 1 {
			m.growth = growth
		}
	}
}

// WithViolationTol sets the maximum accepted equality-constraint residual.
func WithViolationTol(tol float64) Option {
	return func(m *PenaltyMinimizer) {
		if tol > 0 {
			m.violationTol = tol
		}
	}
}

// New creates a PenaltyMinimizer with defaults tuned for portfolio-sized
// problems (tens of variables).
func New(opts ...Option) *PenaltyMinimizer {
	m := &PenaltyMinimizer{
		rounds:       4,
		initialMu:    1e2,
		growth:       1e2,
		violationTol: 1e-6,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Minimize solves the constrained problem. Non-convergence is reported in the
// outcome; the caller decides whether that is fatal.
func (m *PenaltyMinimizer) Minimize(p domsvc.Problem) models.OptimizationOutcome {
	n := len(p.Initial)
	if n == 0 {
		return models.OptimizationOutcome{Converged: false, Diagnostic: "empty initial guess"}
	}

	x := make([]float64, n)
	copy(x, p.Initial)
	clip(x, p.Bounds)

	mu := m.initialMu
	lastStatus := "no solver round completed"
	solved := false

	for r := 0; r < m.rounds; r++ {
		prob := m.penalized(p, mu)
		res, err := m.runRound(prob, x, p.Objective.Grad != nil)
		if err != nil && res == nil {
			lastStatus = fmt.Sprintf("round %d: %v", r, err)
			mu *= m.growth
			continue
		}
		copy(x, res.X)
		clip(x, p.Bounds)
		solved = true
		lastStatus = res.Status.String()
		mu *= m.growth
	}

	viol := maxViolation(p, x)
	obj := p.Objective.Func(x)
	converged := solved && viol <= m.violationTol && !math.IsNaN(obj) && !math.IsInf(obj, 0)

	return models.OptimizationOutcome{
		Weights:    x,
		Converged:  converged,
		Diagnostic: fmt.Sprintf("status=%s max_violation=%.3g", lastStatus, viol),
	}
}

// runRound minimizes one penalized subproblem, trying the gradient method
// first and falling back to derivative-free Nelder-Mead.
func (m *PenaltyMinimizer) runRound(prob optimize.Problem, x0 []float64, hasGrad bool) (*optimize.Result, error) {
	settings := &optimize.Settings{
		GradientThreshold: 1e-8,
		MajorIterations:   2000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Iterations: 100,
		},
	}

	if hasGrad {
		res, err := optimize.Minimize(prob, x0, settings, &optimize.BFGS{})
		if err == nil && accepted(res.Status) {
			return res, nil
		}
		// fall through to Nelder-Mead with whatever BFGS produced
		if err == nil && res != nil && len(res.X) == len(x0) {
			x0 = res.X
		}
	}

	res, err := optimize.Minimize(prob, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return res, fmt.Errorf("nelder-mead: %w", err)
	}
	return res, nil
}

func accepted(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.GradientThreshold,
		optimize.FunctionConvergence,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// penalized builds the unconstrained subproblem for a given penalty weight.
func (m *PenaltyMinimizer) penalized(p domsvc.Problem, mu float64) optimize.Problem {
	lower, upper := p.Bounds.Lower, p.Bounds.Upper

	prob := optimize.Problem{
		Func: func(x []float64) float64 {
			f := p.Objective.Func(x)
			if math.IsNaN(f) {
				return math.Inf(1)
			}
			if math.IsInf(f, 1) {
				return f
			}
			pen := 0.0
			for _, eq := range p.Equalities {
				g := eq.Func(x)
				pen += g * g
			}
			for _, xi := range x {
				if d := lower - xi; d > 0 {
					pen += d * d
				}
				if d := xi - upper; d > 0 {
					pen += d * d
				}
			}
			return f + mu*pen
		},
	}

	if p.Objective.Grad == nil {
		return prob
	}

	prob.Grad = func(grad, x []float64) {
		p.Objective.Grad(grad, x)
		tmp := make([]float64, len(x))
		for _, eq := range p.Equalities {
			g := eq.Func(x)
			eq.Grad(tmp, x)
			for i := range grad {
				grad[i] += 2 * mu * g * tmp[i]
			}
		}
		for i, xi := range x {
			if d := lower - xi; d > 0 {
				grad[i] -= 2 * mu * d
			}
			if d := xi - upper; d > 0 {
				grad[i] += 2 * mu * d
			}
		}
	}
	return prob
}

// maxViolation reports the largest equality residual at x. Bounds are already
// enforced by clipping.
func maxViolation(p domsvc.Problem, x []float64) float64 {
	worst := 0.0
	for _, eq := range p.Equalities {
		if v := math.Abs(eq.Func(x)); v > worst {
			worst = v
		}
	}
	return worst
}

func clip(x []float64, b models.Bounds) {
	for i, xi := range x {
		if xi < b.Lower {
			x[i] = b.Lower
		} else if xi > b.Upper {
			x[i] = b.Upper
		}
	}
}
