package service

import (
	"PortOpt/internal/domain/models"
)

// Objective is a smooth scalar function of a weight vector. Grad, when
// non-nil, writes the gradient at x into grad (len(grad) == len(x)).
type Objective struct {
	Func func(x []float64) float64
	Grad func(grad, x []float64)
}

// EqualityConstraint is a function of the weight vector that must equal zero
// at a feasible point. Grad follows the same convention as Objective.Grad.
type EqualityConstraint struct {
	Func func(x []float64) float64
	Grad func(grad, x []float64)
}

// Problem is one constrained minimization: minimize Objective subject to the
// equality constraints and uniform per-asset bounds, starting from Initial.
type Problem struct {
	Objective  Objective
	Equalities []EqualityConstraint
	Bounds     models.Bounds
	Initial    []float64
}

// ConstrainedMinimizer solves Problem to a local optimum. Non-convergence is
// reported through the outcome, never as an error; any compliant sequential
// nonlinear programming implementation satisfies the contract.
type ConstrainedMinimizer interface {
	Minimize(p Problem) models.OptimizationOutcome
}
