package solver

import (
	"math"
	"testing"

	"PortOpt/internal/domain/models"
	domsvc "PortOpt/internal/domain/service"
)

func TestMinimizeQuadraticWithEquality(t *testing.T) {
	// minimize (x-2)^2 + (y-3)^2 subject to x+y=1. The projection of (2,3)
	// onto the constraint plane is (0, 1).
	p := domsvc.Problem{
		Objective: domsvc.Objective{
			Func: func(v []float64) float64 {
				dx, dy := v[0]-2, v[1]-3
				return dx*dx + dy*dy
			},
			Grad: func(grad, v []float64) {
				grad[0] = 2 * (v[0] - 2)
				grad[1] = 2 * (v[1] - 3)
			},
		},
		Equalities: []domsvc.EqualityConstraint{{
			Func: func(v []float64) float64 { return v[0] + v[1] - 1 },
			Grad: func(grad, v []float64) { grad[0], grad[1] = 1, 1 },
		}},
		Bounds:  models.Bounds{Lower: -10, Upper: 10},
		Initial: []float64{0.5, 0.5},
	}

	out := New().Minimize(p)
	if !out.Converged {
		t.Fatalf("expected convergence, diagnostic: %s", out.Diagnostic)
	}
	if math.Abs(out.Weights[0]-0) > 1e-3 || math.Abs(out.Weights[1]-1) > 1e-3 {
		t.Fatalf("unexpected solution %v, want (0, 1)", out.Weights)
	}
	if v := math.Abs(out.Weights[0] + out.Weights[1] - 1); v > 1e-6 {
		t.Fatalf("equality violated by %g", v)
	}
}

func TestMinimizeRespectsBounds(t *testing.T) {
	// Unconstrained minimum at (-5, -5), pushed back into [0, 1].
	p := domsvc.Problem{
		Objective: domsvc.Objective{
			Func: func(v []float64) float64 {
				a, b := v[0]+5, v[1]+5
				return a*a + b*b
			},
			Grad: func(grad, v []float64) {
				grad[0] = 2 * (v[0] + 5)
				grad[1] = 2 * (v[1] + 5)
			},
		},
		Bounds:  models.Bounds{Lower: 0, Upper: 1},
		Initial: []float64{0.5, 0.5},
	}

	out := New().Minimize(p)
	if !out.Converged {
		t.Fatalf("expected convergence, diagnostic: %s", out.Diagnostic)
	}
	for i, w := range out.Weights {
		if w < 0 || w > 1 {
			t.Fatalf("weight %d = %g outside [0, 1]", i, w)
		}
		if math.Abs(w) > 1e-3 {
			t.Fatalf("weight %d = %g, want 0 at the lower bound", i, w)
		}
	}
}

func TestMinimizeDerivativeFree(t *testing.T) {
	// No gradient supplied: Nelder-Mead alone should still find the
	// constrained minimum of a smooth bowl.
	p := domsvc.Problem{
		Objective: domsvc.Objective{
			Func: func(v []float64) float64 {
				dx, dy := v[0]-0.3, v[1]-0.7
				return dx*dx + dy*dy
			},
		},
		Equalities: []domsvc.EqualityConstraint{{
			Func: func(v []float64) float64 { return v[0] + v[1] - 1 },
		}},
		Bounds:  models.Bounds{Lower: 0, Upper: 1},
		Initial: []float64{0.5, 0.5},
	}

	out := New().Minimize(p)
	if !out.Converged {
		t.Fatalf("expected convergence, diagnostic: %s", out.Diagnostic)
	}
	if math.Abs(out.Weights[0]-0.3) > 1e-3 || math.Abs(out.Weights[1]-0.7) > 1e-3 {
		t.Fatalf("unexpected solution %v, want (0.3, 0.7)", out.Weights)
	}
}

func TestMinimizeEmptyInitial(t *testing.T) {
	out := New().Minimize(domsvc.Problem{})
	if out.Converged {
		t.Fatalf("expected non-convergence for empty problem")
	}
}

func TestMinimizeReportsViolation(t *testing.T) {
	// Contradictory equalities x=0 and x=1 cannot both hold; the outcome
	// must be flagged as non-converged, never silently accepted.
	p := domsvc.Problem{
		Objective: domsvc.Objective{
			Func: func(v []float64) float64 { return v[0] * v[0] },
		},
		Equalities: []domsvc.EqualityConstraint{
			{Func: func(v []float64) float64 { return v[0] }},
			{Func: func(v []float64) float64 { return v[0] - 1 }},
		},
		Bounds:  models.Bounds{Lower: -1, Upper: 2},
		Initial: []float64{0.5},
	}

	out := New().Minimize(p)
	if out.Converged {
		t.Fatalf("expected non-convergence for infeasible constraints, got weights %v", out.Weights)
	}
	if out.Diagnostic == "" {
		t.Fatalf("expected a diagnostic for the failed solve")
	}
}
