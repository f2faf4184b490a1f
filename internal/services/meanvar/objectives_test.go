package meanvar

import (
	"math"
	"testing"

	"PortOpt/internal/domain/models"
)

func TestNegativeSharpeInfiniteAtZeroVolatility(t *testing.T) {
	// Perfectly anti-correlated assets: w = (0.5, 0.5) has exactly zero
	// variance, so the objective must return +Inf instead of dividing by it.
	stats := &models.ReturnStatistics{
		Assets: models.AssetUniverse{"AAA", "BBB"},
		Mean:   []float64{0.001, 0.001},
		Cov: [][]float64{
			{0.0004, -0.0004},
			{-0.0004, 0.0004},
		},
	}

	obj := NegativeSharpe(stats, 0.02, 252)
	if v := obj.Func([]float64{0.5, 0.5}); !math.IsInf(v, 1) {
		t.Fatalf("objective at zero volatility = %g, want +Inf", v)
	}
	// Away from the degenerate point the objective is finite.
	if v := obj.Func([]float64{0.9, 0.1}); math.IsInf(v, 0) || math.IsNaN(v) {
		t.Fatalf("objective away from degenerate point = %g, want finite", v)
	}
}

func TestNegativeSharpeGradientMatchesFiniteDifference(t *testing.T) {
	stats := twoAssetStats()
	obj := NegativeSharpe(stats, 0.02, 252)
	checkGradient(t, obj.Func, obj.Grad, []float64{0.7, 0.3})
}

func TestVolatilityGradientMatchesFiniteDifference(t *testing.T) {
	stats := twoAssetStats()
	obj := Volatility(stats, 252)
	checkGradient(t, obj.Func, obj.Grad, []float64{0.4, 0.6})
}

func TestBudgetConstraint(t *testing.T) {
	eq := BudgetConstraint()
	if v := eq.Func([]float64{0.5, 0.5}); math.Abs(v) > 1e-15 {
		t.Fatalf("budget residual at a valid portfolio = %g, want 0", v)
	}
	if v := eq.Func([]float64{0.5, 0.7}); math.Abs(v-0.2) > 1e-15 {
		t.Fatalf("budget residual = %g, want 0.2", v)
	}
	grad := make([]float64, 2)
	eq.Grad(grad, []float64{0.5, 0.5})
	if grad[0] != 1 || grad[1] != 1 {
		t.Fatalf("budget gradient = %v, want all ones", grad)
	}
}

func TestReturnConstraint(t *testing.T) {
	stats := twoAssetStats()
	w := []float64{0.6, 0.4}
	target := (0.6*0.001 + 0.4*0.0005) * 252

	eq := ReturnConstraint(stats, 252, target)
	if v := eq.Func(w); math.Abs(v) > 1e-12 {
		t.Fatalf("return residual at the target portfolio = %g, want 0", v)
	}
	grad := make([]float64, 2)
	eq.Grad(grad, w)
	if math.Abs(grad[0]-252*0.001) > 1e-12 || math.Abs(grad[1]-252*0.0005) > 1e-12 {
		t.Fatalf("return gradient = %v", grad)
	}
}

// checkGradient compares an analytic gradient against central differences.
func checkGradient(t *testing.T, f func([]float64) float64, g func([]float64, []float64), x []float64) {
	t.Helper()
	const h = 1e-7

	analytic := make([]float64, len(x))
	g(analytic, x)

	for i := range x {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[i] += h
		xm[i] -= h
		numeric := (f(xp) - f(xm)) / (2 * h)
		if math.Abs(analytic[i]-numeric) > 1e-4*(1+math.Abs(numeric)) {
			t.Fatalf("gradient[%d] = %g, finite difference = %g", i, analytic[i], numeric)
		}
	}
}
