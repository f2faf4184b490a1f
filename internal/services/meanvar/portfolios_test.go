package meanvar

import (
	"errors"
	"math"
	"testing"

	"PortOpt/internal/domain/models"
	"PortOpt/internal/services/solver"
)

// threeAssetStats has a diagonal covariance so the minimum-variance solution
// is known analytically: weights proportional to inverse variance.
func threeAssetStats() *models.ReturnStatistics {
	return &models.ReturnStatistics{
		Assets: models.AssetUniverse{"AAA", "BBB", "CCC"},
		Mean:   []float64{0.0010, 0.0008, 0.0005},
		Cov: [][]float64{
			{0.0004, 0, 0},
			{0, 0.0002, 0},
			{0, 0, 0.0001},
		},
	}
}

func newTestOptimizer() *Optimizer {
	return NewOptimizer(solver.New())
}

func fullBounds() models.Bounds { return models.Bounds{Lower: 0, Upper: 1} }

func sum(w []float64) float64 {
	s := 0.0
	for _, wi := range w {
		s += wi
	}
	return s
}

func sharpeOf(t *testing.T, o *Optimizer, w []float64, stats *models.ReturnStatistics, riskFree float64) float64 {
	t.Helper()
	perf, err := Performance(w, stats, o.Annualization())
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	return (perf.Return - riskFree) / perf.Volatility
}

func TestMinVolatilityAnalyticSolution(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()

	out, err := o.MinVolatility(stats, fullBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Converged {
		t.Fatalf("expected convergence, diagnostic: %s", out.Diagnostic)
	}
	if v := math.Abs(sum(out.Weights) - 1); v > 1e-6 {
		t.Fatalf("weights sum to %g, budget violated by %g", sum(out.Weights), v)
	}

	// Inverse-variance weights: (2500, 5000, 10000) / 17500.
	want := []float64{1.0 / 7, 2.0 / 7, 4.0 / 7}
	for i := range want {
		if math.Abs(out.Weights[i]-want[i]) > 0.02 {
			t.Fatalf("weights = %v, want approximately %v", out.Weights, want)
		}
	}
}

func TestMinVolatilityRespectsBounds(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()
	bounds := models.Bounds{Lower: 0.1, Upper: 0.5}

	out, err := o.MinVolatility(stats, bounds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, w := range out.Weights {
		if w < bounds.Lower-1e-9 || w > bounds.Upper+1e-9 {
			t.Fatalf("weight %d = %g outside [%g, %g]", i, w, bounds.Lower, bounds.Upper)
		}
	}
	// CCC has the lowest variance and should sit at the upper bound.
	if math.Abs(out.Weights[2]-0.5) > 0.02 {
		t.Fatalf("weights = %v, want the low-variance asset pinned near 0.5", out.Weights)
	}
}

func TestNormalizeClampsWeightsToBounds(t *testing.T) {
	bounds := models.Bounds{Lower: 0, Upper: 0.6}

	// Rescaling to an exact budget of 1 pushes the first weight just past
	// the upper bound; the clamp must pull it back.
	w := []float64{0.6, 0.3999999}
	normalize(w, bounds)

	if math.Abs(sum(w)-1) > 1e-6 {
		t.Fatalf("weights sum to %g after normalize", sum(w))
	}
	for i, wi := range w {
		if wi < bounds.Lower || wi > bounds.Upper {
			t.Fatalf("weight %d = %.17g outside [%g, %g]", i, wi, bounds.Lower, bounds.Upper)
		}
	}
}

func TestSolvesWithoutAssetLabels(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()
	stats.Assets = nil

	out, err := o.MinVolatility(stats, fullBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Weights) != 3 {
		t.Fatalf("got %d weights, want 3", len(out.Weights))
	}
}

func TestMaxSharpeBeatsNaivePortfolios(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()
	const riskFree = 0.02

	out, err := o.MaxSharpe(stats, riskFree, fullBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := math.Abs(sum(out.Weights) - 1); v > 1e-6 {
		t.Fatalf("budget violated by %g", v)
	}

	best := sharpeOf(t, o, out.Weights, stats, riskFree)

	// Single-asset and equal-weight portfolios must not beat the optimum.
	naive := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1.0 / 3, 1.0 / 3, 1.0 / 3},
	}
	for _, w := range naive {
		if s := sharpeOf(t, o, w, stats, riskFree); s > best+1e-4 {
			t.Fatalf("portfolio %v has sharpe %g, beating the optimum %g", w, s, best)
		}
	}
}

func TestMaxSharpeMatchesGridSearchTwoAssets(t *testing.T) {
	o := newTestOptimizer()
	stats := twoAssetStats()
	const riskFree = 0.01

	out, err := o.MaxSharpe(stats, riskFree, fullBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sharpeOf(t, o, out.Weights, stats, riskFree)

	bestGrid := math.Inf(-1)
	for w1 := 0.0; w1 <= 1.0+1e-9; w1 += 0.001 {
		s := sharpeOf(t, o, []float64{w1, 1 - w1}, stats, riskFree)
		if s > bestGrid {
			bestGrid = s
		}
	}

	if got < bestGrid-1e-3 {
		t.Fatalf("solver sharpe %g below grid-search optimum %g", got, bestGrid)
	}
}

func TestSolvesAreDeterministic(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()

	first, err := o.MaxSharpe(stats, 0.02, fullBounds())
	if err != nil {
		t.Fatalf("first solve: %v", err)
	}
	second, err := o.MaxSharpe(stats, 0.02, fullBounds())
	if err != nil {
		t.Fatalf("second solve: %v", err)
	}
	for i := range first.Weights {
		if first.Weights[i] != second.Weights[i] {
			t.Fatalf("solves differ: %v vs %v", first.Weights, second.Weights)
		}
	}
}

func TestInputValidation(t *testing.T) {
	o := newTestOptimizer()

	cases := []struct {
		name   string
		stats  *models.ReturnStatistics
		bounds models.Bounds
	}{
		{"single asset", &models.ReturnStatistics{
			Assets: models.AssetUniverse{"AAA"},
			Mean:   []float64{0.001},
			Cov:    [][]float64{{0.0004}},
		}, fullBounds()},
		{"inverted bounds", threeAssetStats(), models.Bounds{Lower: 1, Upper: 0}},
		{"shape mismatch", &models.ReturnStatistics{
			Assets: models.AssetUniverse{"AAA", "BBB"},
			Mean:   []float64{0.001},
			Cov:    [][]float64{{0.0004}},
		}, fullBounds()},
		{"label count mismatch", &models.ReturnStatistics{
			Assets: models.AssetUniverse{"AAA", "BBB"},
			Mean:   []float64{0.0010, 0.0008, 0.0005},
			Cov: [][]float64{
				{0.0004, 0, 0},
				{0, 0.0002, 0},
				{0, 0, 0.0001},
			},
		}, fullBounds()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := o.MinVolatility(tc.stats, tc.bounds)
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected InputError, got %v", err)
			}
			_, err = o.MaxSharpe(tc.stats, 0.02, tc.bounds)
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected InputError from MaxSharpe, got %v", err)
			}
		})
	}
}

func TestFrontierVolatilityMonotone(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()
	bounds := fullBounds()

	minVol, err := o.MinVolatility(stats, bounds)
	if err != nil {
		t.Fatalf("min volatility: %v", err)
	}
	maxSharpe, err := o.MaxSharpe(stats, 0.02, bounds)
	if err != nil {
		t.Fatalf("max sharpe: %v", err)
	}
	lo, err := Performance(minVol.Weights, stats, o.Annualization())
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	hi, err := Performance(maxSharpe.Weights, stats, o.Annualization())
	if err != nil {
		t.Fatalf("performance: %v", err)
	}

	frontier, err := o.Frontier(stats, bounds, lo.Return, hi.Return, 10, 4, nil)
	if err != nil {
		t.Fatalf("frontier: %v", err)
	}
	if len(frontier) != 10 {
		t.Fatalf("frontier has %d points, want 10", len(frontier))
	}

	prevVol := -1.0
	prevTarget := math.Inf(-1)
	for i, p := range frontier {
		if p.TargetReturn < prevTarget {
			t.Fatalf("targets out of order at %d: %v", i, frontier)
		}
		prevTarget = p.TargetReturn
		if !p.Feasible {
			t.Fatalf("point %d (target %g) unexpectedly infeasible", i, p.TargetReturn)
		}
		// Above the minimum-variance return, volatility grows with target.
		if p.Volatility < prevVol-1e-6 {
			t.Fatalf("volatility decreased at point %d: %g after %g", i, p.Volatility, prevVol)
		}
		prevVol = p.Volatility
	}
}

func TestFrontierMarksUnreachableTargetsInfeasible(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()

	// With long-only full-investment bounds the best achievable return is
	// the single best asset's; double it and the top targets are unreachable.
	bestAsset := 0.0010 * o.Annualization()
	frontier, err := o.Frontier(stats, fullBounds(), bestAsset*0.5, bestAsset*2, 8, 4, nil)
	if err != nil {
		t.Fatalf("frontier: %v", err)
	}

	last := frontier[len(frontier)-1]
	if last.Feasible {
		t.Fatalf("target %g should be infeasible, got volatility %g", last.TargetReturn, last.Volatility)
	}
	if !frontier[0].Feasible {
		t.Fatalf("target %g should be feasible", frontier[0].TargetReturn)
	}
}

func TestFrontierObserverSeesEveryPoint(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()

	indexes := make(chan int, 16)
	_, err := o.Frontier(stats, fullBounds(), 0.10, 0.20, 5, 2, func(index int, p models.FrontierPoint) {
		indexes <- index
	})
	if err != nil {
		t.Fatalf("frontier: %v", err)
	}
	close(indexes)

	seen := make(map[int]bool)
	for i := range indexes {
		seen[i] = true
	}
	if len(seen) != 5 {
		t.Fatalf("observer saw %d distinct points, want 5", len(seen))
	}
}

func TestMaxSharpeDominatesFrontier(t *testing.T) {
	o := newTestOptimizer()
	stats := threeAssetStats()
	const riskFree = 0.02

	maxSharpe, err := o.MaxSharpe(stats, riskFree, fullBounds())
	if err != nil {
		t.Fatalf("max sharpe: %v", err)
	}
	best := sharpeOf(t, o, maxSharpe.Weights, stats, riskFree)

	frontier, err := o.Frontier(stats, fullBounds(), 0.08, 0.24, 12, 4, nil)
	if err != nil {
		t.Fatalf("frontier: %v", err)
	}
	for _, p := range frontier {
		if !p.Feasible {
			continue
		}
		s := (p.TargetReturn - riskFree) / p.Volatility
		if s > best+1e-3 {
			t.Fatalf("frontier point (r=%g, v=%g) has sharpe %g above the optimum %g",
				p.TargetReturn, p.Volatility, s, best)
		}
	}
}
