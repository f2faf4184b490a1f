package models

// AssetUniverse is an ordered set of distinct asset identifiers. Every vector and
// matrix in an optimization run is indexed by this ordering.
type AssetUniverse []string

// Bounds is the (lower, upper) weight interval applied uniformly to every asset.
// Lower < 0 permits short positions.
type Bounds struct {
	Lower float64
	Upper float64
}

// Valid reports whether the interval is non-degenerate.
func (b Bounds) Valid() bool { return b.Lower < b.Upper }

// OptimizationOutcome is the tagged result of a single solver invocation.
// A non-converged outcome must not be used to compute performance metrics.
type OptimizationOutcome struct {
	Weights    []float64
	Converged  bool
	Diagnostic string
}

// PerformancePoint holds annualized return and volatility derived from a weight
// vector plus return statistics. Values are raw fractions, not percentages.
type PerformancePoint struct {
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
}

// FrontierPoint is one sample of the efficient frontier. When Feasible is false
// no portfolio attains the target return within bounds and Volatility is
// meaningless; consumers must skip the point rather than plot it.
type FrontierPoint struct {
	TargetReturn float64
	Volatility   float64
	Feasible     bool
}

// EfficientFrontier is an ordered sequence of frontier points, strictly
// increasing in target return.
type EfficientFrontier []FrontierPoint
