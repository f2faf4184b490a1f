package meanvar

import (
	"fmt"
	"math"

	"PortOpt/internal/domain/models"
)

// DefaultAnnualization is the number of trading periods per year used to scale
// per-period statistics to annual terms. Callers may override it per run; it
// is never process-wide mutable state.
const DefaultAnnualization = 252.0

// ShapeMismatchError signals that weights and statistics disagree in dimension.
type ShapeMismatchError struct {
	Want int
	Got  int
	What string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s has length %d, want %d", e.What, e.Got, e.Want)
}

// Performance computes the annualized return and volatility of a weight
// vector under the given statistics. Pure function; it performs no bounds or
// budget validation (that is the solvers' responsibility).
func Performance(weights []float64, stats *models.ReturnStatistics, annualization float64) (models.PerformancePoint, error) {
	n := len(weights)
	if len(stats.Mean) != n {
		return models.PerformancePoint{}, &ShapeMismatchError{Want: n, Got: len(stats.Mean), What: "mean vector"}
	}
	if len(stats.Cov) != n {
		return models.PerformancePoint{}, &ShapeMismatchError{Want: n, Got: len(stats.Cov), What: "covariance matrix"}
	}
	for i := range stats.Cov {
		if len(stats.Cov[i]) != n {
			return models.PerformancePoint{}, &ShapeMismatchError{Want: n, Got: len(stats.Cov[i]), What: fmt.Sprintf("covariance row %d", i)}
		}
	}

	return models.PerformancePoint{
		Return:     annualReturn(weights, stats.Mean, annualization),
		Volatility: annualVolatility(weights, stats.Cov, annualization),
	}, nil
}

// annualReturn is mean·w scaled by the annualization factor.
func annualReturn(w, mean []float64, annualization float64) float64 {
	ret := 0.0
	for i := range w {
		ret += mean[i] * w[i]
	}
	return ret * annualization
}

// annualVolatility is sqrt(w'Σw) scaled by sqrt of the annualization factor.
// Tiny negative variances from floating-point noise are clamped to zero.
func annualVolatility(w []float64, cov [][]float64, annualization float64) float64 {
	q := quadraticForm(w, cov)
	if q < 0 {
		q = 0
	}
	return math.Sqrt(q * annualization)
}

func quadraticForm(w []float64, cov [][]float64) float64 {
	q := 0.0
	for i := range w {
		row := cov[i]
		for j := range w {
			q += w[i] * w[j] * row[j]
		}
	}
	return q
}
