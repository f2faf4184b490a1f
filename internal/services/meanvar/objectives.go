package meanvar

import (
	"math"

	"PortOpt/internal/domain/models"
	domsvc "PortOpt/internal/domain/service"
)

// volEpsilon is the volatility below which a portfolio is treated as
// degenerate (numerically risk-free). The negative-Sharpe objective returns
// +Inf there so a minimizer steers away from dividing by zero.
const volEpsilon = 1e-12

// NegativeSharpe builds the objective minimized by the Maximum Sharpe solver:
// -(annualized return - riskFree) / annualized volatility.
func NegativeSharpe(stats *models.ReturnStatistics, riskFree, annualization float64) domsvc.Objective {
	mean, cov := stats.Mean, stats.Cov
	return domsvc.Objective{
		Func: func(w []float64) float64 {
			vol := annualVolatility(w, cov, annualization)
			if vol < volEpsilon {
				return math.Inf(1)
			}
			ret := annualReturn(w, mean, annualization)
			return -(ret - riskFree) / vol
		},
		Grad: func(grad, w []float64) {
			vol := annualVolatility(w, cov, annualization)
			if vol < volEpsilon {
				vol = volEpsilon
			}
			ret := annualReturn(w, mean, annualization)
			excess := ret - riskFree
			// dvol/dw_i = T * (Σw)_i / vol
			for i := range w {
				sw := 0.0
				for j := range w {
					sw += cov[i][j] * w[j]
				}
				dvol := annualization * sw / vol
				grad[i] = -annualization*mean[i]/vol + excess*dvol/(vol*vol)
			}
		},
	}
}

// Volatility builds the variance objective minimized directly by the Minimum
// Volatility solver and every frontier solve.
func Volatility(stats *models.ReturnStatistics, annualization float64) domsvc.Objective {
	cov := stats.Cov
	return domsvc.Objective{
		Func: func(w []float64) float64 {
			return annualVolatility(w, cov, annualization)
		},
		Grad: func(grad, w []float64) {
			vol := annualVolatility(w, cov, annualization)
			if vol < volEpsilon {
				vol = volEpsilon
			}
			for i := range w {
				sw := 0.0
				for j := range w {
					sw += cov[i][j] * w[j]
				}
				grad[i] = annualization * sw / vol
			}
		},
	}
}

// BudgetConstraint is sum(w) - 1 = 0: the portfolio is fully invested.
func BudgetConstraint() domsvc.EqualityConstraint {
	return domsvc.EqualityConstraint{
		Func: func(w []float64) float64 {
			s := 0.0
			for _, wi := range w {
				s += wi
			}
			return s - 1
		},
		Grad: func(grad, w []float64) {
			for i := range grad {
				grad[i] = 1
			}
		},
	}
}

// ReturnConstraint pins the annualized portfolio return to target.
func ReturnConstraint(stats *models.ReturnStatistics, annualization, target float64) domsvc.EqualityConstraint {
	mean := stats.Mean
	return domsvc.EqualityConstraint{
		Func: func(w []float64) float64 {
			return annualReturn(w, mean, annualization) - target
		},
		Grad: func(grad, w []float64) {
			for i := range grad {
				grad[i] = annualization * mean[i]
			}
		},
	}
}
