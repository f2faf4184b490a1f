package meanvar

import (
	"math"

	"PortOpt/internal/domain/models"
)

// RoundPct converts a raw fraction to a percentage rounded to 2 decimals.
func RoundPct(v float64) float64 {
	return math.Round(v*10000) / 100
}

// AllocationTable builds the per-asset allocation rows for a weight vector,
// weights expressed as rounded percentages in universe order.
func AllocationTable(assets models.AssetUniverse, weights []float64) []models.AllocationEntry {
	rows := make([]models.AllocationEntry, len(assets))
	for i, a := range assets {
		rows[i] = models.AllocationEntry{Ticker: a, WeightPct: RoundPct(weights[i])}
	}
	return rows
}

// Summarize packages one named portfolio into presentation units.
func Summarize(assets models.AssetUniverse, weights []float64, perf models.PerformancePoint, riskFree float64) models.PortfolioSummary {
	sharpe := 0.0
	if perf.Volatility > volEpsilon {
		sharpe = (perf.Return - riskFree) / perf.Volatility
	}
	return models.PortfolioSummary{
		ReturnPct:     RoundPct(perf.Return),
		VolatilityPct: RoundPct(perf.Volatility),
		SharpeRatio:   math.Round(sharpe*100) / 100,
		Allocations:   AllocationTable(assets, weights),
	}
}

// FrontierSamples converts a frontier to presentation units, preserving the
// infeasible sentinel as a nil volatility instead of coercing it to a number.
func FrontierSamples(frontier models.EfficientFrontier) []models.FrontierSample {
	out := make([]models.FrontierSample, len(frontier))
	for i, p := range frontier {
		sample := models.FrontierSample{
			TargetReturnPct: RoundPct(p.TargetReturn),
			Feasible:        p.Feasible,
		}
		if p.Feasible {
			v := RoundPct(p.Volatility)
			sample.VolatilityPct = &v
		}
		out[i] = sample
	}
	return out
}
