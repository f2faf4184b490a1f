package statistics

import (
	"fmt"
	"sort"
	"time"

	"PortOpt/internal/domain/models"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Error reports that the price history yields no usable return observations.
// It is propagated unchanged from the statistics boundary.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "statistics: " + e.Reason }

// Compute aligns the per-symbol close series on their common trading days and
// derives per-period mean returns and the sample covariance matrix. Returns
// are simple percentage changes r_t = C_t/C_{t-1} - 1, matching the daily
// statistics the optimizer annualizes.
//
// At least two return observations (three aligned days) are required for a
// sample covariance; anything less is an *Error.
func Compute(series []models.PriceSeries) (*models.ReturnStatistics, error) {
	n := len(series)
	if n == 0 {
		return nil, &Error{Reason: "no price series"}
	}

	days := commonDays(series)
	if len(days) < 3 {
		return nil, &Error{Reason: fmt.Sprintf("only %d aligned trading days, need at least 3", len(days))}
	}

	closes := alignCloses(series, days)
	obs := len(days) - 1

	// Return observation matrix: one row per period, one column per asset.
	data := make([]float64, obs*n)
	for j := 0; j < n; j++ {
		col := closes[j]
		for t := 1; t < len(days); t++ {
			data[(t-1)*n+j] = col[t]/col[t-1] - 1
		}
	}
	returns := mat.NewDense(obs, n, data)

	mean := make([]float64, n)
	for j := 0; j < n; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, returns), nil)
	}

	var sym mat.SymDense
	stat.CovarianceMatrix(&sym, returns, nil)

	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		cov[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			cov[i][j] = sym.At(i, j)
		}
	}

	assets := make(models.AssetUniverse, n)
	for i, s := range series {
		assets[i] = s.Symbol
	}

	return &models.ReturnStatistics{Assets: assets, Mean: mean, Cov: cov}, nil
}

// commonDays returns the sorted days present (with a positive close) in every
// series. A day repeated within one series counts once; the store can return
// duplicate (symbol, day) rows before its merges collapse them.
func commonDays(series []models.PriceSeries) []time.Time {
	counts := make(map[int64]int)
	for _, s := range series {
		seen := make(map[int64]struct{}, len(s.Days))
		for i, d := range s.Days {
			if s.Closes[i] <= 0 {
				continue
			}
			k := dayKey(d)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			counts[k]++
		}
	}

	var keys []int64
	for k, c := range counts {
		if c == len(series) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	days := make([]time.Time, len(keys))
	for i, k := range keys {
		days[i] = time.Unix(k, 0).UTC()
	}
	return days
}

// alignCloses projects every series onto the aligned day grid.
func alignCloses(series []models.PriceSeries, days []time.Time) [][]float64 {
	out := make([][]float64, len(series))
	for j, s := range series {
		byDay := make(map[int64]float64, len(s.Days))
		for i, d := range s.Days {
			byDay[dayKey(d)] = s.Closes[i]
		}
		col := make([]float64, len(days))
		for i, d := range days {
			col[i] = byDay[dayKey(d)]
		}
		out[j] = col
	}
	return out
}

func dayKey(t time.Time) int64 {
	return t.UTC().Truncate(24 * time.Hour).Unix()
}
