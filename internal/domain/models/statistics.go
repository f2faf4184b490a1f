package models

import "time"

// ReturnStatistics holds per-period mean returns and the sample covariance
// matrix, both indexed by the same asset ordering. Produced once per
// (universe, window) and treated as immutable for the duration of a run;
// it may be aliased across concurrent solver calls.
type ReturnStatistics struct {
	Assets AssetUniverse
	Mean   []float64
	Cov    [][]float64
}

// NumAssets returns the universe size. It is taken from the mean vector so
// statistics built without asset labels still report a truthful dimension.
func (s *ReturnStatistics) NumAssets() int { return len(s.Mean) }

// ClosePrice is one daily closing price observation.
type ClosePrice struct {
	Symbol string
	Day    time.Time
	Close  float64
}

// PriceSeries is a per-symbol daily close series in ascending day order.
type PriceSeries struct {
	Symbol string
	Days   []time.Time
	Closes []float64
}
