package usecase

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"PortOpt/internal/domain/models"
)

// AllocationCSV renders both named portfolios as a CSV table, one row per
// ticker, weights as rounded percentages.
func AllocationCSV(report *models.OptimizationReport) ([]byte, error) {
	minVol := make(map[string]float64, len(report.MinVolatility.Allocations))
	for _, a := range report.MinVolatility.Allocations {
		minVol[a.Ticker] = a.WeightPct
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Ticker", "Max Sharpe Allocation (%)", "Min Vol Allocation (%)"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range report.MaxSharpe.Allocations {
		row := []string{
			a.Ticker,
			strconv.FormatFloat(a.WeightPct, 'f', 2, 64),
			strconv.FormatFloat(minVol[a.Ticker], 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
