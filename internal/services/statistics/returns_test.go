package statistics

import (
	"errors"
	"math"
	"testing"
	"time"

	"PortOpt/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeKnownReturns(t *testing.T) {
	days := []time.Time{
		day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4),
	}
	series := []models.PriceSeries{
		{Symbol: "AAA", Days: days, Closes: []float64{100, 110, 99}},
		{Symbol: "BBB", Days: days, Closes: []float64{50, 50, 55}},
	}

	stats, err := Compute(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats.Assets) != 2 || stats.Assets[0] != "AAA" || stats.Assets[1] != "BBB" {
		t.Fatalf("assets = %v", stats.Assets)
	}

	// AAA returns: 0.10, -0.10 -> mean 0. BBB returns: 0, 0.10 -> mean 0.05.
	if math.Abs(stats.Mean[0]-0) > 1e-12 {
		t.Fatalf("mean[0] = %g, want 0", stats.Mean[0])
	}
	if math.Abs(stats.Mean[1]-0.05) > 1e-12 {
		t.Fatalf("mean[1] = %g, want 0.05", stats.Mean[1])
	}

	// Sample variance of {0.10, -0.10} is 0.02; of {0, 0.10} is 0.005.
	if math.Abs(stats.Cov[0][0]-0.02) > 1e-12 {
		t.Fatalf("var[0] = %g, want 0.02", stats.Cov[0][0])
	}
	if math.Abs(stats.Cov[1][1]-0.005) > 1e-12 {
		t.Fatalf("var[1] = %g, want 0.005", stats.Cov[1][1])
	}
	// Cross term: sample covariance of the two return vectors is -0.01.
	if math.Abs(stats.Cov[0][1]+0.01) > 1e-12 || stats.Cov[0][1] != stats.Cov[1][0] {
		t.Fatalf("cov = %v", stats.Cov)
	}
}

func TestComputeAlignsOnCommonDays(t *testing.T) {
	// BBB is missing Jan 3; only Jan 2, 4, 5 are common, so AAA's Jan 3
	// close must not contribute a return observation.
	aaa := models.PriceSeries{
		Symbol: "AAA",
		Days:   []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4), day(2024, 1, 5)},
		Closes: []float64{100, 500, 110, 121},
	}
	bbb := models.PriceSeries{
		Symbol: "BBB",
		Days:   []time.Time{day(2024, 1, 2), day(2024, 1, 4), day(2024, 1, 5)},
		Closes: []float64{50, 50, 50},
	}

	stats, err := Compute([]models.PriceSeries{aaa, bbb})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// AAA on the aligned grid: 100 -> 110 -> 121, mean return exactly 0.10.
	if math.Abs(stats.Mean[0]-0.10) > 1e-12 {
		t.Fatalf("mean[0] = %g, want 0.10", stats.Mean[0])
	}
}

func TestComputeDuplicateDayNotTreatedAsCommon(t *testing.T) {
	// AAA carries Jan 3 twice (unmerged storage rows) while BBB has no Jan 3
	// at all. The duplicate must not promote Jan 3 to a common day, or BBB
	// would get a phantom zero close and infinite returns.
	aaa := models.PriceSeries{
		Symbol: "AAA",
		Days:   []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 3), day(2024, 1, 4), day(2024, 1, 5)},
		Closes: []float64{100, 500, 500, 110, 121},
	}
	bbb := models.PriceSeries{
		Symbol: "BBB",
		Days:   []time.Time{day(2024, 1, 2), day(2024, 1, 4), day(2024, 1, 5)},
		Closes: []float64{50, 50, 50},
	}

	stats, err := Compute([]models.PriceSeries{aaa, bbb})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for j, m := range stats.Mean {
		if math.IsInf(m, 0) || math.IsNaN(m) {
			t.Fatalf("mean[%d] = %g, duplicate day leaked into the aligned grid", j, m)
		}
	}
	// Aligned grid is Jan 2, 4, 5: AAA returns 0.10 each.
	if math.Abs(stats.Mean[0]-0.10) > 1e-12 {
		t.Fatalf("mean[0] = %g, want 0.10", stats.Mean[0])
	}
}

func TestComputeDuplicateCommonDayCountsOnce(t *testing.T) {
	// Jan 3 is common to both series but duplicated in AAA; it must stay in
	// the aligned window instead of being dropped for over-counting.
	aaa := models.PriceSeries{
		Symbol: "AAA",
		Days:   []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 3), day(2024, 1, 4)},
		Closes: []float64{100, 110, 110, 99},
	}
	bbb := models.PriceSeries{
		Symbol: "BBB",
		Days:   []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)},
		Closes: []float64{50, 50, 55},
	}

	stats, err := Compute([]models.PriceSeries{aaa, bbb})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Same grid as TestComputeKnownReturns.
	if math.Abs(stats.Mean[0]-0) > 1e-12 {
		t.Fatalf("mean[0] = %g, want 0", stats.Mean[0])
	}
	if math.Abs(stats.Mean[1]-0.05) > 1e-12 {
		t.Fatalf("mean[1] = %g, want 0.05", stats.Mean[1])
	}
}

func TestComputeIgnoresNonPositiveCloses(t *testing.T) {
	days := []time.Time{
		day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4), day(2024, 1, 5),
	}
	series := []models.PriceSeries{
		{Symbol: "AAA", Days: days, Closes: []float64{100, 0, 110, 121}},
		{Symbol: "BBB", Days: days, Closes: []float64{50, 51, 52, 53}},
	}

	stats, err := Compute(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Jan 3 is dropped for both symbols; AAA returns are again 0.10 each.
	if math.Abs(stats.Mean[0]-0.10) > 1e-12 {
		t.Fatalf("mean[0] = %g, want 0.10", stats.Mean[0])
	}
}

func TestComputeErrors(t *testing.T) {
	cases := []struct {
		name   string
		series []models.PriceSeries
	}{
		{"no series", nil},
		{"too few aligned days", []models.PriceSeries{
			{Symbol: "AAA", Days: []time.Time{day(2024, 1, 2), day(2024, 1, 3)}, Closes: []float64{100, 110}},
			{Symbol: "BBB", Days: []time.Time{day(2024, 1, 2), day(2024, 1, 3)}, Closes: []float64{50, 51}},
		}},
		{"disjoint days", []models.PriceSeries{
			{Symbol: "AAA", Days: []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)}, Closes: []float64{100, 110, 121}},
			{Symbol: "BBB", Days: []time.Time{day(2024, 2, 2), day(2024, 2, 3), day(2024, 2, 4)}, Closes: []float64{50, 51, 52}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.series)
			var statsErr *Error
			if !errors.As(err, &statsErr) {
				t.Fatalf("expected statistics Error, got %v", err)
			}
		})
	}
}
