package stooq

import (
	"testing"
	"time"
)

func TestParseDailyCSV(t *testing.T) {
	body := []byte("Date,Open,High,Low,Close,Volume\n" +
		"2024-01-02,100,105,99,104.5,1000\n" +
		"2024-01-03,104.5,106,103,105.25,1200\n")

	series, err := parseDailyCSV("AAPL", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Symbol != "AAPL" {
		t.Fatalf("symbol = %s", series.Symbol)
	}
	if len(series.Days) != 2 || len(series.Closes) != 2 {
		t.Fatalf("got %d days, %d closes", len(series.Days), len(series.Closes))
	}
	if !series.Days[0].Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day[0] = %v", series.Days[0])
	}
	if series.Closes[1] != 105.25 {
		t.Fatalf("close[1] = %g", series.Closes[1])
	}
}

func TestParseDailyCSVSkipsBadRows(t *testing.T) {
	body := []byte("Date,Open,High,Low,Close,Volume\n" +
		"2024-01-02,100,105,99,104.5,1000\n" +
		"not-a-date,1,2,3,4,5\n" +
		"2024-01-03,104.5,106,103,-1,1200\n" +
		"2024-01-04,104.5,106,103,abc,1200\n" +
		"2024-01-05,104,106,103,107,900\n")

	series, err := parseDailyCSV("MSFT", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series.Days) != 2 {
		t.Fatalf("got %d rows, want the 2 valid ones", len(series.Days))
	}
	if series.Closes[0] != 104.5 || series.Closes[1] != 107 {
		t.Fatalf("closes = %v", series.Closes)
	}
}

func TestParseDailyCSVNoData(t *testing.T) {
	series, err := parseDailyCSV("ZZZZ", []byte("No data"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series.Days) != 0 {
		t.Fatalf("expected empty series, got %d rows", len(series.Days))
	}
}
