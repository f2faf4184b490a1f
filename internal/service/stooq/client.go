package stooq

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"PortOpt/internal/domain/models"
	drepo "PortOpt/internal/domain/repository"
	xhttp "PortOpt/pkg/http"
)

// Client implements MarketData backed by Stooq's daily-quotes CSV endpoint.
// No API key is required.
type Client struct {
	baseURL string
	suffix  string
	http    *xhttp.Client
}

// New creates a new Stooq MarketData client. suffix is appended to tickers
// (Stooq uses ".us" for US equities).
func New(baseURL, suffix string, timeout time.Duration) drepo.MarketData {
	return &Client{
		baseURL: baseURL,
		suffix:  suffix,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// DailyCloses fetches the daily close series of one symbol over [from, to].
func (c *Client) DailyCloses(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL,
		QueryParams: map[string][]string{
			"s":  {strings.ToLower(symbol) + c.suffix},
			"d1": {from.Format("20060102")},
			"d2": {to.Format("20060102")},
			"i":  {"d"}, // daily bars
		},
	}, &body)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("stooq %s: %w", symbol, err)
	}

	series, err := parseDailyCSV(symbol, body)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("stooq %s: %w", symbol, err)
	}
	return series, nil
}

// parseDailyCSV parses Stooq's Date,Open,High,Low,Close,Volume payload.
// Rows with unparsable dates or closes are skipped; "No data" responses yield
// an empty series rather than an error so the caller can report which symbols
// were missing.
func parseDailyCSV(symbol string, body []byte) (models.PriceSeries, error) {
	series := models.PriceSeries{Symbol: symbol}

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.PriceSeries{}, fmt.Errorf("parse csv: %w", err)
		}
		if header {
			header = false
			if len(rec) > 0 && strings.EqualFold(rec[0], "Date") {
				continue
			}
		}
		if len(rec) < 5 {
			continue
		}
		day, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			continue
		}
		closePx, err := strconv.ParseFloat(rec[4], 64)
		if err != nil || closePx <= 0 {
			continue
		}
		series.Days = append(series.Days, day.UTC())
		series.Closes = append(series.Closes, closePx)
	}

	return series, nil
}
