package repository

import (
	"context"
	"time"

	"PortOpt/internal/domain/models"
)

// PriceStore persists and serves daily closing prices.
type PriceStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreSeries(ctx context.Context, series []models.PriceSeries) error
	QueryCloses(ctx context.Context, symbols []string, from, to time.Time) ([]models.PriceSeries, error)
	Health(ctx context.Context) error
	Close() error
}

// MarketData fetches historical daily closes from an external source.
type MarketData interface {
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error)
}

// ResultPublisher emits completed optimization reports for downstream consumers.
type ResultPublisher interface {
	PublishReport(ctx context.Context, report *models.OptimizationReport) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordSolve(kind string, seconds float64, converged bool)
	RecordInfeasiblePoint()
	RecordCacheLookup(hit bool)
	RecordError(kind string)
	RecordSharpe(value float64)
}
