package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PortOpt/internal/domain/models"
	"PortOpt/internal/domain/repository"
)

// ClickHousePriceStore implements PriceStore for ClickHouse.
type ClickHousePriceStore struct {
	db    *sql.DB
	table string
}

// NewClickHousePriceStore creates ClickHouse-backed daily close storage.
func NewClickHousePriceStore(db *sql.DB, table string) repository.PriceStore {
	return &ClickHousePriceStore{db: db, table: table}
}

func (s *ClickHousePriceStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

// StoreSeries upserts fetched close series. The table is keyed (symbol, day),
// so re-inserting an overlapping window is idempotent after merges.
func (s *ClickHousePriceStore) StoreSeries(ctx context.Context, series []models.PriceSeries) error {
	const chunkSize = 2000

	var values []string
	var args []interface{}
	flush := func() error {
		if len(values) == 0 {
			return nil
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, day, close) VALUES %s", s.table, strings.Join(values, ","))
		_, err := s.db.ExecContext(ctx, q, args...)
		values = values[:0]
		args = args[:0]
		return err
	}

	for _, ps := range series {
		for i := range ps.Days {
			if ps.Closes[i] <= 0 {
				continue
			}
			values = append(values, "(?, ?, ?)")
			args = append(args, ps.Symbol, ps.Days[i], ps.Closes[i])
			if len(values) >= chunkSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

// QueryCloses loads the stored close series of each symbol within [from, to],
// ascending by day. Symbols without rows yield empty series.
func (s *ClickHousePriceStore) QueryCloses(ctx context.Context, symbols []string, from, to time.Time) ([]models.PriceSeries, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	q := fmt.Sprintf(
		"SELECT symbol, day, close FROM %s WHERE symbol IN (%s) AND day >= ? AND day <= ? ORDER BY symbol, day",
		s.table, placeholders,
	)

	args := make([]interface{}, 0, len(symbols)+2)
	for _, sym := range symbols {
		args = append(args, sym)
	}
	args = append(args, from, to)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bySymbol := make(map[string]*models.PriceSeries, len(symbols))
	out := make([]models.PriceSeries, len(symbols))
	for i, sym := range symbols {
		out[i] = models.PriceSeries{Symbol: sym}
		bySymbol[sym] = &out[i]
	}

	for rows.Next() {
		var sym string
		var day time.Time
		var closePx float64
		if err := rows.Scan(&sym, &day, &closePx); err != nil {
			return nil, err
		}
		ps, ok := bySymbol[sym]
		if !ok {
			continue
		}
		// Unmerged ReplacingMergeTree parts can yield the same (symbol, day)
		// twice; rows arrive ordered, so duplicates are adjacent. Keep the
		// last row, matching what the merge would leave.
		if n := len(ps.Days); n > 0 && ps.Days[n-1].Equal(day.UTC()) {
			ps.Closes[n-1] = closePx
			continue
		}
		ps.Days = append(ps.Days, day.UTC())
		ps.Closes = append(ps.Closes, closePx)
	}
	return out, rows.Err()
}

func (s *ClickHousePriceStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHousePriceStore) Close() error {
	return nil // Managed by pkg
}
