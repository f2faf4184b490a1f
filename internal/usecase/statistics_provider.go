package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"PortOpt/internal/domain/models"
	drepo "PortOpt/internal/domain/repository"
	"PortOpt/internal/services/statistics"
	pkgcache "PortOpt/pkg/cache"
	applogger "PortOpt/pkg/logger"
)

// StatisticsProvider turns a (universe, window) pair into return statistics:
// closes are served from the price store when already populated, fetched from
// the market-data source otherwise, and the computed statistics are memoized
// in the cache for the configured TTL.
type StatisticsProvider struct {
	market      drepo.MarketData
	store       drepo.PriceStore // optional
	cache       pkgcache.Service // optional
	metrics     drepo.Metrics
	logger      *applogger.Logger
	ttl         time.Duration
	maxParallel int
}

// NewStatisticsProvider creates a StatisticsProvider. store and cache may be
// nil, in which case every request goes straight to the market-data source.
func NewStatisticsProvider(
	market drepo.MarketData,
	store drepo.PriceStore,
	cache pkgcache.Service,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	ttl time.Duration,
	maxParallel int,
) *StatisticsProvider {
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &StatisticsProvider{
		market:      market,
		store:       store,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		ttl:         ttl,
		maxParallel: maxParallel,
	}
}

// Statistics returns the mean-return vector and covariance matrix for the
// universe over [from, to]. Statistics errors from the collaborator boundary
// are propagated unchanged.
func (p *StatisticsProvider) Statistics(ctx context.Context, tickers []string, from, to time.Time) (*models.ReturnStatistics, error) {
	key := statsKey(tickers, from, to)

	if p.cache != nil {
		var raw string
		if err := p.cache.Get(ctx, key, &raw); err == nil {
			var stats models.ReturnStatistics
			if err := json.Unmarshal([]byte(raw), &stats); err == nil {
				p.metrics.RecordCacheLookup(true)
				return &stats, nil
			}
		}
		p.metrics.RecordCacheLookup(false)
	}

	series, err := p.loadSeries(ctx, tickers, from, to)
	if err != nil {
		return nil, err
	}

	stats, err := statistics.Compute(series)
	if err != nil {
		p.metrics.RecordError("statistics")
		return nil, err
	}

	if p.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := p.cache.Set(ctx, key, string(raw), p.ttl); err != nil {
				p.logger.Warn("statistics cache set failed", applogger.Error(err))
			}
		}
	}
	return stats, nil
}

// loadSeries serves closes from the price store where possible and fetches the
// rest from the market-data source with a bounded worker pool, writing fetched
// series back to the store.
func (p *StatisticsProvider) loadSeries(ctx context.Context, tickers []string, from, to time.Time) ([]models.PriceSeries, error) {
	series := make([]models.PriceSeries, len(tickers))
	missing := make([]int, 0, len(tickers))

	if p.store != nil {
		stored, err := p.store.QueryCloses(ctx, tickers, from, to)
		if err != nil {
			p.logger.Warn("price store query failed, falling back to market data", applogger.Error(err))
			stored = nil
		}
		for i := range tickers {
			if stored != nil && len(stored[i].Days) >= 3 {
				series[i] = stored[i]
			} else {
				missing = append(missing, i)
			}
		}
	} else {
		for i := range tickers {
			missing = append(missing, i)
		}
	}

	if len(missing) == 0 {
		return series, nil
	}

	sem := make(chan struct{}, p.maxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, idx := range missing {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ps, err := p.market.DailyCloses(ctx, tickers[idx], from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("fetch %s: %w", tickers[idx], err)
				}
				return
			}
			series[idx] = ps
		}(idx)
	}
	wg.Wait()

	if firstErr != nil {
		p.metrics.RecordError("market_data")
		return nil, firstErr
	}

	if p.store != nil {
		fetched := make([]models.PriceSeries, 0, len(missing))
		for _, idx := range missing {
			fetched = append(fetched, series[idx])
		}
		if err := p.store.StoreSeries(ctx, fetched); err != nil {
			p.logger.Warn("price store write failed", applogger.Error(err))
		}
	}
	return series, nil
}

// statsKey is stable under ticker reordering: the same universe and window hit
// the same cache entry.
func statsKey(tickers []string, from, to time.Time) string {
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)
	return pkgcache.GenerateKeyWithParams("stats",
		strings.Join(sorted, ","),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)
}
