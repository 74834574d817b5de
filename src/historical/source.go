// Package historical provides a reference implementation of
// chain.HistoricalPriceSource: an in-memory synthetic OHLCV generator,
// since no real market-data credentials are available in this
// environment (see DESIGN.md for the full justification). Its shape —
// GetHistoricalPrices/ListAvailableSymbols/GetDateRangeForSymbol, all
// context-aware and erroring with the chain package's error kinds — is
// grounded on the teacher's eventservices.PolygonTickDataMachine,
// generalized from its channel-based Serve dispatch to plain
// synchronous methods PathGenerator can call directly.
package historical

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/ocsim/optionchain-simulator/src/chain"
)

// MemorySource is a deterministic, synthetic OHLCV series generator
// seeded per (symbol, series length) so repeated lookups within a
// process lifetime are stable. Results are memoized with go-cache — adapted
// from backtester-api/models/request_cache.go's use of
// patrickmn/go-cache — so repeated Historical-method session builds
// within a sweep interval don't resynthesize the same series.
type MemorySource struct {
	mu      sync.Mutex
	symbols map[string]seriesSeed
	cache   *cache.Cache
}

type seriesSeed struct {
	startPrice decimal.Decimal
	drift      float64
	vol        float64
	earliest   time.Time
}

// NewMemorySource pre-seeds a small catalog of symbols, the way a
// fixture-backed collaborator would in tests. Additional symbols are
// rejected with chain.KindSymbolUnknown.
func NewMemorySource() *MemorySource {
	now := time.Now().UTC()
	return &MemorySource{
		symbols: map[string]seriesSeed{
			"AAPL": {startPrice: decimal.NewFromFloat(185.5), drift: 0.08, vol: 0.25, earliest: now.AddDate(-5, 0, 0)},
			"SPY":  {startPrice: decimal.NewFromFloat(520.0), drift: 0.07, vol: 0.15, earliest: now.AddDate(-5, 0, 0)},
			"TSLA": {startPrice: decimal.NewFromFloat(250.0), drift: 0.10, vol: 0.55, earliest: now.AddDate(-5, 0, 0)},
		},
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (m *MemorySource) GetHistoricalPrices(ctx context.Context, symbol string, tf chain.TimeFrame, start, end time.Time) ([]decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return nil, chain.WrapError(chain.KindDataSourceUnavailable, "context cancelled", err)
	}

	m.mu.Lock()
	seed, ok := m.symbols[symbol]
	m.mu.Unlock()
	if !ok {
		return nil, chain.NewError(chain.KindSymbolUnknown, "unknown symbol: "+symbol)
	}

	if end.Before(start) {
		return nil, chain.NewError(chain.KindDataSourceUnavailable, "end before start")
	}

	cacheKey := symbol + "|" + string(tf) + "|" + start.Format(time.RFC3339) + "|" + end.Format(time.RFC3339)
	if cached, found := m.cache.Get(cacheKey); found {
		return cached.([]decimal.Decimal), nil
	}

	dt, _ := tf.StepYears().Float64()
	steps := int(end.Sub(start) / durationPerStep(tf))
	if steps < 1 {
		steps = 1
	}

	prices := syntheticSeries(symbol, seed, dt, steps)

	m.cache.Set(cacheKey, prices, cache.DefaultExpiration)
	return prices, nil
}

func (m *MemorySource) ListAvailableSymbols(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbols := make([]string, 0, len(m.symbols))
	for s := range m.symbols {
		symbols = append(symbols, s)
	}
	return symbols, nil
}

func (m *MemorySource) GetDateRangeForSymbol(ctx context.Context, symbol string) (time.Time, time.Time, error) {
	m.mu.Lock()
	seed, ok := m.symbols[symbol]
	m.mu.Unlock()
	if !ok {
		return time.Time{}, time.Time{}, chain.NewError(chain.KindSymbolUnknown, "unknown symbol: "+symbol)
	}

	return seed.earliest, time.Now().UTC(), nil
}

// syntheticSeries produces a deterministic close-of-bar series via a
// drift-biased PRNG seeded from the symbol name and series length, so
// repeated calls for the same (symbol, steps) return identical bars.
func syntheticSeries(symbol string, seed seriesSeed, dt float64, steps int) []decimal.Decimal {
	rng := newDeterministicRNG(symbol, steps)

	prices := make([]decimal.Decimal, 0, steps)
	spot, _ := seed.startPrice.Float64()

	for i := 0; i < steps; i++ {
		z := rng.normal()
		ret := (seed.drift-0.5*seed.vol*seed.vol)*dt + seed.vol*sqrt(dt)*z
		spot *= exp(ret)
		if spot <= 0 {
			spot = 0.01
		}
		prices = append(prices, decimal.NewFromFloat(spot).Round(2))
	}

	return prices
}

func durationPerStep(tf chain.TimeFrame) time.Duration {
	switch tf {
	case chain.TimeFrameMinute:
		return time.Minute
	case chain.TimeFrameHour:
		return time.Hour
	case chain.TimeFrameDay:
		return 24 * time.Hour
	case chain.TimeFrameWeek:
		return 7 * 24 * time.Hour
	case chain.TimeFrameMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
