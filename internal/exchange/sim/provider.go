// Package sim is an in-memory fake exchange adapter used by tests and local
// development without network access. It serves deterministic, strictly
// increasing candles so paging convergence and sync-engine tests don't
// depend on a live API.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"candlereactor/candleerr"
	"candlereactor/internal/exchange"
	"candlereactor/internal/store"
)

// ExchangeName is the registered type name for this adapter.
const ExchangeName = "sim"

func init() {
	exchange.RegisterProvider(ExchangeName, build)
}

func build(name string, cfg *exchange.ProviderConfig) (exchange.Provider, error) {
	return New(), nil
}

// Provider holds a fixed candle series per market and serves it back paged,
// at most PageSize candles per call, mirroring a real exchange's pagination
// limit.
type Provider struct {
	mu sync.Mutex

	// PageSize bounds how many candles a single GetOHLC iteration returns;
	// defaults to 2 so paging convergence (testable property 4) actually
	// exercises more than one page for realistic series lengths.
	PageSize int

	candles map[store.MarketIdentifier][]store.OHLC
	markets map[store.MarketIdentifier]store.MarketDefinition
}

// New constructs an empty simulator. Use Seed to populate candle data.
func New() *Provider {
	return &Provider{
		PageSize: 2,
		candles:  make(map[store.MarketIdentifier][]store.OHLC),
		markets:  make(map[store.MarketIdentifier]store.MarketDefinition),
	}
}

// Seed installs a candle series for id, sorted by time, and registers a
// default market definition if one isn't present yet.
func (p *Provider) Seed(id store.MarketIdentifier, candles []store.OHLC) {
	sorted := append([]store.OHLC(nil), candles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles[id] = sorted
	if _, ok := p.markets[id]; !ok {
		p.markets[id] = store.MarketDefinition{
			Age:      time.Now(),
			PairName: id.PairName(),
		}
	}
}

// Name implements exchange.Provider.
func (p *Provider) Name() string {
	return ExchangeName
}

// ServerTime implements exchange.Provider.
func (p *Provider) ServerTime(ctx context.Context) (time.Time, error) {
	return time.Now().UTC(), nil
}

// RefreshMarketCache implements exchange.Provider. The simulator's catalog
// never goes stale on its own; this is a no-op kept only to satisfy the
// capability interface.
func (p *Provider) RefreshMarketCache(ctx context.Context) error {
	return nil
}

// GetMarkets implements exchange.Provider.
func (p *Provider) GetMarkets(ctx context.Context) ([]store.MarketIdentifier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]store.MarketIdentifier, 0, len(p.markets))
	for id := range p.markets {
		ids = append(ids, id)
	}
	return ids, nil
}

// GetMarketDefinition implements exchange.Provider.
func (p *Provider) GetMarketDefinition(ctx context.Context, id store.MarketIdentifier, maxAge time.Duration) (store.MarketDefinition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	def, ok := p.markets[id]
	if !ok {
		return store.MarketDefinition{}, candleerr.ExchangeNotFound(fmt.Sprintf("%s: unseeded market %s", ExchangeName, id))
	}
	return def, nil
}

// GetOHLC implements exchange.Provider's paging contract: it returns at
// most PageSize candles per internal iteration, advancing since to the last
// returned candle's own time, and stops once a page yields one or zero new
// candles.
func (p *Provider) GetOHLC(ctx context.Context, id store.MarketIdentifier, since int64, interval store.Interval) (store.OHLCChunk, error) {
	p.mu.Lock()
	all, ok := p.candles[id]
	p.mu.Unlock()
	if !ok {
		return store.OHLCChunk{}, candleerr.ErrNoData
	}

	originalSince := since
	// A zero since means "from the very beginning", so the opening page's
	// lower bound must be inclusive of a candle at time 0; afterwards the
	// cursor advances exclusively past the last returned candle so paging
	// converges.
	if since == 0 {
		since = -1
	}
	var chunk []store.OHLC
	for {
		page := nextPage(all, since, p.pageSize())
		for _, c := range page {
			since = c.Time
		}
		chunk = append(chunk, page...)
		if originalSince == 0 && len(page) > 0 && len(chunk) == len(page) {
			chunk[0].FirstAvailable = true
		}
		if len(page) <= 1 {
			break
		}
	}

	if len(chunk) == 0 {
		return store.OHLCChunk{}, candleerr.ErrNoData
	}
	return store.NewOHLCChunk(chunk), nil
}

func (p *Provider) pageSize() int {
	if p.PageSize <= 0 {
		return 1
	}
	return p.PageSize
}

func nextPage(all []store.OHLC, since int64, pageSize int) []store.OHLC {
	start := sort.Search(len(all), func(i int) bool { return all[i].Time > since })
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	if start >= end {
		return nil
	}
	return append([]store.OHLC(nil), all[start:end]...)
}
