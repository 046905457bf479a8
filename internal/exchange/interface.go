// Package exchange defines the capability contract every market data
// adapter implements, plus a registry for building configured adapters by
// type name.
package exchange

import (
	"context"
	"time"

	"candlereactor/internal/store"
)

// Provider exposes market data access in an exchange-agnostic fashion. The
// reactor and sync engine depend only on this interface, never on a
// concrete adapter.
type Provider interface {
	// Name identifies this adapter, matching the registry key it was built
	// from.
	Name() string

	// ServerTime returns the exchange's notion of the current time.
	ServerTime(ctx context.Context) (time.Time, error)

	// GetOHLC pages from since forward until the exchange has nothing left
	// to return, yielding the union of all pages as a single chunk. A since
	// of zero requests history from the beginning; a returned chunk whose
	// first candle has FirstAvailable set means the adapter paged back to
	// the true beginning of available history.
	GetOHLC(ctx context.Context, id store.MarketIdentifier, since int64, interval store.Interval) (store.OHLCChunk, error)

	// RefreshMarketCache forces the adapter to reload its market catalog.
	RefreshMarketCache(ctx context.Context) error

	// GetMarkets lists every tradable pair the adapter currently knows
	// about, refreshing the catalog first if it has never been loaded.
	GetMarkets(ctx context.Context) ([]store.MarketIdentifier, error)

	// GetMarketDefinition returns cached metadata for id, refreshing the
	// catalog if the cached entry is older than maxAge (zero means "never
	// refresh on staleness alone").
	GetMarketDefinition(ctx context.Context, id store.MarketIdentifier, maxAge time.Duration) (store.MarketDefinition, error)
}
