package builtin

import (
	"context"

	"candlereactor/internal/marketsync"
	"candlereactor/internal/store"
)

// fakeReactor is a minimal lang.ReactorHandle stand-in for builtin tests: it
// never actually syncs against a real exchange, it just proves a builtin
// calls the capability surface the way the reactor package's real
// implementation expects.
type fakeReactor struct {
	defaultExchange string
	exchangeNames   []string
	markets         map[string][]store.MarketIdentifier // exchange -> markets
	registered      map[store.MarketIdentifier]*marketsync.SyncMarket
}

func newFakeReactor() *fakeReactor {
	return &fakeReactor{
		markets:    make(map[string][]store.MarketIdentifier),
		registered: make(map[store.MarketIdentifier]*marketsync.SyncMarket),
	}
}

func (f *fakeReactor) ListExchangeNames() []string { return f.exchangeNames }

func (f *fakeReactor) ListMarkets(_ context.Context, exchangeName string) ([]store.MarketIdentifier, error) {
	return f.markets[exchangeName], nil
}

func (f *fakeReactor) DefaultExchangeName() string { return f.defaultExchange }

func (f *fakeReactor) GetOrRegisterMarket(_ context.Context, id store.MarketIdentifier) (*marketsync.SyncMarket, error) {
	if m, ok := f.registered[id]; ok {
		return m, nil
	}
	return nil, errNotRegistered
}

var errNotRegistered = fakeErr("fakeReactor: market not registered")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
