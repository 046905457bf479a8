// Package reactor is the process-wide coordinator: the registry of
// exchange adapters and synced markets, the table of running programs, and
// the event bus that fans a running program's output out to every
// subscribed listener. It is the concrete type behind lang.ReactorHandle.
package reactor

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"candlereactor/candleerr"
	"candlereactor/internal/exchange"
	"candlereactor/internal/lang/runtime"
	"candlereactor/internal/marketsync"
	"candlereactor/internal/store"

	"github.com/zeromicro/go-zero/core/logx"
)

// Reactor is the top-level object a daemon or CLI process constructs once
// and shares across every running program and HTTP request.
type Reactor struct {
	store *store.StoreHandle

	exchangesMu     sync.RWMutex
	exchanges       map[string]exchange.Provider
	defaultExchange string

	marketsMu sync.RWMutex
	markets   map[store.MarketIdentifier]*marketsync.SyncMarket

	programsMu sync.RWMutex
	programs   map[uint64]*runtime.ProgramRuntime
	programSeq atomic.Uint64

	listenersMu sync.RWMutex
	listeners   map[uint64]chan Event
	listenerSeq atomic.Uint64
}

// New constructs an empty Reactor over storeHandle. defaultExchange names
// the exchange the cat builtin resolves bare BASE/QUOTE market strings
// against; it need not be registered at construction time.
func New(storeHandle *store.StoreHandle, defaultExchange string) *Reactor {
	return &Reactor{
		store:           storeHandle,
		exchanges:       make(map[string]exchange.Provider),
		defaultExchange: defaultExchange,
		markets:         make(map[store.MarketIdentifier]*marketsync.SyncMarket),
		programs:        make(map[uint64]*runtime.ProgramRuntime),
		listeners:       make(map[uint64]chan Event),
	}
}

// RegisterExchange adds ex to the registry under its own Name(). The first
// exchange registered becomes the default if none was configured.
func (r *Reactor) RegisterExchange(ex exchange.Provider) {
	r.exchangesMu.Lock()
	defer r.exchangesMu.Unlock()
	r.exchanges[ex.Name()] = ex
	if r.defaultExchange == "" {
		r.defaultExchange = ex.Name()
	}
}

// Exchange looks up a registered adapter by name.
func (r *Reactor) Exchange(name string) (exchange.Provider, bool) {
	r.exchangesMu.RLock()
	defer r.exchangesMu.RUnlock()
	ex, ok := r.exchanges[name]
	return ex, ok
}

// ListExchangeNames implements lang.ReactorHandle.
func (r *Reactor) ListExchangeNames() []string {
	r.exchangesMu.RLock()
	defer r.exchangesMu.RUnlock()
	names := make([]string, 0, len(r.exchanges))
	for name := range r.exchanges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListMarkets implements lang.ReactorHandle.
func (r *Reactor) ListMarkets(ctx context.Context, exchangeName string) ([]store.MarketIdentifier, error) {
	ex, ok := r.Exchange(exchangeName)
	if !ok {
		return nil, candleerr.ExchangeNotFound(exchangeName)
	}
	return ex.GetMarkets(ctx)
}

// DefaultExchangeName implements lang.ReactorHandle.
func (r *Reactor) DefaultExchangeName() string {
	r.exchangesMu.RLock()
	defer r.exchangesMu.RUnlock()
	return r.defaultExchange
}

// LoadedMarkets returns the identifiers of every market that has been
// registered in-process (as opposed to merely available at the exchange).
func (r *Reactor) LoadedMarkets() []store.MarketIdentifier {
	r.marketsMu.RLock()
	defer r.marketsMu.RUnlock()
	ids := make([]store.MarketIdentifier, 0, len(r.markets))
	for id := range r.markets {
		ids = append(ids, id)
	}
	return ids
}

// GetOrRegisterMarket implements lang.ReactorHandle: it returns the
// existing SyncMarket for id if one has already been created, or builds
// and registers one, running a synchronous best-effort initial sync before
// returning it for the first time.
func (r *Reactor) GetOrRegisterMarket(ctx context.Context, id store.MarketIdentifier) (*marketsync.SyncMarket, error) {
	r.marketsMu.Lock()
	if existing, ok := r.markets[id]; ok {
		r.marketsMu.Unlock()
		return existing, nil
	}

	ex, ok := r.Exchange(id.Exchange)
	if !ok {
		r.marketsMu.Unlock()
		return nil, candleerr.ExchangeNotFound(id.Exchange)
	}
	marketStore, err := r.store.Market(id)
	if err != nil {
		r.marketsMu.Unlock()
		return nil, err
	}
	market, err := marketsync.New(id, ex, marketStore)
	if err != nil {
		r.marketsMu.Unlock()
		return nil, err
	}
	r.markets[id] = market
	r.marketsMu.Unlock()

	if err := market.Sync(); err != nil {
		logx.Errorf("reactor: initial sync of %s failed: %v", id, err)
	}
	return market, nil
}

func (r *Reactor) nextProgramID() uint64  { return r.programSeq.Add(1) }
func (r *Reactor) nextListenerID() uint64 { return r.listenerSeq.Add(1) }
