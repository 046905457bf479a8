// Package marketsync reconciles a market's persisted candle data against
// demand: checking whether a requested range is already available, paging
// it in from the exchange when it isn't, and running an optional background
// refresh loop per the market's persisted settings.
package marketsync

import (
	"context"
	"sync"

	"candlereactor/candleerr"
	"candlereactor/internal/exchange"
	"candlereactor/internal/store"

	"github.com/zeromicro/go-zero/core/logx"
)

// SyncMarket owns sync state for a single market: the exchange it pulls
// from, the store handle it writes into, and at most one active refresh
// task.
type SyncMarket struct {
	ID       store.MarketIdentifier
	Exchange exchange.Provider
	Store    *store.StoreMarketHandle

	mu      sync.Mutex
	refresh *RefreshTask
}

// New constructs a SyncMarket for id, resolving the exchange handle and
// market store handle eagerly so later calls never fail on lookup alone.
func New(id store.MarketIdentifier, ex exchange.Provider, marketStore *store.StoreMarketHandle) (*SyncMarket, error) {
	if ex == nil {
		return nil, candleerr.ExchangeNotFound(id.Exchange)
	}
	return &SyncMarket{ID: id, Exchange: ex, Store: marketStore}, nil
}

// CheckPeriodAvailability reports whether [from, to] at interval is already
// fully covered by stored candles.
//
// from == 0 is special-cased: availability then requires the earliest
// stored candle to carry FirstAvailable, since only that flag proves no
// earlier history exists to page in.
func CheckPeriodAvailability(data *store.StoreMarketDataHandle, from, to int64, interval store.Interval) bool {
	if from != 0 {
		closeFrom, err := data.PrevCloseTo(from)
		if err != nil {
			return false
		}
		if closeFrom-from > interval.Seconds() {
			return false
		}
	} else {
		first, err := data.FirstOHLC()
		if err != nil || !first.FirstAvailable {
			return false
		}
	}

	closeTo, err := data.NextCloseTo(to)
	if err != nil {
		return false
	}
	if to-closeTo > interval.Seconds() {
		return false
	}
	return true
}

// SyncPeriod returns from and to unchanged when [from, to] is already
// available. Otherwise it pages one chunk in from the exchange starting at
// from and returns that chunk's first and last candle times.
func (s *SyncMarket) SyncPeriod(ctx context.Context, from, to int64, interval store.Interval) (int64, int64, error) {
	data, err := s.Store.Interval(interval)
	if err != nil {
		return 0, 0, err
	}

	if CheckPeriodAvailability(data, from, to, interval) {
		return from, to, nil
	}

	chunk, err := s.Exchange.GetOHLC(ctx, s.ID, from, interval)
	if err != nil {
		return 0, 0, err
	}
	if err := data.Extend(chunk.Data); err != nil {
		return 0, 0, err
	}
	return chunk.Begin, chunk.End, nil
}

// Sync reconciles the running refresh task against the market's persisted
// settings, per the lifecycle table: spawn if a rate is newly configured,
// cancel if it's removed, restart if it changed, leave alone if unchanged.
func (s *SyncMarket) Sync() error {
	settings, err := s.Store.Settings()
	if err != nil {
		return err
	}
	logx.Infof("begin sync of %s", s.ID)

	s.mu.Lock()
	existing := s.refresh
	s.refresh = nil
	s.mu.Unlock()

	desired := settings.OHLCRefreshRate

	switch {
	case existing != nil && desired == nil:
		existing.Cancel()

	case existing != nil && desired != nil && existing.Interval != *desired:
		existing.Cancel()
		task, err := s.spawn(*desired)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.refresh = task
		s.mu.Unlock()

	case existing == nil && desired != nil:
		task, err := s.spawn(*desired)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.refresh = task
		s.mu.Unlock()

	case existing != nil && desired != nil:
		s.mu.Lock()
		s.refresh = existing
		s.mu.Unlock()

	default: // existing == nil && desired == nil
	}

	logx.Infof("sync done %s", s.ID)
	return nil
}

func (s *SyncMarket) spawn(interval store.Interval) (*RefreshTask, error) {
	data, err := s.Store.Interval(interval)
	if err != nil {
		return nil, err
	}
	return spawnRefreshTask(interval, s.Exchange, s.ID, data), nil
}
