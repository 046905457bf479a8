package marketsync

import (
	"context"
	"time"

	"candlereactor/candleerr"
	"candlereactor/internal/exchange"
	"candlereactor/internal/store"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

// defaultRefreshSince bounds how far back a refresh loop pages when a
// market's interval tree is still empty.
const defaultRefreshSince = 30 * 24 * time.Hour

// RefreshTask is a running background loop that periodically pages fresh
// candles for one (market, interval) pair into the store.
type RefreshTask struct {
	Interval store.Interval
	cancel   *CancelGate
}

// spawnRefreshTask starts the refresh loop in its own goroutine and returns
// a handle that can cancel it.
func spawnRefreshTask(interval store.Interval, ex exchange.Provider, id store.MarketIdentifier, data *store.StoreMarketDataHandle) *RefreshTask {
	gate := newCancelGate()
	threading.GoSafe(func() {
		refreshLoop(interval, ex, id, data, gate)
	})
	return &RefreshTask{Interval: interval, cancel: gate}
}

func (t *RefreshTask) Cancel() {
	t.cancel.Cancel()
}

func refreshLoop(interval store.Interval, ex exchange.Provider, id store.MarketIdentifier, data *store.StoreMarketDataHandle, gate *CancelGate) {
	period := time.Duration(interval.Seconds()) * time.Second
	logx.Infof("begin ohlc refresh routine: market=%s interval=%s", id, interval)
	for gate.IsRunning() {
		if err := refreshMarket(context.Background(), ex, id, data, interval); err != nil {
			logx.Errorf("failed to refresh market %s: %v", id, err)
		}
		time.Sleep(period)
	}
}

// refreshMarket pages forward from the last stored candle (or a fixed
// window back from now, if the series is empty) and writes the result.
func refreshMarket(ctx context.Context, ex exchange.Provider, id store.MarketIdentifier, data *store.StoreMarketDataHandle, interval store.Interval) error {
	since := int64(0)
	if last, err := data.LastOHLC(); err == nil {
		since = last.Time
	} else if candleerr.KindOf(err) != candleerr.KindNoData {
		return err
	} else {
		since = time.Now().Add(-defaultRefreshSince).Unix()
	}

	chunk, err := ex.GetOHLC(ctx, id, since, interval)
	if err != nil {
		return err
	}
	return data.Extend(chunk.Data)
}
