package marketsync

import (
	"context"
	"path/filepath"
	"testing"

	"candlereactor/internal/exchange/sim"
	"candlereactor/internal/store"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *store.StoreHandle {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "candles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.Handle()
}

func TestCheckPeriodAvailability(t *testing.T) {
	handle := openTestStore(t)
	market, err := handle.Market(store.MarketIdentifier{Exchange: "sim", Base: "BTC", Quote: "USD"})
	require.NoError(t, err)
	data, err := market.Interval(store.Min1)
	require.NoError(t, err)

	seed := store.NewOHLC(0, "1", "2", "0.5", "1.5", "1", "10", 1)
	seed.FirstAvailable = true
	require.NoError(t, data.Insert(seed))
	require.NoError(t, data.Insert(store.NewOHLC(60, "1", "2", "0.5", "1.5", "1", "10", 1)))
	require.NoError(t, data.Insert(store.NewOHLC(120, "1", "2", "0.5", "1.5", "1", "10", 1)))

	require.True(t, CheckPeriodAvailability(data, 0, 120, store.Min1))
	require.True(t, CheckPeriodAvailability(data, 0, 60, store.Min1))
	require.False(t, CheckPeriodAvailability(data, 0, 1000, store.Min1))
	require.False(t, CheckPeriodAvailability(data, 1000, 1060, store.Min1))
}

func TestCheckPeriodAvailabilityRequiresFirstAvailableWhenFromZero(t *testing.T) {
	handle := openTestStore(t)
	market, err := handle.Market(store.MarketIdentifier{Exchange: "sim", Base: "ETH", Quote: "USD"})
	require.NoError(t, err)
	data, err := market.Interval(store.Min1)
	require.NoError(t, err)

	require.NoError(t, data.Insert(store.NewOHLC(0, "1", "2", "0.5", "1.5", "1", "10", 1)))
	require.NoError(t, data.Insert(store.NewOHLC(60, "1", "2", "0.5", "1.5", "1", "10", 1)))

	require.False(t, CheckPeriodAvailability(data, 0, 60, store.Min1))
}

// S1: empty store, fake exchange serves 3 candles (t=0,60,120); sync_period
// pages them in and close_range afterwards returns all three.
func TestScenarioS1EmptyStoreSyncsThenReadsBack(t *testing.T) {
	handle := openTestStore(t)
	id := store.MarketIdentifier{Exchange: sim.ExchangeName, Base: "BTC", Quote: "USD"}

	provider := sim.New()
	provider.PageSize = 10
	provider.Seed(id, []store.OHLC{
		store.NewOHLC(0, "1", "2", "0.5", "1.5", "1", "10", 1),
		store.NewOHLC(60, "1", "2", "0.5", "1.5", "1", "10", 1),
		store.NewOHLC(120, "1", "2", "0.5", "1.5", "1", "10", 1),
	})

	market, err := handle.Market(id)
	require.NoError(t, err)
	sm, err := New(id, provider, market)
	require.NoError(t, err)

	from, to, err := sm.SyncPeriod(context.Background(), 0, 120, store.Min1)
	require.NoError(t, err)
	require.Equal(t, int64(0), from)
	require.Equal(t, int64(120), to)

	data, err := market.Interval(store.Min1)
	require.NoError(t, err)
	candles, err := data.CloseRange(0, 120)
	require.NoError(t, err)
	require.Len(t, candles, 3)
}

func TestSyncLifecycleReconciliation(t *testing.T) {
	handle := openTestStore(t)
	id := store.MarketIdentifier{Exchange: sim.ExchangeName, Base: "BTC", Quote: "USD"}
	provider := sim.New()
	provider.Seed(id, []store.OHLC{store.NewOHLC(0, "1", "2", "0.5", "1.5", "1", "10", 1)})

	market, err := handle.Market(id)
	require.NoError(t, err)
	sm, err := New(id, provider, market)
	require.NoError(t, err)

	// None -> None: no task spawned.
	require.NoError(t, sm.Sync())
	require.Nil(t, sm.refresh)

	// None -> Some(r): spawn.
	rate := store.Min1
	require.NoError(t, market.SetSettings(store.MarketSettings{OHLCRefreshRate: &rate}))
	require.NoError(t, sm.Sync())
	require.NotNil(t, sm.refresh)
	first := sm.refresh

	// Some(t), same rate: keep.
	require.NoError(t, sm.Sync())
	require.Same(t, first, sm.refresh)

	// Some(t), different rate: cancel and respawn.
	newRate := store.Min5
	require.NoError(t, market.SetSettings(store.MarketSettings{OHLCRefreshRate: &newRate}))
	require.NoError(t, sm.Sync())
	require.NotSame(t, first, sm.refresh)
	require.False(t, first.cancel.IsRunning())

	// Some(t) -> None: cancel.
	second := sm.refresh
	require.NoError(t, market.SetSettings(store.MarketSettings{}))
	require.NoError(t, sm.Sync())
	require.Nil(t, sm.refresh)
	require.False(t, second.cancel.IsRunning())
}
