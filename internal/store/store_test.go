package store

import (
	"path/filepath"
	"testing"

	"candlereactor/candleerr"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *StoreHandle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.Handle()
}

func seedCandles(t *testing.T, data *StoreMarketDataHandle, times ...int64) {
	t.Helper()
	for _, ts := range times {
		require.NoError(t, data.Insert(NewOHLC(ts, "1", "2", "0.5", "1.5", "1", "10", 3)))
	}
}

func marketData(t *testing.T, handle *StoreHandle, interval Interval) *StoreMarketDataHandle {
	t.Helper()
	market, err := handle.Market(MarketIdentifier{Exchange: "kraken", Base: "BTC", Quote: "USD"})
	require.NoError(t, err)
	data, err := market.Interval(interval)
	require.NoError(t, err)
	return data
}

func TestTimeOrderInvariant(t *testing.T) {
	handle := openTestStore(t)
	data := marketData(t, handle, Min1)
	seedCandles(t, data, 120, 0, 60)

	first, err := data.FirstOHLC()
	require.NoError(t, err)
	require.Equal(t, int64(0), first.Time)

	last, err := data.LastOHLC()
	require.NoError(t, err)
	require.Equal(t, int64(120), last.Time)

	seen := []int64{first.Time}
	next, err := data.NextOHLC(first.Time)
	for err == nil {
		seen = append(seen, next.Time)
		next, err = data.NextOHLC(next.Time)
	}
	require.ErrorIs(t, err, candleerr.ErrNoData)
	require.Equal(t, []int64{0, 60, 120}, seen)
	for i := 1; i < len(seen); i++ {
		require.Greater(t, seen[i], seen[i-1])
	}
}

func TestSeekLaws(t *testing.T) {
	handle := openTestStore(t)
	data := marketData(t, handle, Min1)
	seedCandles(t, data, 0, 60, 120, 180)

	prev, err := data.PrevOHLC(120)
	require.NoError(t, err)
	require.Less(t, prev.Time, int64(120))

	next, err := data.NextOHLC(120)
	require.NoError(t, err)
	require.Greater(t, next.Time, int64(120))

	first, err := data.FirstOHLC()
	require.NoError(t, err)
	require.Equal(t, int64(0), first.Time)

	last, err := data.LastOHLC()
	require.NoError(t, err)
	require.Equal(t, int64(180), last.Time)
}

func TestPrevNextCloseToHistoricalNaming(t *testing.T) {
	handle := openTestStore(t)
	data := marketData(t, handle, Min1)
	seedCandles(t, data, 0, 60, 120, 180)

	// prevCloseTo looks forward: smallest stored time >= target.
	got, err := data.PrevCloseTo(90)
	require.NoError(t, err)
	require.Equal(t, int64(120), got)

	got, err = data.PrevCloseTo(60)
	require.NoError(t, err)
	require.Equal(t, int64(60), got)

	// nextCloseTo looks backward: largest stored time <= target.
	got, err = data.NextCloseTo(90)
	require.NoError(t, err)
	require.Equal(t, int64(60), got)

	got, err = data.NextCloseTo(120)
	require.NoError(t, err)
	require.Equal(t, int64(120), got)
}

func TestCloseRangeReturnsStoredCandles(t *testing.T) {
	handle := openTestStore(t)
	data := marketData(t, handle, Min1)
	seedCandles(t, data, 0, 60, 120)

	all, err := data.CloseRange(0, 120)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []int64{0, 60, 120}, timesOf(all))
}

func TestSettingsRoundTrip(t *testing.T) {
	handle := openTestStore(t)
	market, err := handle.Market(MarketIdentifier{Exchange: "kraken", Base: "ETH", Quote: "USD"})
	require.NoError(t, err)

	defaults, err := market.Settings()
	require.NoError(t, err)
	require.Nil(t, defaults.OHLCRefreshRate)

	rate := Hour1
	require.NoError(t, market.SetSettings(MarketSettings{OHLCRefreshRate: &rate}))

	reread, err := market.Settings()
	require.NoError(t, err)
	require.NotNil(t, reread.OHLCRefreshRate)
	require.Equal(t, Hour1, *reread.OHLCRefreshRate)
}

func TestFirstAvailableIsMonotonic(t *testing.T) {
	handle := openTestStore(t)
	data := marketData(t, handle, Min1)

	candle := NewOHLC(0, "1", "2", "0.5", "1.5", "1", "10", 3)
	candle.FirstAvailable = true
	require.NoError(t, data.Insert(candle))

	overwrite := NewOHLC(0, "1", "2", "0.5", "1.6", "1", "11", 4)
	require.NoError(t, data.Insert(overwrite))

	stored, err := data.OHLC(0)
	require.NoError(t, err)
	require.True(t, stored.FirstAvailable)
	require.Equal(t, "1.6", stored.Close)
}

func timesOf(candles []OHLC) []int64 {
	out := make([]int64, len(candles))
	for i, c := range candles {
		out[i] = c.Time
	}
	return out
}
