package sim

import (
	"context"
	"testing"

	"candlereactor/internal/store"

	"github.com/stretchr/testify/require"
)

func TestPagingConvergesToFullHistory(t *testing.T) {
	id := store.MarketIdentifier{Exchange: ExchangeName, Base: "BTC", Quote: "USD"}

	var seeded []store.OHLC
	for i := int64(0); i < 7; i++ {
		seeded = append(seeded, store.NewOHLC(i*60, "1", "2", "0.5", "1.5", "1", "10", 1))
	}

	p := New()
	p.PageSize = 2
	p.Seed(id, seeded)

	chunk, err := p.GetOHLC(context.Background(), id, 0, store.Min1)
	require.NoError(t, err)
	require.Len(t, chunk.Data, len(seeded))
	for i, c := range chunk.Data {
		require.Equal(t, seeded[i].Time, c.Time)
	}
	require.True(t, chunk.Data[0].FirstAvailable)
	for i := 1; i < len(chunk.Data); i++ {
		require.False(t, chunk.Data[i].FirstAvailable)
	}
}

func TestPagingFromNonZeroSinceDoesNotSetFirstAvailable(t *testing.T) {
	id := store.MarketIdentifier{Exchange: ExchangeName, Base: "BTC", Quote: "USD"}

	var seeded []store.OHLC
	for i := int64(0); i < 5; i++ {
		seeded = append(seeded, store.NewOHLC(i*60, "1", "2", "0.5", "1.5", "1", "10", 1))
	}

	p := New()
	p.PageSize = 2
	p.Seed(id, seeded)

	chunk, err := p.GetOHLC(context.Background(), id, 60, store.Min1)
	require.NoError(t, err)
	require.Equal(t, int64(120), chunk.Data[0].Time)
	require.False(t, chunk.Data[0].FirstAvailable)
}
