package builtin

import (
	"context"
	"testing"
	"time"

	"candlereactor/internal/exchange/sim"
	"candlereactor/internal/lang"
	"candlereactor/internal/marketsync"
	"candlereactor/internal/store"

	"github.com/stretchr/testify/require"
)

func TestCatReturnsCandlesForRegisteredMarket(t *testing.T) {
	provider := sim.New()
	id := store.MarketIdentifier{Exchange: sim.ExchangeName, Base: "BTC", Quote: "USD"}
	candles := []store.OHLC{
		store.NewOHLC(0, "1", "2", "0.5", "1.5", "1", "10", 1),
		store.NewOHLC(60, "2", "3", "1.5", "2.5", "1", "10", 1),
	}
	provider.Seed(id, candles)

	storeHandle := openLsTestStore(t)
	marketStore, err := storeHandle.Market(id)
	require.NoError(t, err)
	syncMarket, err := marketsync.New(id, provider, marketStore)
	require.NoError(t, err)

	reactor := newFakeReactor()
	reactor.defaultExchange = sim.ExchangeName
	reactor.registered[id] = syncMarket

	exit, msgs := drainOutputs(func(stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
		return Cat(context.Background(), reactor, []string{"-i", "1", "-f", "0", "-t", "60", "BTC/USD"}, nil, stdout)
	})
	require.Equal(t, lang.ExitSuccess, exit.Status)
	require.Len(t, msgs, 1)
	got, ok := msgs[0].Content.([]store.OHLC)
	require.True(t, ok)
	require.NotEmpty(t, got)
}

func TestCatRequiresInterval(t *testing.T) {
	exit := Cat(context.Background(), newFakeReactor(), []string{"BTC/USD"}, nil, make(chan lang.ProgramOutput, 1))
	require.Equal(t, lang.ExitError, exit.Status)
}

func TestParseTimestampAcceptsRelativeForm(t *testing.T) {
	before := time.Now().Add(-61 * time.Minute).Unix()
	got, err := parseTimestamp("NOW-1h")
	require.NoError(t, err)
	require.GreaterOrEqual(t, got, before)
}

func TestParseTimestampAcceptsUnixSeconds(t *testing.T) {
	got, err := parseTimestamp("1700000000")
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), got)
}

func TestResolveMarketIDDefaultsExchangeForBarePair(t *testing.T) {
	reactor := newFakeReactor()
	reactor.defaultExchange = "sim"
	id := resolveMarketID(reactor, "BTC/USD")
	require.Equal(t, store.MarketIdentifier{Exchange: "sim", Base: "BTC", Quote: "USD"}, id)
}
