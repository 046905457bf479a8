package kraken

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"candlereactor/internal/store"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
)

// This test uses go-vcr to record/replay a real Kraken AssetPairs +
// OHLC call pair. It skips by default if the cassette is absent and
// RECORD_CASSETTES != 1.
func TestClient_GetOHLC_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "kraken_btcusd_ohlc.yaml")
	if _, err := os.Stat(cassette); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s", cassette)
		}
		err := os.MkdirAll(filepath.Dir(cassette), 0o755)
		assert.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	r, err := recorder.New(cassette)
	assert.NoError(t, err, "recorder.New should not error")
	assert.NotNil(t, r, "recorder should not be nil")
	defer func() { _ = r.Stop() }()

	client, err := FromEnv("test-key", "dGVzdC1zZWNyZXQ=")
	assert.NoError(t, err, "FromEnv should not error")
	client.UseHTTPClient(&http.Client{Transport: r})

	ctx := context.Background()
	id := store.MarketIdentifier{Exchange: ExchangeName, Base: "BTC", Quote: "USD"}

	chunk, err := client.GetOHLC(ctx, id, 0, store.Min1)
	assert.NoError(t, err, "GetOHLC should not error")
	assert.NotEmpty(t, chunk.Data, "chunk should not be empty")
	assert.True(t, chunk.Data[0].FirstAvailable, "first candle from since=0 should be marked first available")
}
