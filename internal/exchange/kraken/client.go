// Package kraken is a REST exchange adapter for Kraken's public OHLC and
// asset-pair endpoints, registered under the type name "kraken".
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"candlereactor/candleerr"
	"candlereactor/internal/exchange"
	"candlereactor/internal/store"
)

// ExchangeName is the identifier this adapter registers and reports under.
const ExchangeName = "kraken"

const defaultBaseURL = "https://api.kraken.com"

func init() {
	exchange.RegisterProvider(ExchangeName, build)
}

func build(name string, cfg *exchange.ProviderConfig) (exchange.Provider, error) {
	if cfg.APIKey == "" || cfg.APIPrivateKey == "" {
		return nil, candleerr.MissingEnviron("KRAKEN_API_KEY/KRAKEN_API_PRIVATE_KEY")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ttl := cfg.MarketCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cacheTTL:   ttl,
	}, nil
}

// FromEnv builds a Client directly from KRAKEN_API_KEY and
// KRAKEN_API_PRIVATE_KEY, for callers that wire the adapter outside the
// config-file/registry path. The credentials are required to register the
// exchange but every market-data endpoint the adapter calls is public, so
// only their presence is checked.
func FromEnv(apiKey, apiPrivateKey string) (*Client, error) {
	if apiKey == "" {
		return nil, candleerr.MissingEnviron("KRAKEN_API_KEY")
	}
	if apiPrivateKey == "" {
		return nil, candleerr.MissingEnviron("KRAKEN_API_PRIVATE_KEY")
	}
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cacheTTL:   10 * time.Minute,
	}, nil
}

// Client is the Kraken REST adapter. It caches the asset-pair catalog
// in-memory, loading it on first use, when a definition is older than a
// caller's maxAge, or on RefreshMarketCache. cacheTTL is stored but no
// lookup reads it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cacheTTL   time.Duration

	cacheMu sync.Mutex
	cache   map[store.MarketIdentifier]store.MarketDefinition
	pairOf  map[store.MarketIdentifier]string
	loaded  bool
}

// Name implements exchange.Provider.
func (c *Client) Name() string {
	return ExchangeName
}

// UseHTTPClient swaps the underlying HTTP client, for tests that need to
// point requests at a recorder transport.
func (c *Client) UseHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

type serverTimeResult struct {
	Unixtime int64 `json:"unixtime"`
}

// ServerTime implements exchange.Provider.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var env krakenEnvelope[serverTimeResult]
	if err := c.get(ctx, "/0/public/Time", nil, &env); err != nil {
		return time.Time{}, err
	}
	if err := env.err(); err != nil {
		return time.Time{}, err
	}
	return time.Unix(env.Result.Unixtime, 0).UTC(), nil
}

type krakenEnvelope[T any] struct {
	Error  []string `json:"error"`
	Result T        `json:"result"`
}

func (e krakenEnvelope[T]) err() error {
	if len(e.Error) > 0 {
		return candleerr.Wrap(candleerr.KindTransport, "kraken api error", fmt.Errorf("%v", e.Error))
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if query != nil {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return candleerr.Wrap(candleerr.KindTransport, "kraken: build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return candleerr.Wrap(candleerr.KindTransport, "kraken: request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return candleerr.Wrap(candleerr.KindTransport, "kraken: read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return candleerr.Wrap(candleerr.KindTransport, fmt.Sprintf("kraken: http status %d", resp.StatusCode), fmt.Errorf("%s", body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return candleerr.Wrap(candleerr.KindEncoding, "kraken: decode response", err)
	}
	return nil
}
