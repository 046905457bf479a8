package kraken

import (
	"context"
	"time"

	"candlereactor/candleerr"
	"candlereactor/internal/store"
)

type assetPairInfo struct {
	Altname       string       `json:"altname"`
	Base          string       `json:"base"`
	Quote         string       `json:"quote"`
	PairDecimals  int          `json:"pair_decimals"`
	LotDecimals   int          `json:"lot_decimals"`
	LotMultiplier int          `json:"lot_multiplier"`
	LeverageBuy   []float64    `json:"leverage_buy"`
	LeverageSell  []float64    `json:"leverage_sell"`
	Fees          [][2]float64 `json:"fees"`
	FeesMaker     [][2]float64 `json:"fees_maker"`
	MarginCall    float64      `json:"margin_call"`
	MarginStop    float64      `json:"margin_stop"`
	OrderMin      string       `json:"ordermin"`
}

// RefreshMarketCache implements exchange.Provider. It replaces the cached
// catalog atomically; readers never observe a partially rebuilt map.
func (c *Client) RefreshMarketCache(ctx context.Context) error {
	var env krakenEnvelope[map[string]assetPairInfo]
	if err := c.get(ctx, "/0/public/AssetPairs", nil, &env); err != nil {
		return err
	}
	if err := env.err(); err != nil {
		return err
	}

	age := time.Now()
	cache := make(map[store.MarketIdentifier]store.MarketDefinition, len(env.Result))
	pairOf := make(map[store.MarketIdentifier]string, len(env.Result))
	for _, pair := range env.Result {
		id := store.MarketIdentifier{
			Exchange: ExchangeName,
			Base:     pair.Base,
			Quote:    pair.Quote,
		}
		cache[id] = store.MarketDefinition{
			Age:           age,
			PairName:      pair.Altname,
			PairDecimals:  pair.PairDecimals,
			LotDecimals:   pair.LotDecimals,
			LotMultiplier: pair.LotMultiplier,
			LeverageBuy:   pair.LeverageBuy,
			LeverageSell:  pair.LeverageSell,
			Fees:          pair.Fees,
			FeesMaker:     pair.FeesMaker,
			MarginCall:    pair.MarginCall,
			MarginStop:    pair.MarginStop,
			OrderMin:      pair.OrderMin,
		}
		pairOf[id] = pair.Altname
	}

	c.cacheMu.Lock()
	c.cache = cache
	c.pairOf = pairOf
	c.loaded = true
	c.cacheMu.Unlock()
	return nil
}

// GetMarketDefinition implements exchange.Provider.
func (c *Client) GetMarketDefinition(ctx context.Context, id store.MarketIdentifier, maxAge time.Duration) (store.MarketDefinition, error) {
	if def, ok := c.cachedDefinition(id); ok {
		if maxAge <= 0 || time.Since(def.Age) < maxAge {
			return def, nil
		}
	}
	if err := c.RefreshMarketCache(ctx); err != nil {
		return store.MarketDefinition{}, err
	}
	if def, ok := c.cachedDefinition(id); ok {
		return def, nil
	}
	return store.MarketDefinition{}, candleerr.ErrPairNotLoaded
}

func (c *Client) cachedDefinition(id store.MarketIdentifier) (store.MarketDefinition, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if !c.loaded {
		return store.MarketDefinition{}, false
	}
	def, ok := c.cache[id]
	return def, ok
}

func (c *Client) pairName(id store.MarketIdentifier) (string, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	name, ok := c.pairOf[id]
	return name, ok
}

// GetMarkets implements exchange.Provider.
func (c *Client) GetMarkets(ctx context.Context) ([]store.MarketIdentifier, error) {
	c.cacheMu.Lock()
	loaded := c.loaded
	c.cacheMu.Unlock()
	if !loaded {
		if err := c.RefreshMarketCache(ctx); err != nil {
			return nil, err
		}
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if !c.loaded {
		return nil, candleerr.ErrPairNotLoaded
	}
	ids := make([]store.MarketIdentifier, 0, len(c.cache))
	for id := range c.cache {
		ids = append(ids, id)
	}
	return ids, nil
}
