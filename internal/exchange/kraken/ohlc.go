package kraken

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"candlereactor/candleerr"
	"candlereactor/internal/store"
)

type ohlcResult struct {
	Pairs map[string][]rawCandle
	Last  int64
}

// rawCandle mirrors Kraken's OHLC response tuple: [time, open, high, low,
// close, vwap, volume, count].
type rawCandle [8]interface{}

// UnmarshalJSON for ohlcResult is hand-rolled because Kraken's OHLC
// response keys the candle array by pair name alongside a sibling "last"
// field, inside the same object.
func (r *ohlcResult) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Pairs = make(map[string][]rawCandle)
	for key, value := range raw {
		if key == "last" {
			switch v := value.(type) {
			case float64:
				r.Last = int64(v)
			}
			continue
		}
		list, ok := value.([]interface{})
		if !ok {
			continue
		}
		candles := make([]rawCandle, 0, len(list))
		for _, item := range list {
			tuple, ok := item.([]interface{})
			if !ok || len(tuple) < 8 {
				continue
			}
			var c rawCandle
			copy(c[:], tuple[:8])
			candles = append(candles, c)
		}
		r.Pairs[key] = candles
	}
	return nil
}

func toStr(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

func toUint64(v interface{}) uint64 {
	switch t := v.(type) {
	case float64:
		return uint64(t)
	default:
		return 0
	}
}

// GetOHLC implements exchange.Provider. It pages forward from since,
// re-requesting with the last candle's own time as the next since, and
// stops once a page returns one or zero new candles (Kraken always repeats
// the most recent partial candle, so "one" is the convergence signal, not
// "zero").
func (c *Client) GetOHLC(ctx context.Context, id store.MarketIdentifier, since int64, interval store.Interval) (store.OHLCChunk, error) {
	originalSince := since

	market, err := c.GetMarketDefinition(ctx, id, 0)
	if err != nil {
		return store.OHLCChunk{}, err
	}
	pairName, ok := c.pairName(id)
	if !ok {
		pairName = market.PairName
	}

	var chunk []store.OHLC
	for {
		query := url.Values{}
		query.Set("pair", pairName)
		query.Set("interval", strconv.FormatInt(int64(interval), 10))
		query.Set("since", strconv.FormatInt(since, 10))

		var env krakenEnvelope[ohlcResult]
		if err := c.get(ctx, "/0/public/OHLC", query, &env); err != nil {
			return store.OHLCChunk{}, err
		}
		if err := env.err(); err != nil {
			return store.OHLCChunk{}, err
		}

		candles := env.Result.Pairs[pairName]
		subChunkLen := 0
		for _, raw := range candles {
			since = toInt64(raw[0])
			subChunkLen++
			chunk = append(chunk, store.NewOHLC(
				toInt64(raw[0]),
				toStr(raw[1]),
				toStr(raw[2]),
				toStr(raw[3]),
				toStr(raw[4]),
				toStr(raw[5]),
				toStr(raw[6]),
				toUint64(raw[7]),
			))
		}

		if originalSince == 0 && subChunkLen > 0 && len(chunk) == subChunkLen {
			chunk[0].FirstAvailable = true
		}
		if subChunkLen <= 1 {
			break
		}
	}

	if len(chunk) == 0 {
		return store.OHLCChunk{}, candleerr.ErrNoData
	}
	return store.NewOHLCChunk(chunk), nil
}
