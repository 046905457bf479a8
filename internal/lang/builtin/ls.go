package builtin

import (
	"context"
	"strings"

	"candlereactor/internal/lang"
	"candlereactor/internal/store"
)

type lsEntry struct {
	Market     string                  `json:"market"`
	Definition *store.MarketDefinition `json:"definition,omitempty"`
	FirstOHLC  *store.OHLC             `json:"first_ohlc,omitempty"`
	LastOHLC   *store.OHLC             `json:"last_ohlc,omitempty"`
}

// Ls lists known markets, optionally filtered by an "exchange/base/quote"
// pattern (any segment may be "*" or omitted to mean "any"), and optionally
// decorated with market definitions and first/last candle when called with
// -d.
func Ls(ctx context.Context, reactor lang.ReactorHandle, args []string, _ <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
	detailed := false
	var filter string
	for _, a := range args {
		if a == "-d" {
			detailed = true
			continue
		}
		filter = a
	}

	exchangeFilter, baseFilter, quoteFilter := splitMarketFilter(filter)

	var markets []store.MarketIdentifier
	for _, name := range reactor.ListExchangeNames() {
		if exchangeFilter != "" && exchangeFilter != name {
			continue
		}
		ids, err := reactor.ListMarkets(ctx, name)
		if err != nil {
			continue
		}
		for _, id := range ids {
			if baseFilter != "" && baseFilter != id.Base {
				continue
			}
			if quoteFilter != "" && quoteFilter != id.Quote {
				continue
			}
			markets = append(markets, id)
		}
	}

	if !detailed {
		names := make([]string, len(markets))
		for i, id := range markets {
			names[i] = id.Exchange + "/" + id.Base + "/" + id.Quote
		}
		send(stdout, lang.JSONOutput(names))
		return lang.SuccessExit()
	}

	entries := make([]lsEntry, 0, len(markets))
	for _, id := range markets {
		entry := lsEntry{Market: id.Exchange + "/" + id.Base + "/" + id.Quote}
		market, err := reactor.GetOrRegisterMarket(ctx, id)
		if err == nil {
			if def, derr := market.Exchange.GetMarketDefinition(ctx, id, 0); derr == nil {
				entry.Definition = &def
			}
			if data, derr := market.Store.Interval(store.Min1); derr == nil {
				if first, ferr := data.FirstOHLC(); ferr == nil {
					entry.FirstOHLC = &first
				}
				if last, lerr := data.LastOHLC(); lerr == nil {
					entry.LastOHLC = &last
				}
			}
		}
		entries = append(entries, entry)
	}
	send(stdout, lang.JSONOutput(entries))
	return lang.SuccessExit()
}

// splitMarketFilter parses a bare/partial market pattern: "", "kraken",
// "kraken/BTC", "kraken/BTC/USD", with "*" in any position meaning
// "unconstrained".
func splitMarketFilter(raw string) (exchangeName, base, quote string) {
	raw = strings.Trim(raw, "/")
	if raw == "" {
		return "", "", ""
	}
	parts := strings.Split(raw, "/")
	if len(parts) > 0 && parts[0] != "*" {
		exchangeName = parts[0]
	}
	if len(parts) > 1 && parts[1] != "*" {
		base = strings.ToUpper(parts[1])
	}
	if len(parts) > 2 && parts[2] != "*" {
		quote = strings.ToUpper(parts[2])
	}
	return
}
