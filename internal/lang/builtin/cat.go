package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"candlereactor/internal/lang"
	"candlereactor/internal/store"
)

var relativeTimestamp = regexp.MustCompile(`^NOW-([0-9]+)([smhd])$`)

// parseTimestamp accepts either a Unix epoch second, an RFC3339 timestamp,
// or NOW-<n><unit> (unit one of s/m/h/d) resolved against the current wall
// clock.
func parseTimestamp(raw string) (int64, error) {
	if m := relativeTimestamp.FindStringSubmatch(raw); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, err
		}
		var unit time.Duration
		switch m[2] {
		case "s":
			unit = time.Second
		case "m":
			unit = time.Minute
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		}
		return time.Now().Add(-time.Duration(n) * unit).Unix(), nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return seconds, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t.Unix(), nil
}

// resolveMarketID accepts either the fully qualified "exchange/base/quote"
// form or the bare "base/quote" form, in which case the exchange defaults
// to the reactor's configured default exchange.
func resolveMarketID(reactor lang.ReactorHandle, raw string) store.MarketIdentifier {
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	switch len(parts) {
	case 2:
		return store.MarketIdentifier{
			Exchange: reactor.DefaultExchangeName(),
			Base:     strings.ToUpper(parts[0]),
			Quote:    strings.ToUpper(parts[1]),
		}
	default:
		return store.ParseMarketIdentifier(raw)
	}
}

// Cat implements `cat -i <interval> [-f <from>] [-t <to>] <market...>`, where
// <interval> is a minute count or <n>m, <n>h or <n>d (1, 1m, 4h, 15d, ...):
// for each market it ensures [from, to] is available (paging it in from the
// exchange if needed) and emits the resulting candle range as one Json
// message per market.
func Cat(ctx context.Context, reactor lang.ReactorHandle, args []string, _ <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
	var intervalRaw, fromRaw, toRaw string
	exact := false
	var markets []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-i":
			i++
			if i >= len(args) {
				return lang.ErrorExit("cat: -i requires a value")
			}
			intervalRaw = args[i]
		case "-f":
			i++
			if i >= len(args) {
				return lang.ErrorExit("cat: -f requires a value")
			}
			fromRaw = args[i]
		case "-t":
			i++
			if i >= len(args) {
				return lang.ErrorExit("cat: -t requires a value")
			}
			toRaw = args[i]
		case "-e":
			exact = true
		default:
			markets = append(markets, args[i])
		}
	}

	if intervalRaw == "" {
		return lang.ErrorExit("cat: -i <interval> is required")
	}
	if len(markets) == 0 {
		return lang.ErrorExit("cat: at least one market is required")
	}

	intervalDigits, unitMinutes := intervalRaw, int64(1)
	switch {
	case strings.HasSuffix(intervalRaw, "m"):
		intervalDigits = strings.TrimSuffix(intervalRaw, "m")
	case strings.HasSuffix(intervalRaw, "h"):
		intervalDigits, unitMinutes = strings.TrimSuffix(intervalRaw, "h"), 60
	case strings.HasSuffix(intervalRaw, "d"):
		intervalDigits, unitMinutes = strings.TrimSuffix(intervalRaw, "d"), 24*60
	}
	minutes, err := strconv.ParseInt(intervalDigits, 10, 64)
	if err != nil {
		return lang.ErrorExit(fmt.Sprintf("cat: invalid interval %q", intervalRaw))
	}
	interval, err := store.ParseInterval(minutes * unitMinutes)
	if err != nil {
		return lang.ErrorExit(err.Error())
	}

	from := int64(0)
	if fromRaw != "" {
		from, err = parseTimestamp(fromRaw)
		if err != nil {
			return lang.ErrorExit("cat: " + err.Error())
		}
	}
	to := time.Now().Unix()
	if toRaw != "" {
		to, err = parseTimestamp(toRaw)
		if err != nil {
			return lang.ErrorExit("cat: " + err.Error())
		}
	}

	for _, raw := range markets {
		id := resolveMarketID(reactor, raw)
		market, err := reactor.GetOrRegisterMarket(ctx, id)
		if err != nil {
			return lang.ErrorExit(err.Error())
		}

		syncFrom, syncTo, err := market.SyncPeriod(ctx, from, to, interval)
		if err != nil {
			return lang.ErrorExit(err.Error())
		}
		data, err := market.Store.Interval(interval)
		if err != nil {
			return lang.ErrorExit(err.Error())
		}

		var candles []store.OHLC
		if exact {
			candles, err = data.ExactRange(syncFrom, syncTo)
		} else {
			candles, err = data.CloseRange(syncFrom, syncTo)
		}
		if err != nil {
			return lang.ErrorExit(err.Error())
		}
		send(stdout, lang.JSONOutput(candles))
	}
	return lang.SuccessExit()
}
