package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"candlereactor/candleerr"
)

// MarketIdentifier names a single tradable pair on a single exchange. It is
// the key used throughout the reactor, sync engine and store to address a
// market without needing the exchange adapter itself.
type MarketIdentifier struct {
	Exchange string
	Base     string
	Quote    string
}

// ParseMarketIdentifier accepts the "exchange/base/quote" wire form used by
// the HTTP contract and CLI. Missing segments are left empty.
func ParseMarketIdentifier(s string) MarketIdentifier {
	parts := strings.SplitN(s, "/", 3)
	var id MarketIdentifier
	if len(parts) > 0 {
		id.Exchange = parts[0]
	}
	if len(parts) > 1 {
		id.Base = strings.ToUpper(parts[1])
	}
	if len(parts) > 2 {
		id.Quote = strings.ToUpper(parts[2])
	}
	return id
}

// String renders the canonical "exchange_BASE/QUOTE" form.
func (m MarketIdentifier) String() string {
	return fmt.Sprintf("%s_%s/%s", m.Exchange, m.Base, m.Quote)
}

// PairName renders just the "BASE/QUOTE" half, as exchanges typically expect.
func (m MarketIdentifier) PairName() string {
	return fmt.Sprintf("%s/%s", m.Base, m.Quote)
}

// UID is the deterministic bucket/tree name derived from the identifier.
func (m MarketIdentifier) UID() string {
	return fmt.Sprintf("%s_%s", m.Exchange, m.PairName())
}

// Interval is one of the fixed OHLC candle widths the store understands,
// expressed in minutes.
type Interval int

const (
	Min1  Interval = 1
	Min5  Interval = 5
	Min15 Interval = 15
	Min30 Interval = 30
	Hour1 Interval = 60
	Hour4 Interval = 240
	Day1  Interval = 1_440
	Day7  Interval = 10_080
	Day15 Interval = 21_600
)

// Seconds reports the interval width in seconds.
func (i Interval) Seconds() int64 {
	return int64(i) * 60
}

// ParseInterval validates a minute count against the fixed set of supported
// widths.
func ParseInterval(minutes int64) (Interval, error) {
	switch Interval(minutes) {
	case Min1, Min5, Min15, Min30, Hour1, Hour4, Day1, Day7, Day15:
		return Interval(minutes), nil
	default:
		return 0, candleerr.InvalidInterval(minutes)
	}
}

func (i Interval) String() string {
	switch i {
	case Min1:
		return "Min1"
	case Min5:
		return "Min5"
	case Min15:
		return "Min15"
	case Min30:
		return "Min30"
	case Hour1:
		return "Hour1"
	case Hour4:
		return "Hour4"
	case Day1:
		return "Day1"
	case Day7:
		return "Day7"
	case Day15:
		return "Day15"
	default:
		return fmt.Sprintf("Interval(%d)", int(i))
	}
}

// MarshalText implements encoding.TextMarshaler so Interval round-trips
// through YAML config files and JSON HTTP responses as its name rather than
// its raw minute count.
func (i Interval) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Interval) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Min1":
		*i = Min1
	case "Min5":
		*i = Min5
	case "Min15":
		*i = Min15
	case "Min30":
		*i = Min30
	case "Hour1":
		*i = Hour1
	case "Hour4":
		*i = Hour4
	case "Day1":
		*i = Day1
	case "Day7":
		*i = Day7
	case "Day15":
		*i = Day15
	default:
		minutes, err := strconv.ParseInt(string(text), 10, 64)
		if err != nil {
			return candleerr.InvalidInterval(0)
		}
		parsed, err := ParseInterval(minutes)
		if err != nil {
			return err
		}
		*i = parsed
	}
	return nil
}

// OHLC is a single candle. The decimal string fields are the values the
// exchange actually reported; the Normalized fields are parsed once at
// construction so downstream math never re-parses a string.
type OHLC struct {
	Time            int64
	Open            string
	High            string
	Low             string
	Close           string
	OpenNormalized  float64
	HighNormalized  float64
	LowNormalized   float64
	CloseNormalized float64
	VWAP            string
	Volume          string
	Count           uint64
	// FirstAvailable marks the oldest candle an exchange adapter could page
	// back to. Once set on a stored candle it is never cleared by later
	// writes (see StoreMarketDataHandle.Insert).
	FirstAvailable bool
}

// NewOHLC parses the decimal fields once into their normalized float64
// counterparts. Panics if any of open/high/low/close is not a valid
// decimal: callers are expected to validate data at the exchange adapter
// boundary, not here.
func NewOHLC(time int64, open, high, low, close, vwap, volume string, count uint64) OHLC {
	return OHLC{
		Time:            time,
		Open:            open,
		High:            high,
		Low:             low,
		Close:           close,
		OpenNormalized:  mustParseFloat(open),
		HighNormalized:  mustParseFloat(high),
		LowNormalized:   mustParseFloat(low),
		CloseNormalized: mustParseFloat(close),
		VWAP:            vwap,
		Volume:          volume,
		Count:           count,
	}
}

func mustParseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(fmt.Sprintf("store: invalid decimal %q: %v", s, err))
	}
	return v
}

// OHLCChunk is a contiguous, non-empty run of candles returned by an
// exchange adapter's paging loop.
type OHLCChunk struct {
	Data     []OHLC
	Begin    int64
	End      int64
	Duration int64
	Interval int64
}

// NewOHLCChunk derives Begin/End/Duration/Interval from data. It panics on
// an empty slice: a chunk is only ever constructed from a non-empty page.
func NewOHLCChunk(data []OHLC) OHLCChunk {
	if len(data) == 0 {
		panic("store: NewOHLCChunk requires at least one candle")
	}
	begin := data[0].Time
	end := data[len(data)-1].Time
	interval := begin
	if len(data) > 1 {
		interval = data[1].Time
	}
	interval -= begin
	return OHLCChunk{
		Data:     data,
		Begin:    begin,
		End:      end,
		Duration: end - begin + interval,
		Interval: interval,
	}
}

// MarketDefinition is exchange-reported metadata about a tradable pair,
// cached by the exchange adapter; Age records when it was fetched.
type MarketDefinition struct {
	Age           time.Time
	PairName      string
	PairDecimals  int
	LotDecimals   int
	LotMultiplier int
	LeverageBuy   []float64
	LeverageSell  []float64
	Fees          [][2]float64
	FeesMaker     [][2]float64
	MarginCall    float64
	MarginStop    float64
	OrderMin      string
}

// MarketSettings holds the per-market knobs persisted alongside OHLC data.
type MarketSettings struct {
	OHLCRefreshRate *Interval
}
