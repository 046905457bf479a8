package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"candlereactor/internal/store"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"
	"github.com/zeromicro/go-zero/rest/pathvar"
)

// marketListResponse answers GET /market/?available&loaded.
type marketListResponse struct {
	Available []store.MarketIdentifier `json:"available,omitempty"`
	Loaded    []store.MarketIdentifier `json:"loaded,omitempty"`
}

func listMarketsHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var resp marketListResponse

		if _, want := query["available"]; want {
			var available []store.MarketIdentifier
			for _, name := range svc.Reactor.ListExchangeNames() {
				ids, err := svc.Reactor.ListMarkets(r.Context(), name)
				if err != nil {
					httpx.ErrorCtx(r.Context(), w, err)
					return
				}
				available = append(available, ids...)
			}
			resp.Available = available
		}
		if _, want := query["loaded"]; want {
			resp.Loaded = svc.Reactor.LoadedMarkets()
		}

		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

// marketDetailResponse answers GET /market/<exchange>/<base>/<quote>.
type marketDetailResponse struct {
	Settings store.MarketSettings   `json:"settings"`
	First    *store.OHLC            `json:"first_ohlc,omitempty"`
	Last     *store.OHLC            `json:"last_ohlc,omitempty"`
	ID       store.MarketIdentifier `json:"id"`
}

func marketDetailHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathMarketIdentifier(r)

		market, err := svc.Reactor.GetOrRegisterMarket(r.Context(), id)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		settings, err := market.Store.Settings()
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		resp := marketDetailResponse{ID: id, Settings: settings}
		data, err := market.Store.Interval(store.Min1)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		if first, err := data.FirstOHLC(); err == nil {
			resp.First = &first
		}
		if last, err := data.LastOHLC(); err == nil {
			resp.Last = &last
		}

		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

// ohlcResponse answers GET /market/<exchange>/<base>/<quote>/ohlc.
type ohlcResponse struct {
	Data []store.OHLC `json:"data"`
}

func marketOHLCHandler(svc *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathMarketIdentifier(r)
		query := r.URL.Query()

		minutes, err := strconv.ParseInt(defaultQuery(query, "interval", "1"), 10, 64)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		interval, err := store.ParseInterval(minutes)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		from, err := parseInt64Query(query, "from", 0)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		to, err := parseInt64Query(query, "to", time.Now().Unix())
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		_, exact := query["exact"]

		market, err := svc.Reactor.GetOrRegisterMarket(r.Context(), id)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		syncFrom, syncTo, err := market.SyncPeriod(r.Context(), from, to, interval)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		data, err := market.Store.Interval(interval)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		var candles []store.OHLC
		if exact {
			candles, err = data.ExactRange(syncFrom, syncTo)
		} else {
			candles, err = data.CloseRange(syncFrom, syncTo)
		}
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		httpx.OkJsonCtx(r.Context(), w, ohlcResponse{Data: candles})
	}
}

func pathMarketIdentifier(r *http.Request) store.MarketIdentifier {
	vars := pathvar.Vars(r)
	return store.MarketIdentifier{
		Exchange: vars["exchange"],
		Base:     vars["base"],
		Quote:    vars["quote"],
	}
}

func defaultQuery(query map[string][]string, key, fallback string) string {
	if values, ok := query[key]; ok && len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}

func parseInt64Query(query map[string][]string, key string, fallback int64) (int64, error) {
	raw := defaultQuery(query, key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logx.Errorf("httpapi: invalid %s query value %q: %v", key, raw, err)
		return 0, err
	}
	return v, nil
}
