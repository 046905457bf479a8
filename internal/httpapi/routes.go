package httpapi

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"
)

// RegisterHandlers wires the three market routes onto server.
func RegisterHandlers(server *rest.Server, svc *ServiceContext) {
	server.AddRoutes([]rest.Route{
		{
			Method:  http.MethodGet,
			Path:    "/market/",
			Handler: listMarketsHandler(svc),
		},
		{
			Method:  http.MethodGet,
			Path:    "/market/:exchange/:base/:quote",
			Handler: marketDetailHandler(svc),
		},
		{
			Method:  http.MethodGet,
			Path:    "/market/:exchange/:base/:quote/ohlc",
			Handler: marketOHLCHandler(svc),
		},
	})
}
