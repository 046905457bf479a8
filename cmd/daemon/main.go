package main

import (
	"flag"
	"fmt"

	"candlereactor/internal/cli"
	"candlereactor/internal/config"
	"candlereactor/internal/httpapi"
	"candlereactor/internal/reactor"
	"candlereactor/internal/store"

	_ "candlereactor/internal/exchange/kraken"
	_ "candlereactor/internal/exchange/sim"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"
)

func main() {
	flag.Parse()

	cfg := config.MustLoad()
	cli.LogConfigSummary(cfg)

	storeHandle, err := store.Open(cfg.ResolvedStorePath())
	if err != nil {
		logx.Errorf("daemon: open store: %v", err)
		return
	}
	defer storeHandle.Close()

	r := reactor.New(storeHandle.Handle(), cfg.DefaultExchange)

	if cfg.Exchange.Value != nil {
		providers, err := cfg.Exchange.Value.BuildProviders()
		if err != nil {
			logx.Errorf("daemon: build exchange providers: %v", err)
			return
		}
		for _, provider := range providers {
			r.RegisterExchange(provider)
		}
	}

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	httpapi.RegisterHandlers(server, httpapi.NewServiceContext(r))

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
