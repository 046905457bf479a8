package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"candlereactor/internal/config"
	"candlereactor/internal/reactor"
	"candlereactor/internal/store"

	"candlereactor/internal/lang"

	_ "candlereactor/internal/exchange/kraken"
	_ "candlereactor/internal/exchange/sim"

	"github.com/zeromicro/go-zero/core/logx"
)

// exec runs a single program string against a Reactor built from the same
// config a daemon would use, and renders its output to stdout.
func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: exec [-f config] \"<program>\"")
		os.Exit(2)
	}
	program := args[0]

	cfg := config.MustLoad()

	storeHandle, err := store.Open(cfg.ResolvedStorePath())
	if err != nil {
		logx.Errorf("exec: open store: %v", err)
		os.Exit(1)
	}
	defer storeHandle.Close()

	r := reactor.New(storeHandle.Handle(), cfg.DefaultExchange)
	if cfg.Exchange.Value != nil {
		providers, err := cfg.Exchange.Value.BuildProviders()
		if err != nil {
			logx.Errorf("exec: build exchange providers: %v", err)
			os.Exit(1)
		}
		for _, provider := range providers {
			r.RegisterExchange(provider)
		}
	}

	ctx := context.Background()
	listener := r.EventListener()
	defer listener.Close()

	id, err := r.SpawnProgram(ctx, program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}

	exitCode := 0
	for evt := range listener.Events {
		if evt.ProgramID != id {
			continue
		}
		switch evt.Kind {
		case reactor.EventProgramOutput:
			exitCode = renderOutput(evt.Output)
		case reactor.EventRuntimeDestroyed:
			os.Exit(exitCode)
		}
	}
}

// renderOutput writes one ProgramOutput message to stdout per its kind:
// Text verbatim, Json pretty-printed, Exit as its own status line (an error
// exit's message goes to stderr; a success exit prints only a non-empty
// message). It returns 1 for an error exit or a Json payload that fails to
// encode, 0 otherwise.
func renderOutput(out lang.ProgramOutput) int {
	switch out.Kind {
	case lang.OutputText:
		fmt.Println(out.Message)
	case lang.OutputJSON:
		encoded, err := json.MarshalIndent(out.Content, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
			return 1
		}
		fmt.Println(string(encoded))
	case lang.OutputExit:
		if out.Status == lang.ExitError {
			fmt.Fprintln(os.Stderr, out.Message)
			return 1
		}
		if out.Message != "" {
			fmt.Println(out.Message)
		}
	}
	return 0
}
