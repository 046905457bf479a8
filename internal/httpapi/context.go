// Package httpapi is the thin HTTP boundary a daemon process exposes over
// the Reactor: list known markets, inspect one market's settings, and pull
// its candle data. Every handler is read-only and delegates straight to
// the Reactor/Store; nothing here mutates beyond triggering a sync.
package httpapi

import "candlereactor/internal/reactor"

// ServiceContext is the dependency bag every handler closes over,
// following the same shape a goctl-scaffolded service would hold.
type ServiceContext struct {
	Reactor *reactor.Reactor
}

// NewServiceContext constructs a ServiceContext around an already-built
// Reactor.
func NewServiceContext(r *reactor.Reactor) *ServiceContext {
	return &ServiceContext{Reactor: r}
}
