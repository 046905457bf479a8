package marketsync

import "sync/atomic"

// CancelGate is a cooperative cancellation flag checked at the top of a
// refresh loop rather than aborted out from under a held lock.
type CancelGate struct {
	running atomic.Bool
}

func newCancelGate() *CancelGate {
	g := &CancelGate{}
	g.running.Store(true)
	return g
}

// IsRunning reports whether the loop guarded by this gate should keep
// going.
func (g *CancelGate) IsRunning() bool {
	return g.running.Load()
}

// Cancel signals the loop to stop at its next wake.
func (g *CancelGate) Cancel() {
	g.running.Store(false)
}
