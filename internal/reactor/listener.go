package reactor

import (
	"sync/atomic"

	"candlereactor/internal/lang"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

// listenerChannelSize bounds how far an event listener may lag behind the
// reactor's broadcasts before new events are dropped for it specifically;
// it never blocks or starves other listeners.
const listenerChannelSize = 1024

// EventKind tags the lifecycle transition an Event carries.
type EventKind int

const (
	EventRuntimeCreated EventKind = iota
	EventProgramOutput
	EventRuntimeDestroyed
)

func (k EventKind) String() string {
	switch k {
	case EventRuntimeCreated:
		return "runtime_created"
	case EventProgramOutput:
		return "program_output"
	case EventRuntimeDestroyed:
		return "runtime_destroyed"
	default:
		return "unknown"
	}
}

// Event is one runtime lifecycle transition broadcast to every listener.
// EventID is an ad-hoc correlation id for client-side dedupe, unrelated to
// the monotonic ProgramID/ListenerID counters.
type Event struct {
	Kind      EventKind
	EventID   string
	ProgramID uint64
	Output    lang.ProgramOutput
}

// ListenerHandle is a live subscription to every program's broadcast
// events. Close unregisters it; the registry cleanup itself runs
// asynchronously so Close never blocks its caller.
type ListenerHandle struct {
	ID     uint64
	Events <-chan Event

	reactor *Reactor
	closed  int32
}

// Close unregisters the listener. Safe to call more than once.
func (h *ListenerHandle) Close() {
	if !atomic.CompareAndSwapInt32(&h.closed, 0, 1) {
		return
	}
	threading.GoSafe(func() {
		h.reactor.removeListener(h.ID)
	})
}

// EventListener registers a new subscription and returns its handle. The
// caller should range over Events until Close, or until it stops caring.
func (r *Reactor) EventListener() *ListenerHandle {
	id := r.nextListenerID()
	ch := make(chan Event, listenerChannelSize)

	r.listenersMu.Lock()
	r.listeners[id] = ch
	r.listenersMu.Unlock()

	return &ListenerHandle{ID: id, Events: ch, reactor: r}
}

func (r *Reactor) removeListener(id uint64) {
	r.listenersMu.Lock()
	ch, ok := r.listeners[id]
	if ok {
		delete(r.listeners, id)
	}
	r.listenersMu.Unlock()
	if ok {
		close(ch)
	}
}

// broadcast sends evt to every registered listener, best-effort: a
// listener whose channel is full is skipped and logged rather than
// blocking or starving the others.
func (r *Reactor) broadcast(evt Event) {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	r.listenersMu.RLock()
	defer r.listenersMu.RUnlock()
	for id, ch := range r.listeners {
		select {
		case ch <- evt:
		default:
			logx.Errorf("reactor: listener %d dropped %s event: channel full", id, evt.Kind)
		}
	}
}
