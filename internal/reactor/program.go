package reactor

import (
	"context"

	"candlereactor/internal/lang"
	"candlereactor/internal/lang/builtin"
	"candlereactor/internal/lang/runtime"

	"github.com/zeromicro/go-zero/core/threading"
)

// SpawnProgram parses src, resolves its scopes and references, and spawns
// it as a runtime under a freshly allocated program id. A supervisor task
// owns the runtime's root stdout receiver exclusively: it rebroadcasts
// RuntimeCreated, then every output message, then RuntimeDestroyed, to
// whatever listeners are subscribed at the time each message is sent. The
// returned id is for correlation only — callers observe output by
// subscribing via EventListener and filtering on ProgramID.
func (r *Reactor) SpawnProgram(ctx context.Context, src string) (uint64, error) {
	root, err := lang.Parse(src)
	if err != nil {
		return 0, err
	}
	actx, err := lang.NewAstContext(root, builtin.Register)
	if err != nil {
		return 0, err
	}

	id := r.nextProgramID()
	rt := runtime.Spawn(ctx, id, root, actx, r)

	r.programsMu.Lock()
	r.programs[id] = rt
	r.programsMu.Unlock()

	threading.GoSafe(func() {
		r.broadcast(Event{Kind: EventRuntimeCreated, ProgramID: id})
		for out := range rt.Stdout {
			r.broadcast(Event{Kind: EventProgramOutput, ProgramID: id, Output: out})
		}
		r.broadcast(Event{Kind: EventRuntimeDestroyed, ProgramID: id})

		r.programsMu.Lock()
		delete(r.programs, id)
		r.programsMu.Unlock()
	})

	return id, nil
}

// RunningPrograms returns the ids of every program still executing.
func (r *Reactor) RunningPrograms() []uint64 {
	r.programsMu.RLock()
	defer r.programsMu.RUnlock()
	ids := make([]uint64, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	return ids
}
