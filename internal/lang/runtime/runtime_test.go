package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"candlereactor/internal/lang"

	"github.com/stretchr/testify/require"
)

// testProgram parses and aggregates src with the given natives bound into
// the main scope, runs it to completion, and returns the context plus every
// message the root stdout produced.
func testProgram(t *testing.T, src string, natives map[string]lang.NativeProcedure) (*lang.AstContext, []lang.ProgramOutput) {
	t.Helper()
	root, err := lang.Parse(src)
	require.NoError(t, err)

	actx, err := lang.NewAstContext(root, func(ctx *lang.AstContext) {
		for name, fn := range natives {
			_, err := ctx.ScopeSet(lang.ScopeID(1), name, lang.NativeProcedureValue(fn))
			require.NoError(t, err)
		}
	})
	require.NoError(t, err)

	rt := Spawn(context.Background(), 1, root, actx, nil)

	var outputs []lang.ProgramOutput
	deadline := time.After(5 * time.Second)
	for {
		select {
		case out, ok := <-rt.Stdout:
			if !ok {
				return actx, outputs
			}
			outputs = append(outputs, out)
		case <-deadline:
			t.Fatalf("program %q did not finish; saw %d outputs", src, len(outputs))
		}
	}
}

func textMessages(outputs []lang.ProgramOutput) []string {
	var texts []string
	for _, out := range outputs {
		if out.Kind == lang.OutputText {
			texts = append(texts, out.Message)
		}
	}
	return texts
}

// emit sends each argument as its own Text message.
func emitNative(_ context.Context, _ lang.ReactorHandle, args []string, _ <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
	for _, a := range args {
		stdout <- lang.TextOutput(a)
	}
	return lang.SuccessExit()
}

// forward drains stdin and re-emits every Text message, preserving order.
func forwardNative(_ context.Context, _ lang.ReactorHandle, _ []string, stdin <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
	if stdin == nil {
		return lang.ErrorExit("forward: no stdin")
	}
	for msg := range stdin {
		if msg.Kind == lang.OutputText {
			stdout <- msg
		}
	}
	return lang.SuccessExit()
}

// Property 7: in a | b, messages produced by a are observed by b in
// emission order.
func TestPipePreservesEmissionOrder(t *testing.T) {
	_, outputs := testProgram(t, `emit("one", "two", "three") | forward`, map[string]lang.NativeProcedure{
		"emit":    emitNative,
		"forward": forwardNative,
	})
	require.Equal(t, []string{"one", "two", "three"}, textMessages(outputs))
}

// Property 8: in a ; b, the b side begins only after a's task has
// completed.
func TestCommaSequencesLeftBeforeRight(t *testing.T) {
	var mu sync.Mutex
	var trace []string
	record := func(step string) {
		mu.Lock()
		trace = append(trace, step)
		mu.Unlock()
	}

	natives := map[string]lang.NativeProcedure{
		"slow": func(context.Context, lang.ReactorHandle, []string, <-chan lang.ProgramOutput, chan<- lang.ProgramOutput) lang.ProgramOutput {
			record("slow-start")
			time.Sleep(50 * time.Millisecond)
			record("slow-end")
			return lang.SuccessExit()
		},
		"fast": func(context.Context, lang.ReactorHandle, []string, <-chan lang.ProgramOutput, chan<- lang.ProgramOutput) lang.ProgramOutput {
			record("fast-start")
			return lang.SuccessExit()
		},
	}

	testProgram(t, `slow ; fast`, natives)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"slow-start", "slow-end", "fast-start"}, trace)
}

// Property 9: assignment reduces the RHS's collected payloads to a single
// value — zero messages bind Undefined, one binds the flattened singleton,
// two or more bind an Array in emission order.
func TestAssignmentReduction(t *testing.T) {
	natives := map[string]lang.NativeProcedure{
		"none": func(context.Context, lang.ReactorHandle, []string, <-chan lang.ProgramOutput, chan<- lang.ProgramOutput) lang.ProgramOutput {
			return lang.SuccessExit()
		},
		"one": func(_ context.Context, _ lang.ReactorHandle, _ []string, _ <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
			stdout <- lang.JSONOutput(42.0)
			return lang.SuccessExit()
		},
		"two": func(_ context.Context, _ lang.ReactorHandle, _ []string, _ <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
			stdout <- lang.JSONOutput("a")
			stdout <- lang.JSONOutput("b")
			return lang.SuccessExit()
		},
	}

	t.Run("zero messages bind Undefined", func(t *testing.T) {
		actx, _ := testProgram(t, `let x = none`, natives)
		v, ok := actx.ScopeGet(lang.ScopeID(1), "x")
		require.True(t, ok)
		require.Equal(t, lang.ValueUndefined, v.Kind)
	})

	t.Run("one message binds the singleton", func(t *testing.T) {
		actx, _ := testProgram(t, `let x = one`, natives)
		v, ok := actx.ScopeGet(lang.ScopeID(1), "x")
		require.True(t, ok)
		require.Equal(t, lang.ValueNumber, v.Kind)
		require.Equal(t, 42.0, v.Number)
	})

	t.Run("two messages bind an array in order", func(t *testing.T) {
		actx, _ := testProgram(t, `let x = two`, natives)
		v, ok := actx.ScopeGet(lang.ScopeID(1), "x")
		require.True(t, ok)
		require.Equal(t, lang.ValueArray, v.Kind)
		require.Len(t, v.Array, 2)
		require.Equal(t, "a", v.Array[0].Str)
		require.Equal(t, "b", v.Array[1].Str)
	})
}

// Assignment collects Text messages the same way as Json payloads, so an
// echo-style builtin's output is assignable (scenario S4's reduction).
func TestAssignmentCollectsTextMessages(t *testing.T) {
	actx, _ := testProgram(t, `let x = emit("world")`, map[string]lang.NativeProcedure{
		"emit": emitNative,
	})
	v, ok := actx.ScopeGet(lang.ScopeID(1), "x")
	require.True(t, ok)
	require.Equal(t, lang.ValueString, v.Kind)
	require.Equal(t, "world", v.Str)
}

// A closure bound with let is invocable as an ordinary call site, with the
// call's argument values bound positionally to its parameters.
func TestClosureInvocationBindsArguments(t *testing.T) {
	_, outputs := testProgram(t, `let f = (n) => { emit(n) } ; f("hi")`, map[string]lang.NativeProcedure{
		"emit": emitNative,
	})
	require.Equal(t, []string{"hi"}, textMessages(outputs))
}

// A parameter past the last supplied argument binds Undefined, which
// stringifies to the empty string at the nested call site.
func TestClosureMissingArgumentBindsUndefined(t *testing.T) {
	_, outputs := testProgram(t, `let f = (a, b) => { emit(a, b) } ; f("only")`, map[string]lang.NativeProcedure{
		"emit": emitNative,
	})
	require.Equal(t, []string{"only", ""}, textMessages(outputs))
}

// A native's error exit is forwarded on stdout like any other message, so
// downstream stages and listeners observe failures uniformly.
func TestNativeErrorSurfacesAsExitMessage(t *testing.T) {
	_, outputs := testProgram(t, `boom`, map[string]lang.NativeProcedure{
		"boom": func(context.Context, lang.ReactorHandle, []string, <-chan lang.ProgramOutput, chan<- lang.ProgramOutput) lang.ProgramOutput {
			return lang.ErrorExit("it broke")
		},
	})
	require.NotEmpty(t, outputs)
	last := outputs[len(outputs)-1]
	require.Equal(t, lang.OutputExit, last.Kind)
	require.Equal(t, lang.ExitError, last.Status)
	require.Equal(t, "it broke", last.Message)
}

// Calling a plain value is a runtime error reported as an error exit, not a
// panic.
func TestCallingNonCallableValueErrors(t *testing.T) {
	_, outputs := testProgram(t, `let x = one ; x`, map[string]lang.NativeProcedure{
		"one": func(_ context.Context, _ lang.ReactorHandle, _ []string, _ <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
			stdout <- lang.JSONOutput(1.0)
			return lang.SuccessExit()
		},
	})
	require.NotEmpty(t, outputs)
	last := outputs[len(outputs)-1]
	require.Equal(t, lang.OutputExit, last.Kind)
	require.Equal(t, lang.ExitError, last.Status)
}
