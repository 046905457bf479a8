// Package builtin implements the four native procedures every program
// scope starts with: ls, cat, sleep and echo. Each is a lang.NativeProcedure
// closure bound into the root scope by Register. Argument parsing is
// hand-rolled per builtin rather than pulling in a CLI flag library for
// what is, per call, at most a handful of flags.
package builtin

import (
	"fmt"

	"candlereactor/internal/lang"
)

// mainScope is the scope id NewAstContext always allocates first, and the
// scope every builtin is conventionally registered into.
const mainScope = lang.ScopeID(1)

// Register binds ls, cat, sleep and echo into ctx's main scope. Pass this
// as the registerBuiltins argument to lang.NewAstContext.
func Register(ctx *lang.AstContext) {
	bind(ctx, "ls", Ls)
	bind(ctx, "cat", Cat)
	bind(ctx, "sleep", Sleep)
	bind(ctx, "echo", Echo)
}

func bind(ctx *lang.AstContext, name string, fn lang.NativeProcedure) {
	if _, err := ctx.ScopeSet(mainScope, name, lang.NativeProcedureValue(fn)); err != nil {
		panic(fmt.Sprintf("builtin: register %s: %v", name, err))
	}
}

func send(stdout chan<- lang.ProgramOutput, out lang.ProgramOutput) {
	defer func() { recover() }()
	stdout <- out
}
