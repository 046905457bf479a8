package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func registerTestEcho(ctx *AstContext) {
	_, _ = ctx.ScopeSet(ScopeID(1), "echo", NativeProcedureValue(
		func(_ context.Context, _ ReactorHandle, args []string, _ <-chan ProgramOutput, stdout chan<- ProgramOutput) ProgramOutput {
			for _, a := range args {
				stdout <- TextOutput(a)
			}
			return SuccessExit()
		}))
}

func TestAggregateResolvesCallArgumentIdent(t *testing.T) {
	root, err := Parse(`let x = echo("world") ; echo(x)`)
	require.NoError(t, err)

	actx, err := NewAstContext(root, registerTestEcho)
	require.NoError(t, err)

	secondCall := root.Right
	args := secondCall.Left.Arguments()
	require.Len(t, args, 1)
	require.NotNil(t, args[0].Meta.ReferenceTo, "bare identifier call argument must resolve to an enclosing scope")

	_ = actx
}

func TestAggregateFailsOnUnboundReference(t *testing.T) {
	root, err := Parse(`echo(y)`)
	require.NoError(t, err)

	_, err = NewAstContext(root, registerTestEcho)
	require.Error(t, err)
}

func TestAggregateResolvesClosureParameterIndependently(t *testing.T) {
	root, err := Parse(`let f = (n) => { echo(n) }`)
	require.NoError(t, err)

	_, err = NewAstContext(root, registerTestEcho)
	require.NoError(t, err)
}

func TestScopeSetReusesExistingReferenceForSameLabel(t *testing.T) {
	root, err := Parse(`echo("a")`)
	require.NoError(t, err)
	actx, err := NewAstContext(root, registerTestEcho)
	require.NoError(t, err)

	ref1, err := actx.ScopeSet(ScopeID(1), "x", NumberValue(1))
	require.NoError(t, err)
	ref2, err := actx.ScopeSet(ScopeID(1), "x", NumberValue(2))
	require.NoError(t, err)
	require.Equal(t, ref1, ref2)

	v, ok := actx.ScopeGet(ScopeID(1), "x")
	require.True(t, ok)
	require.Equal(t, ValueNumber, v.Kind)
	require.Equal(t, 2.0, v.Number)
}
