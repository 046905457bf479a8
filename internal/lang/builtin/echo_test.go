package builtin

import (
	"context"
	"testing"

	"candlereactor/internal/lang"

	"github.com/stretchr/testify/require"
)

func drainOutputs(fn func(stdout chan<- lang.ProgramOutput) lang.ProgramOutput) (lang.ProgramOutput, []lang.ProgramOutput) {
	ch := make(chan lang.ProgramOutput, 64)
	exit := fn(ch)
	close(ch)
	var out []lang.ProgramOutput
	for msg := range ch {
		out = append(out, msg)
	}
	return exit, out
}

func TestEchoEmitsEachArgumentAsText(t *testing.T) {
	exit, msgs := drainOutputs(func(stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
		return Echo(context.Background(), newFakeReactor(), []string{"hello", "world"}, nil, stdout)
	})
	require.Equal(t, lang.ExitSuccess, exit.Status)
	require.Len(t, msgs, 2)
	require.Equal(t, "hello", msgs[0].Message)
	require.Equal(t, "world", msgs[1].Message)
}

func TestEchoRequiresAtLeastOneArgument(t *testing.T) {
	exit, msgs := drainOutputs(func(stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
		return Echo(context.Background(), newFakeReactor(), nil, nil, stdout)
	})
	require.Equal(t, lang.ExitError, exit.Status)
	require.Empty(t, msgs)
}
