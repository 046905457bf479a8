package builtin

import (
	"context"

	"candlereactor/internal/lang"
)

// Echo implements `echo <message...>`: emits each argument as its own Text
// message, in order, then exits successfully.
func Echo(_ context.Context, _ lang.ReactorHandle, args []string, _ <-chan lang.ProgramOutput, stdout chan<- lang.ProgramOutput) lang.ProgramOutput {
	if len(args) == 0 {
		return lang.ErrorExit("echo: at least one message is required")
	}
	for _, message := range args {
		send(stdout, lang.TextOutput(message))
	}
	return lang.SuccessExit()
}
