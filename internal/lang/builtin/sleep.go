package builtin

import (
	"context"
	"strconv"
	"time"

	"candlereactor/internal/lang"
)

// Sleep implements `sleep <seconds>`: suspends for the given duration (a
// float, so fractional seconds are allowed), then exits successfully. A
// cancelled context interrupts the wait early and exits in error.
func Sleep(ctx context.Context, _ lang.ReactorHandle, args []string, _ <-chan lang.ProgramOutput, _ chan<- lang.ProgramOutput) lang.ProgramOutput {
	if len(args) == 0 {
		return lang.ErrorExit("sleep: duration in seconds is required")
	}
	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return lang.ErrorExit("sleep: invalid duration " + args[0])
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return lang.SuccessExit()
	case <-ctx.Done():
		return lang.ErrorExit(ctx.Err().Error())
	}
}
