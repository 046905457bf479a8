package builtin

import (
	"context"
	"testing"
	"time"

	"candlereactor/internal/lang"

	"github.com/stretchr/testify/require"
)

func TestSleepReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	exit := Sleep(context.Background(), newFakeReactor(), []string{"0.01"}, nil, nil)
	require.Equal(t, lang.ExitSuccess, exit.Status)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleepCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exit := Sleep(ctx, newFakeReactor(), []string{"10"}, nil, nil)
	require.Equal(t, lang.ExitError, exit.Status)
}

func TestSleepRejectsInvalidDuration(t *testing.T) {
	exit := Sleep(context.Background(), newFakeReactor(), []string{"not-a-number"}, nil, nil)
	require.Equal(t, lang.ExitError, exit.Status)
}
