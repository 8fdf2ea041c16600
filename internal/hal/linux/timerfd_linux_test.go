//go:build linux

// internal/hal/linux/timerfd_linux_test.go
package linux

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerFDPeriodic(t *testing.T) {
	tm, err := NewTimerFD()
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Start(5*time.Millisecond))

	start := time.Now()
	n, err := tm.Wait(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, uint64(1))
	require.GreaterOrEqual(t, time.Since(start), 4*time.Millisecond)

	// Expirations queue while nobody waits.
	time.Sleep(22 * time.Millisecond)
	n, err = tm.Wait(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, uint64(3))
}

func TestTimerFDWaitHonoursContext(t *testing.T) {
	tm, err := NewTimerFD()
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Start(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tm.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Error(t, tm.Start(0))
	require.NoError(t, tm.Stop())
}
