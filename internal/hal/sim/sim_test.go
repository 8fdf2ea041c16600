// internal/hal/sim/sim_test.go
package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/can-daq-node/internal/hal"
)

func TestPCNT_SaturatesAtHighLimit(t *testing.T) {
	p := NewPCNT()
	require.NoError(t, p.SetHighLimit(3))
	require.NoError(t, p.SetChannelMode(0, hal.EdgeIncrement, hal.EdgeHold))
	require.NoError(t, p.Resume())

	for i := 0; i < 10; i++ {
		p.Edge(0, true, 100)
		p.Edge(0, false, 100)
	}

	n, err := p.Count()
	require.NoError(t, err)
	require.Equal(t, uint16(3), n)
	require.Equal(t, uint64(8), p.LimitEvents())

	require.NoError(t, p.Clear())
	n, _ = p.Count()
	require.Zero(t, n)
}

func TestPCNT_HoldChannelIgnoresEdges(t *testing.T) {
	p := NewPCNT()
	require.NoError(t, p.SetChannelMode(0, hal.EdgeIncrement, hal.EdgeHold))
	require.NoError(t, p.SetChannelMode(1, hal.EdgeHold, hal.EdgeHold))
	require.NoError(t, p.Resume())

	p.Edge(1, true, 100)
	p.Edge(1, false, 100)
	p.Edge(0, false, 100)

	n, _ := p.Count()
	require.Zero(t, n)
}

func TestPCNT_FilterRejectsGlitches(t *testing.T) {
	p := NewPCNT()
	require.NoError(t, p.SetFilter(50))
	require.NoError(t, p.SetChannelMode(0, hal.EdgeIncrement, hal.EdgeHold))
	require.NoError(t, p.Resume())

	p.Edge(0, true, 10)
	p.Edge(0, true, 60)

	n, _ := p.Count()
	require.Equal(t, uint16(1), n)
	require.Equal(t, uint64(1), p.Filtered())
}

func TestPCNT_RejectsOversizedFilter(t *testing.T) {
	p := NewPCNT()
	require.Error(t, p.SetFilter(PCNTFilterMax+1))
	require.NoError(t, p.SetFilter(PCNTFilterMax))
}

func TestPCNT_PausedUnitDoesNotCount(t *testing.T) {
	p := NewPCNT()
	require.NoError(t, p.SetChannelMode(0, hal.EdgeIncrement, hal.EdgeHold))
	p.Edge(0, true, 100)

	n, _ := p.Count()
	require.Zero(t, n)
}

func TestSPIConverter_ShiftsHighByteFirst(t *testing.T) {
	cs := NewPin(true)
	c := NewSPIConverter(cs)
	c.SetCode(0xABCD)
	ctx := context.Background()

	_, err := c.Shift(ctx)
	require.ErrorIs(t, err, ErrNotSelected)

	require.NoError(t, cs.Set(false))
	hi, err := c.Shift(ctx)
	require.NoError(t, err)
	lo, err := c.Shift(ctx)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), hi)
	require.Equal(t, byte(0xCD), lo)

	// releasing chip select rewinds the transaction
	require.NoError(t, cs.Set(true))
	require.NoError(t, cs.Set(false))
	hi, _ = c.Shift(ctx)
	require.Equal(t, byte(0xAB), hi)
	require.Equal(t, 3, cs.Toggles())
}

func TestI2C_NoDevice(t *testing.T) {
	b := NewI2C()
	_, err := b.Transact(context.Background(), 0x76, []byte{0xF7}, 3)
	require.Error(t, err)

	b.Attach(0x76, FixedResponse([]byte{1, 2, 3}))
	resp, err := b.Transact(context.Background(), 0x76, []byte{0xF7}, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, resp)
}

func TestADC_ClipsToResolution(t *testing.T) {
	a := NewADC(12)
	a.Set(3, 0xFFFF)
	code, err := a.ReadOneShot(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, uint16(4095), code)

	_, err = a.ReadOneShot(context.Background(), 4)
	require.Error(t, err)
}

func TestTimer_ReturnsImmediatelyWhenBoundaryPassed(t *testing.T) {
	tm := NewTimer()
	require.NoError(t, tm.Start(5*time.Millisecond))

	time.Sleep(12 * time.Millisecond)

	begin := time.Now()
	missed, err := tm.Wait(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, missed, uint64(2))
	require.Less(t, time.Since(begin), 5*time.Millisecond)
}

func TestTimer_BlocksUntilNextBoundary(t *testing.T) {
	tm := NewTimer()
	require.NoError(t, tm.Start(20*time.Millisecond))

	begin := time.Now()
	missed, err := tm.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), missed)
	require.GreaterOrEqual(t, time.Since(begin), 15*time.Millisecond)
}

func TestTimer_WaitBeforeStart(t *testing.T) {
	_, err := NewTimer().Wait(context.Background())
	require.Error(t, err)
}
