// internal/hal/linux/sysfs_test.go
package linux

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/can-daq-node/internal/hal"
)

// writeTree creates files under dir from a path -> content map.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func attr(t *testing.T, dir, name string) string {
	t.Helper()
	s, err := readAttr(dir, name)
	require.NoError(t, err)
	return s
}

func TestIIOADC(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"name":            "ads1015\n",
		"in_voltage0_raw": "1234\n",
		"in_voltage1_raw": "70000\n",
	})

	adc, err := NewIIOADC(dir)
	require.NoError(t, err)

	v, err := adc.ReadOneShot(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, uint16(1234), v)

	_, err = adc.ReadOneShot(context.Background(), 1)
	require.Error(t, err)
	_, err = adc.ReadOneShot(context.Background(), 2)
	require.Error(t, err)

	_, err = NewIIOADC(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestCounter(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"count0/count":           "17\n",
		"count0/ceiling":         "0\n",
		"count0/enable":          "0\n",
		"count0/function":        "\n",
		"count0/synapse0/action": "none\n",
		"count0/synapse1/action": "none\n",
	})

	c, err := NewCounter(dir)
	require.NoError(t, err)
	cd := filepath.Join(dir, "count0")

	require.NoError(t, c.SetHighLimit(255))
	require.Equal(t, "255", attr(t, cd, "ceiling"))

	require.NoError(t, c.SetChannelMode(0, hal.EdgeIncrement, hal.EdgeHold))
	require.Equal(t, "rising edge", attr(t, cd, "synapse0/action"))
	require.Equal(t, "increase", attr(t, cd, "function"))

	require.NoError(t, c.SetChannelMode(1, hal.EdgeHold, hal.EdgeHold))
	require.Equal(t, "none", attr(t, cd, "synapse1/action"))

	require.Error(t, c.SetChannelMode(0, hal.EdgeDecrement, hal.EdgeHold))

	require.NoError(t, c.SetFilter(800))
	require.Error(t, c.SetFilter(c.FilterMax()+1))

	require.NoError(t, c.Resume())
	require.Equal(t, "1", attr(t, cd, "enable"))

	n, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, uint16(17), n)

	require.NoError(t, c.Clear())
	n, err = c.Count()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestGPIOPin(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"export":          "",
		"gpio8/direction": "in\n",
		"gpio8/value":     "0\n",
	})
	prev := SysfsGPIORoot
	SysfsGPIORoot = root
	defer func() { SysfsGPIORoot = prev }()

	p, err := OpenGPIOPin(8, true)
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, "high", attr(t, filepath.Join(root, "gpio8"), "direction"))

	require.NoError(t, p.Set(true))
	require.Equal(t, "1", attr(t, filepath.Join(root, "gpio8"), "value"))
	require.NoError(t, p.Set(false))
	require.Equal(t, "0", attr(t, filepath.Join(root, "gpio8"), "value"))
}
