package sysfs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/sysfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNode(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func fakeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeNode(t, root, "thermal_zone0/type", "cpu0-thermal\n")
	writeNode(t, root, "thermal_zone0/temp", "45000\n")
	writeNode(t, root, "thermal_zone0/trip_point_0_type", "passive\n")
	writeNode(t, root, "thermal_zone0/trip_point_0_temp", "85000\n")
	writeNode(t, root, "thermal_zone0/trip_point_1_type", "critical\n")
	writeNode(t, root, "thermal_zone0/trip_point_1_temp", "105000\n")

	writeNode(t, root, "thermal_zone1/type", "dummy-battery extra\n")
	writeNode(t, root, "thermal_zone1/temp", "30500\n")

	writeNode(t, root, "cooling_device0/type", "thermal-cpufreq-0\n")
	writeNode(t, root, "cooling_device0/cur_state", "2\n")

	return root
}

func newEnumerator(root string) *sysfs.Enumerator {
	return sysfs.New(sysfs.Config{Root: root}, logger.Nop())
}

func TestScan(t *testing.T) {
	e := newEnumerator(fakeTree(t))

	inv, err := e.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []sysfs.Zone{
		{Index: 0, Type: "cpu0-thermal", Trips: []string{"passive", "critical"}},
		{Index: 1, Type: "dummy-battery", Trips: []string{}},
	}, inv.Zones)
	assert.Equal(t, []sysfs.CoolingDevice{{Index: 0, Type: "thermal-cpufreq-0"}}, inv.CoolingDevices)
}

func TestScanIsRepeatable(t *testing.T) {
	e := newEnumerator(fakeTree(t))

	first, err := e.Scan(context.Background())
	require.NoError(t, err)
	second, err := e.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScanStopsAtFirstGap(t *testing.T) {
	root := fakeTree(t)
	writeNode(t, root, "thermal_zone3/type", "gpu-thermal\n")
	writeNode(t, root, "cooling_device2/type", "fan\n")

	inv, err := newEnumerator(root).Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, inv.Zones, 2)
	assert.Len(t, inv.CoolingDevices, 1)
}

func TestScanRespectsBounds(t *testing.T) {
	root := fakeTree(t)
	for _, d := range []string{"thermal_zone2", "thermal_zone3"} {
		writeNode(t, root, d+"/type", "extra\n")
	}
	writeNode(t, root, "thermal_zone0/trip_point_2_type", "hot\n")
	writeNode(t, root, "thermal_zone0/trip_point_3_type", "hot\n")

	inv, err := newEnumerator(root).Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, inv.Zones, sysfs.DefaultMaxZones)
	assert.Len(t, inv.Zones[0].Trips, sysfs.DefaultMaxTrips)
}

func TestScanEmptyRoot(t *testing.T) {
	inv, err := newEnumerator(t.TempDir()).Scan(context.Background())
	require.NoError(t, err)

	assert.Empty(t, inv.Zones)
	assert.Empty(t, inv.CoolingDevices)
}

func TestScanEmptyTypeFails(t *testing.T) {
	root := fakeTree(t)
	writeNode(t, root, "cooling_device1/type", "  \n")

	inv, err := newEnumerator(root).Scan(context.Background())
	assert.Nil(t, inv)
	assert.Equal(t, sysfs.ErrIO, errors.CodeOf(err))
}

func TestScanUnreadableTypeFails(t *testing.T) {
	root := fakeTree(t)
	// A directory where a file is expected cannot be read.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "thermal_zone2", "type"), 0o755))

	_, err := newEnumerator(root).Scan(context.Background())
	assert.Equal(t, sysfs.ErrIO, errors.CodeOf(err))
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEnumerator(fakeTree(t)).Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadValues(t *testing.T) {
	e := newEnumerator(fakeTree(t))

	temp, err := e.ZoneTemperature(0)
	require.NoError(t, err)
	assert.InDelta(t, 45.0, temp, 1e-9)

	temp, err = e.ZoneTemperature(1)
	require.NoError(t, err)
	assert.InDelta(t, 30.5, temp, 1e-9)

	trip, err := e.TripTemperature(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 105.0, trip, 1e-9)

	state, err := e.CoolingState(0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, state, 1e-9)
}

func TestReadValuesMultiplier(t *testing.T) {
	e := sysfs.New(sysfs.Config{Root: fakeTree(t), Multiplier: 0.0001}, logger.Nop())

	temp, err := e.ZoneTemperature(0)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, temp, 1e-9)
}

func TestReadValueErrors(t *testing.T) {
	root := fakeTree(t)
	writeNode(t, root, "thermal_zone1/trip_point_0_temp", "warm\n")
	e := newEnumerator(root)

	_, err := e.ZoneTemperature(2)
	assert.Equal(t, sysfs.ErrIO, errors.CodeOf(err))

	_, err = e.TripTemperature(1, 0)
	assert.Equal(t, sysfs.ErrInvalidValue, errors.CodeOf(err))

	_, err = e.TripTemperature(0, 7)
	assert.Equal(t, sysfs.ErrOutOfRange, errors.CodeOf(err))
}

func TestNewDefaults(t *testing.T) {
	cfg := sysfs.New(sysfs.Config{}, logger.Nop()).Config()
	assert.Equal(t, sysfs.DefaultConfig(), cfg)
}
