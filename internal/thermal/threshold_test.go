package thermal_test

import (
	"fmt"
	"math"
	"testing"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/sysfs"
	"codeberg.org/mutker/thermald/internal/thermal"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tripTemps map[[2]int]float64

func (m tripTemps) TripTemperature(zone, trip int) (float64, error) {
	v, ok := m[[2]int{zone, trip}]
	if !ok {
		return 0, fmt.Errorf("no trip %d of zone %d", trip, zone)
	}
	return v, nil
}

func resolve(t *testing.T, zones []sysfs.Zone, trips tripTemps, store *thermalconfig.Store) *thermal.ThresholdTable {
	t.Helper()
	catalog := thermal.DefaultCatalog().WithConfig(store)
	table, err := thermal.Resolve(zones, catalog, trips, store, logger.Nop())
	require.NoError(t, err)
	return table
}

func TestResolveLastWriteWins(t *testing.T) {
	zones := []sysfs.Zone{
		{Index: 0, Type: "cpu0-thermal", Trips: []string{"passive", "critical"}},
		{Index: 1, Type: "cpu0-thermal", Trips: []string{"passive"}},
	}
	trips := tripTemps{{0, 0}: 80, {0, 1}: 100, {1, 0}: 85}

	table := resolve(t, zones, trips, thermalconfig.NewStore())

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "CPU0", rows[0].Name)
	assert.Equal(t, "GPU", rows[1].Name)

	for _, row := range rows {
		assert.InDelta(t, 85.0, row.Hot[thermal.SeveritySevere], 1e-9, row.Name)
		assert.InDelta(t, 100.0, row.Hot[thermal.SeverityCritical], 1e-9, row.Name)
		assert.True(t, math.IsNaN(row.Hot[thermal.SeverityLight]), row.Name)
		assert.True(t, math.IsNaN(row.VR), row.Name)
		for _, c := range row.Cold {
			assert.True(t, math.IsNaN(c))
		}
	}
}

func TestResolveDistinctSensorsAreOrderIndependent(t *testing.T) {
	a := sysfs.Zone{Index: 0, Type: "cpu1-thermal", Trips: []string{"passive"}}
	b := sysfs.Zone{Index: 1, Type: "dummy-battery", Trips: []string{"critical"}}
	trips := tripTemps{{0, 0}: 70, {1, 0}: 60}

	forward := resolve(t, []sysfs.Zone{a, b}, trips, thermalconfig.NewStore())
	reverse := resolve(t, []sysfs.Zone{b, a}, trips, thermalconfig.NewStore())

	for _, name := range []string{"CPU1", "BATTERY"} {
		f, ok := forward.Row(name)
		require.True(t, ok, name)
		r, ok := reverse.Row(name)
		require.True(t, ok, name)
		assert.Equal(t, fmt.Sprint(f), fmt.Sprint(r), name)
	}
}

func TestResolveSkipsUnknownTripTypes(t *testing.T) {
	zones := []sysfs.Zone{{Index: 0, Type: "dummy-battery", Trips: []string{"hot", "critical"}}}
	// The unknown trip has no readable value; it must not be read.
	trips := tripTemps{{0, 1}: 60}

	table := resolve(t, zones, trips, thermalconfig.NewStore())

	row, ok := table.Row("BATTERY")
	require.True(t, ok)
	assert.Equal(t, thermal.TemperatureBattery, row.Type)
	assert.InDelta(t, 60.0, row.Hot[thermal.SeverityCritical], 1e-9)
}

func TestResolveIgnoresUnmanagedZones(t *testing.T) {
	zones := []sysfs.Zone{{Index: 0, Type: "soc-thermal", Trips: []string{"passive"}}}

	table := resolve(t, zones, tripTemps{}, thermalconfig.NewStore())
	assert.Equal(t, 0, table.Len())
}

func TestResolveTripOverride(t *testing.T) {
	store := parseStore(t, `<thermalhal>
  <device name="CPU" type="cpu0-thermal" index="0">
    <throttling threshold="80" shutdown="100" threshold_vr_min="75.5">
      <trip trip_name="cpu-crit" trip_type="critical" trip_index="0"/>
    </throttling>
  </device>
</thermalhal>`)
	zones := []sysfs.Zone{{Index: 0, Type: "cpu0-thermal", Trips: []string{"passive"}}}

	table := resolve(t, zones, tripTemps{{0, 0}: 90}, store)

	cpu, ok := table.Row("CPU0")
	require.True(t, ok)
	assert.InDelta(t, 90.0, cpu.Hot[thermal.SeverityCritical], 1e-9)
	assert.True(t, math.IsNaN(cpu.Hot[thermal.SeveritySevere]))
	assert.InDelta(t, 75.5, cpu.VR, 1e-9)

	// The GPU shares the zone but has no device configuration.
	gpu, ok := table.Row("GPU")
	require.True(t, ok)
	assert.InDelta(t, 90.0, gpu.Hot[thermal.SeveritySevere], 1e-9)
	assert.True(t, math.IsNaN(gpu.VR))
}

func TestResolveConfiguredZoneType(t *testing.T) {
	store := parseStore(t, `<thermalhal>
  <device name="SKIN" type="skin-thermal" index="0">
    <throttling threshold="40.0" shutdown="55.0" threshold_vr_min="0"/>
  </device>
</thermalhal>`)
	zones := []sysfs.Zone{{Index: 0, Type: "skin-thermal", Trips: []string{"passive"}}}

	table := resolve(t, zones, tripTemps{{0, 0}: 42}, store)

	row, ok := table.Row("SKIN")
	require.True(t, ok)
	assert.Equal(t, thermal.TemperatureSkin, row.Type)
	assert.InDelta(t, 42.0, row.Hot[thermal.SeveritySevere], 1e-9)
	assert.InDelta(t, 0.0, row.VR, 1e-9)
}

func TestResolveReadError(t *testing.T) {
	zones := []sysfs.Zone{{Index: 0, Type: "cpu1-thermal", Trips: []string{"passive"}}}

	_, err := thermal.Resolve(zones, thermal.DefaultCatalog(), tripTemps{}, thermalconfig.NewStore(), logger.Nop())
	assert.Equal(t, thermal.ErrResolve, errors.CodeOf(err))
}

func TestThresholdRowsAreCopies(t *testing.T) {
	zones := []sysfs.Zone{{Index: 0, Type: "cpu1-thermal", Trips: []string{"passive"}}}
	table := resolve(t, zones, tripTemps{{0, 0}: 70}, thermalconfig.NewStore())

	rows := table.Rows()
	rows[0].Hot[thermal.SeveritySevere] = 1

	row, _ := table.Row("CPU1")
	assert.InDelta(t, 70.0, row.Hot[thermal.SeveritySevere], 1e-9)
}
