package thermal

import (
	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/sysfs"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
)

// TripReader reads the temperature of a zone's trip point in Celsius.
type TripReader interface {
	TripTemperature(zone, trip int) (float64, error)
}

// ThresholdTable holds one severity-indexed row per logical sensor, in the
// order the rows were first created. It is read-only once resolved.
type ThresholdTable struct {
	rows  []ThresholdRow
	index map[string]int
}

func newThresholdTable() *ThresholdTable {
	return &ThresholdTable{index: make(map[string]int)}
}

// row returns the row of a sensor, creating it on first use.
func (t *ThresholdTable) row(e SensorEntry) *ThresholdRow {
	i, ok := t.index[e.Name]
	if !ok {
		i = len(t.rows)
		t.rows = append(t.rows, newThresholdRow(e.Type, e.Name))
		t.index[e.Name] = i
	}

	return &t.rows[i]
}

// Rows returns a copy of every row.
func (t *ThresholdTable) Rows() []ThresholdRow {
	out := make([]ThresholdRow, len(t.rows))
	copy(out, t.rows)

	return out
}

// Row returns a copy of the row of the named sensor.
func (t *ThresholdTable) Row(name string) (ThresholdRow, bool) {
	i, ok := t.index[name]
	if !ok {
		return ThresholdRow{}, false
	}

	return t.rows[i], true
}

// Len returns the number of rows.
func (t *ThresholdTable) Len() int {
	return len(t.rows)
}

// Resolve builds the threshold table from the scanned zones. Zones are
// visited in enumeration order, so when several zones feed the same sensor
// the last one wins for each severity it reports. A trip override declared
// for the sensor's device replaces the kernel classification of the trip
// with the same index. Unknown trip types are logged and skipped.
func Resolve(zones []sysfs.Zone, catalog Catalog, trips TripReader, store *thermalconfig.Store, log logger.Logger) (*ThresholdTable, error) {
	errFactory := errors.New()
	table := newThresholdTable()

	for _, z := range zones {
		for _, entry := range catalog.Match(z.Type) {
			row := table.row(entry)
			dev := store.Device(entry.Slot)

			for j, kernelType := range z.Trips {
				tripType := kernelType
				if override, ok := dev.TripOverride(j); ok {
					tripType = override.Type
				}

				sev, ok := SeverityForTrip(tripType)
				if !ok {
					log.Warn().
						Int("zone", z.Index).
						Int("trip", j).
						Str("trip_type", tripType).
						Msg("Unknown trip type")
					continue
				}

				value, err := trips.TripTemperature(z.Index, j)
				if err != nil {
					return nil, errFactory.Wrap(ErrResolve, err)
				}
				row.Hot[sev] = value
			}

			if dev.Declared && dev.HasThrottling {
				row.VR = dev.ThresholdVRMin
			}

			log.Debug().
				Str("sensor", entry.Name).
				Int("zone", z.Index).
				Msg("Resolved thresholds")
		}
	}

	return table, nil
}
