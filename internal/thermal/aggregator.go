package thermal

import (
	"math"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/sysfs"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
)

// ValueReader reads live sensor and cooling device values.
type ValueReader interface {
	ZoneTemperature(zone int) (float64, error)
	CoolingState(device int) (float64, error)
}

// aggregator answers queries from the startup tables and live values.
// Every query re-reads the hardware; nothing is cached between calls.
type aggregator struct {
	inventory      *sysfs.Inventory
	catalog        Catalog
	coolingCatalog []CoolingEntry
	legacyCooling  LegacyCoolingEntry
	table          *ThresholdTable
	store          *thermalconfig.Store
	reader         ValueReader
	stubZones      bool
	stubCooling    bool
	logger         logger.Logger
}

func anyTemperature(TemperatureType) bool { return true }

func temperatureOfType(t TemperatureType) func(TemperatureType) bool {
	return func(v TemperatureType) bool { return v == t }
}

// zoneReading is the current value of one zone and the sensors it feeds.
type zoneReading struct {
	value   float64
	sensors []SensorEntry
}

// readZones reads every zone feeding at least one sensor accepted by match.
func (a *aggregator) readZones(match func(TemperatureType) bool) ([]zoneReading, error) {
	errFactory := errors.New()
	var out []zoneReading

	for _, z := range a.inventory.Zones {
		var sensors []SensorEntry
		for _, e := range a.catalog.Match(z.Type) {
			if match(e.Type) {
				sensors = append(sensors, e)
			}
		}
		if len(sensors) == 0 {
			continue
		}

		value, err := a.reader.ZoneTemperature(z.Index)
		if err != nil {
			return nil, errFactory.Wrap(ErrReadTemperature, err)
		}
		out = append(out, zoneReading{value: value, sensors: sensors})
	}

	return out, nil
}

func (a *aggregator) rowFor(e SensorEntry) ThresholdRow {
	if row, ok := a.table.Row(e.Name); ok {
		return row
	}

	return newThresholdRow(e.Type, e.Name)
}

func (a *aggregator) legacyTemperatures(match func(TemperatureType) bool) ([]LegacyTemperature, error) {
	if len(a.inventory.Zones) == 0 {
		if stub := stubLegacyTemperature(); a.stubZones && match(stub.Type) {
			return []LegacyTemperature{stub}, nil
		}
		return nil, nil
	}

	readings, err := a.readZones(match)
	if err != nil {
		return nil, err
	}

	var out []LegacyTemperature
	for _, r := range readings {
		for _, e := range r.sensors {
			row := a.rowFor(e)
			dev := a.store.Device(e.Slot)

			throttling := row.Hot[SeveritySevere]
			shutdown := row.Hot[SeverityCritical]
			if dev.Declared && dev.HasThrottling {
				if math.IsNaN(throttling) {
					throttling = dev.Threshold
				}
				if math.IsNaN(shutdown) {
					shutdown = dev.Shutdown
				}
			}

			out = append(out, LegacyTemperature{
				Type:       e.Type,
				Name:       e.Name,
				Current:    r.value,
				Throttling: throttling,
				Shutdown:   shutdown,
				VR:         row.VR,
			})
		}
	}

	return out, nil
}

func (a *aggregator) temperatures(match func(TemperatureType) bool) ([]Temperature, error) {
	if len(a.inventory.Zones) == 0 {
		if stub := stubTemperature(); a.stubZones && match(stub.Type) {
			return []Temperature{stub}, nil
		}
		return nil, nil
	}

	readings, err := a.readZones(match)
	if err != nil {
		return nil, err
	}

	var out []Temperature
	for _, r := range readings {
		for _, e := range r.sensors {
			out = append(out, Temperature{
				Type:     e.Type,
				Name:     e.Name,
				Value:    r.value,
				Severity: a.rowFor(e).Severity(r.value),
			})
		}
	}

	return out, nil
}

func (a *aggregator) thresholds(match func(TemperatureType) bool) []ThresholdRow {
	if len(a.inventory.Zones) == 0 {
		if stub := stubThreshold(); a.stubZones && match(stub.Type) {
			return []ThresholdRow{stub}
		}
		return nil
	}

	var out []ThresholdRow
	for _, row := range a.table.Rows() {
		if match(row.Type) {
			out = append(out, row)
		}
	}

	return out
}

// legacyCoolingDevices reports the first device of the legacy cooling type.
func (a *aggregator) legacyCoolingDevices(match func(LegacyCoolingType) bool) ([]LegacyCoolingDevice, error) {
	if len(a.inventory.CoolingDevices) == 0 {
		if stub := stubLegacyCoolingDevice(); a.stubCooling && match(stub.Type) {
			return []LegacyCoolingDevice{stub}, nil
		}
		return nil, nil
	}

	entry := a.legacyCooling
	if !match(entry.Type) {
		return nil, nil
	}

	for _, d := range a.inventory.CoolingDevices {
		if d.Type != entry.DeviceType {
			continue
		}

		state, err := a.reader.CoolingState(d.Index)
		if err != nil {
			return nil, errors.New().Wrap(ErrReadCoolingState, err)
		}

		return []LegacyCoolingDevice{{Type: entry.Type, Name: entry.Name, Current: state}}, nil
	}

	return nil, nil
}

func (a *aggregator) coolingDevices(match func(CoolingType) bool) ([]CoolingDevice, error) {
	if len(a.inventory.CoolingDevices) == 0 {
		if stub := stubCoolingDevice(); a.stubCooling && match(stub.Type) {
			return []CoolingDevice{stub}, nil
		}
		return nil, nil
	}

	var out []CoolingDevice
	for _, d := range a.inventory.CoolingDevices {
		var entries []CoolingEntry
		for _, e := range a.coolingCatalog {
			if e.DeviceType != ZoneTypeNone && e.DeviceType == d.Type && match(e.Type) {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			continue
		}

		state, err := a.reader.CoolingState(d.Index)
		if err != nil {
			return nil, errors.New().Wrap(ErrReadCoolingState, err)
		}

		for _, e := range entries {
			out = append(out, CoolingDevice{Type: e.Type, Name: e.Name, Value: int64(state)})
		}
	}

	return out, nil
}
