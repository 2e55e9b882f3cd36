package thermal

import "codeberg.org/mutker/thermald/internal/thermalconfig"

// ZoneTypeNone marks a catalog entry with no kernel driver behind it.
const ZoneTypeNone = "none"

// SensorEntry maps a logical sensor to the kernel thermal zone type that
// provides it.
type SensorEntry struct {
	Slot     thermalconfig.Slot
	Name     string
	Type     TemperatureType
	ZoneType string
}

// Catalog lists the managed sensors in slot order.
type Catalog []SensorEntry

// DefaultCatalog returns the sensors managed without any configuration.
func DefaultCatalog() Catalog {
	return Catalog{
		{Slot: thermalconfig.SlotCPU0, Name: "CPU0", Type: TemperatureCPU, ZoneType: "cpu0-thermal"},
		{Slot: thermalconfig.SlotCPU1, Name: "CPU1", Type: TemperatureCPU, ZoneType: "cpu1-thermal"},
		{Slot: thermalconfig.SlotGPU, Name: "GPU", Type: TemperatureGPU, ZoneType: "cpu0-thermal"},
		{Slot: thermalconfig.SlotBattery, Name: "BATTERY", Type: TemperatureBattery, ZoneType: "dummy-battery"},
		{Slot: thermalconfig.SlotSkin, Name: "SKIN", Type: TemperatureSkin, ZoneType: ZoneTypeNone},
	}
}

// WithConfig returns a copy of c where every declared device replaces the
// zone type of its slot with its configured kernel type.
func (c Catalog) WithConfig(store *thermalconfig.Store) Catalog {
	out := make(Catalog, len(c))
	copy(out, c)

	for i := range out {
		if d := store.Device(out[i].Slot); d.Declared && d.Type != "" {
			out[i].ZoneType = d.Type
		}
	}

	return out
}

// Match returns the entries provided by a kernel zone type.
func (c Catalog) Match(zoneType string) []SensorEntry {
	var out []SensorEntry
	for _, e := range c {
		if e.ZoneType != ZoneTypeNone && e.ZoneType == zoneType {
			out = append(out, e)
		}
	}

	return out
}

// CoolingEntry maps a logical cooling device to its kernel device type.
type CoolingEntry struct {
	Name       string
	Type       CoolingType
	DeviceType string
}

// LegacyCoolingEntry is the single cooling device of the legacy interface.
type LegacyCoolingEntry struct {
	Name       string
	Type       LegacyCoolingType
	DeviceType string
}

// DefaultCoolingCatalog returns the managed cooling devices.
func DefaultCoolingCatalog() []CoolingEntry {
	return []CoolingEntry{
		{Name: "FAN", Type: CoolingFan, DeviceType: ZoneTypeNone},
		{Name: "CPU", Type: CoolingCPU, DeviceType: "thermal-cpufreq-0"},
	}
}

// DefaultLegacyCooling returns the cooling device of the legacy interface.
func DefaultLegacyCooling() LegacyCoolingEntry {
	return LegacyCoolingEntry{Name: "FAN", Type: LegacyCoolingFanRPM, DeviceType: "thermal-cpufreq-0"}
}
