package thermal

import "math"

const (
	StubThermalZoneName   = "stub thermal zone"
	StubCoolingDeviceName = "stub cooling device"
)

// Stand-in records reported when no hardware was discovered. They do not
// depend on the device configuration.

func stubLegacyTemperature() LegacyTemperature {
	return LegacyTemperature{
		Type:       TemperatureSkin,
		Name:       StubThermalZoneName,
		Current:    35.0,
		Throttling: 40.0,
		Shutdown:   55.0,
		VR:         math.NaN(),
	}
}

func stubTemperature() Temperature {
	return Temperature{
		Type:     TemperatureSkin,
		Name:     StubThermalZoneName,
		Value:    35.0,
		Severity: SeverityNone,
	}
}

func stubThreshold() ThresholdRow {
	row := newThresholdRow(TemperatureSkin, StubThermalZoneName)
	row.Hot[SeveritySevere] = 40.0
	row.Hot[SeverityCritical] = 55.0

	return row
}

func stubLegacyCoolingDevice() LegacyCoolingDevice {
	return LegacyCoolingDevice{
		Type:    LegacyCoolingFanRPM,
		Name:    StubCoolingDeviceName,
		Current: 100.0,
	}
}

func stubCoolingDevice() CoolingDevice {
	return CoolingDevice{
		Type:  CoolingFan,
		Name:  StubCoolingDeviceName,
		Value: 100,
	}
}
