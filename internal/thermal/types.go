package thermal

import (
	"math"
	"strings"
)

// Severity is a throttling severity level, ordered from NONE to SHUTDOWN.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLight
	SeverityModerate
	SeveritySevere
	SeverityCritical
	SeverityEmergency
	SeverityShutdown

	SeverityCount = int(SeverityShutdown) + 1
)

var severityNames = [SeverityCount]string{
	"NONE", "LIGHT", "MODERATE", "SEVERE", "CRITICAL", "EMERGENCY", "SHUTDOWN",
}

// Kernel trip point types, in severity order.
var tripVocabulary = [SeverityCount]string{
	"none", "active0", "active1", "passive", "critical", "emergency", "shutdown",
}

func (s Severity) String() string {
	if s < 0 || int(s) >= SeverityCount {
		return "UNKNOWN"
	}

	return severityNames[s]
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SeverityForTrip classifies a kernel trip point type.
func SeverityForTrip(tripType string) (Severity, bool) {
	for i, v := range tripVocabulary {
		if v == tripType {
			return Severity(i), true
		}
	}

	return SeverityNone, false
}

// TemperatureType identifies the kind of a temperature sensor.
type TemperatureType int

const (
	TemperatureUnknown TemperatureType = iota - 1
	TemperatureCPU
	TemperatureGPU
	TemperatureBattery
	TemperatureSkin
)

func (t TemperatureType) String() string {
	switch t {
	case TemperatureCPU:
		return "CPU"
	case TemperatureGPU:
		return "GPU"
	case TemperatureBattery:
		return "BATTERY"
	case TemperatureSkin:
		return "SKIN"
	default:
		return "UNKNOWN"
	}
}

func (t TemperatureType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTemperatureType is the inverse of TemperatureType.String.
func ParseTemperatureType(s string) (TemperatureType, bool) {
	for _, t := range []TemperatureType{TemperatureCPU, TemperatureGPU, TemperatureBattery, TemperatureSkin} {
		if strings.EqualFold(s, t.String()) {
			return t, true
		}
	}

	return TemperatureUnknown, false
}

// CoolingType identifies the kind of a cooling device.
type CoolingType int

const (
	CoolingFan CoolingType = iota
	CoolingBattery
	CoolingCPU
	CoolingGPU
)

func (t CoolingType) String() string {
	switch t {
	case CoolingFan:
		return "FAN"
	case CoolingBattery:
		return "BATTERY"
	case CoolingCPU:
		return "CPU"
	case CoolingGPU:
		return "GPU"
	default:
		return "UNKNOWN"
	}
}

func (t CoolingType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseCoolingType is the inverse of CoolingType.String.
func ParseCoolingType(s string) (CoolingType, bool) {
	for _, t := range []CoolingType{CoolingFan, CoolingBattery, CoolingCPU, CoolingGPU} {
		if strings.EqualFold(s, t.String()) {
			return t, true
		}
	}

	return 0, false
}

// LegacyCoolingType is the cooling kind reported by the legacy interface.
type LegacyCoolingType int

const (
	LegacyCoolingFanRPM LegacyCoolingType = iota
)

func (t LegacyCoolingType) String() string {
	if t == LegacyCoolingFanRPM {
		return "FAN_RPM"
	}

	return "UNKNOWN"
}

func (t LegacyCoolingType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Records returned by the query interface. Unset thresholds are NaN.
type (
	LegacyTemperature struct {
		Type       TemperatureType `yaml:"type"`
		Name       string          `yaml:"name"`
		Current    float64         `yaml:"current"`
		Throttling float64         `yaml:"throttling"`
		Shutdown   float64         `yaml:"shutdown"`
		VR         float64         `yaml:"vr_throttling"`
	}

	Temperature struct {
		Type     TemperatureType `yaml:"type"`
		Name     string          `yaml:"name"`
		Value    float64         `yaml:"value"`
		Severity Severity        `yaml:"throttling_status"`
	}

	ThresholdRow struct {
		Type TemperatureType        `yaml:"type"`
		Name string                 `yaml:"name"`
		Hot  [SeverityCount]float64 `yaml:"hot"`
		Cold [SeverityCount]float64 `yaml:"cold"`
		VR   float64                `yaml:"vr_throttling"`
	}

	LegacyCoolingDevice struct {
		Type    LegacyCoolingType `yaml:"type"`
		Name    string            `yaml:"name"`
		Current float64           `yaml:"current"`
	}

	CoolingDevice struct {
		Type  CoolingType `yaml:"type"`
		Name  string      `yaml:"name"`
		Value int64       `yaml:"value"`
	}

	CPUUsage struct {
		Name   string `yaml:"name"`
		Active uint64 `yaml:"active"`
		Total  uint64 `yaml:"total"`
		Online bool   `yaml:"online"`
	}
)

// newThresholdRow returns a row with every threshold unset.
func newThresholdRow(t TemperatureType, name string) ThresholdRow {
	row := ThresholdRow{Type: t, Name: name, VR: math.NaN()}
	for i := range row.Hot {
		row.Hot[i] = math.NaN()
		row.Cold[i] = math.NaN()
	}

	return row
}

// Severity returns the highest severity whose hot threshold is set and
// reached by value.
func (r ThresholdRow) Severity(value float64) Severity {
	for s := SeverityCount - 1; s > int(SeverityNone); s-- {
		if !math.IsNaN(r.Hot[s]) && value >= r.Hot[s] {
			return Severity(s)
		}
	}

	return SeverityNone
}
