package thermal_test

import (
	"math"
	"testing"

	"codeberg.org/mutker/thermald/internal/thermal"
	"github.com/stretchr/testify/assert"
)

func TestSeverityForTrip(t *testing.T) {
	tests := []struct {
		trip string
		want thermal.Severity
		ok   bool
	}{
		{"none", thermal.SeverityNone, true},
		{"active0", thermal.SeverityLight, true},
		{"active1", thermal.SeverityModerate, true},
		{"passive", thermal.SeveritySevere, true},
		{"critical", thermal.SeverityCritical, true},
		{"emergency", thermal.SeverityEmergency, true},
		{"shutdown", thermal.SeverityShutdown, true},
		{"hot", thermal.SeverityNone, false},
		{"PASSIVE", thermal.SeverityNone, false},
	}

	for _, tt := range tests {
		got, ok := thermal.SeverityForTrip(tt.trip)
		assert.Equal(t, tt.ok, ok, tt.trip)
		assert.Equal(t, tt.want, got, tt.trip)
	}
}

func TestThresholdRowSeverity(t *testing.T) {
	row := thermal.ThresholdRow{VR: math.NaN()}
	for i := range row.Hot {
		row.Hot[i] = math.NaN()
	}
	row.Hot[thermal.SeveritySevere] = 40
	row.Hot[thermal.SeverityCritical] = 90

	assert.Equal(t, thermal.SeverityNone, row.Severity(39.9))
	assert.Equal(t, thermal.SeveritySevere, row.Severity(40))
	assert.Equal(t, thermal.SeveritySevere, row.Severity(89))
	assert.Equal(t, thermal.SeverityCritical, row.Severity(120))
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "SEVERE", thermal.SeveritySevere.String())
	assert.Equal(t, "SKIN", thermal.TemperatureSkin.String())
	assert.Equal(t, "FAN_RPM", thermal.LegacyCoolingFanRPM.String())

	typ, ok := thermal.ParseTemperatureType("battery")
	assert.True(t, ok)
	assert.Equal(t, thermal.TemperatureBattery, typ)

	_, ok = thermal.ParseTemperatureType("modem")
	assert.False(t, ok)

	ct, ok := thermal.ParseCoolingType("CPU")
	assert.True(t, ok)
	assert.Equal(t, thermal.CoolingCPU, ct)
}
