package inventory

import (
	"context"
	"time"

	"codeberg.org/mutker/thermald/internal/sysfs"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
)

// Repository stores the hardware inventory found at startup. Only the
// latest snapshot is kept.
type Repository interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Snapshot is the discovered hardware together with the device
// configuration it was matched against.
type Snapshot struct {
	TakenAt        time.Time
	ConfigPath     string
	Zones          []sysfs.Zone
	CoolingDevices []sysfs.CoolingDevice
	Devices        []Device
}

// Device is a declared device of the configuration document.
type Device struct {
	Slot      string
	Name      string
	Type      string
	Index     int
	Stub      bool
	Threshold float64
	Shutdown  float64
	VRMin     float64
}

// NewSnapshot builds a snapshot from a scan and a configuration store.
func NewSnapshot(inv *sysfs.Inventory, store *thermalconfig.Store, configPath string) *Snapshot {
	s := &Snapshot{
		TakenAt:    time.Now().UTC(),
		ConfigPath: configPath,
	}

	if inv != nil {
		s.Zones = inv.Zones
		s.CoolingDevices = inv.CoolingDevices
	}

	for slot := thermalconfig.Slot(0); int(slot) < thermalconfig.SlotCount; slot++ {
		d := store.Device(slot)
		if !d.Declared {
			continue
		}
		s.Devices = append(s.Devices, Device{
			Slot:      slot.String(),
			Name:      d.Name,
			Type:      d.Type,
			Index:     d.Index,
			Stub:      d.Stub,
			Threshold: d.Threshold,
			Shutdown:  d.Shutdown,
			VRMin:     d.ThresholdVRMin,
		})
	}

	return s
}

// SameHardware reports whether two snapshots found the same zones, trips
// and cooling devices.
func (s *Snapshot) SameHardware(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Zones) != len(other.Zones) || len(s.CoolingDevices) != len(other.CoolingDevices) {
		return false
	}

	for i, z := range s.Zones {
		o := other.Zones[i]
		if z.Index != o.Index || z.Type != o.Type || len(z.Trips) != len(o.Trips) {
			return false
		}
		for j := range z.Trips {
			if z.Trips[j] != o.Trips[j] {
				return false
			}
		}
	}

	for i, d := range s.CoolingDevices {
		if d != other.CoolingDevices[i] {
			return false
		}
	}

	return true
}
