package thermalconfig

import (
	"strconv"
	"strings"
)

const (
	// TripMax is the number of trip overrides a device may declare.
	TripMax = 3

	// CPUSlots is the number of contiguous CPU device slots.
	CPUSlots = 2

	// SlotCount covers the CPU slots plus GPU, BATTERY and SKIN.
	SlotCount = CPUSlots + 3
)

// Slot is the logical position of a device in the Store.
type Slot int

const (
	SlotCPU0 Slot = iota
	SlotCPU1
	SlotGPU
	SlotBattery
	SlotSkin
)

var slotNames = [SlotCount]string{"CPU0", "CPU1", "GPU", "BATTERY", "SKIN"}

func (s Slot) String() string {
	if s < 0 || int(s) >= SlotCount {
		return "UNKNOWN"
	}

	return slotNames[s]
}

// Device names recognized in the name attribute
const (
	NameCPU     = "CPU"
	NameGPU     = "GPU"
	NameBattery = "BATTERY"
	NameSkin    = "SKIN"
)

// Trip is a named override of a kernel trip point classification.
type Trip struct {
	Name  string
	Type  string
	Index int
	Valid bool
}

// DeviceConfig is the configuration of one logical device. The zero
// value means the device was not declared.
type DeviceConfig struct {
	Name           string
	Type           string
	Index          int
	// Stub is informational. It is kept in the inventory but stand-in
	// records are governed by the service options alone.
	Stub           bool
	HasThrottling  bool
	Threshold      float64
	Shutdown       float64
	ThresholdVRMin float64
	Trips          [TripMax]Trip
	Declared       bool
}

// TripOverride returns the valid trip declared for the given kernel trip index.
func (d DeviceConfig) TripOverride(index int) (Trip, bool) {
	for _, t := range d.Trips {
		if t.Valid && t.Index == index {
			return t, true
		}
	}

	return Trip{}, false
}

// Store holds the per-slot device configuration loaded at startup.
// It is read-only once Parse returns.
type Store struct {
	devices [SlotCount]DeviceConfig
}

// NewStore returns a store with every slot undeclared.
func NewStore() *Store {
	return &Store{}
}

// Device returns the configuration of a slot.
func (s *Store) Device(slot Slot) DeviceConfig {
	if s == nil || slot < 0 || int(slot) >= SlotCount {
		return DeviceConfig{}
	}

	return s.devices[slot]
}

// Declared returns every declared device in slot order.
func (s *Store) Declared() []DeviceConfig {
	if s == nil {
		return nil
	}

	out := make([]DeviceConfig, 0, SlotCount)
	for _, d := range s.devices {
		if d.Declared {
			out = append(out, d)
		}
	}

	return out
}

// Len returns the number of declared devices.
func (s *Store) Len() int {
	return len(s.Declared())
}

// State is the mutable parser state handed to element handlers.
type State struct {
	store   *Store
	slot    Slot
	cpuSlot int
	inCPU   bool
	trips   int
}

func newState() *State {
	return &State{store: NewStore()}
}

func deviceStart(s *State, attrs Attributes) error {
	name, _ := attrs.Get(AttrName)
	kernelType, _ := attrs.Get(AttrType)
	rawIndex, _ := attrs.Get(AttrIndex)

	switch name {
	case NameGPU:
		s.slot = SlotGPU
	case NameBattery:
		s.slot = SlotBattery
	case NameSkin:
		s.slot = SlotSkin
	default:
		if s.cpuSlot >= CPUSlots {
			return &ParseError{Kind: ErrTooManyDevices, Element: "device", Value: name}
		}
		s.slot = Slot(s.cpuSlot)
		s.inCPU = true
	}

	if s.store.devices[s.slot].Declared {
		return &ParseError{Kind: ErrDuplicateDevice, Element: "device", Value: name}
	}

	index, err := parseInt("index", rawIndex)
	if err != nil {
		return err
	}

	stub := false
	if v, ok := attrs.Get(AttrStub); ok && v != "0" {
		stub = true
	}

	s.store.devices[s.slot] = DeviceConfig{
		Name:     name,
		Type:     kernelType,
		Index:    index,
		Stub:     stub,
		Declared: true,
	}

	return nil
}

func deviceEnd(s *State, _ Attributes) error {
	if s.inCPU {
		s.cpuSlot++
		s.inCPU = false
	}

	return nil
}

func throttlingStart(s *State, attrs Attributes) error {
	threshold, err := parseFloat("threshold", attrs[AttrThreshold])
	if err != nil {
		return err
	}
	shutdown, err := parseFloat("shutdown", attrs[AttrShutdown])
	if err != nil {
		return err
	}
	vrMin, err := parseFloat("threshold_vr_min", attrs[AttrThresholdVRMin])
	if err != nil {
		return err
	}

	d := &s.store.devices[s.slot]
	d.Threshold = threshold
	d.Shutdown = shutdown
	d.ThresholdVRMin = vrMin
	d.HasThrottling = true
	d.Trips = [TripMax]Trip{}

	s.trips = 0

	return nil
}

func tripStart(s *State, attrs Attributes) error {
	if s.trips >= TripMax {
		return &ParseError{Kind: ErrTooManyTrips, Element: s.slot.String()}
	}

	index, err := parseInt("trip_index", attrs[AttrTripIndex])
	if err != nil {
		return err
	}

	s.store.devices[s.slot].Trips[s.trips] = Trip{
		Name:  attrs[AttrTripName],
		Type:  attrs[AttrTripType],
		Index: index,
		Valid: true,
	}
	s.trips++

	return nil
}

func parseInt(attr, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ParseError{Kind: ErrInvalidValue, Attributes: []string{attr}, Value: raw, Err: err}
	}

	return v, nil
}

func parseFloat(attr, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ParseError{Kind: ErrInvalidValue, Attributes: []string{attr}, Value: raw, Err: err}
	}

	return v, nil
}
