package sysfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRoot              = "/sys/class/thermal"
	DefaultMaxZones          = 3
	DefaultMaxTrips          = 3
	DefaultMaxCoolingDevices = 3

	// DefaultMultiplier converts the kernel's millidegree readings to Celsius.
	DefaultMultiplier = 0.001
)

// Config bounds the enumeration and sets the temperature scale.
type Config struct {
	Root              string
	MaxZones          int
	MaxTrips          int
	MaxCoolingDevices int
	Multiplier        float64
}

// DefaultConfig returns the configuration for a stock kernel layout.
func DefaultConfig() Config {
	return Config{
		Root:              DefaultRoot,
		MaxZones:          DefaultMaxZones,
		MaxTrips:          DefaultMaxTrips,
		MaxCoolingDevices: DefaultMaxCoolingDevices,
		Multiplier:        DefaultMultiplier,
	}
}

// Zone is a kernel thermal zone found during the scan.
type Zone struct {
	Index int      `json:"index" yaml:"index"`
	Type  string   `json:"type" yaml:"type"`
	Trips []string `json:"trips" yaml:"trips"`
}

// CoolingDevice is a kernel cooling device found during the scan.
type CoolingDevice struct {
	Index int    `json:"index" yaml:"index"`
	Type  string `json:"type" yaml:"type"`
}

// Inventory is the result of one scan. It is not modified afterwards.
type Inventory struct {
	Zones          []Zone          `json:"zones" yaml:"zones"`
	CoolingDevices []CoolingDevice `json:"cooling_devices" yaml:"cooling_devices"`
}

// Enumerator discovers and reads kernel thermal zones and cooling devices.
// Indices are assumed dense: the first missing index ends a category.
type Enumerator struct {
	cfg    Config
	logger logger.Logger
}

// New returns an Enumerator. Zero fields of cfg take their defaults.
func New(cfg Config, log logger.Logger) *Enumerator {
	def := DefaultConfig()
	if cfg.Root == "" {
		cfg.Root = def.Root
	}
	if cfg.MaxZones <= 0 {
		cfg.MaxZones = def.MaxZones
	}
	if cfg.MaxTrips <= 0 {
		cfg.MaxTrips = def.MaxTrips
	}
	if cfg.MaxCoolingDevices <= 0 {
		cfg.MaxCoolingDevices = def.MaxCoolingDevices
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}

	return &Enumerator{cfg: cfg, logger: log}
}

// Config returns the effective configuration.
func (e *Enumerator) Config() Config {
	return e.cfg
}

// Scan enumerates zones and cooling devices concurrently.
func (e *Enumerator) Scan(ctx context.Context) (*Inventory, error) {
	var mu sync.Mutex
	inv := &Inventory{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zones, err := e.scanZones(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		inv.Zones = zones
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		devices, err := e.scanCoolingDevices(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		inv.CoolingDevices = devices
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug().
		Int("zones", len(inv.Zones)).
		Int("cooling_devices", len(inv.CoolingDevices)).
		Msg("Sysfs scan complete")

	return inv, nil
}

func (e *Enumerator) scanZones(ctx context.Context) ([]Zone, error) {
	zones := make([]Zone, 0, e.cfg.MaxZones)

	for i := 0; i < e.cfg.MaxZones; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := e.zoneDir(i)
		if !exists(dir) {
			break
		}

		zoneType, err := readToken(filepath.Join(dir, "type"))
		if err != nil {
			return nil, err
		}

		trips := make([]string, 0, e.cfg.MaxTrips)
		for j := 0; j < e.cfg.MaxTrips; j++ {
			path := filepath.Join(dir, fmt.Sprintf("trip_point_%d_type", j))
			if !exists(path) {
				break
			}
			tripType, err := readToken(path)
			if err != nil {
				return nil, err
			}
			trips = append(trips, tripType)
		}

		e.logger.Debug().Int("zone", i).Str("type", zoneType).Strs("trips", trips).Msg("Found thermal zone")
		zones = append(zones, Zone{Index: i, Type: zoneType, Trips: trips})
	}

	return zones, nil
}

func (e *Enumerator) scanCoolingDevices(ctx context.Context) ([]CoolingDevice, error) {
	devices := make([]CoolingDevice, 0, e.cfg.MaxCoolingDevices)

	for i := 0; i < e.cfg.MaxCoolingDevices; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := e.coolingDir(i)
		if !exists(dir) {
			break
		}

		devType, err := readToken(filepath.Join(dir, "type"))
		if err != nil {
			return nil, err
		}

		e.logger.Debug().Int("cooling_device", i).Str("type", devType).Msg("Found cooling device")
		devices = append(devices, CoolingDevice{Index: i, Type: devType})
	}

	return devices, nil
}

// ZoneTemperature returns the current temperature of a zone in Celsius.
func (e *Enumerator) ZoneTemperature(zone int) (float64, error) {
	v, err := readFloat(filepath.Join(e.zoneDir(zone), "temp"))
	if err != nil {
		return 0, err
	}

	return v * e.cfg.Multiplier, nil
}

// TripTemperature returns the temperature of a zone's trip point in Celsius.
func (e *Enumerator) TripTemperature(zone, trip int) (float64, error) {
	if trip < 0 || trip >= e.cfg.MaxTrips {
		return 0, errors.New().WithData(ErrOutOfRange, trip)
	}

	v, err := readFloat(filepath.Join(e.zoneDir(zone), fmt.Sprintf("trip_point_%d_temp", trip)))
	if err != nil {
		return 0, err
	}

	return v * e.cfg.Multiplier, nil
}

// CoolingState returns the raw current state of a cooling device.
func (e *Enumerator) CoolingState(device int) (float64, error) {
	return readFloat(filepath.Join(e.coolingDir(device), "cur_state"))
}

func (e *Enumerator) zoneDir(i int) string {
	return filepath.Join(e.cfg.Root, fmt.Sprintf("thermal_zone%d", i))
}

func (e *Enumerator) coolingDir(i int) string {
	return filepath.Join(e.cfg.Root, fmt.Sprintf("cooling_device%d", i))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readToken returns the first whitespace-separated token of a node.
func readToken(path string) (string, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errFactory.Wrap(ErrIO, err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", errFactory.WithData(ErrIO, "empty node "+path)
	}

	return fields[0], nil
}

func readFloat(path string) (float64, error) {
	raw, err := readToken(path)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New().Wrap(ErrInvalidValue, err)
	}

	return v, nil
}
