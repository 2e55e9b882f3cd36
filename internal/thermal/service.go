package thermal

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/sysfs"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
)

// StatusCode classifies the outcome of a query.
type StatusCode int

const (
	StatusSuccess StatusCode = iota
	StatusUnsupported
	StatusNoData
	StatusFailure
)

func (c StatusCode) String() string {
	switch c {
	case StatusSuccess:
		return "success"
	case StatusUnsupported:
		return "unsupported"
	case StatusNoData:
		return "no_data"
	default:
		return "failure"
	}
}

// Status is returned alongside every query result.
type Status struct {
	Code    StatusCode
	Message string
}

const (
	msgUnsupported = "Unsupported hardware"
	msgNoSensor    = "No available sensor"
	msgNoCooling   = "No available cooling device"
)

// Options configures a Service.
type Options struct {
	// Product selects thermal.<product>.xml in ConfigDirs.
	Product    string
	ConfigDirs []string

	// Store, when set, is used instead of loading the configuration.
	Store *thermalconfig.Store

	Sysfs    sysfs.Config
	ProcRoot string
	CPURoot  string

	StubThermalZones   bool
	StubCoolingDevices bool

	Logger logger.Logger
}

// Service is the query interface of the daemon. Its tables are built once
// by New and never modified, so queries may run concurrently.
type Service struct {
	enabled    bool
	reason     error
	configPath string
	agg        *aggregator
	cpu        *cpuReader
	enumerator *sysfs.Enumerator
	logger     logger.Logger
}

// New loads the configuration, scans the hardware and resolves thresholds.
// When any step fails the service is still returned, disabled: every query
// then reports StatusUnsupported.
func New(ctx context.Context, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	log = log.With("thermal")

	s := &Service{
		cpu:    newCPUReader(opts.ProcRoot, opts.CPURoot, log.With("cpu")),
		logger: log,
	}

	if err := s.init(ctx, opts); err != nil {
		s.reason = err
		if e, ok := err.(errors.Error); ok {
			log.ErrorWithCode(e).Msg("Thermal service disabled")
		} else {
			log.Error().Err(err).Msg("Thermal service disabled")
		}
		return s
	}

	s.enabled = true
	log.Info().
		Int("zones", len(s.agg.inventory.Zones)).
		Int("cooling_devices", len(s.agg.inventory.CoolingDevices)).
		Int("thresholds", s.agg.table.Len()).
		Msg("Thermal service ready")

	return s
}

func (s *Service) init(ctx context.Context, opts Options) error {
	errFactory := errors.New()

	store := opts.Store
	if store == nil {
		dirs := opts.ConfigDirs
		if len(dirs) == 0 {
			dirs = thermalconfig.DefaultDirs
		}

		loaded, path, err := thermalconfig.Load(opts.Product, dirs, s.logger)
		switch {
		case err == nil:
			store = loaded
			s.configPath = path
		case errors.CodeOf(err) == thermalconfig.ErrConfigNotFound:
			s.logger.Warn().Err(err).Msg("No thermal configuration, using defaults")
			store = thermalconfig.NewStore()
		default:
			return errFactory.Wrap(ErrConfigLoad, err)
		}
	}

	s.enumerator = sysfs.New(opts.Sysfs, s.logger.With("sysfs"))
	inv, err := s.enumerator.Scan(ctx)
	if err != nil {
		return errFactory.Wrap(ErrScan, err)
	}

	catalog := DefaultCatalog().WithConfig(store)
	table, err := Resolve(inv.Zones, catalog, s.enumerator, store, s.logger)
	if err != nil {
		return err
	}

	s.agg = &aggregator{
		inventory:      inv,
		catalog:        catalog,
		coolingCatalog: DefaultCoolingCatalog(),
		legacyCooling:  DefaultLegacyCooling(),
		table:          table,
		store:          store,
		reader:         s.enumerator,
		stubZones:      opts.StubThermalZones,
		stubCooling:    opts.StubCoolingDevices,
		logger:         s.logger,
	}

	return nil
}

// Enabled reports whether initialization succeeded.
func (s *Service) Enabled() bool {
	return s.enabled
}

// Err returns the reason the service is disabled.
func (s *Service) Err() error {
	return s.reason
}

// ConfigPath returns the configuration document that was loaded, if any.
func (s *Service) ConfigPath() string {
	return s.configPath
}

// Inventory returns the scanned hardware and the device configuration.
// Both are nil when the service is disabled.
func (s *Service) Inventory() (*sysfs.Inventory, *thermalconfig.Store) {
	if !s.enabled {
		return nil, nil
	}

	return s.agg.inventory, s.agg.store
}

func (s *Service) unsupported() Status {
	msg := msgUnsupported
	if s.reason != nil {
		msg = fmt.Sprintf("%s: %v", msgUnsupported, s.reason)
	}

	return Status{Code: StatusUnsupported, Message: msg}
}

// finish maps a query outcome to its status and records it.
func (s *Service) finish(family string, start time.Time, n int, err error, empty string) Status {
	var st Status
	switch {
	case err != nil:
		s.logger.Error().Err(err).Str("query", family).Msg("Query failed")
		st = Status{Code: StatusFailure, Message: err.Error()}
	case n == 0:
		st = Status{Code: StatusNoData, Message: empty}
	default:
		st = Status{Code: StatusSuccess}
	}

	observeQuery(family, st.Code, time.Since(start))

	return st
}

// LegacyTemperatures reports every sensor with its current value and
// throttling, shutdown and VR thresholds.
func (s *Service) LegacyTemperatures() (Status, []LegacyTemperature) {
	return s.legacyTemperatures(anyTemperature)
}

// LegacyTemperaturesOfType is LegacyTemperatures restricted to one type.
func (s *Service) LegacyTemperaturesOfType(t TemperatureType) (Status, []LegacyTemperature) {
	return s.legacyTemperatures(temperatureOfType(t))
}

func (s *Service) legacyTemperatures(match func(TemperatureType) bool) (Status, []LegacyTemperature) {
	if !s.enabled {
		return s.unsupported(), nil
	}

	start := time.Now()
	out, err := s.agg.legacyTemperatures(match)
	if err != nil {
		out = nil
	}

	return s.finish("legacy_temperatures", start, len(out), err, msgNoSensor), out
}

// Temperatures reports every sensor with its current value and severity.
func (s *Service) Temperatures() (Status, []Temperature) {
	return s.temperatures(anyTemperature)
}

// TemperaturesOfType is Temperatures restricted to one type.
func (s *Service) TemperaturesOfType(t TemperatureType) (Status, []Temperature) {
	return s.temperatures(temperatureOfType(t))
}

func (s *Service) temperatures(match func(TemperatureType) bool) (Status, []Temperature) {
	if !s.enabled {
		return s.unsupported(), nil
	}

	start := time.Now()
	out, err := s.agg.temperatures(match)
	if err != nil {
		out = nil
	}

	return s.finish("temperatures", start, len(out), err, msgNoSensor), out
}

// TemperatureThresholds reports a copy of every threshold row.
func (s *Service) TemperatureThresholds() (Status, []ThresholdRow) {
	return s.thresholds(anyTemperature)
}

// TemperatureThresholdsOfType is TemperatureThresholds restricted to one type.
func (s *Service) TemperatureThresholdsOfType(t TemperatureType) (Status, []ThresholdRow) {
	return s.thresholds(temperatureOfType(t))
}

func (s *Service) thresholds(match func(TemperatureType) bool) (Status, []ThresholdRow) {
	if !s.enabled {
		return s.unsupported(), nil
	}

	start := time.Now()
	out := s.agg.thresholds(match)

	return s.finish("temperature_thresholds", start, len(out), nil, msgNoSensor), out
}

// LegacyCoolingDevices reports the legacy cooling device state.
func (s *Service) LegacyCoolingDevices() (Status, []LegacyCoolingDevice) {
	return s.legacyCoolingDevices(func(LegacyCoolingType) bool { return true })
}

// LegacyCoolingDevicesOfType is LegacyCoolingDevices restricted to one type.
func (s *Service) LegacyCoolingDevicesOfType(t LegacyCoolingType) (Status, []LegacyCoolingDevice) {
	return s.legacyCoolingDevices(func(v LegacyCoolingType) bool { return v == t })
}

func (s *Service) legacyCoolingDevices(match func(LegacyCoolingType) bool) (Status, []LegacyCoolingDevice) {
	if !s.enabled {
		return s.unsupported(), nil
	}

	start := time.Now()
	out, err := s.agg.legacyCoolingDevices(match)
	if err != nil {
		out = nil
	}

	return s.finish("legacy_cooling_devices", start, len(out), err, msgNoCooling), out
}

// CoolingDevices reports the state of every managed cooling device.
func (s *Service) CoolingDevices() (Status, []CoolingDevice) {
	return s.coolingDevices(func(CoolingType) bool { return true })
}

// CoolingDevicesOfType is CoolingDevices restricted to one type.
func (s *Service) CoolingDevicesOfType(t CoolingType) (Status, []CoolingDevice) {
	return s.coolingDevices(func(v CoolingType) bool { return v == t })
}

func (s *Service) coolingDevices(match func(CoolingType) bool) (Status, []CoolingDevice) {
	if !s.enabled {
		return s.unsupported(), nil
	}

	start := time.Now()
	out, err := s.agg.coolingDevices(match)
	if err != nil {
		out = nil
	}

	return s.finish("cooling_devices", start, len(out), err, msgNoCooling), out
}

// CPUUsages reports busy and total ticks of the first CPUs.
func (s *Service) CPUUsages() (Status, []CPUUsage) {
	if !s.enabled {
		return s.unsupported(), nil
	}

	start := time.Now()
	out, err := s.cpu.usages()
	if err != nil {
		out = nil
	}

	return s.finish("cpu_usages", start, len(out), err, msgNoSensor), out
}
