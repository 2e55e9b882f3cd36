package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"codeberg.org/mutker/thermald/internal/config"
	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/inventory"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/pid"
	"codeberg.org/mutker/thermald/internal/sysfs"
	"codeberg.org/mutker/thermald/internal/thermal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n\n%s", err, config.Usage())
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Str("config_file", cfg.ConfigFile).Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service := thermal.New(ctx, serviceOptions(cfg))

	if cfg.Dump {
		if err := dump(os.Stdout, service); err != nil {
			logger.Fatal().Err(err).Msg("failed to dump query results")
		}
		return
	}

	pidFile := pid.New(cfg.PIDDir)
	if err := pidFile.Write(); err != nil {
		if e, ok := err.(errors.Error); ok {
			logger.FatalWithCode(e).Str("path", pidFile.Path()).Msg("failed to write PID file")
		}
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	if cfg.Inventory && service.Enabled() {
		if err := recordInventory(ctx, cfg, service); err != nil {
			logger.Error().Err(err).Msg("failed to record hardware inventory")
		}
	}

	var server *http.Server
	if cfg.MetricsListen != "" {
		server = serveMetrics(cfg.MetricsListen)
	}

	go handleSignals(cancel)

	registry := thermal.NewRegistry(logger.Get())
	if _, err := registry.Register(logListener{}, false, thermal.TemperatureUnknown); err != nil {
		logger.Error().Err(err).Msg("failed to register throttling log listener")
	}

	watcher := thermal.NewWatcher(service, registry, logger.Get())
	interval := time.Duration(cfg.Interval) * time.Second
	if err := watcher.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("error in watch loop")
	}

	registry.Wait()
	cleanup(server)
}

func serviceOptions(cfg *config.Config) thermal.Options {
	sysfsCfg := sysfs.DefaultConfig()
	sysfsCfg.Root = cfg.SysfsRoot
	sysfsCfg.Multiplier = cfg.TemperatureMultiplier

	return thermal.Options{
		Product:            cfg.Product,
		ConfigDirs:         cfg.ConfigDirs,
		Sysfs:              sysfsCfg,
		ProcRoot:           cfg.ProcRoot,
		CPURoot:            cfg.CPURoot,
		StubThermalZones:   cfg.StubThermalZones,
		StubCoolingDevices: cfg.StubCoolingDevices,
		Logger:             logger.Get(),
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup(server *http.Server) {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to stop metrics server")
		}
	}
	logger.Info().Msg("Exiting...")
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return server
}

// recordInventory stores the discovered hardware and warns when it differs
// from the previous run.
func recordInventory(ctx context.Context, cfg *config.Config, service *thermal.Service) error {
	repo, err := inventory.NewRepository(inventory.Config{
		DBPath:    cfg.InventoryDB,
		BackupDir: filepath.Join(filepath.Dir(cfg.InventoryDB), "backups"),
		Enabled:   true,
	}, logger.Get())
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close inventory")
		}
	}()

	inv, store := service.Inventory()
	current := inventory.NewSnapshot(inv, store, service.ConfigPath())

	previous, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	if previous != nil && !current.SameHardware(previous) {
		logger.Warn().
			Time("previous", previous.TakenAt).
			Int("zones", len(current.Zones)).
			Int("previous_zones", len(previous.Zones)).
			Msg("Thermal hardware changed since the last run")
	}

	return repo.Save(ctx, current)
}

// logListener logs every throttling notification.
type logListener struct{}

func (logListener) NotifyThrottling(t thermal.Temperature) error {
	logger.Warn().
		Str("sensor", t.Name).
		Str("type", t.Type.String()).
		Float64("temperature", t.Value).
		Str("severity", t.Severity.String()).
		Msg("Throttling")

	return nil
}

// dumpFamily is one query family with the status it returned.
type dumpFamily[T any] struct {
	Status  string `yaml:"status"`
	Message string `yaml:"message,omitempty"`
	Records []T    `yaml:"records"`
}

func newDumpFamily[T any](status thermal.Status, records []T) dumpFamily[T] {
	return dumpFamily[T]{
		Status:  status.Code.String(),
		Message: status.Message,
		Records: records,
	}
}

type dumpDocument struct {
	Enabled              bool                                    `yaml:"enabled"`
	Error                string                                  `yaml:"error,omitempty"`
	ConfigPath           string                                  `yaml:"config_path,omitempty"`
	LegacyTemperatures   dumpFamily[thermal.LegacyTemperature]   `yaml:"legacy_temperatures"`
	Temperatures         dumpFamily[thermal.Temperature]         `yaml:"temperatures"`
	Thresholds           dumpFamily[thermal.ThresholdRow]        `yaml:"thresholds"`
	LegacyCoolingDevices dumpFamily[thermal.LegacyCoolingDevice] `yaml:"legacy_cooling_devices"`
	CoolingDevices       dumpFamily[thermal.CoolingDevice]       `yaml:"cooling_devices"`
	CPUUsages            dumpFamily[thermal.CPUUsage]            `yaml:"cpu_usages"`
}

// newDumpDocument runs every query once.
func newDumpDocument(service *thermal.Service) dumpDocument {
	doc := dumpDocument{
		Enabled:    service.Enabled(),
		ConfigPath: service.ConfigPath(),
	}
	if err := service.Err(); err != nil {
		doc.Error = err.Error()
	}

	status, legacyTemps := service.LegacyTemperatures()
	doc.LegacyTemperatures = newDumpFamily(status, legacyTemps)

	status, temps := service.Temperatures()
	doc.Temperatures = newDumpFamily(status, temps)

	status, rows := service.TemperatureThresholds()
	doc.Thresholds = newDumpFamily(status, rows)

	status, legacyCooling := service.LegacyCoolingDevices()
	doc.LegacyCoolingDevices = newDumpFamily(status, legacyCooling)

	status, cooling := service.CoolingDevices()
	doc.CoolingDevices = newDumpFamily(status, cooling)

	status, usages := service.CPUUsages()
	doc.CPUUsages = newDumpFamily(status, usages)

	return doc
}

func dump(w io.Writer, service *thermal.Service) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)

	return enc.Encode(newDumpDocument(service))
}
