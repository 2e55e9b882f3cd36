package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/thermald/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile            = "/etc/thermald.toml"
	DefaultEnvPrefix             = "THERMALD"
	DefaultLogLevel              = "warning"
	DefaultProduct               = "generic"
	DefaultSysfsRoot             = "/sys/class/thermal"
	DefaultCPURoot               = "/sys/devices/system/cpu"
	DefaultProcRoot              = "/proc"
	DefaultTemperatureMultiplier = 0.001
	DefaultInterval              = 2
	DefaultInventoryDB           = "/var/lib/thermald/inventory.db"
	DefaultPIDDir                = "/run"
)

// DefaultConfigDirs lists where thermal.<product>.xml is searched for.
var DefaultConfigDirs = []string{"/vendor/etc", "/system/etc"}

type Config struct {
	LogLevel              string   `mapstructure:"log_level"`
	Product               string   `mapstructure:"product"`
	ConfigDirs            []string `mapstructure:"config_dirs"`
	SysfsRoot             string   `mapstructure:"sysfs_root"`
	CPURoot               string   `mapstructure:"cpu_root"`
	ProcRoot              string   `mapstructure:"proc_root"`
	TemperatureMultiplier float64  `mapstructure:"temperature_multiplier"`
	StubThermalZones      bool     `mapstructure:"stub_thermal_zones"`
	StubCoolingDevices    bool     `mapstructure:"stub_cooling_devices"`
	Interval              int      `mapstructure:"interval"`
	MetricsListen         string   `mapstructure:"metrics_listen"`
	Inventory             bool     `mapstructure:"inventory"`
	InventoryDB           string   `mapstructure:"inventory_db"`
	PIDDir                string   `mapstructure:"pid_dir"`
	Dump                  bool     `mapstructure:"dump"`

	// ConfigFile is the daemon configuration file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log_level":              DefaultLogLevel,
		"product":                DefaultProduct,
		"config_dirs":            DefaultConfigDirs,
		"sysfs_root":             DefaultSysfsRoot,
		"cpu_root":               DefaultCPURoot,
		"proc_root":              DefaultProcRoot,
		"temperature_multiplier": DefaultTemperatureMultiplier,
		"stub_thermal_zones":     true,
		"stub_cooling_devices":   true,
		"interval":               DefaultInterval,
		"metrics_listen":         "",
		"inventory":              false,
		"inventory_db":           DefaultInventoryDB,
		"pid_dir":                DefaultPIDDir,
		"dump":                   false,
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("thermald", pflag.ContinueOnError)

	fs.String("config", "", "Path to the daemon configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("product", DefaultProduct, "Product name selecting thermal.<product>.xml")
	fs.StringSlice("config-dirs", DefaultConfigDirs, "Directories searched for the thermal configuration")
	fs.String("sysfs-root", DefaultSysfsRoot, "Kernel thermal class directory")
	fs.String("cpu-root", DefaultCPURoot, "Kernel CPU device directory")
	fs.String("proc-root", DefaultProcRoot, "procfs mount point")
	fs.Float64("temperature-multiplier", DefaultTemperatureMultiplier, "Factor converting raw sysfs temperatures to Celsius")
	fs.Bool("stub-thermal-zones", true, "Report a stand-in sensor when no thermal zone exists")
	fs.Bool("stub-cooling-devices", true, "Report a stand-in cooling device when none exists")
	fs.Int("interval", DefaultInterval, "Seconds between severity polls")
	fs.String("metrics-listen", "", "Address serving Prometheus metrics, empty to disable")
	fs.Bool("inventory", false, "Record the discovered hardware in the inventory database")
	fs.String("inventory-db", DefaultInventoryDB, "Path to the inventory database")
	fs.String("pid-dir", DefaultPIDDir, "Directory holding the PID file")
	fs.Bool("dump", false, "Print every query result as YAML and exit")

	return fs
}

// Load reads the configuration from defaults, the configuration file,
// the environment and the command line, in increasing precedence.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	if bindErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	path, explicit := configPath(fs, o)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
			path = ""
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.ConfigFile = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configPath picks the configuration file: the --config flag, then the
// WithConfigFile option, then <PREFIX>_CONFIG, then the default location.
// Only the default location may be missing.
func configPath(fs *pflag.FlagSet, o *options) (string, bool) {
	if p, _ := fs.GetString("config"); p != "" {
		return p, true
	}
	if o.configPath != "" {
		return o.configPath, true
	}
	if p := os.Getenv(o.envPrefix + "_CONFIG"); p != "" {
		return p, true
	}

	return DefaultConfigFile, false
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	errFactory := errors.New()

	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return err
	}
	c.LogLevel = level.String()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.TemperatureMultiplier <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "temperature_multiplier must be positive")
	}
	if c.Inventory && c.InventoryDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "inventory_db is required when inventory is enabled")
	}

	return nil
}

// Usage returns the command line help text.
func Usage() string {
	return newFlagSet().FlagUsages()
}
