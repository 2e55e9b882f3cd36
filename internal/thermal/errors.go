package thermal

import "codeberg.org/mutker/thermald/internal/errors"

const (
	// Startup errors
	ErrConfigLoad = errors.ErrorCode("thermal_config_load_failed")
	ErrScan       = errors.ErrorCode("thermal_scan_failed")
	ErrResolve    = errors.ErrorCode("thermal_resolve_failed")

	// Query errors
	ErrReadTemperature  = errors.ErrorCode("thermal_read_temperature_failed")
	ErrReadCoolingState = errors.ErrorCode("thermal_read_cooling_state_failed")
	ErrReadCPUUsage     = errors.ErrorCode("thermal_read_cpu_usage_failed")

	// Listener registry errors
	ErrInvalidListener   = errors.ErrorCode("thermal_invalid_listener")
	ErrAlreadyRegistered = errors.ErrorCode("thermal_listener_already_registered")
	ErrNotRegistered     = errors.ErrorCode("thermal_listener_not_registered")
	ErrListenerFailed    = errors.ErrorCode("thermal_listener_failed")
)
