package config

import (
	"strings"

	"codeberg.org/mutker/thermald/internal/errors"
)

// Option adjusts how Load locates its sources.
type Option func(*options) error

type options struct {
	configPath string
	envPrefix  string
}

// WithConfigFile reads path instead of the default configuration file.
// A file named this way must exist.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.New().WithMessage(errors.ErrInvalidArgument, "config file path is empty")
		}
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix replaces the THERMALD environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		prefix = strings.ToUpper(strings.TrimSuffix(prefix, "_"))
		if prefix == "" {
			return errors.New().WithMessage(errors.ErrInvalidArgument, "environment prefix is empty")
		}
		o.envPrefix = prefix
		return nil
	}
}

// LogLevel is a log level name accepted in the configuration.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ParseLogLevel normalizes s. "warn" is accepted as an alias of "warning".
func ParseLogLevel(s string) (LogLevel, error) {
	l := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if l == "warn" {
		l = LogLevelWarning
	}
	if !l.IsValid() {
		return "", errors.New().WithData(errors.ErrInvalidLogLevel, s)
	}

	return l, nil
}

// IsValid reports whether l is one of the canonical level names.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

func (l LogLevel) String() string {
	return string(l)
}
